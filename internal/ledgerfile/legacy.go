package ledgerfile

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/teller-ledger/teller/internal/id"
	"github.com/teller-ledger/teller/internal/model"
)

const legacySep = ","

// LegacyCodec reads and writes the older one-line-per-user format:
//
//	name,address,phone[,number,owner,balance[,kind,amount]...]...
//
// Nothing marks where one account's transactions end and the next account
// begins. The decoder keeps reading (kind, amount) pairs until the next field
// is all digits and takes that field as the next account number. So every
// account after the first on a line needs an all-digit number, and no
// transaction kind may be all digits. Fields are not escaped, so none may
// contain a comma or a line break. Encode returns ErrUnencodable instead of
// writing a line that would read back differently.
type LegacyCodec struct{}

// Format implements Codec.
func (LegacyCodec) Format() string { return FormatLegacy }

// Encode implements Codec.
func (LegacyCodec) Encode(w io.Writer, users []*model.User) error {
	bw := bufio.NewWriter(w)
	for i, u := range users {
		fields, err := legacyFields(u)
		if err != nil {
			return fmt.Errorf("user %d (%s): %w", i+1, u.Name, err)
		}
		if _, err := bw.WriteString(strings.Join(fields, legacySep) + "\n"); err != nil {
			return fmt.Errorf("writing user %d: %w", i+1, err)
		}
	}
	return bw.Flush()
}

// Decode implements Codec. Blank lines are skipped.
func (LegacyCodec) Decode(r io.Reader) ([]*model.User, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var users []*model.User
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		u, err := UnmarshalLegacyLine(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		users = append(users, u)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}
	return users, nil
}

// UnmarshalLegacyLine parses one legacy line into a user and its accounts.
func UnmarshalLegacyLine(line string) (*model.User, error) {
	parts := strings.Split(line, legacySep)
	if len(parts) < 3 {
		return nil, fmt.Errorf("expected name, address and phone, got %d fields", len(parts))
	}
	u := model.NewUser(parts[0], parts[1], parts[2])

	i := 3
	for i < len(parts) {
		if i+3 > len(parts) {
			return nil, fmt.Errorf("field %d: account %q is missing owner or balance", i+1, parts[i])
		}
		number, owner := parts[i], parts[i+1]
		balance, err := decimal.NewFromString(parts[i+2])
		if err != nil {
			return nil, fmt.Errorf("field %d: parsing balance %q of account %q: %w", i+3, parts[i+2], number, err)
		}
		i += 3

		var txns []model.Transaction
		for i < len(parts) && !id.IsNumeric(parts[i]) {
			if i+1 >= len(parts) {
				return nil, fmt.Errorf("field %d: transaction %q has no amount", i+1, parts[i])
			}
			amount, err := decimal.NewFromString(parts[i+1])
			if err != nil {
				return nil, fmt.Errorf("field %d: parsing amount %q of transaction %q: %w", i+2, parts[i+1], parts[i], err)
			}
			txns = append(txns, model.Transaction{Kind: parts[i], Amount: amount})
			i += 2
		}
		u.AddAccount(model.RestoreAccount(number, owner, balance, txns))
	}
	return u, nil
}

func legacyFields(u *model.User) ([]string, error) {
	fields := []string{u.Name, u.Address, u.Phone}
	for i, a := range u.Accounts() {
		if i > 0 && !id.IsNumeric(a.Number) {
			return nil, fmt.Errorf("%w: account %q follows another account and is not all digits", ErrUnencodable, a.Number)
		}
		fields = append(fields, a.Number, a.Owner, a.Balance().String())
		for _, t := range a.History() {
			if id.IsNumeric(t.Kind) {
				return nil, fmt.Errorf("%w: transaction kind %q on account %q is all digits", ErrUnencodable, t.Kind, a.Number)
			}
			fields = append(fields, t.Kind, t.Amount.String())
		}
	}
	for _, f := range fields {
		if strings.ContainsAny(f, ",\r\n") {
			return nil, fmt.Errorf("%w: field %q contains a comma or line break", ErrUnencodable, f)
		}
	}
	return fields, nil
}
