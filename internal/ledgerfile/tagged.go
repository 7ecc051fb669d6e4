package ledgerfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/teller-ledger/teller/internal/model"
)

// Header is the first line of a tagged ledger file. It is a CSV comment.
const Header = "#teller-ledger v1"

// Record tags. Every record's first field is one of these.
const (
	TagUser        = "U"
	TagAccount     = "A"
	TagTransaction = "T"
)

const (
	userFields    = 4 // U,name,address,phone
	accountFields = 4 // A,number,owner,balance
	txnFields     = 3 // T,kind,amount

	colName    = 1
	colAddress = 2
	colPhone   = 3

	colNumber  = 1
	colOwner   = 2
	colBalance = 3

	colKind   = 1
	colAmount = 2
)

// TaggedCodec writes one CSV record per user, account and transaction.
// Accounts belong to the user record above them and transactions to the
// account record above them, so nothing is inferred from field contents.
type TaggedCodec struct{}

// Format implements Codec.
func (TaggedCodec) Format() string { return FormatTagged }

// Encode implements Codec.
func (TaggedCodec) Encode(w io.Writer, users []*model.User) error {
	if _, err := fmt.Fprintln(w, Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	cw := csv.NewWriter(w)
	defer cw.Flush()

	for i, u := range users {
		rows := MarshalUser(u)
		if err := checkTaggedFields(rows); err != nil {
			return fmt.Errorf("user %d (%s): %w", i+1, u.Name, err)
		}
		if err := cw.WriteAll(rows); err != nil {
			return fmt.Errorf("writing user %d: %w", i+1, err)
		}
	}
	return cw.Error()
}

// Decode implements Codec.
func (TaggedCodec) Decode(r io.Reader) ([]*model.User, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1

	var (
		users   []*model.User
		user    *model.User
		pending *pendingAccount
	)
	flush := func() {
		if pending != nil {
			user.AddAccount(pending.build())
			pending = nil
		}
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading ledger: %w", err)
		}
		line, _ := cr.FieldPos(0)

		switch rec[0] {
		case TagUser:
			flush()
			u, err := UnmarshalUser(rec)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			users = append(users, u)
			user = u
		case TagAccount:
			if user == nil {
				return nil, fmt.Errorf("line %d: account record before any user", line)
			}
			flush()
			p, err := unmarshalAccount(rec)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			pending = p
		case TagTransaction:
			if pending == nil {
				return nil, fmt.Errorf("line %d: transaction record before any account", line)
			}
			txn, err := UnmarshalTransaction(rec)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			pending.txns = append(pending.txns, txn)
		default:
			return nil, fmt.Errorf("line %d: unknown record type %q", line, rec[0])
		}
	}
	flush()
	return users, nil
}

// MarshalUser converts a user and everything it owns into CSV records.
func MarshalUser(u *model.User) [][]string {
	rows := [][]string{{TagUser, u.Name, u.Address, u.Phone}}
	for _, a := range u.Accounts() {
		rows = append(rows, MarshalAccount(a)...)
	}
	return rows
}

// MarshalAccount converts an account and its transactions into CSV records.
func MarshalAccount(a *model.Account) [][]string {
	rows := [][]string{{TagAccount, a.Number, a.Owner, a.Balance().String()}}
	for _, t := range a.History() {
		rows = append(rows, MarshalTransaction(t))
	}
	return rows
}

// MarshalTransaction converts a transaction into a CSV record.
func MarshalTransaction(t model.Transaction) []string {
	return []string{TagTransaction, t.Kind, t.Amount.String()}
}

// UnmarshalUser converts a U record into a user without accounts.
func UnmarshalUser(record []string) (*model.User, error) {
	if len(record) != userFields {
		return nil, fmt.Errorf("user record: expected %d fields, got %d", userFields, len(record))
	}
	return model.NewUser(record[colName], record[colAddress], record[colPhone]), nil
}

// UnmarshalTransaction converts a T record into a transaction.
func UnmarshalTransaction(record []string) (model.Transaction, error) {
	if len(record) != txnFields {
		return model.Transaction{}, fmt.Errorf("transaction record: expected %d fields, got %d", txnFields, len(record))
	}
	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}
	return model.Transaction{Kind: record[colKind], Amount: amount}, nil
}

// checkTaggedFields rejects carriage returns. csv.Reader turns a quoted
// "\r\n" into "\n", so such a field would read back changed.
func checkTaggedFields(rows [][]string) error {
	for _, row := range rows {
		for _, f := range row {
			if strings.ContainsRune(f, '\r') {
				return fmt.Errorf("%w: field %q contains a carriage return", ErrUnencodable, f)
			}
		}
	}
	return nil
}

type pendingAccount struct {
	number  string
	owner   string
	balance decimal.Decimal
	txns    []model.Transaction
}

func (p *pendingAccount) build() *model.Account {
	return model.RestoreAccount(p.number, p.owner, p.balance, p.txns)
}

func unmarshalAccount(record []string) (*pendingAccount, error) {
	if len(record) != accountFields {
		return nil, fmt.Errorf("account record: expected %d fields, got %d", accountFields, len(record))
	}
	balance, err := decimal.NewFromString(record[colBalance])
	if err != nil {
		return nil, fmt.Errorf("parsing balance %q: %w", record[colBalance], err)
	}
	return &pendingAccount{number: record[colNumber], owner: record[colOwner], balance: balance}, nil
}
