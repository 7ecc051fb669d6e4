package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/teller-ledger/teller/internal/model"
)

// Check names one consistency rule.
type Check string

const (
	CheckDuplicateUser    Check = "duplicate-user"
	CheckDuplicateAccount Check = "duplicate-account"
	CheckNegativeBalance  Check = "negative-balance"
	CheckNegativeAmount   Check = "negative-amount"
	CheckUnknownKind      Check = "unknown-kind"
	CheckBalanceDrift     Check = "balance-drift"
)

// ValidationError describes a single consistency violation.
type ValidationError struct {
	Check       Check
	Subject     string // user name or account number
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s [%s]: %s", e.Check, e.Subject, e.Description)
}

// Validate checks a set of users for problems the ledger format allows but
// the account operations never produce. It does not modify anything.
func Validate(users []*model.User) []ValidationError {
	var errs []ValidationError

	// Duplicate user names, ignoring case. Lookups would only ever find the first.
	seenUsers := make(map[string]string)
	for _, u := range users {
		key := strings.ToLower(u.Name)
		if first, ok := seenUsers[key]; ok {
			errs = append(errs, ValidationError{
				Check:       CheckDuplicateUser,
				Subject:     u.Name,
				Description: fmt.Sprintf("name also used by %q", first),
			})
			continue
		}
		seenUsers[key] = u.Name
	}

	seenAccounts := make(map[string]string)
	for _, u := range users {
		for _, a := range u.Accounts() {
			if owner, ok := seenAccounts[a.Number]; ok {
				errs = append(errs, ValidationError{
					Check:       CheckDuplicateAccount,
					Subject:     a.Number,
					Description: fmt.Sprintf("held by %q and %q", owner, u.Name),
				})
			} else {
				seenAccounts[a.Number] = u.Name
			}

			errs = append(errs, validateAccount(a)...)
		}
	}

	return errs
}

func validateAccount(a *model.Account) []ValidationError {
	var errs []ValidationError

	if a.Balance().IsNegative() {
		errs = append(errs, ValidationError{
			Check:       CheckNegativeBalance,
			Subject:     a.Number,
			Description: fmt.Sprintf("balance %s is below zero", a.Balance()),
		})
	}

	sum := decimal.Zero
	for i, t := range a.History() {
		if t.Amount.IsNegative() {
			errs = append(errs, ValidationError{
				Check:       CheckNegativeAmount,
				Subject:     a.Number,
				Description: fmt.Sprintf("transaction %d (%s) has amount %s", i+1, t.Kind, t.Amount),
			})
		}
		signed, ok := t.SignedAmount()
		if !ok {
			errs = append(errs, ValidationError{
				Check:       CheckUnknownKind,
				Subject:     a.Number,
				Description: fmt.Sprintf("transaction %d has unrecognized kind %q", i+1, t.Kind),
			})
			continue
		}
		sum = sum.Add(signed)
	}

	if !sum.Equal(a.Balance()) {
		errs = append(errs, ValidationError{
			Check:       CheckBalanceDrift,
			Subject:     a.Number,
			Description: fmt.Sprintf("balance %s but transactions sum to %s", a.Balance(), sum),
		})
	}

	return errs
}
