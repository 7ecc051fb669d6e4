package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Transaction kinds written by the account operations. Kind is free text, so
// persisted ledgers may carry other labels too.
const (
	KindDeposit        = "Deposit"
	KindWithdraw       = "Withdraw"
	TransferToPrefix   = "Transfer to "
	TransferFromPrefix = "Transfer from "
)

// Transaction is one immutable ledger event on a single account.
type Transaction struct {
	Kind   string
	Amount decimal.Decimal
}

// SignedAmount returns the amount as it affects the balance: positive for
// credits, negative for debits. ok is false when the kind is not one the
// account operations produce.
func (t Transaction) SignedAmount() (amount decimal.Decimal, ok bool) {
	switch {
	case t.Kind == KindDeposit, strings.HasPrefix(t.Kind, TransferFromPrefix):
		return t.Amount, true
	case t.Kind == KindWithdraw, strings.HasPrefix(t.Kind, TransferToPrefix):
		return t.Amount.Neg(), true
	default:
		return decimal.Zero, false
	}
}
