package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Account is a bank account with a running balance and an append-only
// transaction log. Balance and log change only through Deposit, Withdraw
// and Transfer.
type Account struct {
	Number string
	Owner  string // informational, not checked against the owning user

	balance      decimal.Decimal
	transactions []Transaction
}

// NewAccount returns an empty account with a zero balance.
func NewAccount(number, owner string) *Account {
	return &Account{Number: number, Owner: owner}
}

// RestoreAccount rebuilds an account from persisted state. The balance is
// taken as stored; transactions are not replayed.
func RestoreAccount(number, owner string, balance decimal.Decimal, transactions []Transaction) *Account {
	txns := make([]Transaction, len(transactions))
	copy(txns, transactions)
	return &Account{Number: number, Owner: owner, balance: balance, transactions: txns}
}

// Balance returns the current balance.
func (a *Account) Balance() decimal.Decimal {
	return a.balance
}

// History returns a copy of the transaction log in the order it was written.
func (a *Account) History() []Transaction {
	out := make([]Transaction, len(a.transactions))
	copy(out, a.transactions)
	return out
}

// Deposit credits amount and records a Deposit transaction.
func (a *Account) Deposit(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	a.balance = a.balance.Add(amount)
	a.transactions = append(a.transactions, Transaction{Kind: KindDeposit, Amount: amount})
	return nil
}

// Withdraw debits amount if the balance covers it. On ErrInsufficientFunds
// nothing changes.
func (a *Account) Withdraw(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(a.balance) {
		return ErrInsufficientFunds
	}
	a.balance = a.balance.Sub(amount)
	a.transactions = append(a.transactions, Transaction{Kind: KindWithdraw, Amount: amount})
	return nil
}

// Transfer moves amount from a to target and records one transaction on each
// side, naming the counterpart's account number in the kind.
func (a *Account) Transfer(target *Account, amount decimal.Decimal) error {
	if target == nil {
		return ErrAccountNotFound
	}
	if target == a || target.Number == a.Number {
		return ErrSameAccount
	}
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(a.balance) {
		return ErrInsufficientFunds
	}

	a.balance = a.balance.Sub(amount)
	target.balance = target.balance.Add(amount)
	a.transactions = append(a.transactions, Transaction{Kind: TransferToPrefix + target.Number, Amount: amount})
	target.transactions = append(target.transactions, Transaction{Kind: TransferFromPrefix + a.Number, Amount: amount})
	return nil
}

func (a *Account) String() string {
	return fmt.Sprintf("Account %s (owner %s) balance %s", a.Number, a.Owner, a.balance.StringFixed(2))
}
