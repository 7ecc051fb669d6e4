// Package session runs the line-based interactive menu over a ledger.Store.
package session

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/teller-ledger/teller/internal/ledger"
	"github.com/teller-ledger/teller/internal/ledgerfile"
	"github.com/teller-ledger/teller/internal/model"
)

// errInputClosed ends the session when input runs out mid-menu.
var errInputClosed = errors.New("input closed")

// Session reads menu choices from in and writes prompts and results to out.
type Session struct {
	store    *ledger.Store
	in       *bufio.Scanner
	out      io.Writer
	log      *zap.Logger
	validate *validator.Validate
}

// New creates a Session. A nil logger disables logging.
func New(store *ledger.Store, in io.Reader, out io.Writer, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		store:    store,
		in:       bufio.NewScanner(in),
		out:      out,
		log:      log,
		validate: validator.New(),
	}
}

// Run shows the main menu until the user exits or input ends.
func (s *Session) Run() error {
	s.log.Info("session started")
	defer s.log.Info("session ended")

	s.println("Welcome to teller!")
	err := s.mainMenu()
	if err != nil && !errors.Is(err, errInputClosed) {
		return err
	}
	s.println("Thank you for using teller!")
	return s.in.Err()
}

func (s *Session) mainMenu() error {
	for {
		s.println("1. Create user")
		s.println("2. Login")
		s.println("3. Exit")
		opt, err := s.prompt("Select option: ")
		if err != nil {
			return err
		}

		switch opt {
		case "1":
			err = s.createUser()
		case "2":
			err = s.login()
		case "3":
			return nil
		default:
			s.println("Invalid option. Try again.")
		}
		if err != nil {
			return err
		}
	}
}

func (s *Session) userMenu(u *model.User) error {
	log := s.log.With(zap.String("user", u.Name))
	log.Info("logged in")

	for {
		s.println("1. View accounts")
		s.println("2. Open account")
		s.println("3. Deposit funds")
		s.println("4. Withdraw funds")
		s.println("5. Transfer funds")
		s.println("6. View transaction history")
		s.println("7. Update personal information")
		s.println("8. Logout")
		opt, err := s.prompt("Select option: ")
		if err != nil {
			return err
		}

		switch opt {
		case "1":
			s.viewAccounts(u)
		case "2":
			err = s.openAccount(u)
		case "3":
			err = s.deposit(u)
		case "4":
			err = s.withdraw(u)
		case "5":
			err = s.transfer(u)
		case "6":
			err = s.history(u)
		case "7":
			err = s.updateProfile(u)
		case "8":
			log.Info("logged out")
			return nil
		default:
			s.println("Invalid option. Try again.")
		}
		if err != nil {
			return err
		}
	}
}

func (s *Session) createUser() error {
	in, err := s.promptProfile("Enter your name: ", "Enter your address: ", "Enter your phone number: ")
	if err != nil {
		return err
	}
	if msg := s.check(in); msg != "" {
		s.println(msg)
		return nil
	}

	_, err = s.store.CreateUser(in.Name, in.Address, in.Phone)
	s.report(err, "User created successfully!")
	return nil
}

func (s *Session) login() error {
	name, err := s.prompt("Enter your name: ")
	if err != nil {
		return err
	}
	u, err := s.store.FindUser(name)
	if err != nil {
		s.report(err, "")
		return nil
	}
	return s.userMenu(u)
}

func (s *Session) viewAccounts(u *model.User) {
	accts := u.Accounts()
	if len(accts) == 0 {
		s.println("No accounts yet.")
		return
	}
	for _, a := range accts {
		s.println(FormatAccount(a))
	}
}

func (s *Session) openAccount(u *model.User) error {
	number, err := s.prompt("Enter account number (blank for next available): ")
	if err != nil {
		return err
	}
	a, err := s.store.OpenAccount(u, number)
	if a != nil {
		s.report(err, fmt.Sprintf("Account %s opened.", a.Number))
		return nil
	}
	s.report(err, "")
	return nil
}

func (s *Session) deposit(u *model.User) error {
	number, err := s.prompt("Enter account number: ")
	if err != nil {
		return err
	}
	amount, ok, err := s.promptAmount("Enter amount to deposit: ")
	if err != nil || !ok {
		return err
	}
	_, err = s.store.Deposit(u, number, amount)
	s.report(err, "Deposit successful!")
	return nil
}

func (s *Session) withdraw(u *model.User) error {
	number, err := s.prompt("Enter account number: ")
	if err != nil {
		return err
	}
	amount, ok, err := s.promptAmount("Enter amount to withdraw: ")
	if err != nil || !ok {
		return err
	}
	_, err = s.store.Withdraw(u, number, amount)
	s.report(err, "Withdrawal successful!")
	return nil
}

func (s *Session) transfer(u *model.User) error {
	from, err := s.prompt("Enter your account number: ")
	if err != nil {
		return err
	}
	to, err := s.prompt("Enter recipient account number: ")
	if err != nil {
		return err
	}
	amount, ok, err := s.promptAmount("Enter amount to transfer: ")
	if err != nil || !ok {
		return err
	}
	err = s.store.Transfer(u, from, to, amount)
	s.report(err, "Transfer successful!")
	return nil
}

func (s *Session) history(u *model.User) error {
	number, err := s.prompt("Enter account number: ")
	if err != nil {
		return err
	}
	a, ok := u.FindAccount(number)
	if !ok {
		s.report(model.ErrAccountNotFound, "")
		return nil
	}
	txns := a.History()
	if len(txns) == 0 {
		s.println("No transactions yet.")
		return nil
	}
	for _, t := range txns {
		s.println(FormatTransaction(t))
	}
	return nil
}

func (s *Session) updateProfile(u *model.User) error {
	in, err := s.promptProfile("Enter new name: ", "Enter new address: ", "Enter new phone number: ")
	if err != nil {
		return err
	}
	if msg := s.check(in); msg != "" {
		s.println(msg)
		return nil
	}
	err = s.store.UpdateProfile(u, in.Name, in.Address, in.Phone)
	s.report(err, "Personal information updated successfully!")
	return nil
}

// report prints success when err is nil, a warning after success when only
// saving failed, and a readable reason otherwise.
func (s *Session) report(err error, success string) {
	switch {
	case err == nil:
		s.println(success)
	case errors.Is(err, ledger.ErrNotSaved):
		s.println(success)
		s.println("Warning: the change could not be saved: " + err.Error())
	default:
		s.log.Debug("operation failed", zap.Error(err))
		s.println(Describe(err))
	}
}

func (s *Session) prompt(label string) (string, error) {
	fmt.Fprint(s.out, label)
	if !s.in.Scan() {
		s.println("")
		return "", errInputClosed
	}
	return strings.TrimSpace(s.in.Text()), nil
}

func (s *Session) println(line string) {
	fmt.Fprintln(s.out, line)
}

// Describe turns a core error into the message shown to the user.
func Describe(err error) string {
	switch {
	case errors.Is(err, model.ErrInsufficientFunds):
		return "Insufficient funds."
	case errors.Is(err, model.ErrAccountNotFound):
		return "Account not found."
	case errors.Is(err, model.ErrSameAccount):
		return "Cannot transfer to the same account."
	case errors.Is(err, model.ErrInvalidAmount):
		return "Amount must not be negative."
	case errors.Is(err, ledger.ErrUserNotFound):
		return "User not found."
	case errors.Is(err, ledger.ErrUserExists):
		return "A user with that name already exists."
	case errors.Is(err, ledger.ErrAccountExists):
		return "That account number is already in use."
	case errors.Is(err, ledgerfile.ErrUnencodable):
		return "The ledger file cannot store that value: " + err.Error()
	default:
		return "Error: " + err.Error()
	}
}

// FormatAccount renders an account for the accounts list.
func FormatAccount(a *model.Account) string {
	return fmt.Sprintf("Account %s | Owner: %s | Balance: %s", a.Number, a.Owner, a.Balance().StringFixed(2))
}

// FormatTransaction renders one history line.
func FormatTransaction(t model.Transaction) string {
	return fmt.Sprintf("%s: %s", t.Kind, t.Amount.StringFixed(2))
}
