// Package ledger owns the users of a ledger file and is the only place that
// reads or writes it.
package ledger

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/teller-ledger/teller/internal/id"
	"github.com/teller-ledger/teller/internal/ledgerfile"
	"github.com/teller-ledger/teller/internal/model"
)

var (
	// ErrUserNotFound is returned when no user matches a name.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when a name is already taken (case-insensitive).
	ErrUserExists = errors.New("user already exists")
	// ErrAccountExists is returned when an account number is already in use.
	ErrAccountExists = errors.New("account number already in use")
	// ErrNotSaved wraps a persistence failure after an in-memory change.
	ErrNotSaved = errors.New("ledger not saved")
)

// Options configures a Store.
type Options struct {
	Path               string
	Codec              ledgerfile.Codec // defaults to the tagged codec
	FirstAccountNumber int              // defaults to id.DefaultFirstAccountNumber
	Logger             *zap.Logger      // defaults to a no-op logger
}

// Store holds every user in memory and rewrites the whole ledger file after
// each change.
type Store struct {
	path        string
	codec       ledgerfile.Codec
	firstNumber int
	log         *zap.Logger

	users []*model.User
}

// NewStore creates an empty Store. Call Load to read the file.
func NewStore(opts Options) *Store {
	s := &Store{
		path:        opts.Path,
		codec:       opts.Codec,
		firstNumber: opts.FirstAccountNumber,
		log:         opts.Logger,
	}
	if s.codec == nil {
		s.codec = ledgerfile.TaggedCodec{}
	}
	if s.firstNumber == 0 {
		s.firstNumber = id.DefaultFirstAccountNumber
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Open creates a Store and loads its file.
func Open(opts Options) (*Store, error) {
	s := NewStore(opts)
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the ledger file path.
func (s *Store) Path() string {
	return s.path
}

// Load replaces the in-memory users with the file's contents. A missing file
// is an empty ledger.
func (s *Store) Load() error {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Info("ledger file not found, starting empty", zap.String("path", s.path))
		s.users = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening ledger %s: %w", s.path, err)
	}
	defer f.Close()

	users, err := s.codec.Decode(f)
	if err != nil {
		s.log.Error("ledger file is malformed", zap.String("path", s.path), zap.Error(err))
		return fmt.Errorf("loading ledger %s: %w", s.path, err)
	}
	s.users = users
	s.log.Info("ledger loaded",
		zap.String("path", s.path),
		zap.String("format", s.codec.Format()),
		zap.Int("users", len(users)))
	return nil
}

// Persist writes every user to the ledger file. The file is replaced by a
// rename, so a failed write leaves the previous contents intact.
func (s *Store) Persist() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating ledger dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp ledger: %w", err)
	}
	tmpPath := tmp.Name()

	// CreateTemp uses 0600. Keep the mode of the file being replaced.
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(s.path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("setting ledger mode: %w", err)
	}

	if err := s.codec.Encode(tmp, s.users); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encoding ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp ledger: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing ledger: %w", err)
	}
	return nil
}

// Users returns all users in creation order.
func (s *Store) Users() []*model.User {
	out := make([]*model.User, len(s.users))
	copy(out, s.users)
	return out
}

// FindUser returns the first user whose name matches, ignoring case.
func (s *Store) FindUser(name string) (*model.User, error) {
	for _, u := range s.users {
		if strings.EqualFold(u.Name, name) {
			return u, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUserNotFound, name)
}

// CreateUser adds a user with no accounts and persists.
func (s *Store) CreateUser(name, address, phone string) (*model.User, error) {
	if _, err := s.FindUser(name); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrUserExists, name)
	}

	u := model.NewUser(name, address, phone)
	if err := s.checkEncodable(u); err != nil {
		return nil, err
	}
	s.users = append(s.users, u)
	s.log.Info("user created", zap.String("user", name))
	return u, s.save()
}

// UpdateProfile replaces a user's name, address and phone and persists. The
// new name must not belong to another user.
func (s *Store) UpdateProfile(u *model.User, name, address, phone string) error {
	if other, err := s.FindUser(name); err == nil && other != u {
		return fmt.Errorf("%w: %s", ErrUserExists, name)
	}

	updated := model.NewUser(name, address, phone)
	for _, a := range u.Accounts() {
		updated.AddAccount(a)
	}
	if err := s.checkEncodable(updated); err != nil {
		return err
	}

	old := u.Name
	u.UpdateProfile(name, address, phone)
	s.log.Info("profile updated", zap.String("user", old), zap.String("new_name", name))
	return s.save()
}

// OpenAccount creates a zero-balance account for u and persists. An empty
// number allocates the next free numeric one.
func (s *Store) OpenAccount(u *model.User, number string) (*model.Account, error) {
	if number == "" {
		number = id.NextAccountNumber(s.accountNumbers(), s.firstNumber)
	}
	if _, err := s.FindAccount(number); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountExists, number)
	}

	a := model.NewAccount(number, u.Name)
	extended := model.NewUser(u.Name, u.Address, u.Phone)
	for _, existing := range u.Accounts() {
		extended.AddAccount(existing)
	}
	extended.AddAccount(a)
	if err := s.checkEncodable(extended); err != nil {
		return nil, err
	}
	u.AddAccount(a)
	s.log.Info("account opened", zap.String("user", u.Name), zap.String("account", number))
	return a, s.save()
}

// FindAccount returns the first account with number across all users.
func (s *Store) FindAccount(number string) (*model.Account, error) {
	for _, u := range s.users {
		if a, ok := u.FindAccount(number); ok {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", model.ErrAccountNotFound, number)
}

// Deposit credits one of u's accounts and persists.
func (s *Store) Deposit(u *model.User, number string, amount decimal.Decimal) (*model.Account, error) {
	a, err := ownAccount(u, number)
	if err != nil {
		return nil, err
	}
	if err := a.Deposit(amount); err != nil {
		return nil, err
	}
	s.log.Info("deposit", zap.String("account", number), zap.String("amount", amount.String()))
	return a, s.save()
}

// Withdraw debits one of u's accounts and persists. ErrInsufficientFunds
// leaves everything unchanged.
func (s *Store) Withdraw(u *model.User, number string, amount decimal.Decimal) (*model.Account, error) {
	a, err := ownAccount(u, number)
	if err != nil {
		return nil, err
	}
	if err := a.Withdraw(amount); err != nil {
		s.log.Info("withdrawal rejected", zap.String("account", number), zap.String("amount", amount.String()), zap.Error(err))
		return nil, err
	}
	s.log.Info("withdrawal", zap.String("account", number), zap.String("amount", amount.String()))
	return a, s.save()
}

// Transfer moves amount from one of u's accounts to any account in the
// ledger and persists.
func (s *Store) Transfer(u *model.User, from, to string, amount decimal.Decimal) error {
	src, err := ownAccount(u, from)
	if err != nil {
		return err
	}
	dst, err := s.FindAccount(to)
	if err != nil {
		return err
	}
	if err := src.Transfer(dst, amount); err != nil {
		s.log.Info("transfer rejected",
			zap.String("from", from), zap.String("to", to), zap.String("amount", amount.String()), zap.Error(err))
		return err
	}
	s.log.Info("transfer", zap.String("from", from), zap.String("to", to), zap.String("amount", amount.String()))
	return s.save()
}

// Import replaces every user with users and persists.
func (s *Store) Import(users []*model.User) error {
	if err := s.codec.Encode(io.Discard, users); err != nil {
		return fmt.Errorf("importing users: %w", err)
	}
	s.users = append([]*model.User(nil), users...)
	s.log.Info("users imported", zap.Int("users", len(users)))
	return s.save()
}

// Validate runs the consistency checks over the loaded users.
func (s *Store) Validate() []ValidationError {
	return Validate(s.users)
}

// save persists after a mutation. The mutation stays in memory when the
// write fails.
func (s *Store) save() error {
	if err := s.Persist(); err != nil {
		s.log.Error("failed to save ledger; memory and disk now differ", zap.String("path", s.path), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrNotSaved, err)
	}
	return nil
}

// checkEncodable rejects a user the codec could not write, before the
// change reaches memory. Such a user would make every later save fail.
func (s *Store) checkEncodable(u *model.User) error {
	if err := s.codec.Encode(io.Discard, []*model.User{u}); err != nil {
		return fmt.Errorf("%s format: %w", s.codec.Format(), err)
	}
	return nil
}

func (s *Store) accountNumbers() []string {
	var numbers []string
	for _, u := range s.users {
		for _, a := range u.Accounts() {
			numbers = append(numbers, a.Number)
		}
	}
	return numbers
}

func ownAccount(u *model.User, number string) (*model.Account, error) {
	a, ok := u.FindAccount(number)
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrAccountNotFound, number)
	}
	return a, nil
}
