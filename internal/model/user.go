package model

// User is a customer holding zero or more accounts in creation order.
type User struct {
	Name    string
	Address string
	Phone   string

	accounts []*Account
}

// NewUser returns a user with no accounts.
func NewUser(name, address, phone string) *User {
	return &User{Name: name, Address: address, Phone: phone}
}

// AddAccount appends an account.
func (u *User) AddAccount(a *Account) {
	u.accounts = append(u.accounts, a)
}

// Accounts returns the user's accounts in creation order. The slice is a
// copy; the accounts are shared.
func (u *User) Accounts() []*Account {
	out := make([]*Account, len(u.accounts))
	copy(out, u.accounts)
	return out
}

// FindAccount returns the first account whose number matches exactly.
func (u *User) FindAccount(number string) (*Account, bool) {
	for _, a := range u.accounts {
		if a.Number == number {
			return a, true
		}
	}
	return nil, false
}

// UpdateProfile replaces name, address and phone.
func (u *User) UpdateProfile(name, address, phone string) {
	u.Name = name
	u.Address = address
	u.Phone = phone
}
