package ledgerfile

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teller-ledger/teller/internal/model"
)

func TestLegacy_DecodeOriginalFile(t *testing.T) {
	// Amounts as older ledgers wrote them, always with a fractional part.
	input := "Alice,1 Main St,555-0100,1001,Alice,60.0,Deposit,100.0,Transfer to 2002,40.0,1003,Alice,0.0\n" +
		"Bob,2 Side St,555-0200,2002,Bob,40.0,Transfer from 1001,40.0\n"

	users, err := LegacyCodec{}.Decode(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, users, 2)

	alice := users[0]
	assert.Equal(t, "Alice", alice.Name)
	assert.Equal(t, "1 Main St", alice.Address)
	assert.Equal(t, "555-0100", alice.Phone)

	accts := alice.Accounts()
	require.Len(t, accts, 2)
	assert.Equal(t, "1001", accts[0].Number)
	assert.True(t, accts[0].Balance().Equal(dec("60")))
	hist := accts[0].History()
	require.Len(t, hist, 2)
	assert.Equal(t, "Deposit", hist[0].Kind)
	assert.Equal(t, "Transfer to 2002", hist[1].Kind)
	assert.True(t, hist[1].Amount.Equal(dec("40")))
	assert.Equal(t, "1003", accts[1].Number)
	assert.Empty(t, accts[1].History())

	bobAccts := users[1].Accounts()
	require.Len(t, bobAccts, 1)
	require.Len(t, bobAccts[0].History(), 1)
	assert.Equal(t, "Transfer from 1001", bobAccts[0].History()[0].Kind)
}

func TestLegacy_RoundTrip(t *testing.T) {
	users := sampleUsers(t)

	var buf bytes.Buffer
	require.NoError(t, LegacyCodec{}.Encode(&buf, users))
	assert.Equal(t, 2, strings.Count(buf.String(), "\n"), "one line per user")

	got, err := LegacyCodec{}.Decode(&buf)
	require.NoError(t, err)
	assertSameUsers(t, users, got)
}

func TestLegacy_FirstAccountMayBeNonNumeric(t *testing.T) {
	u := model.NewUser("Alice", "", "")
	a := model.NewAccount("SAV-1", "Alice")
	u.AddAccount(a)
	require.NoError(t, a.Deposit(dec("3")))

	var buf bytes.Buffer
	require.NoError(t, LegacyCodec{}.Encode(&buf, []*model.User{u}))
	got, err := LegacyCodec{}.Decode(&buf)
	require.NoError(t, err)
	assertSameUsers(t, []*model.User{u}, got)
}

func TestLegacy_UserWithoutAccounts(t *testing.T) {
	users, err := LegacyCodec{}.Decode(strings.NewReader("Carol,,\n\n   \nDave,4 Elm,555\n"))
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Carol", users[0].Name)
	assert.Empty(t, users[0].Address)
	assert.Empty(t, users[0].Accounts())
	assert.Equal(t, "Dave", users[1].Name)
}

func TestLegacy_HeuristicLimitations(t *testing.T) {
	t.Run("non-numeric second account is read as a transaction", func(t *testing.T) {
		_, err := LegacyCodec{}.Decode(strings.NewReader("Alice,,,1001,Alice,5.0,SAV-2,Alice,0.0\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `parsing amount "Alice" of transaction "SAV-2"`)
	})

	t.Run("all-digit kind is read as an account number", func(t *testing.T) {
		users, err := LegacyCodec{}.Decode(strings.NewReader("Alice,,,1001,Alice,5.0,2002,5.0,0.0\n"))
		require.NoError(t, err)
		accts := users[0].Accounts()
		require.Len(t, accts, 2)
		assert.Equal(t, "2002", accts[1].Number)
		assert.Equal(t, "5.0", accts[1].Owner)
	})
}

func TestLegacy_DecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"too few fields", "Alice,1 Main St\n", "line 1: expected name, address and phone, got 2 fields"},
		{"truncated account", "Alice,,,1001,Alice\n", `line 1: field 4: account "1001" is missing owner or balance`},
		{"bad balance", "Alice,,,1001,Alice,abc\n", `parsing balance "abc" of account "1001"`},
		{"dangling kind", "Alice,,,1001,Alice,5.0,Deposit\n", `transaction "Deposit" has no amount`},
		{"second line", "Alice,,\nBob\n", "line 2:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LegacyCodec{}.Decode(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLegacy_EncodeRejectsAmbiguousState(t *testing.T) {
	tests := []struct {
		name  string
		build func() *model.User
	}{
		{"comma in name", func() *model.User {
			return model.NewUser("Smith, Jr.", "", "")
		}},
		{"newline in address", func() *model.User {
			return model.NewUser("Alice", "1 Main\nSt", "")
		}},
		{"non-numeric second account", func() *model.User {
			u := model.NewUser("Alice", "", "")
			u.AddAccount(model.NewAccount("1001", "Alice"))
			u.AddAccount(model.NewAccount("SAV-2", "Alice"))
			return u
		}},
		{"all-digit transaction kind", func() *model.User {
			u := model.NewUser("Alice", "", "")
			u.AddAccount(model.RestoreAccount("1001", "Alice", dec("1"), []model.Transaction{{Kind: "42", Amount: dec("1")}}))
			return u
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := LegacyCodec{}.Encode(&buf, []*model.User{tt.build()})
			assert.ErrorIs(t, err, ErrUnencodable)
		})
	}
}
