package commands_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teller-ledger/teller/internal/commands"
	"github.com/teller-ledger/teller/internal/config"
	"github.com/teller-ledger/teller/internal/ledgerfile"
)

// chdir changes the working directory for the rest of the test and restores
// it on cleanup (stand-in for testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

// runTeller executes the root command in process with stdin as input.
func runTeller(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := commands.NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// ledgerArgs points the global flags at files inside dir.
func ledgerArgs(dir string) []string {
	return []string{
		"--config", filepath.Join(dir, "teller.yaml"),
		"--ledger", filepath.Join(dir, "bank_users.txt"),
	}
}

func TestVersion(t *testing.T) {
	out, err := runTeller(t, "", "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "dev (commit: none, built: unknown)")
}

func TestInit_CreatesConfigAndLedger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bank")
	out, err := runTeller(t, "", "init", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized teller ledger at "+dir)

	cfg, err := config.Load(filepath.Join(dir, "teller.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ledgerfile.FormatTagged, cfg.Ledger.Format)

	data, err := os.ReadFile(filepath.Join(dir, "bank_users.txt"))
	require.NoError(t, err)
	assert.Equal(t, ledgerfile.Header+"\n", string(data))
}

func TestInit_LegacyFormat(t *testing.T) {
	dir := t.TempDir()
	_, err := runTeller(t, "", "init", dir, "--format", "legacy")
	require.NoError(t, err)

	cfg, err := config.Load(filepath.Join(dir, "teller.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ledgerfile.FormatLegacy, cfg.Ledger.Format)

	data, err := os.ReadFile(filepath.Join(dir, "bank_users.txt"))
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestInit_Refuses(t *testing.T) {
	dir := t.TempDir()
	_, err := runTeller(t, "", "init", dir)
	require.NoError(t, err)

	_, err = runTeller(t, "", "init", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = runTeller(t, "", "init", t.TempDir(), "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown ledger.format "xml"`)
}

func TestShell_PersistsAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	args := ledgerArgs(dir)

	script := strings.Join([]string{
		"1", "Alice", "1 Main St", "555-0100",
		"2", "Alice", "2", "", "3", "1001", "100", "8",
		"3",
	}, "\n") + "\n"
	out, err := runTeller(t, script, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "Account 1001 opened.")
	assert.Contains(t, out, "Deposit successful!")

	data, err := os.ReadFile(filepath.Join(dir, "bank_users.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "U,Alice,1 Main St,555-0100\nA,1001,Alice,100\nT,Deposit,100\n")

	out, err = runTeller(t, "2\nalice\n1\n8\n3\n", args...)
	require.NoError(t, err)
	assert.Contains(t, out, "Account 1001 | Owner: Alice | Balance: 100.00")
}

func TestShell_MalformedLedgerFailsFast(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bank_users.txt"), []byte("T,Deposit,5\n"), 0o644))

	_, err := runTeller(t, "3\n", append(ledgerArgs(dir), "--log-level", "error")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1: transaction record before any account")
}

func TestShell_UsesConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Ledger.Path = filepath.Join(dir, "legacy.txt")
	cfg.Ledger.Format = ledgerfile.FormatLegacy
	cfg.Accounts.FirstNumber = 7000
	cfgPath := filepath.Join(dir, "teller.yaml")
	require.NoError(t, config.Save(cfgPath, cfg))

	_, err := runTeller(t, "1\nAlice\n\n\n2\nAlice\n2\n\n8\n3\n", "--config", cfgPath)
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.Ledger.Path)
	require.NoError(t, err)
	assert.Equal(t, "Alice,,,7000,Alice,0\n", string(data))
}

func TestMigrate(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "old.txt")
	dst := filepath.Join(dir, "bank_users.txt")
	legacy := "Alice,1 Main St,555-0100,1001,Alice,60.0,Deposit,100.0,Transfer to 2002,40.0\n" +
		"Bob,2 Side St,555-0200,2002,Bob,40.0,Transfer from 1001,40.0\n"
	require.NoError(t, os.WriteFile(src, []byte(legacy), 0o644))

	out, err := runTeller(t, "", append(ledgerArgs(dir), "migrate", src)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Migrated 2 users (2 accounts)")
	assert.NotContains(t, out, "warning:")

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), ledgerfile.Header+"\n"))
	assert.Contains(t, string(data), "T,Transfer to 2002,40\n")

	out, err = runTeller(t, "", append(ledgerArgs(dir), "verify")...)
	require.NoError(t, err)
	assert.Contains(t, out, "OK: 2 users, 2 accounts")

	// A second run must not clobber the migrated ledger.
	_, err = runTeller(t, "", append(ledgerArgs(dir), "migrate", src)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	_, err = runTeller(t, "", append(ledgerArgs(dir), "migrate", src, "--force")...)
	require.NoError(t, err)
}

func TestMigrate_WarnsAboutDrift(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "old.txt")
	require.NoError(t, os.WriteFile(src, []byte("Alice,,,1001,Alice,99.0,Deposit,100.0\n"), 0o644))

	out, err := runTeller(t, "", append(ledgerArgs(dir), "migrate", src, "--out", filepath.Join(dir, "new.txt"))...)
	require.NoError(t, err)
	assert.Contains(t, out, "warning: balance-drift [1001]")
	assert.FileExists(t, filepath.Join(dir, "new.txt"))
}

func TestMigrate_RefusesSameFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.txt"), []byte("Alice,,,1001,Alice,0.0\n"), 0o644))
	chdir(t, dir)

	_, err := runTeller(t, "", append(ledgerArgs(dir), "migrate", "old.txt", "--out", "./old.txt", "--force")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "same file")

	require.NoError(t, os.Symlink(filepath.Join(dir, "old.txt"), filepath.Join(dir, "link.txt")))
	_, err = runTeller(t, "", append(ledgerArgs(dir), "migrate", "old.txt", "--out", "link.txt", "--force")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "same file")

	data, err := os.ReadFile(filepath.Join(dir, "old.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Alice,,,1001,Alice,0.0\n", string(data))
}

func TestMigrate_MissingSource(t *testing.T) {
	dir := t.TempDir()
	_, err := runTeller(t, "", append(ledgerArgs(dir), "migrate", filepath.Join(dir, "nope.txt"))...)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestVerify_ReportsProblems(t *testing.T) {
	dir := t.TempDir()
	content := ledgerfile.Header + "\n" +
		"U,Alice,,\nA,1001,Alice,50\nT,Deposit,20\n" +
		"U,alice,,\nA,1001,alice,0\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bank_users.txt"), []byte(content), 0o644))

	out, err := runTeller(t, "", append(ledgerArgs(dir), "verify")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 problem(s) found")
	assert.Contains(t, out, "duplicate-user [alice]")
	assert.Contains(t, out, "duplicate-account [1001]")
	assert.Contains(t, out, "balance-drift [1001]: balance 50 but transactions sum to 20")
}

func TestUsers(t *testing.T) {
	dir := t.TempDir()
	out, err := runTeller(t, "", append(ledgerArgs(dir), "users")...)
	require.NoError(t, err)
	assert.Contains(t, out, "No users.")

	content := ledgerfile.Header + "\nU,Alice,1 Main St,555-0100\nA,1001,Alice,12.5\nU,Bob,,\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bank_users.txt"), []byte(content), 0o644))

	out, err = runTeller(t, "", append(ledgerArgs(dir), "users")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Alice | 1 Main St | 555-0100\n  Account 1001 | Owner: Alice | Balance: 12.50\n")
	assert.Contains(t, out, "Bob |  | \n")
}
