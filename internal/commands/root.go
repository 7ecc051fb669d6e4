package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teller-ledger/teller/internal/buildinfo"
	"github.com/teller-ledger/teller/internal/config"
	"github.com/teller-ledger/teller/internal/ledger"
	"github.com/teller-ledger/teller/internal/ledgerfile"
	"github.com/teller-ledger/teller/internal/logging"
	"github.com/teller-ledger/teller/internal/session"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	envFile    string
	ledgerPath string
	logLevel   string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
// Run without a subcommand it starts the interactive session.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:     "teller",
		Short:   "Interactive bank ledger",
		Version: buildinfo.Summary(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, flags)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", config.DefaultPath, "config file")
	pf.StringVar(&flags.envFile, "env-file", "", "env file with TELLER_* overrides (default .env if present)")
	pf.StringVar(&flags.ledgerPath, "ledger", "", "ledger file (overrides config)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newMigrateCommand(flags))
	rootCmd.AddCommand(newVerifyCommand(flags))
	rootCmd.AddCommand(newUsersCommand(flags))

	return rootCmd
}

// resolve loads configuration and applies flag overrides.
func (f *globalFlags) resolve() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Resolve(f.configPath, f.envFile)
	if err != nil {
		return nil, nil, err
	}
	if f.ledgerPath != "" {
		cfg.Ledger.Path = f.ledgerPath
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	log := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	return cfg, log, nil
}

// openStore resolves configuration and loads the ledger it points at.
func (f *globalFlags) openStore() (*ledger.Store, *zap.Logger, error) {
	cfg, log, err := f.resolve()
	if err != nil {
		return nil, nil, err
	}
	store, err := ledger.Open(ledger.Options{
		Path:               cfg.Ledger.Path,
		Codec:              ledgerfile.DefaultRegistry().Get(cfg.Ledger.Format),
		FirstAccountNumber: cfg.Accounts.FirstNumber,
		Logger:             log,
	})
	if err != nil {
		_ = log.Sync()
		return nil, nil, err
	}
	return store, log, nil
}

func runShell(cmd *cobra.Command, flags *globalFlags) error {
	store, log, err := flags.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	sessionLog, _ := logging.WithSession(log)
	return session.New(store, cmd.InOrStdin(), cmd.OutOrStdout(), sessionLog).Run()
}
