package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teller-ledger/teller/internal/ledger"
	"github.com/teller-ledger/teller/internal/ledgerfile"
)

func newMigrateCommand(flags *globalFlags) *cobra.Command {
	var out string
	var force bool

	cmd := &cobra.Command{
		Use:   "migrate <legacy-file>",
		Short: "Convert a legacy one-line-per-user ledger to the tagged format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := flags.resolve()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if out == "" {
				out = cfg.Ledger.Path
			}
			return runMigrate(cmd, log, args[0], out, force)
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "destination ledger file (default: configured ledger path)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite the destination if it exists")

	return cmd
}

func runMigrate(cmd *cobra.Command, log *zap.Logger, src, dst string, force bool) error {
	same, err := sameFile(src, dst)
	if err != nil {
		return err
	}
	if same {
		return fmt.Errorf("source and destination are the same file: %s", src)
	}
	if _, err := os.Stat(dst); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", dst)
	}
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("reading legacy ledger: %w", err)
	}

	legacy, err := ledger.Open(ledger.Options{Path: src, Codec: ledgerfile.LegacyCodec{}, Logger: log})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	for _, verr := range legacy.Validate() {
		fmt.Fprintf(w, "warning: %s\n", verr.Error())
	}

	tagged := ledger.NewStore(ledger.Options{Path: dst, Codec: ledgerfile.TaggedCodec{}, Logger: log})
	if err := tagged.Import(legacy.Users()); err != nil {
		return err
	}

	accounts := 0
	for _, u := range legacy.Users() {
		accounts += len(u.Accounts())
	}
	log.Info("ledger migrated", zap.String("from", src), zap.String("to", dst), zap.Int("users", len(legacy.Users())))
	fmt.Fprintf(w, "Migrated %d users (%d accounts) from %s to %s\n", len(legacy.Users()), accounts, src, dst)
	return nil
}

// sameFile reports whether a and b name the same file, by absolute path or,
// when both exist, by identity (links included).
func sameFile(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, fmt.Errorf("resolving path: %w", err)
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, fmt.Errorf("resolving path: %w", err)
	}
	if absA == absB {
		return true, nil
	}
	infoA, errA := os.Stat(absA)
	infoB, errB := os.Stat(absB)
	return errA == nil && errB == nil && os.SameFile(infoA, infoB), nil
}
