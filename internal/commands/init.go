package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/teller-ledger/teller/internal/config"
	"github.com/teller-ledger/teller/internal/ledger"
	"github.com/teller-ledger/teller/internal/ledgerfile"
)

func newInitCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a config file and an empty ledger",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			if err := runInit(absDir, format); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized teller ledger at %s\n", absDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", ledgerfile.FormatTagged, "ledger file format (tagged, legacy)")

	return cmd
}

func runInit(dir, format string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	cfgPath := filepath.Join(dir, config.DefaultPath)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}

	cfg := config.Default()
	cfg.Ledger.Format = format
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Write an empty ledger unless one is already there.
	ledgerPath := filepath.Join(dir, cfg.Ledger.Path)
	if _, err := os.Stat(ledgerPath); errors.Is(err, fs.ErrNotExist) {
		store := ledger.NewStore(ledger.Options{
			Path:  ledgerPath,
			Codec: ledgerfile.DefaultRegistry().Get(format),
		})
		if err := store.Persist(); err != nil {
			return fmt.Errorf("writing ledger: %w", err)
		}
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
