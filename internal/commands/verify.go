package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVerifyCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the ledger for duplicates, negative values and balance drift",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, log, err := flags.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			w := cmd.OutOrStdout()
			errs := store.Validate()
			for _, verr := range errs {
				fmt.Fprintln(w, verr.Error())
			}
			if len(errs) > 0 {
				return fmt.Errorf("%d problem(s) found in %s", len(errs), store.Path())
			}

			accounts := 0
			for _, u := range store.Users() {
				accounts += len(u.Accounts())
			}
			fmt.Fprintf(w, "OK: %d users, %d accounts in %s\n", len(store.Users()), accounts, store.Path())
			return nil
		},
	}
}
