package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teller-ledger/teller/internal/session"
)

func newUsersCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List users and their accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, log, err := flags.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			w := cmd.OutOrStdout()
			users := store.Users()
			if len(users) == 0 {
				fmt.Fprintln(w, "No users.")
				return nil
			}
			for _, u := range users {
				fmt.Fprintf(w, "%s | %s | %s\n", u.Name, u.Address, u.Phone)
				for _, a := range u.Accounts() {
					fmt.Fprintf(w, "  %s\n", session.FormatAccount(a))
				}
			}
			return nil
		},
	}
}
