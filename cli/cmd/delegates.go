package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"carechain/cli/api"
)

var delegatesCmd = &cobra.Command{
	Use:   "delegates",
	Short: "Manage the delegate roster",
}

var delegatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List delegates in schedule order",
	Run: func(cmd *cobra.Command, args []string) {
		roster, err := newClient(cmd).ListDelegates()
		if err != nil {
			fail(err)
		}
		printRoster(roster)
	},
}

var delegatesAddCmd = &cobra.Command{
	Use:   "add <userId> <role>",
	Short: "Register a delegate (requires CARECHAIN_API_KEY)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		roster, err := newClient(cmd).RegisterDelegate(args[0], args[1])
		if err != nil {
			fail(err)
		}
		printRoster(roster)
	},
}

var delegatesRemoveCmd = &cobra.Command{
	Use:   "deactivate <userId>",
	Short: "Deactivate a delegate (requires CARECHAIN_API_KEY)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		roster, err := newClient(cmd).DeactivateDelegate(args[0])
		if err != nil {
			fail(err)
		}
		printRoster(roster)
	},
}

func printRoster(roster []api.Delegate) {
	for i, d := range roster {
		state := "active"
		if !d.Active {
			state = "inactive"
		}
		fmt.Printf("%d. %s (%s, %s)\n", i, d.UserID, d.Role, state)
	}
}

func init() {
	rootCmd.AddCommand(delegatesCmd)
	delegatesCmd.AddCommand(delegatesListCmd)
	delegatesCmd.AddCommand(delegatesAddCmd)
	delegatesCmd.AddCommand(delegatesRemoveCmd)
}
