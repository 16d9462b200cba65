package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query node status",
	Example: `  carechain status
  carechain status --output json`,
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")
		status, err := newClient(cmd).GetStatus()
		if err != nil {
			fail(err)
		}
		if output == "json" {
			fmt.Println(status.ToJSON())
			return
		}
		fmt.Printf("Status: %s\n", status.Status)
		fmt.Printf("Height: %d\n", status.BlockHeight)
		fmt.Printf("Delegates: %d\n", status.Delegates)
		fmt.Printf("Version: %s\n", status.Version)
		fmt.Printf("Last Block: %s\n", status.LastBlock)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringP("output", "o", "plain", "Output format: plain|json")
}
