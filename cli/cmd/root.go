package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"carechain/cli/api"
)

var rootCmd = &cobra.Command{
	Use:   "carechain",
	Short: "CareChain ledger CLI",
	Long:  "A command-line tool for submitting records, managing consent, and inspecting carechain nodes.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("node", "", "Node base URL (default CARECHAIN_NODE_URL or http://localhost:8080)")
}

func newClient(cmd *cobra.Command) *api.Client {
	node, _ := cmd.Flags().GetString("node")
	return api.NewClient(node)
}

func fail(err error) {
	fmt.Printf("Error: %v\n", err)
	os.Exit(1)
}
