package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check node liveness",
	Run: func(cmd *cobra.Command, args []string) {
		health, err := newClient(cmd).GetHealth()
		if err != nil {
			fail(err)
		}
		fmt.Printf("Health: %s\n", health["status"])
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Re-validate the node's chain",
	Run: func(cmd *cobra.Command, args []string) {
		result, err := newClient(cmd).ValidateChain()
		if err != nil {
			fail(err)
		}
		if valid, ok := result["valid"].(bool); ok && valid {
			fmt.Println("Chain: valid")
			return
		}
		fmt.Printf("Chain: INVALID\n")
		if idx, ok := result["failedIndex"]; ok && idx != nil {
			fmt.Printf("First offending block: %v\n", idx)
		}
		if msg, ok := result["error"].(string); ok && msg != "" {
			fmt.Printf("Reason: %s\n", msg)
		}
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(validateCmd)
}
