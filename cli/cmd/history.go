package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history <patientId>",
	Short: "Fetch a patient's medical record history",
	Long:  "Fetches the patient's record history. The requester identity comes from CARECHAIN_TOKEN (JWT) or the node's fallback header.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		records, err := newClient(cmd).GetHistory(args[0])
		if err != nil {
			fail(err)
		}
		if len(records) == 0 {
			fmt.Println("No records found.")
			return
		}
		out, _ := json.MarshalIndent(records, "", "  ")
		fmt.Println(string(out))
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
