package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register <userId> <name> <role>",
	Short: "Submit a user registration transaction",
	Args:  cobra.ExactArgs(3),
	Example: `  carechain register dr_house "Gregory House" doctor
  carechain register pat_001 "Jane Doe" patient --no-delegate`,
	Run: func(cmd *cobra.Command, args []string) {
		noDelegate, _ := cmd.Flags().GetBool("no-delegate")
		role := args[2]
		eligible := !noDelegate && role != "patient"
		receipt, err := newClient(cmd).SubmitTx(map[string]any{
			"kind": "user_registration",
			"registration": map[string]any{
				"userId":           args[0],
				"name":             args[1],
				"role":             role,
				"delegateEligible": eligible,
			},
		})
		if err != nil {
			fail(err)
		}
		printReceipt(receipt)
	},
}

var consentCmd = &cobra.Command{
	Use:   "consent <patientId> <doctorId>",
	Short: "Submit a consent grant or revocation",
	Args:  cobra.ExactArgs(2),
	Example: `  carechain consent pat_001 dr_house
  carechain consent pat_001 dr_house --revoke`,
	Run: func(cmd *cobra.Command, args []string) {
		revoke, _ := cmd.Flags().GetBool("revoke")
		receipt, err := newClient(cmd).SubmitTx(map[string]any{
			"kind": "consent_grant",
			"consent": map[string]any{
				"patientId": args[0],
				"doctorId":  args[1],
				"actorId":   args[0],
				"granted":   !revoke,
			},
		})
		if err != nil {
			fail(err)
		}
		printReceipt(receipt)
	},
}

var submitRecordCmd = &cobra.Command{
	Use:   "submit-record <patientId> <doctorId> <recordId> <recordType> <details>",
	Short: "Submit a medical record transaction",
	Args:  cobra.ExactArgs(5),
	Example: `  carechain submit-record pat_001 dr_house rec_099 Diagnosis "Lupus, finally"`,
	Run: func(cmd *cobra.Command, args []string) {
		hospital, _ := cmd.Flags().GetString("hospital")
		receipt, err := newClient(cmd).SubmitTx(map[string]any{
			"kind": "medical_record",
			"record": map[string]any{
				"patientId":  args[0],
				"doctorId":   args[1],
				"hospitalId": hospital,
				"recordId":   args[2],
				"recordType": args[3],
				"details":    args[4],
			},
		})
		if err != nil {
			fail(err)
		}
		printReceipt(receipt)
	},
}

func printReceipt(receipt map[string]any) {
	fmt.Printf("Receipt: %v\n", receipt["receiptId"])
	fmt.Printf("Tx Hash: %v\n", receipt["txHash"])
	fmt.Printf("Status: %v\n", receipt["status"])
}

func init() {
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(consentCmd)
	rootCmd.AddCommand(submitRecordCmd)
	registerCmd.Flags().Bool("no-delegate", false, "Register without delegate eligibility")
	consentCmd.Flags().Bool("revoke", false, "Revoke consent instead of granting")
	submitRecordCmd.Flags().String("hospital", "hosp_001", "Hospital identifier")
}
