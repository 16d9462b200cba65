package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var mempoolCmd = &cobra.Command{
	Use:   "mempool",
	Short: "List pending transactions",
	Run: func(cmd *cobra.Command, args []string) {
		txs, err := newClient(cmd).GetMempool()
		if err != nil {
			fail(err)
		}
		fmt.Printf("Pending: %d\n", len(txs))
		for _, t := range txs {
			line, _ := json.Marshal(t)
			fmt.Println(string(line))
		}
	},
}

var produceCmd = &cobra.Command{
	Use:   "produce <producerId>",
	Short: "Produce a block from the pending pool as the named delegate",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		block, err := newClient(cmd).ProduceBlock(args[0])
		if err != nil {
			fail(err)
		}
		fmt.Printf("Block %v produced\n", block["index"])
		fmt.Printf("Hash: %v\n", block["hash"])
		fmt.Printf("Merkle Root: %v\n", block["merkleRoot"])
		fmt.Printf("Transactions: %v\n", block["txCount"])
	},
}

func init() {
	rootCmd.AddCommand(mempoolCmd)
	rootCmd.AddCommand(produceCmd)
}
