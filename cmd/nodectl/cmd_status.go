package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check that a node is alive",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := DefaultDeadlineContext()
		defer cancel()

		client := NewNodeClient(ctx)
		defer client.Close()

		if err := client.Status(ctx); err != nil {
			log.Fatal(err)
		}

		fmt.Println("OK")
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
