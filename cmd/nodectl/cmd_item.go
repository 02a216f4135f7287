package main

import (
	"log"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get [key]...",
	Short: "Print the values stored under keys",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := DefaultDeadlineContext()
		defer cancel()

		client := NewNodeClient(ctx)
		defer client.Close()

		values := map[string]any{}
		for _, key := range args {
			value, err := client.GetItem(ctx, key)
			if err != nil {
				log.Fatal(err)
			}
			values[key] = value
		}

		PrintJSON(values)
	},
}

var setCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Store a value, given as JSON or a plain string",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := DefaultDeadlineContext()
		defer cancel()

		client := NewNodeClient(ctx)
		defer client.Close()

		if err := client.SetItem(ctx, args[0], ParseValue(args[1])); err != nil {
			log.Fatal(err)
		}
	},
}

var delCmd = &cobra.Command{
	Use:   "del [key]...",
	Short: "Delete keys",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := DefaultDeadlineContext()
		defer cancel()

		client := NewNodeClient(ctx)
		defer client.Close()

		for _, key := range args {
			if err := client.DelItem(ctx, key); err != nil {
				log.Fatal(err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(delCmd)
}
