package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var computeCmd = &cobra.Command{
	Use:   "compute [key] [task]",
	Short: "Evaluate a task on a node and store the result under key",
	Long: `Evaluate a task on a node and store the result under key.

The task is given as JSON, e.g. '["add", "x", "y"]'. Dependencies held
by other nodes are fetched first, given as --from key=tcp://host:port.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		locations := map[string][]string{}
		from, _ := cmd.Flags().GetStringSlice("from")
		for _, item := range from {
			key, address, ok := strings.Cut(item, "=")
			if !ok {
				log.Fatalf("Invalid location: %s", item)
			}
			locations[key] = append(locations[key], address)
		}

		ctx, cancel := DefaultDeadlineContext()
		defer cancel()

		client := NewNodeClient(ctx)
		defer client.Close()

		record, err := client.Compute(ctx, args[0], ParseValue(args[1]), locations)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Printf("%s %s %v\n", record.Key, record.Status, record.Elapsed())
		if !record.OK() {
			os.Exit(1)
		}
	},
}

var collectCmd = &cobra.Command{
	Use:   "collect [key=uri]...",
	Short: "Make a node fetch keys from other nodes",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		locations := map[string][]string{}
		for _, item := range args {
			key, address, ok := strings.Cut(item, "=")
			if !ok {
				log.Fatalf("Invalid location: %s", item)
			}
			locations[key] = append(locations[key], address)
		}

		ctx, cancel := DefaultDeadlineContext()
		defer cancel()

		client := NewNodeClient(ctx)
		defer client.Close()

		if err := client.Collect(ctx, locations); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	computeCmd.Flags().StringSliceP("from", "f", []string{}, "Location of a dependency, key=uri (repeatable)")
	rootCmd.AddCommand(computeCmd)
	rootCmd.AddCommand(collectCmd)
}
