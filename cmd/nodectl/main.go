package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "nodectl",
	Short: "Node control command",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		viper.SetConfigName("nodectl.yaml")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("/etc/jolt/")
		viper.AddConfigPath("$HOME/.config/jolt")
		viper.AddConfigPath(".")
		viper.ReadInConfig()

		viper.SetEnvPrefix("jolt")
		viper.AutomaticEnv()

		config, err := ParseConfig()
		if err != nil {
			log.Fatal(err)
		}
		configData = *config
	},
}

var configData = ControlConfig{}

func main() {
	rootCmd.PersistentFlags().StringP("node-uri", "n", "tcp://localhost:6464", "Node peer endpoint URI")
	rootCmd.PersistentFlags().String("serializer", "cbor", "Message serializer")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Request deadline")
	viper.BindPFlag("node_uri", rootCmd.PersistentFlags().Lookup("node-uri"))
	viper.BindPFlag("serializer", rootCmd.PersistentFlags().Lookup("serializer"))
	viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
