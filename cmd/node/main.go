package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "net/http/pprof"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/srand/jolt/node/pkg/log"
	"github.com/srand/jolt/node/pkg/node"
)

var rootCmd = &cobra.Command{
	Use:   "node",
	Short: "Jolt distributed worker node",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		verbosity, err := cmd.Flags().GetCount("verbose")
		if err != nil {
			log.Fatal(err)
		}
		switch {
		case verbosity >= 2:
			log.SetLevel(log.TraceLevel)
		case verbosity >= 1:
			log.SetLevel(log.DebugLevel)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		// Load node configuration from file, environment or flags.
		config, err := LoadConfig()
		if err != nil {
			log.Fatal(err)
		}
		config.Log(log.Default())

		opts, err := config.Options()
		if err != nil {
			log.Fatal(err)
		}

		journal, err := config.Journal.Open(log.Default())
		if err != nil {
			log.Fatal(err)
		}
		if journal != nil {
			opts.Journal = journal
		}
		opts.Logger = log.Default()

		n, err := node.New(*opts)
		if err != nil {
			log.Fatal(err)
		}

		log.Info("Labels:")
		for key, value := range n.Labels() {
			log.Infof("  %s=%s", key, value)
		}

		servers := []interface{ Shutdown(context.Context) error }{}
		for _, uri := range config.ListenHttp {
			servers = append(servers, serveHttp(n, uri))
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()

		log.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, server := range servers {
			server.Shutdown(shutdownCtx)
		}

		if err := n.Close(); err != nil {
			log.Error(err)
		}
	},
}

func main() {
	rootCmd.Flags().StringP("coordinator-uri", "c", node.DefaultCoordinatorUri, "Coordinator service URI")
	rootCmd.Flags().StringP("address", "a", "", "Node identity advertised to peers, tcp://host:port")
	rootCmd.Flags().IntP("port", "p", node.DefaultPort, "Port to listen on for peer connections")
	rootCmd.Flags().StringP("threads", "j", fmt.Sprint(node.DefaultThreads), "Number of execution slots")
	rootCmd.Flags().String("serializer", "cbor", "Message serializer")
	rootCmd.Flags().Duration("collect-timeout", 0, "Maximum time to wait for peers during collect")
	rootCmd.Flags().StringSliceP("listen-http", "l", []string{}, "Addresses to listen on for HTTP connections")
	rootCmd.Flags().StringSliceP("label", "L", []string{}, "Node label, key=value (repeatable)")
	rootCmd.Flags().CountP("verbose", "v", "Verbosity (repeatable)")

	viper.BindPFlag("coordinator_uri", rootCmd.Flags().Lookup("coordinator-uri"))
	viper.BindPFlag("address", rootCmd.Flags().Lookup("address"))
	viper.BindPFlag("port", rootCmd.Flags().Lookup("port"))
	viper.BindPFlag("threads", rootCmd.Flags().Lookup("threads"))
	viper.BindPFlag("serializer", rootCmd.Flags().Lookup("serializer"))
	viper.BindPFlag("collect_timeout", rootCmd.Flags().Lookup("collect-timeout"))
	viper.BindPFlag("listen_http", rootCmd.Flags().Lookup("listen-http"))
	viper.BindPFlag("labels", rootCmd.Flags().Lookup("label"))
	viper.SetEnvPrefix("jolt")
	viper.AutomaticEnv()

	viper.SetConfigName("node.yaml")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/jolt/")
	viper.AddConfigPath("$HOME/.config/jolt")
	viper.AddConfigPath(".")
	viper.ReadInConfig()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
