// Package main is ncfctl, the operator CLI for the NCF ledger: schema
// migrations, seeding, sequence inspection, the lifecycle sweep and DGII
// report exports.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ncfledger/internal/app"
	"ncfledger/internal/config"
	"ncfledger/internal/core/id"
	"ncfledger/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "ncfctl",
	Short: "NCF ledger operator CLI",
	Long: `ncfctl manages Dominican fiscal number (NCF) sequences.
- Owners: issuing companies with their RNC and alert thresholds.
- Sequences: authorized ranges such as B0100000001..B0100000500, valid until a date.
- Assignments: the append-only ledger of issued numbers.
Connection settings come from NCF_* variables, a .env file or --config.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	config.LoadDotEnv()
	viper.SetEnvPrefix("NCFCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func registerCommands() {
	rootCmd.AddCommand(
		newMigrateCmd(),
		newSeedCmd(),
		newOwnersCmd(),
		newSequencesCmd(),
		newAlertsCmd(),
		newSweepCmd(),
		newExportCmd(),
	)
}

func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetString("config"))
}

// withRuntime loads configuration, starts the services and runs fn.
func withRuntime(ctx context.Context, fn func(ctx context.Context, rt *app.Runtime) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := logger.New(logger.Config{Level: viper.GetString("log-level"), Development: true, Service: "ncfctl"})
	if err != nil {
		return err
	}
	ctx = logger.WithLogger(ctx, log)

	rt, err := app.Start(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(ctx, rt)
}

func parseOwner(s string) (id.ID, error) {
	if s == "" {
		return id.Nil(), fmt.Errorf("--owner is required")
	}
	ownerID, err := id.Parse(s)
	if err != nil {
		return id.Nil(), fmt.Errorf("invalid owner id %q: %w", s, err)
	}
	return ownerID, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
