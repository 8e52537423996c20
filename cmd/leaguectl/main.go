package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/riskibarqy/kart-league/internal/app"
	"github.com/riskibarqy/kart-league/internal/config"
	"github.com/riskibarqy/kart-league/internal/platform/logging"
)

const commandTimeout = 2 * time.Minute

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "leaguectl",
		Short:        "Administer the kart league ledger",
		SilenceUsage: true,
	}

	root.AddCommand(
		newSettleCmd(),
		newRotateCmd(),
		newStandingsCmd(),
		newAccountsCmd(),
		newBidsCmd(),
		newImportCmd(),
		newExportCmd(),
	)

	if err := root.Execute(); err != nil {
		printError(fmt.Sprintf("error: %v", err))
		os.Exit(1)
	}
}

// withContainer builds the league services from the environment and runs fn
// with a bounded context.
func withContainer(cmd *cobra.Command, fn func(ctx context.Context, c *app.Container) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(logging.Options{Level: logging.LevelWarn, Service: "leaguectl", Console: true, Writer: os.Stderr})
	logging.SetDefault(logger)

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	c, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	return fn(ctx, c)
}
