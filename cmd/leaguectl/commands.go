package main

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/riskibarqy/kart-league/internal/app"
)

func newSettleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "settle",
		Short: "Resolve pending bids and award players",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
				outcome, err := c.Services.Settlements.Settle(ctx)
				if err != nil {
					return err
				}
				printSuccess(fmt.Sprintf("Settlement %s committed.", outcome.RunID))
				for _, a := range outcome.Applied {
					printInfo(fmt.Sprintf("  %-24s -> %-16s %s", a.PlayerID, a.UserID, formatAmount(a.Amount)))
				}
				for _, s := range outcome.Skipped {
					printWarn(fmt.Sprintf("  %-24s -> %-16s skipped (%s)", s.PlayerID, s.UserID, s.Reason))
				}
				printInfo(fmt.Sprintf("Cleared %d bid(s).", outcome.ClearedBids))
				return nil
			})
		},
	}
}

func newRotateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rotate",
		Short: "Publish a fresh market of unowned players",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
				res, err := c.Services.Market.Rotate(ctx)
				if err != nil {
					return err
				}
				printSuccess(fmt.Sprintf("Market %s published with %d player(s).", res.Snapshot.ID, len(res.Snapshot.PlayerIDs)))
				for _, id := range res.Snapshot.PlayerIDs {
					printInfo("  " + id)
				}
				if res.ClearedBids > 0 {
					printWarn(fmt.Sprintf("Discarded %d pending bid(s).", res.ClearedBids))
				}
				return nil
			})
		},
	}
}

func newStandingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "standings",
		Short: "Show the league table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
				standings, err := c.Services.Standings.Compute(ctx)
				if err != nil {
					return err
				}
				if len(standings) == 0 {
					printWarn("No accounts yet.")
					return nil
				}
				accent.Printf("%-4s %-16s %-20s %8s %12s\n", "#", "USER", "NAME", "POINTS", "CURRENCY")
				for _, s := range standings {
					printInfo(fmt.Sprintf("%-4d %-16s %-20s %8d %12s", s.Rank, s.UserID, s.Name, s.Points, formatAmount(s.Currency)))
				}
				return nil
			})
		},
	}
}

func newAccountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List accounts with their rosters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
				accounts, err := c.Services.Ledger.ListAccounts(ctx)
				if err != nil {
					return err
				}
				for _, acc := range accounts {
					accent.Printf("%s (%s)\n", acc.Name, acc.ID)
					printInfo(fmt.Sprintf("  currency %s, %d player(s), %d pending bid(s)", formatAmount(acc.Currency), len(acc.Players), len(acc.Bids)))
					printInfo(fmt.Sprintf("  lineup %v", acc.Roster.Lineup))
					printInfo(fmt.Sprintf("  bench  %v", acc.Roster.Bench))
				}
				return nil
			})
		},
	}
}

func newBidsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bids",
		Short: "Show pending bids grouped by player",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
				pending, err := c.Services.Bids.Pending(ctx)
				if err != nil {
					return err
				}
				if len(pending) == 0 {
					printWarn("No pending bids.")
					return nil
				}
				for _, playerID := range slices.Sorted(maps.Keys(pending)) {
					accent.Println(playerID)
					for _, b := range pending[playerID] {
						printInfo(fmt.Sprintf("  %-16s %12s  %s", b.UserID, formatAmount(b.Amount), b.PlacedAt.Format("2006-01-02 15:04")))
					}
				}
				return nil
			})
		},
	}
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import account records from a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
				accounts, err := c.Services.Ledger.ImportRecords(ctx, data)
				if err != nil {
					return err
				}
				printSuccess(fmt.Sprintf("Imported %d account(s).", len(accounts)))
				return nil
			})
		},
	}
}

func newExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every account as JSON records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
				data, err := c.Services.Ledger.ExportRecords(ctx)
				if err != nil {
					return err
				}
				if out == "" {
					_, err = cmd.OutOrStdout().Write(append(data, '\n'))
					return err
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return err
				}
				printSuccess("Ledger exported to " + out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to file instead of stdout")
	return cmd
}
