package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/newthinker/stockwatch/internal/app"
	"github.com/newthinker/stockwatch/internal/core"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchlistCmd = &cobra.Command{
	Use:   "watchlist",
	Short: "Watchlist operations",
	Long:  `Commands for listing and editing a user's watchlist.`,
}

var watchlistListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the enriched watchlist",
	RunE:  runWatchlistList,
}

var watchlistAddCmd = &cobra.Command{
	Use:   "add SYMBOL [COMPANY]",
	Short: "Add a symbol to the watchlist",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runWatchlistAdd,
}

var watchlistRemoveCmd = &cobra.Command{
	Use:   "remove SYMBOL",
	Short: "Remove a symbol from the watchlist",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatchlistRemove,
}

var watchlistUser string

func init() {
	rootCmd.AddCommand(watchlistCmd)
	watchlistCmd.AddCommand(watchlistListCmd)
	watchlistCmd.AddCommand(watchlistAddCmd)
	watchlistCmd.AddCommand(watchlistRemoveCmd)

	watchlistCmd.PersistentFlags().StringVarP(&watchlistUser, "user", "u", "", "user e-mail or ID")
	watchlistCmd.MarkPersistentFlagRequired("user")
}

func runWatchlistList(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app.App, log *zap.Logger) error {
		ctx := context.Background()
		userID, err := a.ResolveUser(ctx, watchlistUser)
		if err != nil {
			return err
		}

		rows := a.WatchlistFor(userID).Enrich(ctx, userID)
		printRows(cmd.OutOrStdout(), rows)
		log.Info("watchlist listed", zap.String("user_id", userID), zap.Int("rows", len(rows)))
		return nil
	})
}

func runWatchlistAdd(cmd *cobra.Command, args []string) error {
	company := ""
	if len(args) > 1 {
		company = args[1]
	}
	return runToggle(cmd, args[0], company, false)
}

func runWatchlistRemove(cmd *cobra.Command, args []string) error {
	return runToggle(cmd, args[0], "", true)
}

func runToggle(cmd *cobra.Command, symbol, company string, present bool) error {
	return withApp(func(a *app.App, log *zap.Logger) error {
		ctx := context.Background()
		userID, err := a.ResolveUser(ctx, watchlistUser)
		if err != nil {
			return err
		}

		res := a.WatchlistFor(userID).Toggle(ctx, symbol, company, present)
		fmt.Fprintln(cmd.OutOrStdout(), res.Message)
		if !res.Success {
			return fmt.Errorf("%s", strings.ToLower(res.Code))
		}
		return nil
	})
}

func printRows(out io.Writer, rows []core.EnrichedRow) {
	if len(rows) == 0 {
		fmt.Fprintln(out, "No stocks with live prices in the watchlist.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tCOMPANY\tPRICE\tCHANGE\tMKT CAP\tP/E\tADDED\t")
	fmt.Fprintln(w, "------\t-------\t-----\t------\t-------\t---\t-----\t")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			r.Symbol, r.Company, r.PriceFormatted, r.ChangeFormatted, r.MarketCap, r.PERatio,
			r.AddedAt.Format("2006-01-02"))
	}
	w.Flush()
}
