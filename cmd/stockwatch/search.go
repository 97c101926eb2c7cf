package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/newthinker/stockwatch/internal/app"
	"github.com/newthinker/stockwatch/internal/core"
	"github.com/newthinker/stockwatch/internal/search"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Interactive instrument search",
	Long: `Each input line replaces the search query. Commands:
  :k          toggle the search surface (same as Ctrl+K)
  :add N      add result N to the watchlist of --user
  :select N   select result N
  :q          quit`,
	RunE: runSearch,
}

var searchUser string

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchUser, "user", "u", "", "user e-mail or ID for :add")
}

func runSearch(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app.App, log *zap.Logger) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		cfg := a.Config()
		initial, err := a.Gateway().Search(ctx, "")
		if err != nil {
			log.Warn("loading popular stocks failed", zap.Error(err))
		}

		opts := search.Options{
			Debounce:    cfg.Search.Debounce,
			PreviewSize: cfg.Search.PreviewSize,
			Logger:      log.Named("search"),
		}
		if reg := a.Metrics(); reg != nil {
			opts.Metrics = reg
		}
		ctrl := search.NewController(ctx, a.Gateway(), initial, opts)
		defer ctrl.Stop()

		var add func(r core.SearchResult) core.ToggleResult
		if searchUser != "" {
			userID, err := a.ResolveUser(ctx, searchUser)
			if err != nil {
				return err
			}
			svc := a.WatchlistFor(userID)
			add = func(r core.SearchResult) core.ToggleResult {
				return svc.Add(ctx, r.Symbol, r.Name)
			}
		}

		return searchSession(cmd.InOrStdin(), cmd.OutOrStdout(), ctrl, add)
	})
}

// searchSession drives ctrl from line input until EOF or :q.
func searchSession(in io.Reader, out io.Writer, ctrl *search.Controller, add func(core.SearchResult) core.ToggleResult) error {
	var mu sync.Mutex
	printf := func(format string, a ...any) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(out, format, a...)
	}
	ctrl.OnChange(func(v search.View) {
		mu.Lock()
		defer mu.Unlock()
		renderView(out, v)
	})

	ctrl.Open()
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")

		switch cmd {
		case ":q":
			return nil
		case ":k":
			ctrl.HandleKey(search.KeyEvent{Key: "k", Ctrl: true})
		case ":select", ":add":
			r, ok := pick(ctrl.View(), arg)
			if !ok {
				printf("no result %q\n", arg)
				continue
			}
			if cmd == ":add" {
				if add == nil {
					printf("--user is required to add\n")
					continue
				}
				printf("%s\n", add(r).Message)
			}
			ctrl.Select(r)
			printf("selected %s (%s)\n", r.Symbol, r.Exchange)
		default:
			ctrl.SetQuery(line)
		}
	}
	return scanner.Err()
}

func pick(v search.View, arg string) (core.SearchResult, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 || n > len(v.Results) {
		return core.SearchResult{}, false
	}
	return v.Results[n-1], true
}

func renderView(out io.Writer, v search.View) {
	if !v.Open {
		fmt.Fprintln(out, "[search closed]")
		return
	}
	if v.Loading {
		fmt.Fprintf(out, "searching %q...\n", v.Query)
		return
	}

	fmt.Fprintf(out, "%s (%d)\n", v.Heading, len(v.Results))
	if v.Empty != "" {
		fmt.Fprintln(out, v.Empty)
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for i, r := range v.Results {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t\n", i+1, r.Symbol, r.Name, r.Exchange, r.Type)
	}
	w.Flush()
}
