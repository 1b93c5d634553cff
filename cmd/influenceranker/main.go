package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"InfluenceRanker/internal/app"
	"InfluenceRanker/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:           "influenceranker",
		Short:         "Company tech influence ranker for Qiita, Zenn and Hatena",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newScrapeCmd(),
		newRankCmd(),
		newHistoryCmd(),
		newRematchCmd(),
		newCompaniesCmd(),
		newRunCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// withApp builds the application for one command invocation and tears it
// down afterwards.
func withApp(fn func(a *app.App) error) error {
	a, err := app.New(config.Load())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
