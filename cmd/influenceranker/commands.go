package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"InfluenceRanker/internal/app"
	"InfluenceRanker/internal/domain"
	"InfluenceRanker/internal/usecase"
)

func newScrapeCmd() *cobra.Command {
	var (
		platformFlag string
		dryRun       bool
		popular      bool
	)

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape trending articles and ingest them",
		RunE: func(cmd *cobra.Command, args []string) error {
			var platforms []domain.Platform
			if platformFlag != "" {
				p, err := domain.ParsePlatform(platformFlag)
				if err != nil {
					return err
				}
				platforms = []domain.Platform{p}
			}

			return withApp(func(a *app.App) error {
				var (
					summary *usecase.CycleSummary
					err     error
				)
				if popular {
					summary, err = a.RunPopularScrape(cmd.Context(), dryRun)
				} else {
					summary, err = a.RunScrape(cmd.Context(), platforms, dryRun)
				}
				if summary != nil {
					printCycleSummary(summary)
				}
				return err
			})
		},
	}

	cmd.Flags().StringVar(&platformFlag, "platform", "", "scrape a single platform (qiita, zenn, hatena)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "match and report without writing articles")
	cmd.Flags().BoolVar(&popular, "popular", false, "scrape popularity-sorted listings instead of trending")
	return cmd
}

func printCycleSummary(s *usecase.CycleSummary) {
	fmt.Printf("run %s (%s)\n", s.RunID, s.Duration.Round(time.Millisecond))
	platforms := make([]string, 0, len(s.Platforms))
	for p := range s.Platforms {
		platforms = append(platforms, string(p))
	}
	sort.Strings(platforms)
	for _, p := range platforms {
		ingest := s.Platforms[domain.Platform(p)]
		fmt.Printf("  %-8s scraped=%d saved=%d matched=%d dropped=%d\n",
			p, ingest.Scraped, ingest.Saved, ingest.Matched, ingest.Dropped)
	}
	for p, msg := range s.Failed {
		fmt.Printf("  %-8s FAILED: %s\n", p, msg)
	}
}

func newRankCmd() *cobra.Command {
	var (
		periodFlag string
		dateFlag   string
	)

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Recompute influence rankings",
		RunE: func(cmd *cobra.Command, args []string) error {
			var periods []domain.PeriodType
			if periodFlag != "" {
				pt, err := domain.ParsePeriodType(periodFlag)
				if err != nil {
					return err
				}
				periods = []domain.PeriodType{pt}
			}

			reference := time.Now().UTC()
			if dateFlag != "" {
				parsed, err := time.Parse("2006-01-02", dateFlag)
				if err != nil {
					return fmt.Errorf("parse --date: %w", err)
				}
				reference = parsed
			}

			return withApp(func(a *app.App) error {
				if err := a.RunRanking(cmd.Context(), periods, reference); err != nil {
					return err
				}
				if len(periods) == 1 {
					return printTop(cmd.Context(), a, periods[0])
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&periodFlag, "period", "", "recompute a single period (1w, 1m, 3m, 6m, 1y, 3y, all)")
	cmd.Flags().StringVar(&dateFlag, "date", "", "anchor date YYYY-MM-DD (default today)")
	return cmd
}

func printTop(ctx context.Context, a *app.App, periodType domain.PeriodType) error {
	rows, err := a.Generator.TopForPeriod(ctx, periodType, 20)
	if err != nil {
		return err
	}
	fmt.Printf("top %s\n", periodType)
	for _, row := range rows {
		fmt.Printf("  #%-3d company=%-5d score=%8.2f articles=%d\n",
			row.RankPosition, row.CompanyID, row.TotalScore, row.ArticleCount)
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and maintain rank-change history",
	}

	var periodFlag string
	var limitFlag int

	movers := func(use, short string, fallers bool) *cobra.Command {
		sub := &cobra.Command{
			Use:   use,
			Short: short,
			RunE: func(cmd *cobra.Command, args []string) error {
				pt, err := domain.ParsePeriodType(periodFlag)
				if err != nil {
					return err
				}
				return withApp(func(a *app.App) error {
					var rows []domain.RankingMove
					if fallers {
						rows, err = a.Tracker.TopFallers(cmd.Context(), pt, limitFlag)
					} else {
						rows, err = a.Tracker.TopRisers(cmd.Context(), pt, limitFlag)
					}
					if err != nil {
						return err
					}
					for _, row := range rows {
						fmt.Printf("  %-24s %3d -> %3d (%+d)\n",
							row.CompanyName, row.PreviousRank, row.CurrentRank, row.RankChange)
					}
					return nil
				})
			},
		}
		return sub
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Aggregate rank changes at the latest snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			pt, err := domain.ParsePeriodType(periodFlag)
			if err != nil {
				return err
			}
			return withApp(func(a *app.App) error {
				s, err := a.Tracker.ChangeStatistics(cmd.Context(), pt)
				if err != nil {
					return err
				}
				fmt.Printf("%s: risers=%d fallers=%d unchanged=%d avg=%+.2f max_rise=%+d max_fall=%+d\n",
					s.PeriodType, s.Risers, s.Fallers, s.Unchanged, s.AverageChange, s.MaxRise, s.MaxFall)
				return nil
			})
		},
	}

	cleanup := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete history rows past the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				deleted, err := a.Tracker.Cleanup(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("deleted %d history rows\n", deleted)
				return nil
			})
		},
	}

	cmd.PersistentFlags().StringVar(&periodFlag, "period", "1w", "ranking period")
	cmd.PersistentFlags().IntVar(&limitFlag, "limit", 10, "maximum rows to list")
	cmd.AddCommand(
		movers("risers", "List the biggest rank gains", false),
		movers("fallers", "List the biggest rank losses", true),
		stats,
		cleanup,
	)
	return cmd
}

func newRematchCmd() *cobra.Command {
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "rematch",
		Short: "Re-run company matching over unmatched articles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				assigned, err := a.Normalizer.RematchArticles(cmd.Context(), limitFlag)
				if err != nil {
					return err
				}
				fmt.Printf("assigned %d articles\n", assigned)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limitFlag, "limit", 0, "maximum articles to re-check (0 = all)")
	return cmd
}

type companyFile struct {
	Companies []struct {
		Name              string   `yaml:"name"`
		Domain            string   `yaml:"domain"`
		DomainPatterns    []string `yaml:"domainPatterns"`
		URLPatterns       []string `yaml:"urlPatterns"`
		Keywords          []string `yaml:"keywords"`
		QiitaUsername     string   `yaml:"qiitaUsername"`
		ZennUsername      string   `yaml:"zennUsername"`
		ZennOrganizations []string `yaml:"zennOrganizations"`
		Inactive          bool     `yaml:"inactive"`
	} `yaml:"companies"`
}

func newCompaniesCmd() *cobra.Command {
	var fileFlag string

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Load or refresh company reference data from YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(fileFlag)
			if err != nil {
				return fmt.Errorf("read %s: %w", fileFlag, err)
			}
			var file companyFile
			if err := yaml.Unmarshal(raw, &file); err != nil {
				return fmt.Errorf("parse %s: %w", fileFlag, err)
			}

			return withApp(func(a *app.App) error {
				for _, c := range file.Companies {
					company := domain.Company{
						Name:              c.Name,
						Domain:            c.Domain,
						DomainPatterns:    c.DomainPatterns,
						URLPatterns:       c.URLPatterns,
						Keywords:          c.Keywords,
						QiitaUsername:     c.QiitaUsername,
						ZennUsername:      c.ZennUsername,
						ZennOrganizations: c.ZennOrganizations,
						IsActive:          !c.Inactive,
					}
					if err := a.Store.UpsertCompany(cmd.Context(), &company); err != nil {
						return err
					}
				}
				fmt.Printf("imported %d companies\n", len(file.Companies))
				return nil
			})
		},
	}
	importCmd.Flags().StringVar(&fileFlag, "file", "companies.yaml", "company definition file")

	cmd := &cobra.Command{
		Use:   "companies",
		Short: "Manage company reference data",
	}
	cmd.AddCommand(importCmd)
	return cmd
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run scrape and ranking cycles on their configured intervals",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return withApp(func(a *app.App) error {
				return a.RunDaemon(ctx)
			})
		},
	}
}
