package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lucassmelendez/ct-fastapi/internal/bcentral"
	"github.com/lucassmelendez/ct-fastapi/internal/config"
	"github.com/lucassmelendez/ct-fastapi/internal/indicators"
)

func indicatorsCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "indicators",
		Short: "Print the economic indicator snapshot for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if date == "" {
				date = time.Now().Format("2006-01-02")
			}

			client := bcentral.NewClient(cfg.BCentral.BaseURL, cfg.BCentral.User, cfg.BCentral.Password)
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			fetch := func(code string) []bcentral.Observation {
				observations, err := client.FetchSeries(ctx, code, date, date)
				if err != nil {
					fmt.Printf("  %s: %v\n", code, err)
					return nil
				}
				return observations
			}

			snapshot := indicators.BuildSnapshot(date,
				fetch(bcentral.SeriesExchangeRate),
				fetch(bcentral.SeriesUF),
				fetch(bcentral.SeriesUTM),
			)

			fmt.Printf("Economic indicators for %s:\n", snapshot.Date)
			printIndicator(snapshot.ExchangeRate)
			printIndicator(snapshot.UF)
			printIndicator(snapshot.UTM)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "date (YYYY-MM-DD, default today)")
	return cmd
}

func printIndicator(ind indicators.Indicator) {
	if !ind.Available {
		fmt.Printf("  %-35s unavailable\n", ind.Name)
		return
	}
	fmt.Printf("  %-35s %12.2f  (as of %s)\n", ind.Name, ind.Value, ind.Date)
}
