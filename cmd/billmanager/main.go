package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bher20/billmanager/internal/api"
	"github.com/bher20/billmanager/internal/billing"
	"github.com/bher20/billmanager/internal/config"
	"github.com/bher20/billmanager/internal/cron"
	"github.com/bher20/billmanager/internal/migrate"
	"github.com/bher20/billmanager/internal/tariff"
)

func main() {
	root := &cobra.Command{
		Use:   "billmanager",
		Short: "Electricity bill calculation service",
	}

	root.AddCommand(serveCmd(), calcCmd(), workerCmd(), migrateCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			mux := api.NewMux(cfg)

			addr := ":" + cfg.Port
			log.Printf("billmanager listening on %s", addr)
			return http.ListenAndServe(addr, mux)
		},
	}
}

func calcCmd() *cobra.Command {
	var (
		category    string
		units       float64
		days        int
		loadDesc    string
		previousDue float64
	)

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Compute a bill and print the itemized breakdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			if cfg.TariffPDFPath != "" {
				if _, err := tariff.LoadSchedulePDF(cfg.TariffPDFPath); err != nil {
					log.Printf("tariff schedule load failed: %v; using built-in rates", err)
				}
			}

			svc := billing.NewService()
			req := billing.Request{
				Category:       category,
				Units:          &units,
				Days:           &days,
				LoadDescriptor: &loadDesc,
				PreviousDue:    &previousDue,
			}
			res, err := svc.Compute(cmd.Context(), req)
			if err != nil {
				return err
			}

			for _, n := range res.Notices {
				fmt.Printf("Notice: %s\n", n)
			}
			printBreakdown(res)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "connection category (DS1D or DS2D)")
	cmd.Flags().Float64Var(&units, "units", 0, "units consumed over the billing period")
	cmd.Flags().IntVar(&days, "days", 30, "billing period length in days")
	cmd.Flags().StringVar(&loadDesc, "load", "", "load descriptor, e.g. \"TL=5, DL=3\"")
	cmd.Flags().Float64Var(&previousDue, "previous-due", 0, "outstanding balance from prior periods")
	cmd.MarkFlagRequired("category")
	cmd.MarkFlagRequired("units")
	cmd.MarkFlagRequired("load")

	return cmd
}

func printBreakdown(res *billing.Result) {
	b := res.Breakdown
	fmt.Println("----- Electricity Bill Details -----")
	fmt.Printf("Connection Category: %s\n", res.Category)
	rows := []struct {
		label string
		value float64
	}{
		{"Energy Consumption Amount", b.EnergyAmount},
		{"Subsidy Amount", b.SubsidyAmount},
		{"Net Bill After Subsidy", b.NetBillAfterSubsidy},
		{"Fixed Charges", b.FixedCharges},
		{"Excess Load Surcharge", b.ExcessLoadSurcharge},
		{"Delayed Payment Surcharge", b.DelayedPaymentSurcharge},
		{"Electricity Duty", b.ElectricityDuty},
		{"Total Due (excl. prev due)", b.TotalDue},
		{"Previous Due", b.PreviousDue},
		{"Final Amount Due", b.FinalAmountDue},
	}
	for _, row := range rows {
		fmt.Printf("%-28s Rs %.2f\n", row.label+":", row.value)
	}
}

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the overdue sweep worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := cron.Run(ctx, cfg); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg := config.FromEnv()
				return migrate.Up(cmd.Context(), cfg.Driver, cfg.DSN)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg := config.FromEnv()
				return migrate.Down(cmd.Context(), cfg.Driver, cfg.DSN)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show migration status",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg := config.FromEnv()
				return migrate.Status(cmd.Context(), cfg.Driver, cfg.DSN)
			},
		},
	)

	return cmd
}
