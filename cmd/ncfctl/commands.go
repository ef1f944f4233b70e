package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ncfledger/internal/app"
	"ncfledger/internal/config"
	"ncfledger/internal/core/ncf"
	"ncfledger/internal/domain/monitor"
	"ncfledger/internal/domain/reports"
	"ncfledger/internal/domain/sequence"
	"ncfledger/internal/infrastructure/storage/postgres"
)

const dateLayout = "2006-01-02"

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Storage.Driver != config.DriverPostgres {
				return fmt.Errorf("migrate requires the postgres storage driver, got %q", cfg.Storage.Driver)
			}
			ctx := cmd.Context()
			pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Database.URL))
			if err != nil {
				return err
			}
			defer pool.Close()

			applied, err := postgres.Migrate(ctx, pool)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Println("schema is up to date")
				return nil
			}
			for _, name := range applied {
				fmt.Println("applied", name)
			}
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Register owners and sequences from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			seed, err := parseSeed(data)
			if err != nil {
				return err
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				res, err := applySeed(ctx, rt.Services, seed)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				fmt.Printf("created %d owners and %d sequences\n", res.Owners, res.Sequences)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "path to seed YAML")
	return cmd
}

func newOwnersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "owners",
		Short: "List owners",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				owners, err := rt.Services.Owners.List(ctx, false)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(owners)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "RNC", "NCF", "Auto", "Alert Days", "Low %"})
				for _, o := range owners {
					tw.AppendRow(table.Row{o.ID, o.Name, o.RNC, o.NCFEnabled, o.AutoAssign, o.AlertDays, o.LowAvailabilityThreshold})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func newSequencesCmd() *cobra.Command {
	seq := &cobra.Command{Use: "sequences", Short: "Inspect NCF sequences"}
	seq.AddCommand(newSequencesListCmd())
	return seq
}

func newSequencesListCmd() *cobra.Command {
	var ownerFlag, docType string
	var states []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an owner's sequences with usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerID, err := parseOwner(ownerFlag)
			if err != nil {
				return err
			}
			filter := sequence.ListFilter{OwnerID: ownerID}
			if docType != "" {
				if filter.DocumentType, err = ncf.ParseDocumentType(docType); err != nil {
					return err
				}
			}
			for _, s := range states {
				st, err := ncf.ParseState(s)
				if err != nil {
					return err
				}
				filter.States = append(filter.States, st)
			}

			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				seqs, err := rt.Services.Sequences.List(ctx, filter)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(seqs)
				}
				renderSequences(seqs, rt.Services.Sequences.Today())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&ownerFlag, "owner", "", "owner id")
	cmd.Flags().StringVar(&docType, "type", "", "document type")
	cmd.Flags().StringSliceVar(&states, "state", nil, "state filter (repeatable)")
	return cmd
}

func renderSequences(seqs []*sequence.Sequence, today time.Time) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Prefix", "Type", "Range", "Next", "Used %", "Available", "Valid Until", "State"})
	for _, s := range seqs {
		st := sequence.ComputeStats(*s, today)
		tw.AppendRow(table.Row{
			s.Prefix,
			s.DocumentType,
			fmt.Sprintf("%d-%d", s.RangeStart, s.RangeEnd),
			st.NextNumber,
			fmt.Sprintf("%.1f", st.PercentageUsed),
			st.Available,
			s.ValidUntil.Format(dateLayout),
			s.State,
		})
	}
	tw.Render()
}

func newAlertsCmd() *cobra.Command {
	var ownerFlag string
	var publish bool
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Scan sequences for expiry and low availability",
		Long:  "Scans one owner with --owner, otherwise every NCF-enabled owner with its own thresholds.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				svc := rt.Services
				var alerts []monitor.Alert
				if ownerFlag != "" {
					ownerID, err := parseOwner(ownerFlag)
					if err != nil {
						return err
					}
					o, err := svc.Owners.Get(ctx, ownerID)
					if err != nil {
						return err
					}
					if alerts, err = svc.Monitor.Scan(ctx, ownerID, monitor.ThresholdsFor(o)); err != nil {
						return err
					}
				} else {
					owners, err := svc.Owners.List(ctx, true)
					if err != nil {
						return err
					}
					if alerts, err = svc.Monitor.ScanOwners(ctx, owners, rt.Config.Monitor.Concurrency); err != nil {
						return err
					}
				}
				if publish {
					if err := svc.Monitor.Publish(ctx, alerts); err != nil {
						return err
					}
				}
				if viper.GetBool("json") {
					return printJSON(alerts)
				}
				if len(alerts) == 0 {
					fmt.Println("no alerts")
					return nil
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Kind", "Owner", "Prefix", "Type", "Days Left", "Used %", "Available"})
				for _, a := range alerts {
					tw.AppendRow(table.Row{a.Kind, a.OwnerID, a.Prefix, a.DocumentType, a.DaysToExpiry,
						fmt.Sprintf("%.1f", a.PercentageUsed), a.Available})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&ownerFlag, "owner", "", "owner id (default all owners)")
	cmd.Flags().BoolVar(&publish, "publish", false, "write alerts to the outbox")
	return cmd
}

func newSweepCmd() *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Expire and deplete sequences",
		RunE: func(cmd *cobra.Command, args []string) error {
			var day time.Time
			if asOf != "" {
				var err error
				if day, err = time.Parse(dateLayout, asOf); err != nil {
					return fmt.Errorf("--as-of must be YYYY-MM-DD: %w", err)
				}
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				res, err := rt.Services.Monitor.Sweep(ctx, day)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				fmt.Printf("expired %d, depleted %d\n", res.Expired, res.Depleted)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "sweep date (default today)")
	return cmd
}

func newExportCmd() *cobra.Command {
	export := &cobra.Command{Use: "export", Short: "Export DGII reports"}
	export.AddCommand(
		newExportReportCmd(reports.Kind607, "Export the DGII 607 sales report"),
		newExportReportCmd(reports.Kind606, "Export the DGII 606 report"),
	)
	return export
}

func newExportReportCmd(kind reports.Kind, short string) *cobra.Command {
	var ownerFlag, from, to, format, out string
	cmd := &cobra.Command{
		Use:   string(kind),
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerID, err := parseOwner(ownerFlag)
			if err != nil {
				return err
			}
			f, ok := reports.ParseFormat(format)
			if !ok {
				return fmt.Errorf("unsupported format %q", format)
			}
			fromDay, err := time.Parse(dateLayout, from)
			if err != nil {
				return fmt.Errorf("--from must be YYYY-MM-DD: %w", err)
			}
			toDay, err := time.Parse(dateLayout, to)
			if err != nil {
				return fmt.Errorf("--to must be YYYY-MM-DD: %w", err)
			}

			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				report, err := rt.Services.Reports.Build(ctx, reports.Filter{
					Kind:    kind,
					OwnerID: ownerID,
					From:    fromDay,
					To:      toDay,
				})
				if err != nil {
					return err
				}
				file, err := rt.Services.Reports.Export(ctx, report, f)
				if err != nil {
					return err
				}
				path := out
				if path == "" {
					path = file.Name
				}
				if err := os.WriteFile(path, file.Data, 0o644); err != nil {
					return err
				}
				fmt.Printf("wrote %s (%d lines)\n", path, len(report.Lines))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&ownerFlag, "owner", "", "owner id")
	cmd.Flags().StringVar(&from, "from", "", "first issue date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last issue date, YYYY-MM-DD")
	cmd.Flags().StringVar(&format, "format", string(reports.FormatTXT), "txt, csv or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default DGII file name)")
	return cmd
}
