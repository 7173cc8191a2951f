// Package main is availctl, the ops CLI for the availability sync engine.
// It works directly against the database, so it can import, sync and
// export without a running server. Deployments without the long-running
// scheduler drive `availctl sync --all` from cron instead.
package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/Sauce8888/MVP1/internal/calendar"
	"github.com/Sauce8888/MVP1/internal/config"
	"github.com/Sauce8888/MVP1/internal/ical"
	"github.com/Sauce8888/MVP1/internal/notify"
	"github.com/Sauce8888/MVP1/internal/storage"
	"github.com/Sauce8888/MVP1/internal/storage/models"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "availctl",
		Usage: "Operate the availability sync engine against its database.",
		Commands: []*cli.Command{
			importCommand(),
			syncCommand(),
			exportCommand(),
			connectionsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// engine bundles the wired services a command works with.
type engine struct {
	cfg         *config.Config
	db          *storage.DB
	connections *storage.ConnectionRepository
	registry    *calendar.Registry
	sync        *calendar.SyncService
	exporter    *calendar.Exporter
}

// openEngine opens the database and wires the reconciliation services.
// Commands run with system access and without notifications; the
// advisory sync guard is pointless in a one-shot process, so it is off.
func openEngine() (*engine, error) {
	cfg := config.Load("availctl")
	log := cfg.Log

	db, err := storage.NewDB(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := storage.RunMigrations(db, log); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	propertyRepo := storage.NewPropertyRepository(db)
	bookingRepo := storage.NewBookingRepository(db)
	connectionRepo := storage.NewConnectionRepository(db)
	eventRepo := storage.NewEventRepository(db)
	dateRepo := storage.NewUnavailableDateRepository(db)

	fetcher := ical.NewFetcher(cfg.FetchTimeout)
	parser := ical.NewParser(log)
	projector := calendar.NewProjector(db, dateRepo, log)

	syncService := calendar.NewSyncService(
		db, propertyRepo, connectionRepo, eventRepo,
		fetcher, parser, projector, notify.Nop{}, log,
		calendar.SyncConfig{
			Expand: ical.ExpandOptions{Horizon: cfg.RecurrenceHorizon},
		},
	)

	return &engine{
		cfg:         cfg,
		db:          db,
		connections: connectionRepo,
		registry:    calendar.NewRegistry(db, propertyRepo, connectionRepo, eventRepo, dateRepo, syncService, log),
		sync:        syncService,
		exporter:    calendar.NewExporter(propertyRepo, bookingRepo, eventRepo, dateRepo),
	}, nil
}

func (e *engine) close() {
	e.db.Close()
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Connect an external calendar feed to a property and run the first sync.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "property", Usage: "Property ID.", Required: true},
			&cli.StringFlag{Name: "source", Value: "airbnb", Usage: "Feed source: airbnb or other."},
			&cli.StringFlag{Name: "url", Usage: "Feed URL (https or webcal).", Required: true},
		},
		Action: func(c *cli.Context) error {
			source, err := models.ParseSource(c.String("source"))
			if err != nil {
				return err
			}

			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.close()

			conn, result, err := e.registry.Import(
				c.Context, models.SystemAccess(),
				c.String("property"), source, c.String("url"),
			)
			if err != nil {
				return err
			}

			fmt.Printf("Connected %s feed to property %s (connection %s)\n", conn.Source, conn.PropertyID, conn.ID)
			printResult(*result)
			if result.ErrorMessage != "" {
				return fmt.Errorf("first sync failed: %s", result.ErrorMessage)
			}
			return nil
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Run a sync pass over calendar connections.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "property", Usage: "Sync only this property's connections."},
			&cli.BoolFlag{Name: "all", Usage: "Sync every connection."},
		},
		Action: func(c *cli.Context) error {
			property := c.String("property")
			if property == "" && !c.Bool("all") {
				return fmt.Errorf("either --property or --all is required")
			}

			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.close()

			var results []models.SyncResult
			if property != "" {
				results, err = e.sync.SyncProperty(c.Context, models.SystemAccess(), property)
			} else {
				results, err = e.sync.SyncAll(c.Context)
			}
			if err != nil {
				return err
			}

			failed := 0
			for _, result := range results {
				printResult(result)
				if result.ErrorMessage != "" {
					failed++
				}
			}
			fmt.Printf("Synced %d connections, %d failed\n", len(results), failed)

			if failed > 0 {
				return fmt.Errorf("%d of %d connections failed", failed, len(results))
			}
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write a property's merged availability calendar as iCalendar.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "property", Usage: "Property ID.", Required: true},
			&cli.StringFlag{Name: "out", Usage: "Output file (defaults to stdout)."},
		},
		Action: func(c *cli.Context) error {
			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.close()

			data, err := e.exporter.Export(c.Context, models.SystemAccess(), c.String("property"))
			if err != nil {
				return err
			}

			if out := c.String("out"); out != "" {
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return fmt.Errorf("writing %s: %w", out, err)
				}
				fmt.Printf("Wrote %d bytes to %s\n", len(data), out)
				return nil
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}
}

func connectionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "connections",
		Usage: "Inspect calendar connections.",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List every calendar connection.",
				Action: func(c *cli.Context) error {
					e, err := openEngine()
					if err != nil {
						return err
					}
					defer e.close()

					connections, err := e.connections.ListAll(c.Context)
					if err != nil {
						return err
					}

					w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
					fmt.Fprintln(w, "PROPERTY\tSOURCE\tLAST SYNCED\tURL")
					for _, conn := range connections {
						lastSynced := "never"
						if conn.LastSyncedAt != nil {
							lastSynced = conn.LastSyncedAt.UTC().Format("2006-01-02 15:04:05")
						}
						fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", conn.PropertyID, conn.Source, lastSynced, conn.URL)
					}
					return w.Flush()
				},
			},
		},
	}
}

// printResult prints one sync result in a line an operator can scan.
func printResult(result models.SyncResult) {
	if result.ErrorMessage != "" {
		fmt.Printf("  %s/%s: FAILED: %s\n", result.PropertyID, result.Source, result.ErrorMessage)
		return
	}
	fmt.Printf("  %s/%s: %d events, %d added, %d updated, %d removed\n",
		result.PropertyID, result.Source,
		result.EventsFound, result.Added, result.Updated, result.Removed)
}
