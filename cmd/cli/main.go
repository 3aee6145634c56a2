package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/danhlc/poslite/internal/app"
	"github.com/danhlc/poslite/internal/domain"
	"github.com/danhlc/poslite/internal/infrastructure/config"
	"github.com/danhlc/poslite/internal/infrastructure/logger"
	"github.com/danhlc/poslite/internal/infrastructure/postgres"
	"github.com/danhlc/poslite/internal/infrastructure/sqlite"
	"github.com/danhlc/poslite/internal/textsearch"
	"github.com/danhlc/poslite/internal/usecase"
)

// errLedgerBroken makes `ledger verify` exit non-zero.
var errLedgerBroken = errors.New("ledger chain is broken")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type cli struct {
	actor string
	log   zerolog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:           "poslite-cli",
		Short:         "PosLite back office tool",
		Long:          `Maintenance commands for the PosLite customer ledger. Database settings are read from the environment.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			c.log = logger.New(logger.Config{Level: cfg.LogLevel, Format: "console", Output: cmd.ErrOrStderr()})
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&c.actor, "actor", "", "user name recorded on writes")

	rootCmd.AddCommand(
		c.normalizeCmd(),
		c.migrateCmd(),
		c.searchKeysCmd(),
		c.ledgerCmd(),
	)

	return rootCmd
}

func (c *cli) normalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <text>",
		Short: "Print the search key of a text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), textsearch.Normalize(strings.Join(args, " ")))
			return nil
		},
	}
}

func (c *cli) migrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}

	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return migrate(cmd, true)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the last migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return migrate(cmd, false)
			},
		},
	)

	return migrateCmd
}

func migrate(cmd *cobra.Command, up bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		if up {
			err = postgres.RunMigrations(cfg.DatabaseURL)
		} else {
			err = postgres.RunMigrationsDown(cfg.DatabaseURL)
		}
	case config.DriverSQLite:
		db, openErr := sqlite.Open(cmd.Context(), sqlite.Config{
			Path:           cfg.SQLitePath,
			BusyTimeout:    cfg.SQLiteBusyTimeout,
			SkipMigrations: true,
		})
		if openErr != nil {
			return openErr
		}
		defer db.Close()

		if up {
			err = sqlite.RunMigrations(db)
		} else {
			err = sqlite.RunMigrationsDown(db)
		}
	}
	if err != nil {
		return err
	}

	direction := "up"
	if !up {
		direction = "down"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "migrations %s: ok\n", direction)
	return nil
}

func (c *cli) searchKeysCmd() *cobra.Command {
	searchKeysCmd := &cobra.Command{
		Use:   "search-keys",
		Short: "Search key maintenance",
	}

	searchKeysCmd.AddCommand(&cobra.Command{
		Use:   "repair",
		Short: "Recompute stale search keys of customers, categories and products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withServices(cmd, func(ctx context.Context, svc *app.Services) error {
				report, err := svc.SearchKeys.Repair(ctx)
				if err != nil {
					return err
				}

				entities := make([]string, 0, len(report.Scanned))
				for name := range report.Scanned {
					entities = append(entities, name)
				}
				sort.Strings(entities)

				for _, name := range entities {
					fmt.Fprintf(cmd.OutOrStdout(), "%-10s scanned=%d repaired=%d skipped=%d\n",
						name, report.Scanned[name], report.Repaired[name], report.Skipped[name])
				}
				return nil
			})
		},
	})

	return searchKeysCmd
}

func (c *cli) ledgerCmd() *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Customer ledger operations",
	}

	balanceCmd := &cobra.Command{
		Use:   "balance <customer-id>",
		Short: "Print the current balance of a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withServices(cmd, func(ctx context.Context, svc *app.Services) error {
				balance, err := svc.Ledger.CustomerBalance(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{"customer_id": args[0], "balance": balance})
			})
		},
	}

	verifyCmd := &cobra.Command{
		Use:   "verify <customer-id>",
		Short: "Replay a customer's ledger and check every balance snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withServices(cmd, func(ctx context.Context, svc *app.Services) error {
				report, err := svc.Ledger.VerifyCustomer(ctx, args[0])
				if err != nil {
					return err
				}

				out := map[string]any{
					"customer_id": report.CustomerID,
					"entries":     report.Entries,
					"balance":     report.Balance,
					"consistent":  report.Consistent,
				}
				if report.Break != nil {
					out["break_entry_id"] = report.Break.Entry.EntryID
					out["break_position"] = report.Break.Position
					out["expected_balance_after"] = report.Break.Expected
				}
				if err := printJSON(cmd.OutOrStdout(), out); err != nil {
					return err
				}

				if !report.Consistent {
					return errLedgerBroken
				}
				return nil
			})
		},
	}

	var (
		mode      string
		direction string
		amount    int64
		note      string
	)
	adjustCmd := &cobra.Command{
		Use:   "adjust <customer-id>",
		Short: "Record a manual debt adjustment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withServices(cmd, func(ctx context.Context, svc *app.Services) error {
				input := usecase.RecordAdjustmentInput{
					CustomerID: args[0],
					Mode:       domain.AdjustMode(mode),
					Direction:  domain.Direction(direction),
					Amount:     amount,
				}
				if cmd.Flags().Changed("note") {
					input.Note = &note
				}

				result, err := svc.Ledger.RecordAdjustment(ctx, input)
				if err != nil {
					return err
				}

				out := map[string]any{
					"previous_balance": result.PreviousBalance,
					"balance":          result.Balance,
					"no_op":            result.NoOp,
				}
				if result.Entry != nil {
					out["entry_id"] = result.Entry.EntryID
					out["note"] = result.Entry.Note
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	adjustCmd.Flags().StringVar(&mode, "mode", string(domain.AdjustModeDelta), "set or delta")
	adjustCmd.Flags().StringVar(&direction, "direction", string(domain.DirectionIncrease), "increase or decrease (delta mode)")
	adjustCmd.Flags().Int64Var(&amount, "amount", 0, "amount in VND")
	adjustCmd.Flags().StringVar(&note, "note", "", "note stored on the entry")
	_ = adjustCmd.MarkFlagRequired("amount")

	ledgerCmd.AddCommand(balanceCmd, verifyCmd, adjustCmd)
	return ledgerCmd
}

// withServices opens the configured store, runs fn and closes the store.
func (c *cli) withServices(cmd *cobra.Command, fn func(ctx context.Context, svc *app.Services) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if c.actor != "" {
		ctx = usecase.WithActor(ctx, c.actor)
	}

	store, err := app.OpenStore(ctx, cfg, c.log)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(ctx, app.NewServices(store, c.log, nil))
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
