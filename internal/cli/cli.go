// Package cli implements billctl, the operator tool for the bill store.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dvloznov/billed/internal/app"
	"github.com/dvloznov/billed/internal/bills"
	"github.com/dvloznov/billed/internal/config"
	"github.com/dvloznov/billed/internal/domain"
	"github.com/dvloznov/billed/internal/receipts"
	"github.com/dvloznov/billed/internal/session"
	"github.com/dvloznov/billed/internal/store"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// OpenFunc opens the configured backends.
type OpenFunc func(ctx context.Context) (*app.App, error)

// App holds the CLI application state.
type App struct {
	cfg  config.Config
	log  zerolog.Logger
	out  io.Writer
	open OpenFunc
	root *cobra.Command
}

// NewApp creates the billctl command tree. open may be nil, in which case
// backends are built from cfg.
func NewApp(cfg config.Config, log zerolog.Logger, out io.Writer, open OpenFunc) *App {
	a := &App{cfg: cfg, log: log, out: out, open: open}
	if a.open == nil {
		a.open = func(ctx context.Context) (*app.App, error) {
			return app.Open(ctx, a.cfg, a.log)
		}
	}

	a.root = &cobra.Command{
		Use:           "billctl",
		Short:         "Manage Billed expense reports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	a.root.SetOut(out)

	a.root.AddCommand(a.seedCmd())
	a.root.AddCommand(a.listCmd())
	a.root.AddCommand(a.tokenCmd())
	a.root.AddCommand(a.uploadCmd())
	a.root.AddCommand(a.migrateCmd())

	return a
}

// Execute runs the CLI with os.Args.
func (a *App) Execute() error {
	return a.root.Execute()
}

// Run runs the CLI with the given arguments.
func (a *App) Run(args []string) error {
	a.root.SetArgs(args)
	return a.root.Execute()
}

func (a *App) seedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load bills from a JSON file into the store",
		Long: `Load bills from a JSON array into the configured store.

Bills are upserted by ID, so seeding twice replaces the earlier copies.`,
		Example: `  billctl seed --file bills.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading fixture: %w", err)
			}
			var list []domain.Bill
			if err := json.Unmarshal(data, &list); err != nil {
				return fmt.Errorf("decoding fixture %s: %w", file, err)
			}

			backends, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer backends.Close()

			for _, b := range list {
				if _, err := backends.Bills.Update(cmd.Context(), b); err != nil {
					return fmt.Errorf("seeding bill %q: %w", b.ID, err)
				}
			}

			a.log.Info().Int("count", len(list)).Str("file", file).Msg("Bills seeded")
			fmt.Fprintf(a.out, "Seeded %d bills.\n", len(list))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file holding an array of bills")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (a *App) listCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print bills, most recent first",
		Example: `  billctl list
  billctl list --email a@a`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backends, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer backends.Close()

			list, err := backends.Bills.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing bills: %w", err)
			}

			viewer := domain.Session{Type: domain.RoleAdmin}
			if email != "" {
				viewer = domain.Session{Type: domain.RoleEmployee, Email: email}
			}
			list = bills.SortByDateDesc(bills.FilterVisible(viewer, list))

			if len(list) == 0 {
				fmt.Fprintln(a.out, "No bills found.")
				return nil
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tSTATUS\tAMOUNT\tTYPE\tNAME\tEMAIL\tID")
			for _, b := range list {
				fmt.Fprintf(tw, "%s\t%s\t%g €\t%s\t%s\t%s\t%s\n",
					bills.FormatDate(b.Date), bills.FormatStatus(b.Status), b.Amount, b.Type, b.Name, b.Email, b.ID)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "only show bills of this employee")
	return cmd
}

func (a *App) tokenCmd() *cobra.Command {
	var (
		email string
		role  string
		ttl   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a session token",
		Long: `Mint a signed session token for the given user.

Use it as the "session" cookie or as a Bearer token.`,
		Example: `  billctl token --email a@a
  billctl token --email admin@billed.tld --role admin --ttl 1h`,
		RunE: func(_ *cobra.Command, _ []string) error {
			if a.cfg.Session.Secret == "" {
				return fmt.Errorf("session.secret is not configured")
			}
			r, ok := domain.ParseRole(role)
			if !ok {
				return fmt.Errorf("unknown role %q (want employee or admin)", role)
			}
			if ttl <= 0 {
				ttl = a.cfg.Session.TTL
			}

			token, err := session.NewTokenService(a.cfg.Session.Secret, ttl).Issue(domain.Session{Type: r, Email: email})
			if err != nil {
				return fmt.Errorf("issuing token: %w", err)
			}
			fmt.Fprintln(a.out, token)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "user email")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleEmployee), "employee or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to session.ttl)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *App) uploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "upload FILE",
		Short:   "Store a receipt image and print where it lives",
		Example: `  billctl upload ./facture.png`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("opening receipt: %w", err)
			}
			defer f.Close()

			backends, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer backends.Close()

			receipt, err := backends.Bills.Create(cmd.Context(), receipts.Upload{
				FileName: filepath.Base(path),
				Body:     f,
			})
			if err != nil {
				if store.IsInvalidFile(err) {
					return fmt.Errorf("%s: %w", bills.InvalidFileMessage, err)
				}
				return fmt.Errorf("uploading receipt: %w", err)
			}

			a.log.Info().Str("key", receipt.Key).Str("file", path).Msg("Receipt uploaded")
			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")
			return enc.Encode(receipt)
		},
	}
	return cmd
}

func (a *App) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the bills table of the configured store",
		Long: `Create the bills table of the configured store if it is missing.

The sqlite store creates its schema on open and the bigquery store creates
the bills table in the configured dataset. The memory store has nothing to do.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backends, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer backends.Close()

			fmt.Fprintf(a.out, "Schema ready (%s store).\n", a.cfg.Store.Backend)
			return nil
		},
	}
}
