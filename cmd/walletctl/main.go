package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"photo-wallet/internal/app"
	"photo-wallet/internal/database"
	"photo-wallet/internal/inbox"
	"photo-wallet/internal/logging"
	"photo-wallet/internal/startup"
	"photo-wallet/internal/wallet"
)

// cliSource labels command line imports in metrics.
const cliSource = "cli"

// confirmWord must be typed to confirm a hard reset.
const confirmWord = "reset"

// cli carries what the commands share. open and isTerminal are replaced in
// tests.
type cli struct {
	open       func(ctx context.Context) (*app.App, error)
	isTerminal func() bool

	verbose bool
	asJSON  bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := &cli{
		open: openFromEnv,
		isTerminal: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
	}
	if err := c.rootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "walletctl: %v\n", err)
		os.Exit(1)
	}
}

// openFromEnv builds the wallet from the same environment as the server,
// without the inbox watcher or metrics.
func openFromEnv(ctx context.Context) (*app.App, error) {
	cfg, err := startup.ReadConfig()
	if err != nil {
		return nil, err
	}
	cfg.InboxEnabled = false
	cfg.MetricsEnabled = false
	if err := cfg.Prepare(); err != nil {
		return nil, err
	}
	return app.Open(ctx, cfg)
}

func (c *cli) rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "walletctl",
		Short: "Manage a photo wallet from the command line",
		Long: `walletctl opens the wallet's data directory directly and runs one
operation against it. It reads the same environment as the server
(DATA_DIR, DATABASE_DIR, CACHE_DIR, WALLET_CAPACITY, MAX_FILE_SIZE,
PERSIST_POLICY). Stop the server before changing its data.`,
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if c.verbose {
				logging.SetLevel(logging.LevelDebug)
			} else {
				logging.SetLevel(logging.LevelWarn)
			}
		},
	}
	cmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Log debug output to stderr")
	cmd.PersistentFlags().BoolVar(&c.asJSON, "json", false, "Print results as JSON")
	cmd.AddCommand(
		c.statusCommand(),
		c.listCommand(),
		c.addCommand(),
		c.archiveCommand(),
		c.archiveOldestCommand(),
		c.restoreCommand(),
		c.deleteCommand(),
		c.purgeCommand(),
		c.reorderCommand(),
		c.resetCommand(),
	)
	return cmd
}

// withWallet opens the wallet, runs fn and closes it again.
func (c *cli) withWallet(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) (err error) {
	ctx := cmd.Context()
	a, err := c.open(ctx)
	if err != nil {
		return fmt.Errorf("open wallet: %w", err)
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close wallet: %w", cerr)
		}
	}()
	return fn(ctx, a)
}

func (c *cli) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show photo counts and configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withWallet(cmd, func(_ context.Context, a *app.App) error {
				active, archived := a.Store().Stats()
				cfg := a.Config()
				status := struct {
					Active   int    `json:"active"`
					Archived int    `json:"archived"`
					Capacity int    `json:"capacity"`
					Policy   string `json:"policy"`
					Database string `json:"database"`
				}{active, archived, a.Store().Capacity(), cfg.PersistPolicy, cfg.DatabasePath}

				if c.asJSON {
					return printJSON(cmd.OutOrStdout(), status)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Active:   %d/%d\n", status.Active, status.Capacity)
				fmt.Fprintf(out, "Archived: %d\n", status.Archived)
				fmt.Fprintf(out, "Policy:   %s\n", status.Policy)
				fmt.Fprintf(out, "Database: %s\n", status.Database)
				return nil
			})
		},
	}
}

func (c *cli) listCommand() *cobra.Command {
	var archived bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active photos in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withWallet(cmd, func(_ context.Context, a *app.App) error {
				st := a.Store().State()
				photos := st.Photos
				if archived {
					photos = st.Archived
				}
				if c.asJSON {
					if photos == nil {
						photos = []database.Photo{}
					}
					return printJSON(cmd.OutOrStdout(), photos)
				}
				return printPhotos(cmd.OutOrStdout(), photos)
			})
		},
	}
	cmd.Flags().BoolVarP(&archived, "archived", "a", false, "List archived photos, most recently archived first")
	return cmd
}

func (c *cli) addCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add FILE...",
		Short: "Import image files in the order given",
		Long: `add imports JPEG, PNG and WebP files through the import queue. Files
that are already in the wallet are skipped, as are files that arrive
once the wallet is full. The source files are left in place.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withWallet(cmd, func(ctx context.Context, a *app.App) error {
				results := make([]wallet.AddResult, len(args))
				uploads := make([]wallet.Upload, 0, len(args))
				slots := make([]int, 0, len(args))
				for i, path := range args {
					up, err := inbox.LoadFile(path, a.Config().MaxFileSize, cliSource)
					if err != nil {
						results[i] = wallet.AddResult{Filename: filepath.Base(path), Outcome: wallet.OutcomeFailed, Err: err}
						continue
					}
					uploads = append(uploads, up)
					slots = append(slots, i)
				}
				if len(uploads) > 0 {
					for j, res := range a.Queue().Submit(ctx, uploads...) {
						results[slots[j]] = res
					}
				}
				return reportAdds(cmd.OutOrStdout(), results, c.asJSON)
			})
		},
	}
}

// reportAdds prints one line per file. It fails when any file could not be
// read or imported; duplicates and a full wallet are not failures.
func reportAdds(out io.Writer, results []wallet.AddResult, asJSON bool) error {
	failed := 0
	for _, res := range results {
		if res.Outcome == wallet.OutcomeFailed {
			failed++
		}
	}

	if asJSON {
		type row struct {
			Filename string         `json:"filename"`
			Outcome  wallet.Outcome `json:"outcome"`
			ID       string         `json:"id,omitempty"`
			Error    string         `json:"error,omitempty"`
		}
		rows := make([]row, len(results))
		for i, res := range results {
			rows[i] = row{Filename: res.Filename, Outcome: res.Outcome, Error: res.Error()}
			if res.Photo != nil {
				rows[i].ID = res.Photo.ID
			}
		}
		if err := printJSON(out, rows); err != nil {
			return err
		}
	} else {
		for _, res := range results {
			switch {
			case res.Outcome == wallet.OutcomeAdded && res.Photo != nil:
				fmt.Fprintf(out, "%-9s %s (%s)\n", res.Outcome, res.Filename, res.Photo.ID)
			case res.Err != nil && res.Outcome != wallet.OutcomeCapacity:
				fmt.Fprintf(out, "%-9s %s: %v\n", res.Outcome, res.Filename, res.Err)
			default:
				fmt.Fprintf(out, "%-9s %s\n", res.Outcome, res.Filename)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to import", failed, len(results))
	}
	return nil
}

func (c *cli) archiveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "archive ID...",
		Short: "Move active photos to the archive",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.eachID(cmd, args, "archived", (*wallet.Store).ArchivePhoto)
		},
	}
}

func (c *cli) archiveOldestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "archive-oldest N",
		Short: "Archive the N oldest active photos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return fmt.Errorf("N must be a positive number, got %q", args[0])
			}
			return c.withWallet(cmd, func(ctx context.Context, a *app.App) error {
				ids, err := a.Store().ArchiveOldest(ctx, n)
				if err != nil {
					return err
				}
				if c.asJSON {
					if ids == nil {
						ids = []string{}
					}
					return printJSON(cmd.OutOrStdout(), ids)
				}
				for _, id := range ids {
					fmt.Fprintf(cmd.OutOrStdout(), "archived %s\n", id)
				}
				return nil
			})
		},
	}
}

func (c *cli) restoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restore ID...",
		Short: "Return archived photos to the end of the active list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.eachID(cmd, args, "restored", (*wallet.Store).UnarchivePhoto)
		},
	}
}

func (c *cli) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID...",
		Short: "Permanently delete active photos",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.eachID(cmd, args, "deleted", (*wallet.Store).DeletePhoto)
		},
	}
}

func (c *cli) purgeCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "purge [ID...]",
		Short: "Permanently delete archived photos",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return errors.New("give archived photo ids or --all, not both")
			}
			if !all {
				return c.eachID(cmd, args, "purged", (*wallet.Store).DeleteArchivedPhoto)
			}
			return c.withWallet(cmd, func(ctx context.Context, a *app.App) error {
				for _, p := range a.Store().State().Archived {
					if err := a.Store().DeleteArchivedPhoto(ctx, p.ID); err != nil {
						return fmt.Errorf("purge %s: %w", p.ID, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "purged %s\n", p.ID)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Delete every archived photo")
	return cmd
}

// eachID applies op to every id in turn, stopping at the first failure.
func (c *cli) eachID(cmd *cobra.Command, ids []string, verb string, op func(*wallet.Store, context.Context, string) error) error {
	return c.withWallet(cmd, func(ctx context.Context, a *app.App) error {
		for _, id := range ids {
			if err := op(a.Store(), ctx, id); err != nil {
				return fmt.Errorf("%s: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, id)
		}
		return nil
	})
}

func (c *cli) reorderCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reorder ID...",
		Short: "Set the display order of the active photos",
		Long:  "reorder takes every active photo id exactly once, in the new display order.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withWallet(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Store().ReorderPhotos(ctx, args); err != nil {
					return err
				}
				if c.asJSON {
					return printJSON(cmd.OutOrStdout(), a.Store().State().Photos)
				}
				return printPhotos(cmd.OutOrStdout(), a.Store().State().Photos)
			})
		},
	}
}

func (c *cli) resetCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every photo, cached rendition and setting",
		Long: `reset wipes the wallet's database, caches and settings and recreates an
empty wallet. Without --yes it asks for confirmation, and refuses to run
when stdin is not a terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				if !c.isTerminal() {
					return errors.New("refusing to reset without a terminal; pass --yes to confirm")
				}
				ok, err := confirm(cmd.InOrStdin(), cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				if !ok {
					return errors.New("reset cancelled")
				}
			}

			return c.withWallet(cmd, func(ctx context.Context, a *app.App) error {
				report := a.HardReset(ctx)
				if c.asJSON {
					if err := printJSON(cmd.OutOrStdout(), report); err != nil {
						return err
					}
				} else {
					out := cmd.OutOrStdout()
					fmt.Fprintf(out, "Databases deleted: %s\n", joinOrNone(report.DatabasesDeleted))
					fmt.Fprintf(out, "Caches deleted:    %s\n", joinOrNone(report.CachesDeleted))
					fmt.Fprintf(out, "Settings cleared:  %t\n", report.SettingsCleared)
				}
				if !report.Reloaded {
					return fmt.Errorf("wallet did not reload after reset: %w", report.Err())
				}
				return report.Err()
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// confirm asks the user to type the confirmation word.
func confirm(in io.Reader, prompt io.Writer) (bool, error) {
	fmt.Fprintf(prompt, "This permanently deletes every photo. Type %q to continue: ", confirmWord)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	return strings.TrimSpace(line) == confirmWord, nil
}

func printPhotos(out io.Writer, photos []database.Photo) error {
	if len(photos) == 0 {
		_, err := fmt.Fprintln(out, "No photos.")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tID\tFILENAME\tSIZE\tADDED")
	for _, p := range photos {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			p.Order, p.ID, p.Filename, startup.FormatBytes(p.Size), p.CreatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
