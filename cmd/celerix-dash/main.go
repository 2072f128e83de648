package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-dash/internal/activity"
	"github.com/celerix-dev/celerix-dash/internal/auth"
	"github.com/celerix-dev/celerix-dash/internal/config"
	"github.com/celerix-dev/celerix-dash/internal/engine"
	"github.com/celerix-dev/celerix-dash/internal/logging"
	"github.com/celerix-dev/celerix-dash/internal/view"
)

var errUsage = errors.New("usage")

func main() {
	err := run(context.Background(), os.Args[1:], os.Stdout, nil)
	switch {
	case errors.Is(err, errUsage):
		printUsage(os.Stderr)
		os.Exit(2)
	case err != nil:
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// cli holds what every command needs: the configured backend and output.
type cli struct {
	cfg     config.Config
	backend engine.Backend
	log     *zap.Logger
	out     io.Writer

	page       int
	toDriver   string
	toDir      string
	toSQLite   string
	toRedis    string
	toPassword string
}

func run(ctx context.Context, args []string, out io.Writer, lookup config.LookupFunc) (err error) {
	c := &cli{out: out}

	fs := pflag.NewFlagSet("celerix-dash", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	flags := config.NewFlags(fs)
	fs.IntVar(&c.page, "page", 1, "page of the activity log to print")
	fs.StringVar(&c.toDriver, "to-driver", "", "migrate: destination storage driver")
	fs.StringVar(&c.toDir, "to-dir", "", "migrate: destination data directory")
	fs.StringVar(&c.toSQLite, "to-sqlite-path", "", "migrate: destination sqlite file")
	fs.StringVar(&c.toRedis, "to-redis-addr", "", "migrate: destination redis address")
	fs.StringVar(&c.toPassword, "to-passphrase", "", "migrate: seal the destination with this passphrase")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() < 1 {
		return errUsage
	}

	c.cfg, err = flags.Load(lookup)
	if err != nil {
		return err
	}
	// Commands print results on stdout; keep the logger quiet unless asked.
	if !fs.Changed("log-level") {
		c.cfg.Log.Level = "warn"
	}
	c.log, err = logging.New(c.cfg.Log)
	if err != nil {
		return err
	}
	defer c.log.Sync()

	command := strings.ToUpper(fs.Arg(0))
	rest := fs.Args()[1:]

	c.backend, err = engine.Open(ctx, c.cfg.Storage, c.log.Named("storage"))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, c.backend.Close())
	}()

	switch command {
	case "SESSION":
		return c.session(ctx)
	case "LOGOUT":
		return c.logout(ctx)
	case "LOGS":
		return c.logs(ctx)
	case "STATS":
		return c.stats(ctx)
	case "CLEAR-LOGS":
		return c.clearLogs(ctx)
	case "RECORDS":
		return c.records(ctx)
	case "DUMP":
		if len(rest) < 1 {
			return fmt.Errorf("%w: dump <record>", errUsage)
		}
		return c.dump(ctx, rest[0])
	case "MIGRATE":
		return c.migrate(ctx)
	default:
		return fmt.Errorf("%w: unknown command %s", errUsage, command)
	}
}

func (c *cli) session(ctx context.Context) error {
	store, err := auth.NewStore(ctx, c.backend, c.log)
	if err != nil {
		return err
	}
	return c.printJSON(store.Session())
}

func (c *cli) logout(ctx context.Context) error {
	store, err := auth.NewStore(ctx, c.backend, c.log)
	if err != nil {
		return err
	}
	if err := store.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "OK")
	return nil
}

func (c *cli) logs(ctx context.Context) error {
	store, err := activity.NewStore(ctx, c.backend, c.log)
	if err != nil {
		return err
	}
	entries, p := view.PageOf(store.Entries(), c.cfg.UI.LogPageSize, c.page)
	for _, e := range entries {
		fmt.Fprintf(c.out, "%s  %-18s %-10s %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Action, e.Page, e.Details)
	}
	fmt.Fprintf(c.out, "page %d/%d, %d entries\n", p.Number, p.Pages, p.Total)
	return nil
}

func (c *cli) stats(ctx context.Context) error {
	store, err := activity.NewStore(ctx, c.backend, c.log)
	if err != nil {
		return err
	}
	return c.printJSON(store.Stats())
}

func (c *cli) clearLogs(ctx context.Context) error {
	store, err := activity.NewStore(ctx, c.backend, c.log)
	if err != nil {
		return err
	}
	if err := store.ClearAll(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "OK")
	return nil
}

func (c *cli) records(ctx context.Context) error {
	names, err := c.backend.List(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(c.out, name)
	}
	return nil
}

func (c *cli) dump(ctx context.Context, name string) error {
	payload, ok, err := c.backend.Load(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", engine.ErrRecordNotFound, name)
	}
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return fmt.Errorf("decode record %s: %w", name, err)
	}
	return c.printJSON(v)
}

func (c *cli) migrate(ctx context.Context) (err error) {
	if c.toDriver == "" {
		return fmt.Errorf("%w: migrate needs --to-driver", errUsage)
	}

	dstCfg := engine.Config{
		Driver:     c.toDriver,
		Dir:        c.toDir,
		SQLitePath: c.toSQLite,
		Redis:      c.cfg.Storage.Redis,
		Passphrase: c.toPassword,
	}
	if dstCfg.Dir == "" {
		dstCfg.Dir = c.cfg.Storage.Dir
	}
	if c.toRedis != "" {
		dstCfg.Redis.Addr = c.toRedis
	}
	if dstCfg == c.cfg.Storage {
		return errors.New("source and destination storage are the same")
	}

	dst, err := engine.Open(ctx, dstCfg, c.log.Named("destination"))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dst.Close())
	}()

	copied, err := engine.Migrate(ctx, c.backend, dst)
	for _, name := range copied {
		fmt.Fprintln(c.out, "copied", name)
	}
	return err
}

func (c *cli) printJSON(v any) error {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, string(bytes))
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "celerix-dash - offline access to the dashboard's stored state")
	fmt.Fprintln(w, "\nUsage:")
	fmt.Fprintln(w, "  celerix-dash session")
	fmt.Fprintln(w, "  celerix-dash logout")
	fmt.Fprintln(w, "  celerix-dash logs [--page N]")
	fmt.Fprintln(w, "  celerix-dash stats")
	fmt.Fprintln(w, "  celerix-dash clear-logs")
	fmt.Fprintln(w, "  celerix-dash records")
	fmt.Fprintln(w, "  celerix-dash dump <record>")
	fmt.Fprintln(w, "  celerix-dash migrate --to-driver <driver> [--to-dir DIR] [--to-sqlite-path FILE] [--to-redis-addr ADDR] [--to-passphrase PW]")
	fmt.Fprintln(w, "\nStorage is selected like for celerix-dashd: --config, --storage-driver, --data-dir,")
	fmt.Fprintln(w, "--sqlite-path, --redis-addr or the matching "+config.EnvPrefix+"* environment variables.")
	fmt.Fprintln(w, "Do not run state-changing commands while celerix-dashd uses the same storage.")
}
