// Command ledgerctl inspects and maintains post histories from the shell.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/joho/godotenv"

	"github.com/debemdeboas/archive-ledger/internal/app"
	"github.com/debemdeboas/archive-ledger/internal/config"
	"github.com/debemdeboas/archive-ledger/internal/diff"
	"github.com/debemdeboas/archive-ledger/internal/ledger"
	"github.com/debemdeboas/archive-ledger/internal/logger"
	"github.com/debemdeboas/archive-ledger/internal/repository"
)

type cli struct {
	cfg    *config.Config
	store  repository.Store
	ledger *ledger.Service
	diff   *diff.Engine

	in  io.Reader
	out io.Writer
}

type command struct {
	usage string
	// offline commands run without opening the store.
	offline bool
	run     func(ctx context.Context, c *cli, args []string) error
}

var commands = map[string]command{
	"import":   {usage: "import [-owner id] [-dry-run] DIR", run: runImport},
	"list":     {usage: "list", run: runList},
	"history":  {usage: "history POST", run: runHistory},
	"show":     {usage: "show [-json] POST [VERSION]", run: runShow},
	"compare":  {usage: "compare [-stat] POST FROM TO", run: runCompare},
	"rollback": {usage: "rollback [-author id] POST VERSION", run: runRollback},
	"export":   {usage: "export [POST]", run: runExport},
	"sign":     {usage: "sign [-key privkey.pem] [CHALLENGE]", offline: true, run: runSign},
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: ledgerctl [-config config.yaml] COMMAND [ARGS]")
	fmt.Fprintln(w, "\nVersions are referenced by number, id or \"current\". Posts by slug or id.")
	fmt.Fprintln(w, "\nCommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration")
	flag.Usage = func() { usage(os.Stderr) }
	flag.Parse()

	godotenv.Load()

	if err := execute(context.Background(), *configPath, flag.Args(), os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

var errUsage = errors.New("invalid arguments")

func execute(ctx context.Context, configPath string, args []string, in io.Reader, out io.Writer) error {
	if len(args) == 0 {
		usage(out)
		return errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		usage(out)
		return fmt.Errorf("unknown command %q", args[0])
	}

	c := &cli{in: in, out: out}
	if !cmd.offline {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		app.SetLoggers(logger.New(cfg.Logging.Level))

		store, err := app.OpenStore(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		defer store.Close()

		c.cfg = cfg
		c.store = store
		c.ledger = ledger.New(store)
		c.diff = diff.NewEngine(c.ledger)
	}

	err := cmd.run(ctx, c, args[1:])
	if errors.Is(err, errUsage) {
		fmt.Fprintln(out, "Usage: ledgerctl "+cmd.usage)
	}
	return err
}
