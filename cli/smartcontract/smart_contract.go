package smartcontract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"sort"
	"text/tabwriter"

	"github.com/nspcc-dev/evmdeploy/cli/options"
	"github.com/nspcc-dev/evmdeploy/pkg/artifact"
	"github.com/nspcc-dev/evmdeploy/pkg/chain"
	"github.com/nspcc-dev/evmdeploy/pkg/config"
	"github.com/nspcc-dev/evmdeploy/pkg/deployer"
	"github.com/nspcc-dev/evmdeploy/pkg/ledger"
	"github.com/nspcc-dev/evmdeploy/pkg/metrics"
	"github.com/nspcc-dev/evmdeploy/pkg/module"
	"github.com/nspcc-dev/evmdeploy/pkg/storage"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

var errNoModule = errors.New("no module id given, use 'deploy <moduleId>'")

// NewCommands returns deployment related commands.
func NewCommands() []cli.Command {
	return []cli.Command{
		{
			Name:      "deploy",
			Usage:     "Deploy a module to a network",
			UsageText: "deploy <moduleId> -n <network> [-c <config>] [--debug] [--password-env <VAR>] [--metrics-file <file>]",
			Description: `Runs the deployment module against the network. Contracts are created
   from compiled artifacts, their addresses are recorded in the ledger, so the
   next run of the same module on the same network reuses them instead of
   deploying again. Module outputs are printed as "<name>: <address>" lines.
`,
			Action: deploy,
			Flags: []cli.Flag{
				options.Network,
				options.ConfigFile,
				options.Debug,
				options.PasswordEnv,
				options.MetricsFile,
			},
		},
		{
			Name:      "status",
			Usage:     "Show contracts deployed to a network",
			UsageText: "status -n <network> [-c <config>]",
			Action:    status,
			Flags: []cli.Flag{
				options.Network,
				options.ConfigFile,
				options.Debug,
			},
		},
		{
			Name:      "modules",
			Usage:     "List available deployment modules",
			UsageText: "modules [-c <config>]",
			Action:    listModules,
			Flags:     []cli.Flag{options.ConfigFile},
		},
		{
			Name:      "networks",
			Usage:     "List configured networks",
			UsageText: "networks [-c <config>]",
			Action:    listNetworks,
			Flags:     []cli.Flag{options.ConfigFile},
		},
	}
}

func openLedger(cfg config.Config) (*ledger.Ledger, error) {
	s, err := storage.NewStore(cfg.Ledger)
	if err != nil {
		return nil, fmt.Errorf("can't open ledger: %w", err)
	}
	return ledger.New(s), nil
}

func deploy(ctx *cli.Context) error {
	if len(ctx.Args()) != 1 {
		return cli.NewExitError(errNoModule, 1)
	}
	id := ctx.Args().First()

	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	log, _, err := options.HandleLoggingParams(ctx.Bool("debug"), cfg)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer func() { _ = log.Sync() }()

	profile, nets, err := options.GetNetworkProfile(ctx, cfg)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if slices.Contains(nets.LiteralKeys(), profile.Name) {
		log.Warn("private key is stored in the configuration file, use environment variables or keystore outside of local development",
			zap.String("network", profile.Name))
	}
	mods, err := options.GetModules(cfg)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if _, err := mods.Get(id); err != nil {
		return cli.NewExitError(err, 1)
	}
	arts, err := artifact.NewStore(cfg.Artifacts, cfg.CompilerVersion, artifact.DefaultCacheSize)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	m := metrics.New()
	m.SetVersion(config.Version)
	if path := ctx.String("metrics-file"); path != "" {
		defer func() {
			if err := m.WriteTextfile(path); err != nil {
				log.Error("failed to write metrics", zap.String("file", path), zap.Error(err))
			}
		}()
	}

	gctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	client, err := chain.Dial(gctx, profile, options.GetPasswordFunc(ctx), log)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer client.Close()

	l, err := openLedger(cfg)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer func() {
		if err := l.Close(); err != nil {
			log.Error("failed to close ledger", zap.Error(err))
		}
	}()

	d := deployer.New(deployer.Options{
		Network:   profile.Name,
		Modules:   mods,
		Artifacts: arts,
		Ledger:    l,
		Submitter: client,
		Metrics:   m,
		Logger:    log,
	})
	outs, err := d.Deploy(gctx, id)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	printOutputs(ctx.App.Writer, outs)
	return nil
}

func printOutputs(w io.Writer, outs module.Outputs) {
	names := make([]string, 0, len(outs))
	for name := range outs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s: %s\n", name, outs[name].Address().Hex())
	}
}

func status(ctx *cli.Context) error {
	if err := cmdargs(ctx); err != nil {
		return err
	}
	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	profile, _, err := options.GetNetworkProfile(ctx, cfg)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	l, err := openLedger(cfg)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer l.Close()

	rs, err := l.List(profile.Name)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if len(rs) == 0 {
		fmt.Fprintf(ctx.App.Writer, "No contracts deployed to %s\n", profile.Name)
		return nil
	}
	tw := tabwriter.NewWriter(ctx.App.Writer, 0, 4, 4, '\t', 0)
	_, _ = fmt.Fprintln(tw, "MODULE\tFUTURE\tADDRESS\tBLOCK\tDEPLOYED")
	for _, r := range rs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", r.Module, r.Future, r.Address.Hex(),
			r.BlockNumber, r.DeployedAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	_ = tw.Flush()
	return nil
}

func listModules(ctx *cli.Context) error {
	if err := cmdargs(ctx); err != nil {
		return err
	}
	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	mods, err := options.GetModules(cfg)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	tw := tabwriter.NewWriter(ctx.App.Writer, 0, 4, 4, '\t', 0)
	for _, id := range mods.IDs() {
		d, _ := mods.Get(id)
		if decl, ok := d.(*module.Declarative); ok {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", id, decl.Contract(), decl.Output())
		} else {
			_, _ = fmt.Fprintln(tw, id)
		}
	}
	_ = tw.Flush()
	return nil
}

func listNetworks(ctx *cli.Context) error {
	if err := cmdargs(ctx); err != nil {
		return err
	}
	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	reg, err := cfg.Registry()
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	tw := tabwriter.NewWriter(ctx.App.Writer, 0, 4, 4, '\t', 0)
	for _, name := range reg.Names() {
		p, _ := reg.Resolve(name)
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\n", name, p.URL, p.ChainID)
	}
	_ = tw.Flush()
	return nil
}

func cmdargs(ctx *cli.Context) error {
	if ctx.NArg() != 0 {
		return cli.NewExitError(fmt.Errorf("unexpected arguments: %s", ctx.Args()), 1)
	}
	return nil
}
