package util

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/nspcc-dev/evmdeploy/pkg/caliper"
	"github.com/urfave/cli"
)

// NewCommands returns util commands for evmdeploy CLI.
func NewCommands() []cli.Command {
	return []cli.Command{
		{
			Name:  "util",
			Usage: "Various helper commands",
			Subcommands: []cli.Command{
				{
					Name:      "caliper-nodes",
					Usage:     "Set the number of monitored Besu nodes in Caliper benchmark config",
					UsageText: "caliper-nodes <file.yaml> <num_nodes>",
					Description: `Rewrites every "containers" list of /node-besuN entries in the given
   Caliper benchmark configuration to /node-besu1 ... /node-besu<num_nodes>.
   Files without such lists are left intact.
`,
					Action: caliperNodes,
				},
			},
		},
	}
}

func caliperNodes(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return cli.NewExitError(errors.New("usage: caliper-nodes <file.yaml> <num_nodes>"), 1)
	}
	file := ctx.Args().Get(0)
	nodes, err := strconv.Atoi(ctx.Args().Get(1))
	if err != nil {
		return cli.NewExitError(fmt.Errorf("invalid number of nodes: %w", err), 1)
	}
	n, err := caliper.UpdateFile(file, nodes)
	if err != nil {
		return cli.NewExitError(fmt.Errorf("failed to update %s: %w", file, err), 1)
	}
	fmt.Fprintf(ctx.App.Writer, "Updated %s for %d nodes (%d lists changed)\n", file, nodes, n)
	return nil
}
