package app

import (
	"fmt"
	"os"
	"runtime"

	"github.com/nspcc-dev/evmdeploy/cli/smartcontract"
	"github.com/nspcc-dev/evmdeploy/cli/util"
	"github.com/nspcc-dev/evmdeploy/pkg/config"
	"github.com/urfave/cli"
)

func versionPrinter(c *cli.Context) {
	_, _ = fmt.Fprintf(c.App.Writer, "evmdeploy\nVersion: %s\nGoVersion: %s\n",
		config.Version,
		runtime.Version(),
	)
}

// New creates an evmdeploy instance of [cli.App] with all commands included.
func New() *cli.App {
	cli.VersionPrinter = versionPrinter
	ctl := cli.NewApp()
	ctl.Name = "evmdeploy"
	ctl.Version = config.Version
	ctl.Usage = "Declarative smart contract deployment for EVM networks"
	ctl.ErrWriter = os.Stdout

	ctl.Commands = append(ctl.Commands, smartcontract.NewCommands()...)
	ctl.Commands = append(ctl.Commands, util.NewCommands()...)
	return ctl
}
