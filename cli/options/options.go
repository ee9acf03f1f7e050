/*
Package options contains a set of common CLI options and helper functions to use them.
*/
package options

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nspcc-dev/evmdeploy/cli/input"
	"github.com/nspcc-dev/evmdeploy/pkg/chain"
	"github.com/nspcc-dev/evmdeploy/pkg/config"
	"github.com/nspcc-dev/evmdeploy/pkg/module"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NetworkFlag is a long flag name for the target network.
const NetworkFlag = "network"

// Network is a flag for choosing the configured network to operate on.
var Network = cli.StringFlag{
	Name:  NetworkFlag + ", n",
	Usage: "name of the network from the configuration file",
}

// ConfigFile is a flag for commands that use configuration file.
var ConfigFile = cli.StringFlag{
	Name:  "config-file, c",
	Value: config.DefaultConfigFile,
	Usage: "path to the configuration file",
}

// Debug is a flag for commands that allow debug logging.
var Debug = cli.BoolFlag{
	Name:  "debug, d",
	Usage: "enable debug logging (LOTS of output, overrides configuration)",
}

// PasswordEnv is a flag naming the environment variable that contains
// keystore password.
var PasswordEnv = cli.StringFlag{
	Name:  "password-env",
	Usage: "environment variable with keystore password (interactive prompt is used if not set)",
}

// MetricsFile is a flag for deployment metrics output file.
var MetricsFile = cli.StringFlag{
	Name:  "metrics-file",
	Usage: "write deployment metrics in Prometheus text format to the given file",
}

var errNoNetwork = errors.New("no network specified, use option '--" + NetworkFlag + "' or '-n'")

// GetConfigFromContext loads configuration file given in the context.
func GetConfigFromContext(ctx *cli.Context) (config.Config, error) {
	configFile := ctx.String("config-file")
	if configFile == "" {
		configFile = config.DefaultConfigFile
	}
	return config.LoadFile(configFile)
}

// GetNetworkProfile resolves the network given with --network flag.
func GetNetworkProfile(ctx *cli.Context, cfg config.Config) (config.NetworkProfile, *config.Registry, error) {
	name := ctx.String(NetworkFlag)
	if name == "" {
		return config.NetworkProfile{}, nil, errNoNetwork
	}
	reg, err := cfg.Registry()
	if err != nil {
		return config.NetworkProfile{}, nil, err
	}
	p, err := reg.Resolve(name)
	if err != nil {
		return config.NetworkProfile{}, nil, err
	}
	return p, reg, nil
}

// GetModules returns built-in modules along with the ones defined in
// configuration.
func GetModules(cfg config.Config) (*module.Registry, error) {
	reg, err := module.NewRegistry(module.Builtin()...)
	if err != nil {
		return nil, err
	}
	for _, m := range cfg.Modules {
		d, err := module.FromConfig(m)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(d); err != nil {
			return nil, fmt.Errorf("%w: %v", config.ErrConfiguration, err)
		}
	}
	return reg, nil
}

// GetPasswordFunc returns keystore password source: environment variable
// given with --password-env or interactive prompt.
func GetPasswordFunc(ctx *cli.Context) chain.PasswordFunc {
	if env := ctx.String("password-env"); env != "" {
		return func(string) (string, error) {
			pass, ok := os.LookupEnv(env)
			if !ok {
				return "", fmt.Errorf("environment variable %s is not set", env)
			}
			return pass, nil
		}
	}
	return func(path string) (string, error) {
		return input.ReadPassword(input.PasswordPrompt(path))
	}
}

// HandleLoggingParams reads logging parameters.
// If a user selected debug level -- function enables it.
// If logPath is configured -- function creates a dir and a file for logging.
func HandleLoggingParams(debug bool, cfg config.Config) (*zap.Logger, *zap.AtomicLevel, error) {
	var (
		level = zapcore.InfoLevel
		err   error
	)
	if len(cfg.LogLevel) > 0 {
		level, err = zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("log setting: %w", err)
		}
	}
	if debug {
		level = zapcore.DebugLevel
	}

	cc := zap.NewProductionConfig()
	cc.DisableCaller = true
	cc.DisableStacktrace = true
	cc.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cc.Encoding = "console"
	cc.Level = zap.NewAtomicLevelAt(level)
	cc.Sampling = nil
	// Command output goes to stdout.
	cc.OutputPaths = []string{"stderr"}

	if logPath := cfg.LogPath; logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("could not create dir for logger: %w", err)
		}
		cc.OutputPaths = []string{logPath}
	}

	log, err := cc.Build()
	return log, &cc.Level, err
}
