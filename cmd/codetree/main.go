// CodeTree: hierarchy, status and definition engine for clinical codelists
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/nainya/codetree/internal/config"
	"github.com/nainya/codetree/internal/logger"
)

// rootOptions are the flags shared by every subcommand
type rootOptions struct {
	configPath string
	envFile    string
	fixture    string
	logLevel   string
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath, o.envFile, config.WithFixture(o.fixture))
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	return cfg, nil
}

// newLogger also installs the logger as zerolog's global one
func (o *rootOptions) newLogger(cfg *config.Config) *logger.Logger {
	logger.InitGlobalLogger(logger.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	})
	return logger.GetGlobalLogger()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "codetree",
		Short: "Hierarchy, status and definition engine for clinical codelists",
		Long: `codetree builds is-a hierarchies for clinical codes, resolves
include/exclude statuses across them and compresses code sets into
definitions. Run "codetree serve" for the gRPC service.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to a .env file")
	root.PersistentFlags().StringVar(&opts.fixture, "fixture", "", "YAML fixture to use as an in-memory coding system")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level")

	root.AddCommand(
		newServeCmd(opts),
		newTermsCmd(opts),
		newImportCmd(opts),
		newTreeCmd(opts),
		newSearchCmd(opts),
		newDefineCmd(opts),
		newExpandCmd(opts),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
