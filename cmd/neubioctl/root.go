package main

import (
	"github.com/neubio/neubio/internal/config"
	"github.com/neubio/neubio/pkg/logger"
	"github.com/spf13/cobra"
)

// cli carries what the remote commands need, loaded lazily so the offline
// commands work without any configuration.
type cli struct {
	verbosity int
	cfg       *config.Config
}

func (c *cli) config() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

func verbosityLevel(v int) string {
	switch {
	case v >= 2:
		return "debug"
	case v == 1:
		return "info"
	}
	return "warn"
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "neubioctl",
		Short:         "Manage a neubio profile document",
		Long:          `neubioctl hashes admin passwords, prints and migrates profile documents, and pushes or pulls the document to the configured blob backend.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetOutput(cmd.ErrOrStderr())
			logger.Init(verbosityLevel(c.verbosity))
			logger.Debugf("command started: %s", cmd.Name())
		},
	}
	root.PersistentFlags().CountVarP(&c.verbosity, "verbose", "v", "Increase verbosity (-v, -vv)")

	root.AddGroup(
		&cobra.Group{ID: "offline", Title: "Offline Commands:"},
		&cobra.Group{ID: "remote", Title: "Remote Commands:"},
	)
	root.AddCommand(
		newHashCmd(),
		newSeedCmd(),
		newMigrateCmd(),
		newVerifyCmd(c),
		newCreateCmd(c),
		newPushCmd(c),
		newPullCmd(c),
		newHistoryCmd(c),
	)
	return root
}
