package cmd

import (
	"context"
	"os"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmcleod/walicode/config"
)

const rootName = "walicode"

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	memguard.CatchInterrupt()
	err := newRootCmd().Execute()
	memguard.Purge()
	if err != nil {
		os.Exit(1)
	}
}

// cli carries the flag-bound configuration of one invocation.
type cli struct {
	v        *viper.Viper
	envFiles []string
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}
	rootCmd := &cobra.Command{
		Use:   rootName,
		Short: "WaliCode is a command line client for the WaliCode learning platform",
		Long: `A command line client for the WaliCode learning platform: sign in, browse
courses and read chapters. Settings come from flags, WALICODE_* environment
variables and an optional .env file.`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("api", "", "API base URL (default http://localhost:8888/api)")
	flags.String("store", "", "Local store: bbolt, sqlite, redis, memory or none (default bbolt)")
	flags.String("data-dir", "", "Directory for the local store files (default ~/.walicode)")
	flags.String("redis-addr", "", "Redis address for the redis store")
	flags.String("log-level", "", "Log level: debug, info, warn or error (default warn)")
	flags.Bool("analytics", false, "Log page views and actions")
	flags.StringSliceVar(&c.envFiles, "env-file", nil, "Env files to load (default .env)")
	for key, name := range map[string]string{
		config.KeyAPIBaseURL: "api",
		config.KeyStore:      "store",
		config.KeyDataDir:    "data-dir",
		config.KeyRedisAddr:  "redis-addr",
		config.KeyLogLevel:   "log-level",
		config.KeyAnalytics:  "analytics",
	} {
		// Only flags given on the command line override the environment.
		c.v.BindPFlag(key, flags.Lookup(name))
	}

	rootCmd.AddCommand(
		c.loginCmd(),
		c.registerCmd(),
		c.verifyEmailCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.memberCmd(),
		c.statusCmd(),
		c.tokenCmd(),
		c.coursesCmd(),
		c.settingsCmd(),
		c.historyCmd(),
		mockCmd(),
		versionCmd(),
	)
	return rootCmd
}

// run loads the configuration, builds the app and runs f with it.
func (c *cli) run(f func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(c.v, c.envFiles...)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := newApp(ctx, cmd, cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		a.visit(ctx, cmd)
		return f(ctx, a, args)
	}
}
