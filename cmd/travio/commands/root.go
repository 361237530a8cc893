package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/travio/travio-client/internal/config"
)

// EnvPrefix prefixes the environment variables that override settings.
const EnvPrefix = "TRAVIO"

// NewRootCommand creates the travio command tree.
func NewRootCommand(version, commit, date string) *cobra.Command {
	rt := NewRuntime(viper.New(), "")

	var configFile string

	root := &cobra.Command{
		Use:   "travio",
		Short: "Travio gateway CLI",
		Long: `A command-line client for the Travio booking gateway.

It keeps your session between invocations, refreshing expired credentials
transparently, and lets you browse the stations catalog.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.initConfig(configFile)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "config file (default is $HOME/.travio/config.yml)")
	flags.StringP("api", "a", "", "gateway URL")
	flags.StringP("output", "o", "table", "output format (table, json, yaml)")
	flags.BoolP("verbose", "v", false, "verbose output")
	flags.Bool("no-color", false, "disable colored output")

	_ = rt.Viper.BindPFlag(config.KeyAPI, flags.Lookup("api"))
	_ = rt.Viper.BindPFlag(config.KeyOutput, flags.Lookup("output"))
	_ = rt.Viper.BindPFlag(config.KeyVerbose, flags.Lookup("verbose"))
	_ = rt.Viper.BindPFlag(config.KeyNoColor, flags.Lookup("no-color"))

	root.AddCommand(NewVersionCommand(rt, version, commit, date))
	root.AddCommand(NewLoginCommand(rt))
	root.AddCommand(NewLogoutCommand(rt))
	root.AddCommand(NewWhoamiCommand(rt))
	root.AddCommand(NewSessionsCommand(rt))
	root.AddCommand(NewRegisterCommand(rt))
	root.AddCommand(NewOrgCommand(rt))
	root.AddCommand(NewStationsCommand(rt))
	root.AddCommand(NewConfigCommand(rt))

	return root
}

// initConfig resolves the config file and reads it together with the
// TRAVIO_* environment. Data files live next to the config file.
func (rt *Runtime) initConfig(configFile string) error {
	if configFile == "" {
		dir, err := config.DefaultDir()
		if err != nil {
			return err
		}

		configFile = filepath.Join(dir, "config.yml")
	}

	rt.ConfigFile = configFile
	config.SetDefaults(rt.Viper, filepath.Dir(configFile))

	rt.Viper.SetConfigFile(configFile)
	rt.Viper.SetConfigType("yml")
	rt.Viper.SetEnvPrefix(EnvPrefix)
	rt.Viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	rt.Viper.AutomaticEnv()

	err := rt.Viper.ReadInConfig()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if rt.Viper.GetBool(config.KeyNoColor) {
		color.NoColor = true
	}

	if rt.Viper.GetBool(config.KeyVerbose) && err == nil {
		_, _ = fmt.Fprintln(os.Stderr, "Using config file:", configFile)
	}

	return nil
}
