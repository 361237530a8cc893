package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/travio/travio-client/internal/config"
	"github.com/travio/travio-client/internal/constants"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Show and change the settings stored in the configuration file",
	}

	cmd.AddCommand(newConfigShowCommand(rt))
	cmd.AddCommand(newConfigSetCommand(rt))
	cmd.AddCommand(newConfigUnsetCommand(rt))

	return cmd
}

func newConfigShowCommand(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := rt.Settings()
			if err != nil {
				return err
			}

			return rt.render(cmd, settings, func(w io.Writer) error {
				rows := make([][2]string, 0, len(config.Keys())+1)
				rows = append(rows, [2]string{"config file", rt.ConfigFile})

				for _, key := range config.Keys() {
					rows = append(rows, [2]string{key, rt.Viper.GetString(key)})
				}

				return propertyTable(w, rows)
			})
		},
	}
}

func newConfigSetCommand(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a configuration value. Keys: " + strings.Join(config.Keys(), ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			if !config.IsKey(key) {
				return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
			}

			previous := rt.Viper.Get(key)
			rt.Viper.Set(key, value)

			_, err := config.Load(rt.Viper)
			if err != nil {
				rt.Viper.Set(key, previous)

				return err
			}

			err = rt.updateFile(key, value)
			if err != nil {
				return err
			}

			success(cmd, "Set %s to %s", key, value)

			return nil
		},
	}
}

func newConfigUnsetCommand(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Remove a configuration value, restoring its default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !config.IsKey(args[0]) {
				return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, args[0])
			}

			err := rt.updateFile(args[0], nil)
			if err != nil {
				return err
			}

			success(cmd, "Unset %s", args[0])

			return nil
		},
	}
}

// updateFile sets (or, with a nil value, removes) a dotted key in the YAML
// config file, keeping every other entry.
func (rt *Runtime) updateFile(key string, value interface{}) error {
	document := map[string]interface{}{}

	// #nosec G304 -- the path comes from --config or the home directory
	data, err := os.ReadFile(rt.ConfigFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if len(data) > 0 {
		err = yaml.Unmarshal(data, &document)
		if err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	setPath(document, strings.Split(key, "."), value)

	data, err = yaml.Marshal(document)
	if err != nil {
		return fmt.Errorf("failed to encode config file: %w", err)
	}

	err = os.MkdirAll(filepath.Dir(rt.ConfigFile), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	err = os.WriteFile(rt.ConfigFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func setPath(document map[string]interface{}, path []string, value interface{}) {
	if len(path) == 1 {
		if value == nil {
			delete(document, path[0])
		} else {
			document[path[0]] = value
		}

		return
	}

	child, ok := document[path[0]].(map[string]interface{})
	if !ok {
		if value == nil {
			return
		}

		child = map[string]interface{}{}
		document[path[0]] = child
	}

	setPath(child, path[1:], value)

	if len(child) == 0 {
		delete(document, path[0])
	}
}
