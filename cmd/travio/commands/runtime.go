package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/travio/travio-client/internal/config"
	"github.com/travio/travio-client/internal/constants"
	"github.com/travio/travio-client/pkg/travio"
	"github.com/travio/travio-client/pkg/travioclient"
)

// Runtime carries the state shared by every command.
type Runtime struct {
	Viper *viper.Viper
	// ConfigFile is where `config set` writes.
	ConfigFile string

	lines *bufio.Reader
}

// NewRuntime creates a runtime over v.
func NewRuntime(v *viper.Viper, configFile string) *Runtime {
	return &Runtime{Viper: v, ConfigFile: configFile}
}

// Settings decodes the current configuration.
func (rt *Runtime) Settings() (*config.Settings, error) {
	return config.Load(rt.Viper)
}

// Logger returns a text logger on stderr. --verbose enables debug output.
func (rt *Runtime) Logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if rt.Viper.GetBool(config.KeyVerbose) {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// OpenApp builds the application root from the configuration. The caller
// must Close it.
func (rt *Runtime) OpenApp(ctx context.Context, cmd *cobra.Command) (*travioclient.App, error) {
	settings, err := rt.Settings()
	if err != nil {
		return nil, err
	}

	clientConfig, err := settings.ClientConfig(travio.NewSlogLogger(rt.Logger(cmd)))
	if err != nil {
		return nil, err
	}

	app, err := travioclient.New(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize client: %w", err)
	}

	return app, nil
}

// withApp opens the application, runs fn and closes it again.
func (rt *Runtime) withApp(cmd *cobra.Command, fn func(ctx context.Context, app *travioclient.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := rt.OpenApp(ctx, cmd)
	if err != nil {
		return err
	}

	defer func() {
		closeErr := app.Close()
		if closeErr != nil {
			rt.Logger(cmd).Warn("closing client", "error", closeErr)
		}
	}()

	return fn(ctx, app)
}

// render writes data as JSON or YAML, or calls table for the table format.
func (rt *Runtime) render(cmd *cobra.Command, data interface{}, table func(w io.Writer) error) error {
	w := cmd.OutOrStdout()

	switch rt.Viper.GetString(config.KeyOutput) {
	case constants.FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		err := encoder.Encode(data)
		if err != nil {
			return fmt.Errorf("encoding data to JSON: %w", err)
		}

		return nil
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)

		err := encoder.Encode(data)
		if err != nil {
			return fmt.Errorf("encoding data to YAML: %w", err)
		}

		return encoder.Close()
	default:
		return table(w)
	}
}

// propertyTable renders two-column Property/Value rows.
func propertyTable(w io.Writer, rows [][2]string) error {
	table := tablewriter.NewWriter(w)
	table.Header("Property", "Value")

	for _, row := range rows {
		value := row[1]
		if value == "" {
			value = constants.NotAvailable
		}

		_ = table.Append(row[0], value)
	}

	return table.Render()
}

func success(cmd *cobra.Command, format string, args ...interface{}) {
	_, _ = color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), format+"\n", args...)
}

func notice(cmd *cobra.Command, format string, args ...interface{}) {
	_, _ = color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), format+"\n", args...)
}

// prompt asks for a line of input. Secrets are read without echo when the
// input is a terminal.
func (rt *Runtime) prompt(cmd *cobra.Command, label string, secret bool) (string, error) {
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s: ", label)

	in := cmd.InOrStdin()

	if file, ok := in.(*os.File); ok && secret && term.IsTerminal(int(file.Fd())) {
		value, err := term.ReadPassword(int(file.Fd()))
		_, _ = fmt.Fprintln(cmd.ErrOrStderr())

		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
		}

		return string(value), nil
	}

	if rt.lines == nil {
		rt.lines = bufio.NewReader(in)
	}

	line, err := rt.lines.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}
