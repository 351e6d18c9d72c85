// Package cli provides the command-line interface for nightscout-fpu.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/mrcode/nightscout-fpu/internal/app"
	"github.com/mrcode/nightscout-fpu/internal/models"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// state is shared by all commands of one invocation
type state struct {
	configPath string
	envFile    string
	verbose    bool

	settings *models.Settings
	logger   *slog.Logger
	app      *app.App
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	st := &state{}
	return newRootCmd(st)
}

func newRootCmd(st *state) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nightscout-fpu",
		Short: "Log meals and schedule fat/protein carb equivalents.",
		Long: `nightscout-fpu logs carbohydrates and converts fat and protein into ` +
			`a schedule of small carb equivalents for a closed-loop dosing system. ` +
			`Records are kept in a local SQLite database or uploaded to Nightscout.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return st.init(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&st.configPath, "config", "", "settings file (default is settings.json in the user config dir)")
	flags.StringVar(&st.envFile, "env-file", ".env", "optional env file with overrides")
	flags.BoolVarP(&st.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		newAddCmd(st),
		newPlanCmd(st),
		newListCmd(st),
		newDeleteGroupCmd(st),
		newPresetCmd(st),
		newChartCmd(st),
		newServeCmd(st),
		newConfigCmd(st),
	)

	return rootCmd
}

// Execute runs the command line and exits. Registered exit hooks close the
// database on every path out.
func Execute() {
	st := &state{}
	atexit.Register(st.close)

	if err := newRootCmd(st).Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

func (st *state) init(cmd *cobra.Command) error {
	st.logger = newLogger(cmd.ErrOrStderr(), st.verbose)
	slog.SetDefault(st.logger)

	if st.envFile != "" {
		if err := godotenv.Load(st.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", st.envFile, err)
		}
	}

	if st.configPath == "" {
		path, err := models.GetConfigPath()
		if err != nil {
			return fmt.Errorf("locating settings: %w", err)
		}
		st.configPath = path
	}

	st.settings = models.DefaultSettings()
	if err := st.settings.LoadFrom(st.configPath); err != nil {
		return fmt.Errorf("loading settings from %s: %w", st.configPath, err)
	}
	st.settings.ApplyEnv()

	st.logger.Debug("settings loaded", "path", st.configPath, "backend", st.settings.Backend)
	return nil
}

// openApp builds the application on first use
func (st *state) openApp() (*app.App, error) {
	if st.app != nil {
		return st.app, nil
	}

	a, err := app.New(st.settings, st.logger)
	if err != nil {
		return nil, err
	}
	st.app = a
	return a, nil
}

func (st *state) close() {
	if st.app == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := st.app.Shutdown(ctx); err != nil {
		st.logger.Warn("shutting down", "error", err)
	}
	st.app = nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
		w = colorable.NewColorable(f)
	}

	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    noColor,
	}))
}
