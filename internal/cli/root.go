package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/calldesk/calldesk-cli/internal/api"
	"github.com/calldesk/calldesk-cli/internal/calls"
	"github.com/calldesk/calldesk-cli/internal/configstore"
	"github.com/calldesk/calldesk-cli/internal/format"
	"github.com/calldesk/calldesk-cli/internal/logging"
	"github.com/calldesk/calldesk-cli/internal/mock"
	"github.com/calldesk/calldesk-cli/internal/tui"
)

type App struct {
	ConfigPath  string
	APIURL      string
	Token       string
	PrettyJSON  bool
	Format      string
	Mock        bool
	MockLatency time.Duration
	MockSeed    int
	PageLimit   int
	DebounceMS  int
	LogLevel    string
	LogOutput   string
	LogFormat   string
	Query       string

	cfg      configstore.Store
	log      *zap.Logger
	provider calls.Provider
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "calldesk",
		Short:        "Browse and drive calls from the terminal",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.log != nil {
				_ = app.log.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if len(args) == 0 {
				return runTUI(cmd.Context(), app)
			}
			return cmd.Help()
		},
	}

	defaultPath, _ := configstore.DefaultPath()
	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", envOr("CALLDESK_CONFIG", defaultPath), "Path to config YAML")
	cmd.PersistentFlags().StringVar(&app.APIURL, "api", envOr("CALLDESK_API_URL", ""), "API base URL")
	cmd.PersistentFlags().StringVar(&app.Token, "token", envOr("CALLDESK_TOKEN", ""), "API token (or set CALLDESK_TOKEN)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("CALLDESK_FORMAT", format.JSON), "Output format (json|yaml)")
	cmd.PersistentFlags().BoolVar(&app.Mock, "mock", envOr("CALLDESK_MOCK", "") == "1", "Use an in-process mock backend")
	cmd.PersistentFlags().DurationVar(&app.MockLatency, "mock-latency", 0, "Artificial latency for the in-process mock backend")
	cmd.PersistentFlags().IntVar(&app.MockSeed, "mock-seed", 60, "Number of calls seeded into the in-process mock backend")
	cmd.PersistentFlags().IntVar(&app.PageLimit, "limit", envInt("CALLDESK_PAGE_LIMIT", 0), "Default page size")
	cmd.PersistentFlags().IntVar(&app.DebounceMS, "debounce-ms", envInt("CALLDESK_DEBOUNCE_MS", 0), "Date filter debounce in milliseconds")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr("CALLDESK_LOG_LEVEL", ""), "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&app.LogOutput, "log-output", envOr("CALLDESK_LOG_OUTPUT", ""), "Log output (stderr|stdout|off|<file>)")
	cmd.PersistentFlags().StringVar(&app.LogFormat, "log-format", envOr("CALLDESK_LOG_FORMAT", ""), "Log encoding (json|console)")
	cmd.Flags().StringVar(&app.Query, "query", "", "Initial list query, e.g. \"page=2&from=2024-06-01\"")

	cmd.AddCommand(newCallsCmd(app))
	cmd.AddCommand(newMockCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newVersionCmd(app))

	return cmd
}

// load resolves settings: flags and env already sit in App, the config file
// fills whatever is still empty, then defaults.
func (app *App) load(cmd *cobra.Command) error {
	st := &configstore.Store{}
	if strings.TrimSpace(app.ConfigPath) != "" {
		loaded, err := configstore.LoadOrDefault(app.ConfigPath)
		if err != nil {
			return fmt.Errorf("load config %s: %w", app.ConfigPath, err)
		}
		st = loaded
	}
	cfg := *st
	if app.APIURL != "" {
		cfg.APIURL = strings.TrimSpace(app.APIURL)
	}
	if app.Token != "" {
		cfg.Token = strings.TrimSpace(app.Token)
	}
	if app.PageLimit > 0 {
		cfg.PageLimit = app.PageLimit
	}
	if app.DebounceMS > 0 {
		cfg.DebounceMS = app.DebounceMS
	}
	if app.LogLevel != "" {
		cfg.Log.Level = strings.ToLower(strings.TrimSpace(app.LogLevel))
	}
	if app.LogOutput != "" {
		cfg.Log.Output = strings.TrimSpace(app.LogOutput)
	}
	if app.LogFormat != "" {
		cfg.Log.Format = strings.ToLower(strings.TrimSpace(app.LogFormat))
	}
	if err := validLogFormat(cfg.Log.Format); err != nil {
		return err
	}

	interactive := cmd.Root() == cmd
	if cfg.Log.Level == "" && !interactive {
		// Keep stderr quiet around machine-readable output.
		cfg.Log.Level = "warn"
	}
	if cfg.Log.Output == "" && interactive {
		// The terminal belongs to the UI.
		cfg.Log.Output = logging.DefaultFile()
	}
	app.cfg = cfg.WithDefaults()

	log, err := logging.New(logging.Config{
		Level:      app.cfg.Log.Level,
		Output:     app.cfg.Log.Output,
		Format:     app.cfg.Log.Format,
		MaxSizeMB:  app.cfg.Log.MaxSizeMB,
		MaxBackups: app.cfg.Log.MaxBackups,
		MaxAgeDays: app.cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return err
	}
	app.log = log
	return nil
}

func (app *App) logger() *zap.Logger {
	if app.log == nil {
		return zap.NewNop()
	}
	return app.log
}

// Provider returns the calls backend for this invocation. The mock backend
// lives for the whole process so a start followed by a finish sees one state.
func (app *App) Provider() calls.Provider {
	if app.provider != nil {
		return app.provider
	}
	if app.Mock {
		store := mock.New(mock.WithLatency(app.MockLatency))
		store.Seed(app.MockSeed)
		app.provider = store
		app.logger().Debug("using in-process mock backend", zap.Int("seed", app.MockSeed))
		return app.provider
	}
	app.provider = api.Client{BaseURL: app.cfg.APIURL, Token: app.cfg.Token}
	return app.provider
}

func runTUI(ctx context.Context, app *App) error {
	initial, err := url.ParseQuery(strings.TrimPrefix(strings.TrimSpace(app.Query), "?"))
	if err != nil {
		return fmt.Errorf("invalid --query: %w", err)
	}
	if initial.Get("limit") == "" {
		initial.Set("limit", strconv.Itoa(app.cfg.PageLimit))
	}
	app.logger().Info("starting ui", zap.String("api", app.cfg.APIURL), zap.Bool("mock", app.Mock))
	return tui.Run(ctx, tui.Config{
		Provider: app.Provider(),
		Session: tui.SessionConfig{
			Initial: initial,
			Delay:   time.Duration(app.cfg.DebounceMS) * time.Millisecond,
			Logger:  app.logger(),
		},
	})
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envInt(k string, d int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return d
	}
	return v
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

var errMissingID = errors.New("missing call id")
