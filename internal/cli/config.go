package cli

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/calldesk/calldesk-cli/internal/authinfo"
	"github.com/calldesk/calldesk-cli/internal/configstore"
	"github.com/calldesk/calldesk-cli/internal/logging"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Show or change saved settings"}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eff := app.cfg
			meta := map[string]any{"path": app.ConfigPath}
			if claims, ok := authinfo.Parse(eff.Token); ok {
				meta["account"] = claims.Account()
				if !claims.ExpiresAt.IsZero() {
					meta["tokenExpiresAt"] = claims.ExpiresAt
					meta["tokenExpired"] = claims.Expired(time.Now())
				}
			}
			if eff.Token != "" {
				eff.Token = redact(eff.Token)
			}
			return writeData(cmd, app, meta, map[string]any{
				"apiUrl":     eff.APIURL,
				"token":      eff.Token,
				"pageLimit":  eff.PageLimit,
				"debounceMs": eff.DebounceMS,
				"log": map[string]any{
					"level":      eff.Log.Level,
					"output":     eff.Log.Output,
					"format":     eff.Log.Format,
					"maxSizeMb":  eff.Log.MaxSizeMB,
					"maxBackups": eff.Log.MaxBackups,
					"maxAgeDays": eff.Log.MaxAgeDays,
				},
			})
		},
	})
	cmd.AddCommand(newConfigSetCmd(app))
	return cmd
}

func newConfigSetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set <api-url|token|page-limit|debounce-ms|log-level|log-output|log-format> <value>",
		Short: "Save one setting to the config file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(app.ConfigPath) == "" {
				return writeFailure(cmd, app, "no_config_path", errors.New("cannot determine config path"), "Pass --config.", nil)
			}
			st, err := configstore.LoadOrDefault(app.ConfigPath)
			if err != nil {
				return writeFailure(cmd, app, "config_unreadable", err, "", map[string]any{"path": app.ConfigPath})
			}
			if err := applySetting(st, args[0], args[1]); err != nil {
				return writeFailure(cmd, app, "invalid_args", err, "", nil)
			}
			if err := configstore.SaveAtomic(app.ConfigPath, st); err != nil {
				return writeFailure(cmd, app, "config_write_failed", err, "", map[string]any{"path": app.ConfigPath})
			}
			return writeData(cmd, app, map[string]any{"path": app.ConfigPath}, map[string]any{"key": args[0], "saved": true})
		},
	}
}

func applySetting(st *configstore.Store, key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "api-url":
		u, err := url.Parse(value)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.New("api-url must be an absolute URL")
		}
		st.APIURL = value
	case "token":
		st.Token = value
	case "page-limit":
		n := positiveInt(value)
		if n < 1 {
			return errors.New("page-limit must be a positive integer")
		}
		st.PageLimit = n
	case "debounce-ms":
		n := positiveInt(value)
		if n < 1 {
			return errors.New("debounce-ms must be a positive integer")
		}
		st.DebounceMS = n
	case "log-level":
		st.Log.Level = strings.ToLower(value)
	case "log-output":
		st.Log.Output = value
	case "log-format":
		v := strings.ToLower(value)
		if err := validLogFormat(v); err != nil {
			return err
		}
		st.Log.Format = v
	default:
		return errors.New("unknown setting " + key)
	}
	return nil
}

func positiveInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return -1
	}
	return n
}

func redact(token string) string {
	if len(token) <= 6 {
		return "***"
	}
	return token[:3] + "***" + token[len(token)-2:]
}

func validLogFormat(v string) error {
	switch v {
	case "", logging.FormatJSON, logging.FormatConsole:
		return nil
	}
	return fmt.Errorf("log format must be %s or %s, got %q", logging.FormatJSON, logging.FormatConsole, v)
}
