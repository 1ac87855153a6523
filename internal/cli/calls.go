package cli

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/calldesk/calldesk-cli/internal/calls"
	"github.com/calldesk/calldesk-cli/internal/filter"
	"github.com/calldesk/calldesk-cli/internal/pagination"
	"github.com/calldesk/calldesk-cli/internal/query"
	"github.com/calldesk/calldesk-cli/internal/stream"
)

func newCallsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{Use: "calls", Short: "List, inspect, start and finish calls"}
	cmd.AddCommand(newCallsListCmd(app))
	cmd.AddCommand(newCallsGetCmd(app))
	cmd.AddCommand(newCallsTranscriptCmd(app))
	cmd.AddCommand(newCallsActionCmd(app, stream.ActionStart))
	cmd.AddCommand(newCallsActionCmd(app, stream.ActionFinish))
	return cmd
}

type listFlags struct {
	page   int
	limit  int
	from   string
	to     string
	status string
	preset string
}

func newCallsListCmd(app *App) *cobra.Command {
	var f listFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of calls",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := listQuery(cmd, app, f, time.Now())
			if err != nil {
				return writeFailure(cmd, app, "invalid_args", err, "Presets are today, week and month.", nil)
			}
			params := q.ListParams()
			if s := strings.TrimSpace(f.status); s != "" {
				if !validStatus(s) {
					return writeFailure(cmd, app, "invalid_args", fmt.Errorf("unknown status %q", s), "Use all, scheduled, in_progress, completed or canceled.", nil)
				}
				params.Status = s
			}
			app.logger().Debug("list calls", zap.String("query", q.Values().Encode()), zap.String("status", params.Status))

			res, err := app.Provider().List(cmd.Context(), params)
			if err != nil {
				return writeCallError(cmd, app, "", err)
			}
			meta := map[string]any{
				"query":      q.Values().Encode(),
				"page":       q.Page,
				"limit":      q.Limit,
				"total":      res.Total,
				"totalPages": res.TotalPages,
			}
			if res.TotalPages > 1 {
				meta["pages"] = pagination.Render(pagination.Buttons(q.Page, res.TotalPages), q.Page)
			}
			return writeData(cmd, app, meta, res.Items)
		},
	}
	cmd.Flags().IntVar(&f.page, "page", query.DefaultPage, "Page number (1-based)")
	cmd.Flags().IntVar(&f.limit, "page-size", 0, "Page size (defaults to --limit / config)")
	cmd.Flags().StringVar(&f.from, "from", "", "First scheduled day, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.to, "to", "", "Last scheduled day, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.status, "status", calls.StatusAll, "Status filter")
	cmd.Flags().StringVar(&f.preset, "preset", "", "Date preset: today|week|month (overrides --from/--to)")
	return cmd
}

// listQuery builds the canonical query from flags the same way the UI builds
// it from the address: raw values go through query.Parse.
func listQuery(cmd *cobra.Command, app *App, f listFlags, now time.Time) (query.Query, error) {
	raw := url.Values{}
	if cmd.Flags().Changed("page") {
		raw.Set(query.KeyPage, strconv.Itoa(f.page))
	}
	limit := f.limit
	if limit <= 0 {
		limit = app.cfg.PageLimit
	}
	if limit > 0 {
		raw.Set(query.KeyLimit, strconv.Itoa(limit))
	}
	raw.Set(query.KeyFrom, strings.TrimSpace(f.from))
	raw.Set(query.KeyTo, strings.TrimSpace(f.to))

	if p := strings.ToLower(strings.TrimSpace(f.preset)); p != "" {
		var r filter.Range
		switch filter.Preset(p) {
		case filter.PresetToday:
			r = filter.Today(now)
		case filter.PresetWeek:
			r = filter.ThisWeek(now)
		case filter.PresetMonth:
			r = filter.ThisMonth(now)
		default:
			return query.Query{}, fmt.Errorf("unknown preset %q", f.preset)
		}
		raw = query.Serialize(raw, query.DateRange(r.From, r.To))
	}
	return query.Parse(raw), nil
}

func validStatus(s string) bool {
	switch calls.Status(s) {
	case calls.StatusScheduled, calls.StatusInProgress, calls.StatusCompleted, calls.StatusCanceled:
		return true
	}
	return s == calls.StatusAll
}

func newCallsGetCmd(app *App) *cobra.Command {
	var withTranscript bool
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one call, with its transcript when completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			st := loadDetail(cmd.Context(), app, id)
			if st.Err != nil {
				return writeCallError(cmd, app, id, st.Err)
			}
			data := map[string]any{"call": st.Call}
			if withTranscript {
				data["transcript"] = st.Transcript
			}
			return writeData(cmd, app, map[string]any{
				"canStart":  stream.CanStart(st.Call),
				"canFinish": stream.CanFinish(st.Call),
			}, data)
		},
	}
	cmd.Flags().BoolVar(&withTranscript, "transcript", true, "Include the transcript of completed calls")
	return cmd
}

// loadDetail runs the detail stream for id until both stages settle.
func loadDetail(ctx context.Context, app *App, id string) stream.DetailState {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d := stream.NewDetail(app.Provider(), stream.WithLogger(app.logger().Named("detail")))
	d.Bind(ctx)
	defer d.Close()
	d.Open(id)

	updates := d.Subscribe(ctx)
	for {
		select {
		case <-ctx.Done():
			st := d.State()
			st.Err = ctx.Err()
			return st
		case st, ok := <-updates:
			if !ok {
				return d.State()
			}
			if !st.Loading && !st.TranscriptLoading {
				return st
			}
		}
	}
}

func newCallsTranscriptCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "transcript <id>",
		Short: "Show the transcript of a completed call",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			if id == "" {
				return writeCallError(cmd, app, id, errMissingID)
			}
			tr, err := app.Provider().Transcript(cmd.Context(), id)
			if err != nil {
				return writeCallError(cmd, app, id, err)
			}
			return writeData(cmd, app, nil, tr)
		},
	}
}

func newCallsActionCmd(app *App, kind stream.ActionKind) *cobra.Command {
	short := "Start a scheduled call"
	if kind == stream.ActionFinish {
		short = "Finish an in-progress call"
	}
	return &cobra.Command{
		Use:   string(kind) + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			if id == "" {
				return writeCallError(cmd, app, id, errMissingID)
			}
			actions := stream.NewActions(app.Provider(), nil, nil, stream.WithLogger(app.logger().Named("actions")))
			if kind == stream.ActionStart {
				actions.Start(cmd.Context(), id)
			} else {
				actions.Finish(cmd.Context(), id)
			}
			if st := actions.State(); st.Phase == stream.ActionError {
				return writeCallError(cmd, app, id, st.Err)
			}
			c, err := app.Provider().Get(cmd.Context(), id)
			if err != nil {
				return writeCallError(cmd, app, id, err)
			}
			return writeData(cmd, app, map[string]any{"action": string(kind)}, c)
		},
	}
}
