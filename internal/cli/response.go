package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/calldesk/calldesk-cli/internal/calls"
	"github.com/calldesk/calldesk-cli/internal/stream"
)

func writeData(cmd *cobra.Command, app *App, meta map[string]any, data any) error {
	out := map[string]any{
		"ok":   true,
		"meta": meta,
		"data": data,
	}
	// Avoid emitting empty meta.
	if meta == nil {
		delete(out, "meta")
	}
	return writeOut(cmd, app, out)
}

func writeFailure(cmd *cobra.Command, app *App, code string, err error, hint string, details any) error {
	if err == nil {
		err = errors.New("unknown error")
	}
	out := map[string]any{
		"ok": false,
		"error": map[string]any{
			"code":    code,
			"message": err.Error(),
			"details": details,
		},
		"hint": hint,
	}
	if hint == "" {
		delete(out, "hint")
	}
	// We still return an error so Cobra exits non-zero.
	_ = writeOut(cmd, app, out)
	return err
}

// writeCallError picks the failure code and hint for a provider error.
func writeCallError(cmd *cobra.Command, app *App, id string, err error) error {
	details := map[string]any{"id": id}
	switch {
	case errors.Is(err, calls.ErrNotAvailable):
		return writeFailure(cmd, app, "not_available", err, "Transcripts exist only for completed calls.", details)
	case errors.Is(err, calls.ErrNotFound):
		return writeFailure(cmd, app, "not_found", err, "Check the id with `calldesk calls list`.", details)
	case errors.Is(err, calls.ErrInvalidTransition):
		return writeFailure(cmd, app, "invalid_transition", err, "Only scheduled calls can start and only in-progress calls can finish.", details)
	case errors.Is(err, stream.ErrNoCallID), errors.Is(err, errMissingID):
		return writeFailure(cmd, app, "missing_id", err, "Pass a call id.", nil)
	default:
		return writeFailure(cmd, app, "api_error", err, "", details)
	}
}
