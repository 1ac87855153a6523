package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/calldesk/calldesk-cli/internal/buildinfo"
	"github.com/calldesk/calldesk-cli/internal/calls"
)

// Client talks to the calls REST API. It implements calls.Provider.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

var _ calls.Provider = Client{}

const (
	defaultRetryAttempts = 3
	defaultRetryBaseMS   = 250
	defaultRetryMaxMS    = 2000
	maxRetryShift        = 20
)

// Error is a non-2xx response. It unwraps to the calls sentinel matching the
// status, when there is one.
type Error struct {
	StatusCode int
	Code       string
	Message    string
	err        error
}

func (e *Error) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("api error (status=%d): %s", e.StatusCode, msg)
}

func (e *Error) Unwrap() error { return e.err }

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func retryAttempts() int {
	enabled := strings.ToLower(strings.TrimSpace(os.Getenv("CALLDESK_RETRY_ENABLED")))
	if enabled == "false" || enabled == "0" || enabled == "no" {
		return 1
	}
	attempts := envInt("CALLDESK_RETRY_ATTEMPTS", defaultRetryAttempts)
	if attempts < 1 {
		return 1
	}
	return attempts
}

func parseRetryAfter(headerValue string) time.Duration {
	s := strings.TrimSpace(headerValue)
	if s == "" {
		return 0
	}
	if secs, err := strconv.Atoi(s); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(s); err == nil {
		d := time.Until(at)
		if d <= 0 {
			return 0
		}
		return d
	}
	return 0
}

func retryDelay(attempt int, retryAfterHeader string) time.Duration {
	if d := parseRetryAfter(retryAfterHeader); d > 0 {
		return d
	}
	if attempt < 1 {
		attempt = 1
	}
	baseMS := envInt("CALLDESK_RETRY_BASE_MS", defaultRetryBaseMS)
	maxMS := envInt("CALLDESK_RETRY_MAX_MS", defaultRetryMaxMS)
	if baseMS < 0 {
		baseMS = 0
	}
	if maxMS < 0 {
		maxMS = 0
	}
	if maxMS > 0 && baseMS > maxMS {
		baseMS = maxMS
	}
	shift := attempt - 1
	if shift > maxRetryShift {
		shift = maxRetryShift
	}
	delayMS := int64(baseMS) << shift
	if maxMS > 0 && delayMS > int64(maxMS) {
		delayMS = int64(maxMS)
	}
	if delayMS <= 0 {
		return 0
	}
	return time.Duration(delayMS) * time.Millisecond
}

func waitRetry(ctx context.Context, attempt int, retryAfterHeader string) error {
	delay := retryDelay(attempt, retryAfterHeader)
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c Client) endpointFor(path string, query url.Values) (string, error) {
	if strings.TrimSpace(c.BaseURL) == "" {
		return "", fmt.Errorf("missing api base url")
	}
	u, err := url.Parse(strings.TrimRight(c.BaseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid api url: %w", err)
	}
	p := strings.TrimPrefix(strings.TrimSpace(path), "/")
	u.Path = strings.TrimRight(u.Path, "/") + "/" + p
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

func (c Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// do sends one request and decodes a JSON body into out. GETs are retried on
// 429/503 and transport errors; POSTs are sent once because they mutate.
func (c Client) do(ctx context.Context, method, path string, query url.Values, body any, out any, notFound error) error {
	endpoint, err := c.endpointFor(path, query)
	if err != nil {
		return err
	}

	var payload []byte
	if body != nil {
		if payload, err = json.Marshal(body); err != nil {
			return err
		}
	}

	attempts := 1
	if method == http.MethodGet {
		attempts = retryAttempts()
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		var r io.Reader
		if payload != nil {
			r = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, r)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", buildinfo.UserAgent())
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if strings.TrimSpace(c.Token) != "" {
			req.Header.Set("Authorization", "Bearer "+c.Token)
		}

		resp, err := c.httpClient().Do(req)
		if err != nil {
			if attempt < attempts && ctx.Err() == nil {
				if waitErr := waitRetry(ctx, attempt, ""); waitErr != nil {
					return waitErr
				}
				continue
			}
			return err
		}
		b, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return readErr
		}

		if (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable) && attempt < attempts {
			if waitErr := waitRetry(ctx, attempt, resp.Header.Get("Retry-After")); waitErr != nil {
				return waitErr
			}
			continue
		}
		if resp.StatusCode >= 400 {
			return responseError(resp.StatusCode, b, notFound)
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(b, out); err != nil {
			return fmt.Errorf("invalid json response (status=%d): %w", resp.StatusCode, err)
		}
		return nil
	}
	return fmt.Errorf("request exhausted retries without response")
}

func responseError(status int, body []byte, notFound error) error {
	e := &Error{StatusCode: status}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		e.Code = payload.Code
		e.Message = payload.Error
		if e.Message == "" {
			e.Message = payload.Message
		}
	} else {
		e.Message = strings.TrimSpace(string(body))
	}

	switch {
	case e.Code == "not_available":
		e.err = calls.ErrNotAvailable
	case e.Code == "not_found":
		e.err = calls.ErrNotFound
	case status == http.StatusNotFound:
		e.err = notFound
	case status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		e.err = calls.ErrInvalidTransition
	}
	return e
}

func callPath(id string, suffix ...string) string {
	parts := append([]string{"/api/calls", url.PathEscape(id)}, suffix...)
	return strings.Join(parts, "/")
}

func (c Client) List(ctx context.Context, p calls.ListParams) (calls.ListResponse, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("limit", strconv.Itoa(p.Limit))
	if s := strings.TrimSpace(p.Status); s != "" {
		q.Set("status", s)
	}
	if s := strings.TrimSpace(p.From); s != "" {
		q.Set("from", s)
	}
	if s := strings.TrimSpace(p.To); s != "" {
		q.Set("to", s)
	}
	var out calls.ListResponse
	err := c.do(ctx, http.MethodGet, "/api/calls", q, nil, &out, calls.ErrNotFound)
	return out, err
}

func (c Client) Get(ctx context.Context, id string) (calls.Call, error) {
	var out calls.Call
	if err := requireID(id); err != nil {
		return out, err
	}
	err := c.do(ctx, http.MethodGet, callPath(id), nil, nil, &out, calls.ErrNotFound)
	return out, err
}

func (c Client) Transcript(ctx context.Context, id string) (calls.Transcript, error) {
	var out calls.Transcript
	if err := requireID(id); err != nil {
		return out, err
	}
	err := c.do(ctx, http.MethodGet, callPath(id, "transcript"), nil, nil, &out, calls.ErrNotAvailable)
	return out, err
}

func (c Client) Start(ctx context.Context, id string) (calls.Call, error) {
	var out calls.Call
	if err := requireID(id); err != nil {
		return out, err
	}
	err := c.do(ctx, http.MethodPost, callPath(id, "start"), nil, map[string]any{}, &out, calls.ErrNotFound)
	return out, err
}

func (c Client) Finish(ctx context.Context, id string) (calls.Call, error) {
	var out calls.Call
	if err := requireID(id); err != nil {
		return out, err
	}
	err := c.do(ctx, http.MethodPost, callPath(id, "finish"), nil, map[string]any{}, &out, calls.ErrNotFound)
	return out, err
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("missing call id")
	}
	return nil
}
