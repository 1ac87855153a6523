package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/calldesk/calldesk-cli/internal/mock"
)

type result struct {
	env    map[string]any
	err    error
	stdout string
}

func runCLI(t *testing.T, configPath string, args ...string) result {
	t.Helper()
	if configPath == "" {
		configPath = filepath.Join(t.TempDir(), "config.yaml")
	}
	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(append([]string{"--config", configPath, "--log-output", "off"}, args...))
	err := cmd.Execute()

	r := result{err: err, stdout: out.String()}
	if s := strings.TrimSpace(out.String()); s != "" {
		if uerr := json.Unmarshal([]byte(s), &r.env); uerr != nil {
			t.Fatalf("unmarshal output: %v\n%s", uerr, s)
		}
	}
	return r
}

func (r result) data(t *testing.T) map[string]any {
	t.Helper()
	d, ok := r.env["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %#v", r.env["data"])
	}
	return d
}

func (r result) meta(t *testing.T) map[string]any {
	t.Helper()
	m, ok := r.env["meta"].(map[string]any)
	if !ok {
		t.Fatalf("expected meta object, got %#v", r.env["meta"])
	}
	return m
}

func (r result) errorCode() string {
	e, _ := r.env["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestCallsList_MockPaging(t *testing.T) {
	r := runCLI(t, "", "--mock", "calls", "list", "--page", "2", "--page-size", "5")
	if r.err != nil {
		t.Fatalf("list: %v\n%s", r.err, r.stdout)
	}
	items, _ := r.env["data"].([]any)
	if len(items) != 5 {
		t.Fatalf("expected 5 items, got %d", len(items))
	}
	meta := r.meta(t)
	if meta["page"] != float64(2) || meta["totalPages"] != float64(12) || meta["total"] != float64(60) {
		t.Fatalf("unexpected meta: %#v", meta)
	}
	if pages, _ := meta["pages"].(string); !strings.Contains(pages, "[2]") {
		t.Fatalf("expected page strip with current page, got %q", pages)
	}
	if q, _ := meta["query"].(string); q != "from=&limit=5&page=2&to=" {
		t.Fatalf("unexpected canonical query: %q", q)
	}
}

func TestCallsList_InvalidPageFallsBack(t *testing.T) {
	r := runCLI(t, "", "--mock", "calls", "list", "--page", "0")
	if r.err != nil {
		t.Fatalf("list: %v", r.err)
	}
	if got := r.meta(t)["page"]; got != float64(1) {
		t.Fatalf("expected page 1 fallback, got %v", got)
	}
}

func TestCallsList_StatusFilterAndValidation(t *testing.T) {
	r := runCLI(t, "", "--mock", "calls", "list", "--status", "completed", "--page-size", "50")
	if r.err != nil {
		t.Fatalf("list: %v", r.err)
	}
	items, _ := r.env["data"].([]any)
	if len(items) == 0 {
		t.Fatalf("expected completed calls")
	}
	for _, it := range items {
		if it.(map[string]any)["status"] != "completed" {
			t.Fatalf("unexpected status in %#v", it)
		}
	}

	bad := runCLI(t, "", "--mock", "calls", "list", "--status", "ringing")
	if bad.err == nil || bad.errorCode() != "invalid_args" {
		t.Fatalf("expected invalid_args, got %v %#v", bad.err, bad.env)
	}
	preset := runCLI(t, "", "--mock", "calls", "list", "--preset", "decade")
	if preset.err == nil || preset.errorCode() != "invalid_args" {
		t.Fatalf("expected invalid_args for preset, got %v %#v", preset.err, preset.env)
	}
}

func TestListQuery_Preset(t *testing.T) {
	cmd := newCallsListCmd(&App{})
	if err := cmd.ParseFlags([]string{"--page", "4", "--from", "2024-01-01"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	now := time.Date(2024, 6, 12, 10, 0, 0, 0, time.Local)
	q, err := listQuery(cmd, &App{}, listFlags{page: 4, from: "2024-01-01", preset: "week"}, now)
	if err != nil {
		t.Fatalf("listQuery: %v", err)
	}
	if q.From != "2024-06-10" || q.To != "2024-06-16" || q.Page != 1 || q.Limit != 10 {
		t.Fatalf("unexpected query: %+v", q)
	}
}

func TestCallsGetAndTranscript(t *testing.T) {
	r := runCLI(t, "", "--mock", "calls", "get", "call-001")
	if r.err != nil {
		t.Fatalf("get: %v", r.err)
	}
	call, _ := r.data(t)["call"].(map[string]any)
	if call["id"] != "call-001" || call["status"] != "scheduled" {
		t.Fatalf("unexpected call: %#v", call)
	}
	if r.meta(t)["canStart"] != true || r.meta(t)["canFinish"] != false {
		t.Fatalf("unexpected action flags: %#v", r.meta(t))
	}

	// call-006 is in the past and completed.
	done := runCLI(t, "", "--mock", "calls", "get", "call-006")
	if done.err != nil {
		t.Fatalf("get completed: %v", done.err)
	}
	tr, _ := done.data(t)["transcript"].(map[string]any)
	if tr == nil || tr["callId"] != "call-006" {
		t.Fatalf("expected transcript for completed call, got %#v", done.data(t))
	}

	missing := runCLI(t, "", "--mock", "calls", "get", "nope")
	if missing.err == nil || missing.errorCode() != "not_found" {
		t.Fatalf("expected not_found, got %v %#v", missing.err, missing.env)
	}
	noTr := runCLI(t, "", "--mock", "calls", "transcript", "call-001")
	if noTr.err == nil || noTr.errorCode() != "not_available" {
		t.Fatalf("expected not_available, got %v %#v", noTr.err, noTr.env)
	}
}

func TestCallsStartAndFinish(t *testing.T) {
	r := runCLI(t, "", "--mock", "calls", "start", "call-001")
	if r.err != nil {
		t.Fatalf("start: %v", r.err)
	}
	if r.data(t)["status"] != "in_progress" || r.meta(t)["action"] != "start" {
		t.Fatalf("unexpected start output: %#v", r.env)
	}

	// Each invocation gets a fresh in-process backend.
	bad := runCLI(t, "", "--mock", "calls", "finish", "call-001")
	if bad.err == nil || bad.errorCode() != "invalid_transition" {
		t.Fatalf("expected invalid_transition, got %v %#v", bad.err, bad.env)
	}
	msg, _ := bad.env["error"].(map[string]any)["message"].(string)
	if !strings.Contains(msg, "failed to finish call") {
		t.Fatalf("expected wrapped action error, got %q", msg)
	}
}

func TestCallsAgainstHTTPBackend(t *testing.T) {
	store := mock.New()
	store.Seed(12)
	srv := httptest.NewServer(mock.Handler(store, nil))
	defer srv.Close()

	r := runCLI(t, "", "--api", srv.URL, "calls", "start", "call-001")
	if r.err != nil {
		t.Fatalf("start over http: %v", r.err)
	}
	r = runCLI(t, "", "--api", srv.URL, "calls", "finish", "call-001")
	if r.err != nil || r.data(t)["status"] != "completed" {
		t.Fatalf("finish over http: %v %#v", r.err, r.env)
	}
	r = runCLI(t, "", "--api", srv.URL, "calls", "transcript", "call-001")
	if r.err != nil || r.data(t)["callId"] != "call-001" {
		t.Fatalf("transcript over http: %v %#v", r.err, r.env)
	}
}

func TestYAMLOutput(t *testing.T) {
	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "c.yaml"), "--log-output", "off", "--format", "yaml", "--mock", "calls", "get", "call-001"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("get: %v", err)
	}
	for _, want := range []string{"ok: true", "id: call-001", "canStart: true"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in yaml output:\n%s", want, out.String())
		}
	}
}

func TestConfig_SetShowAndPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if r := runCLI(t, path, "config", "set", "page-limit", "25"); r.err != nil {
		t.Fatalf("set: %v", r.err)
	}
	if r := runCLI(t, path, "config", "set", "token", "secret-token"); r.err != nil {
		t.Fatalf("set token: %v", r.err)
	}
	if r := runCLI(t, path, "config", "set", "page-limit", "zero"); r.errorCode() != "invalid_args" {
		t.Fatalf("expected invalid_args, got %#v", r.env)
	}

	show := runCLI(t, path, "config", "show")
	if show.data(t)["pageLimit"] != float64(25) || show.data(t)["token"] != "sec***en" {
		t.Fatalf("expected file values, got %#v", show.data(t))
	}

	t.Setenv("CALLDESK_PAGE_LIMIT", "7")
	if got := runCLI(t, path, "config", "show").data(t)["pageLimit"]; got != float64(7) {
		t.Fatalf("expected env to beat file, got %v", got)
	}
	if got := runCLI(t, path, "--limit", "3", "config", "show").data(t)["pageLimit"]; got != float64(3) {
		t.Fatalf("expected flag to beat env, got %v", got)
	}
}

func TestConfig_LogFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if r := runCLI(t, path, "config", "set", "log-format", "Console"); r.err != nil {
		t.Fatalf("set: %v", r.err)
	}
	if r := runCLI(t, path, "config", "set", "log-format", "xml"); r.errorCode() != "invalid_args" {
		t.Fatalf("expected invalid_args, got %#v", r.env)
	}
	logCfg, _ := runCLI(t, path, "config", "show").data(t)["log"].(map[string]any)
	if logCfg["format"] != "console" {
		t.Fatalf("expected console from file, got %#v", logCfg)
	}
	logCfg, _ = runCLI(t, path, "--log-format", "json", "config", "show").data(t)["log"].(map[string]any)
	if logCfg["format"] != "json" {
		t.Fatalf("expected flag to beat file, got %#v", logCfg)
	}

	logPath := filepath.Join(t.TempDir(), "cli.log")
	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{"--config", path, "--log-output", logPath, "--log-level", "debug", "--mock", "calls", "get", "call-001"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("get: %v", err)
	}
	b, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(b) == 0 || bytes.HasPrefix(b, []byte("{")) {
		t.Fatalf("expected console-encoded log lines, got %q", b)
	}

	bad := NewRootCmd()
	bad.SetOut(new(bytes.Buffer))
	bad.SetErr(new(bytes.Buffer))
	bad.SetArgs([]string{"--config", path, "--log-output", "off", "--log-format", "xml", "version"})
	if err := bad.Execute(); err == nil {
		t.Fatalf("expected an unknown log format to be rejected")
	}
}

func TestVersion(t *testing.T) {
	r := runCLI(t, "", "version")
	if r.err != nil || r.data(t)["version"] == "" {
		t.Fatalf("unexpected version output: %v %#v", r.err, r.env)
	}
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	app := &App{}
	srv := newMockServer(app, serveFlags{seed: 3})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, srv, ln, zap.NewNop()) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected healthz status %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("server did not stop")
	}
}

func TestRedact(t *testing.T) {
	if got := redact("abc"); got != "***" {
		t.Fatalf("unexpected redaction: %q", got)
	}
	if got := redact("abcdefgh"); got != "abc***gh" {
		t.Fatalf("unexpected redaction: %q", got)
	}
}

func TestConfigShow_AccountFromToken(t *testing.T) {
	tok := "e30." + base64.RawURLEncoding.EncodeToString([]byte(`{"email":"ops@calldesk.test","exp":1718193600}`)) + ".sig"
	r := runCLI(t, "", "--token", tok, "config", "show")
	if r.err != nil {
		t.Fatalf("show: %v", r.err)
	}
	meta := r.meta(t)
	if meta["account"] != "ops@calldesk.test" || meta["tokenExpired"] != true {
		t.Fatalf("unexpected meta: %#v", meta)
	}
}
