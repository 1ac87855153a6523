package buildinfo

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Set at build time with -ldflags -X.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// DisplayVersion returns a user-facing version string. Numeric versions get
// a "v" prefix; "dev" builds fall back to the embedded module version.
func DisplayVersion() string {
	return display(Version, moduleVersion())
}

func display(v, module string) string {
	v = strings.TrimSpace(v)
	if v == "" || v == "dev" {
		v = module
	}
	v = strings.TrimSpace(v)
	if v == "" || v == "dev" || v == "(devel)" {
		return "dev"
	}
	if strings.HasPrefix(v, "v") {
		return v
	}
	if v[0] >= '0' && v[0] <= '9' {
		return "v" + v
	}
	return v
}

func moduleVersion() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	return bi.Main.Version
}

// UserAgent identifies API requests.
func UserAgent() string {
	return fmt.Sprintf("calldesk-cli/%s (%s/%s)", DisplayVersion(), runtime.GOOS, runtime.GOARCH)
}

func Info() map[string]any {
	return map[string]any{
		"version":    DisplayVersion(),
		"rawVersion": Version,
		"commit":     Commit,
		"date":       Date,
		"go":         runtime.Version(),
	}
}
