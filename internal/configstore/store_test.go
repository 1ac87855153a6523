package configstore

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestSaveAtomicAndLoad_RoundTripAndTrim(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	st := &Store{APIURL: "  http://localhost:9000  ", Token: " tok ", PageLimit: 25, Log: Log{Level: " DEBUG ", Output: "stderr"}}
	if err := SaveAtomic(path, st); err != nil {
		t.Fatalf("SaveAtomic: %v", err)
	}

	if runtime.GOOS != "windows" {
		fi, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if fi.Mode().Perm() != 0o600 {
			t.Fatalf("expected 0600 perms, got %o", fi.Mode().Perm())
		}
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.APIURL != "http://localhost:9000" || loaded.Token != "tok" {
		t.Fatalf("expected trimmed values, got %+v", loaded)
	}
	if loaded.PageLimit != 25 || loaded.Log.Level != "debug" || loaded.Log.Output != "stderr" {
		t.Fatalf("unexpected loaded store: %+v", loaded)
	}
}

func TestLoad_ParsesSnakeCaseYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := "api_url: https://calls.example.test\ndebounce_ms: 150\nlog:\n  output: off\n  format: \" Console \"\n  max_backups: 7\n"
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	st, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.APIURL != "https://calls.example.test" || st.DebounceMS != 150 {
		t.Fatalf("unexpected store: %+v", st)
	}
	if st.Log.Output != "off" || st.Log.Format != "console" || st.Log.MaxBackups != 7 {
		t.Fatalf("unexpected log config: %+v", st.Log)
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	st, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	d := st.WithDefaults()
	if d.APIURL != DefaultAPIURL || d.PageLimit != DefaultPageLimit || d.DebounceMS != DefaultDebounceMS || d.Log.Level != "info" || d.Log.Format != "json" {
		t.Fatalf("unexpected defaults: %+v", d)
	}
	if st.APIURL != "" {
		t.Fatalf("WithDefaults must not modify the receiver")
	}
}

func TestSaveAtomic_Validations(t *testing.T) {
	if err := SaveAtomic("", &Store{}); err == nil {
		t.Fatalf("expected error for missing path")
	}
	if err := SaveAtomic("x.yaml", nil); err == nil {
		t.Fatalf("expected error for missing store")
	}
}

func TestLoad_Validations(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for missing path")
	}
}
