package configstore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default values used when no config file exists.
const (
	DefaultAPIURL     = "http://localhost:8090"
	DefaultPageLimit  = 10
	DefaultDebounceMS = 300
)

type Log struct {
	Level      string `yaml:"level,omitempty"`
	Output     string `yaml:"output,omitempty"`
	Format     string `yaml:"format,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
	MaxAgeDays int    `yaml:"max_age_days,omitempty"`
}

type Store struct {
	APIURL     string `yaml:"api_url,omitempty"`
	Token      string `yaml:"token,omitempty"`
	PageLimit  int    `yaml:"page_limit,omitempty"`
	DebounceMS int    `yaml:"debounce_ms,omitempty"`
	Log        Log    `yaml:"log,omitempty"`
}

func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(dir) == "" {
		return "", errors.New("cannot determine user config dir")
	}
	return filepath.Join(dir, "calldesk", "config.yaml"), nil
}

func Load(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("missing path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var st Store
	if err := yaml.Unmarshal(b, &st); err != nil {
		return nil, err
	}
	st.APIURL = strings.TrimSpace(st.APIURL)
	st.Token = strings.TrimSpace(st.Token)
	st.Log.Level = strings.ToLower(strings.TrimSpace(st.Log.Level))
	st.Log.Output = strings.TrimSpace(st.Log.Output)
	st.Log.Format = strings.ToLower(strings.TrimSpace(st.Log.Format))
	return &st, nil
}

// LoadOrDefault reads path, treating a missing file as an empty store.
func LoadOrDefault(path string) (*Store, error) {
	st, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Store{}, nil
	}
	return st, err
}

func SaveAtomic(path string, st *Store) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("missing path")
	}
	if st == nil {
		return errors.New("missing store")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	payload, err := yaml.Marshal(st)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// WithDefaults fills zero fields. The receiver is not modified.
func (st Store) WithDefaults() Store {
	if st.APIURL == "" {
		st.APIURL = DefaultAPIURL
	}
	if st.PageLimit <= 0 {
		st.PageLimit = DefaultPageLimit
	}
	if st.DebounceMS <= 0 {
		st.DebounceMS = DefaultDebounceMS
	}
	if st.Log.Format == "" {
		st.Log.Format = "json"
	}
	if st.Log.Level == "" {
		st.Log.Level = "info"
	}
	if st.Log.MaxSizeMB <= 0 {
		st.Log.MaxSizeMB = 10
	}
	if st.Log.MaxBackups <= 0 {
		st.Log.MaxBackups = 3
	}
	if st.Log.MaxAgeDays <= 0 {
		st.Log.MaxAgeDays = 14
	}
	return st
}
