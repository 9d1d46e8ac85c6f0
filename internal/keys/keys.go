// Package keys stores provider API keys in the user config directory.
package keys

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

var (
	ErrUnknownService = errors.New("unknown service")
	ErrKeyNotFound    = errors.New("no key stored")
)

type Service string

const (
	Google    Service = "google"
	Anthropic Service = "anthropic"
	Airtable  Service = "airtable"
)

var envVars = map[Service]string{
	Google:    "GOOGLE_API_KEY",
	Anthropic: "ANTHROPIC_API_KEY",
	Airtable:  "AIRTABLE_TOKEN",
}

func Services() []Service {
	return []Service{Anthropic, Airtable, Google}
}

func ParseService(s string) (Service, error) {
	svc := Service(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := envVars[svc]; !ok {
		return "", fmt.Errorf("%w %q: valid services are anthropic, airtable, google", ErrUnknownService, s)
	}
	return svc, nil
}

// EnvVar names the environment variable that supplies the service's key.
func (s Service) EnvVar() string {
	return envVars[s]
}

type Store struct {
	configDir string
}

type entry struct {
	Key string `json:"key"`
}

type keyFile map[Service]entry

func NewStore() (*Store, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return &Store{configDir: dir}, nil
}

func NewStoreAt(dir string) *Store {
	return &Store{configDir: dir}
}

// ConfigDir is the platform config directory, overridable with
// CONTENTGEN_CONFIG_DIR.
func ConfigDir() (string, error) {
	if dir := os.Getenv("CONTENTGEN_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "contentgen"), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "contentgen"), nil
	default:
		configHome := os.Getenv("XDG_CONFIG_HOME")
		if configHome == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configHome = filepath.Join(home, ".config")
		}
		return filepath.Join(configHome, "contentgen"), nil
	}
}

func (s *Store) Path() string {
	return filepath.Join(s.configDir, "keys.json")
}

func (s *Store) load() (keyFile, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return make(keyFile), nil
		}
		return nil, err
	}

	var keys keyFile
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("failed to parse keys.json: %w", err)
	}
	if keys == nil {
		keys = make(keyFile)
	}
	return keys, nil
}

func (s *Store) save(keys keyFile) error {
	if err := os.MkdirAll(s.configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(keys, "", "  ")
	if err != nil {
		return err
	}

	// Owner read/write only.
	if err := os.WriteFile(s.Path(), data, 0600); err != nil {
		return fmt.Errorf("failed to write keys.json: %w", err)
	}
	return nil
}

func (s *Store) Set(svc Service, key string) error {
	if _, ok := envVars[svc]; !ok {
		return fmt.Errorf("%w %q", ErrUnknownService, svc)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("key must not be empty")
	}

	keys, err := s.load()
	if err != nil {
		return err
	}
	keys[svc] = entry{Key: key}
	return s.save(keys)
}

// Get returns "" without error when no key is stored.
func (s *Store) Get(svc Service) (string, error) {
	keys, err := s.load()
	if err != nil {
		return "", err
	}
	return keys[svc].Key, nil
}

func (s *Store) Delete(svc Service) error {
	keys, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := keys[svc]; !ok {
		return fmt.Errorf("%w for %s", ErrKeyNotFound, svc)
	}
	delete(keys, svc)
	return s.save(keys)
}

// List returns the services with a stored key, sorted.
func (s *Store) List() ([]Service, error) {
	keys, err := s.load()
	if err != nil {
		return nil, err
	}
	services := make([]Service, 0, len(keys))
	for svc := range keys {
		services = append(services, svc)
	}
	sort.Slice(services, func(i, j int) bool { return services[i] < services[j] })
	return services, nil
}

func MaskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// Resolve picks the key for svc: a stored key wins over the environment.
// source describes where it came from and is empty when there is no key.
// store may be nil.
func Resolve(store *Store, svc Service, getenv func(string) string) (key, source string) {
	if store != nil {
		if stored, err := store.Get(svc); err == nil && stored != "" {
			return stored, "stored key (" + store.Path() + ")"
		}
	}
	if v := getenv(svc.EnvVar()); v != "" {
		return v, "environment variable (" + svc.EnvVar() + ")"
	}
	return "", ""
}
