package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alyu/configparser"
	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	applog "nunu-cli/internal/log"
	apperrors "nunu-cli/internal/pkg/errors"
)

const envPrefix = "NUNU_"

// Flags carries values given on the command line. Empty means not set.
type Flags struct {
	ConfigPath string
	APIToken   string
	ProjectID  string
	APIURL     string
}

// Loader resolves a Config from, lowest priority first: a config file, a
// .env file in the working directory, NUNU_* environment variables and
// command line flags.
type Loader struct {
	WorkDir       string
	UserConfigDir string
	Environ       func() []string
	Logger        *applog.LogContext
}

// NewLoader creates a loader for the current process
func NewLoader(logger *applog.LogContext) *Loader {
	workDir, _ := os.Getwd()
	userDir, _ := os.UserConfigDir()
	return &Loader{
		WorkDir:       workDir,
		UserConfigDir: userDir,
		Environ:       os.Environ,
		Logger:        logger,
	}
}

// Load merges every source into a Config. Only an explicit --config path
// that cannot be read is an error; discovered files that fail to parse are
// skipped. The result is not validated.
func (l *Loader) Load(flags Flags) (*Config, error) {
	k := koanf.New(".")

	if flags.ConfigPath != "" {
		if err := loadFile(k, flags.ConfigPath); err != nil {
			return nil, apperrors.NewConfigError(fmt.Sprintf("Failed to load config file %s", flags.ConfigPath), err)
		}
		l.Logger.WriteLog("CONFIG", "Loaded config from %s", flags.ConfigPath)
	} else {
		l.loadDiscovered(k)
	}

	l.loadDotEnv(k)

	err := k.Load(env.Provider(".", env.Opt{
		Prefix:      envPrefix,
		EnvironFunc: l.Environ,
		TransformFunc: func(key, value string) (string, any) {
			return envKey(key), value
		},
	}), nil)
	if err != nil {
		return nil, apperrors.NewConfigError("Failed to read environment", err)
	}

	for key, value := range map[string]string{
		"api_token":  flags.APIToken,
		"project_id": flags.ProjectID,
		"api_url":    flags.APIURL,
	} {
		if value != "" {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, apperrors.NewConfigError("Failed to decode configuration", err)
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	l.Logger.WriteLog("CONFIG", "Using API URL: %s, project: %s", cfg.APIURL, cfg.ProjectID)
	return &cfg, nil
}

// Candidates lists the config files tried when no path is given, in order
func (l *Loader) Candidates() []string {
	candidates := []string{
		filepath.Join(l.WorkDir, "nunu.json"),
		filepath.Join(l.WorkDir, ".nunu", "config.json"),
		filepath.Join(l.WorkDir, "config.json"),
		filepath.Join(l.WorkDir, ".config.json"),
	}
	if l.UserConfigDir != "" {
		candidates = append(candidates, filepath.Join(l.UserConfigDir, "nunu", "config.json"))
	}
	return candidates
}

func (l *Loader) loadDiscovered(k *koanf.Koanf) {
	for _, path := range l.Candidates() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := loadFile(k, path); err != nil {
			l.Logger.WriteLog("CONFIG", "Failed to load config from %s: %v", path, err)
			continue
		}
		l.Logger.WriteLog("CONFIG", "Loaded config from %s", path)
		return
	}
	l.Logger.WriteLog("CONFIG", "No config file found, using defaults")
}

// loadDotEnv reads NUNU_* entries of ./.env
func (l *Loader) loadDotEnv(k *koanf.Koanf) {
	path := filepath.Join(l.WorkDir, ".env")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return
	}

	dotEnv := koanf.New(".")
	if err := dotEnv.Load(file.Provider(path), dotenv.Parser()); err != nil {
		l.Logger.WriteLog("CONFIG", "Error loading .env file: %v", err)
		return
	}
	for key, value := range dotEnv.All() {
		if strings.HasPrefix(key, envPrefix) {
			k.Set(envKey(key), value)
		}
	}
	l.Logger.WriteLog("CONFIG", "Loaded environment from %s", path)
}

// envKey maps NUNU_API_TOKEN to api_token
func envKey(key string) string {
	return strings.ToLower(strings.TrimPrefix(key, envPrefix))
}

// loadFile picks a parser from the file extension: .yaml/.yml, .ini
// (section [nunu]) or JSON for anything else
func loadFile(k *koanf.Koanf, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return k.Load(file.Provider(path), yaml.Parser())
	case ".ini":
		return loadINI(k, path)
	default:
		return k.Load(file.Provider(path), json.Parser())
	}
}

func loadINI(k *koanf.Koanf, path string) error {
	configparser.Delimiter = "="
	ini, err := configparser.Read(path)
	if err != nil {
		return err
	}
	section, err := ini.Section("nunu")
	if err != nil {
		return err
	}
	for key, value := range section.Options() {
		k.Set(strings.ToLower(strings.TrimSpace(key)), strings.TrimSpace(value))
	}
	return nil
}
