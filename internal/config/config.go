// Package config layers defaults, .betarelease.yaml, BETARELEASE_* environment
// variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/thiagokokada/betarelease/internal/git/backend"
)

const (
	EnvPrefix = "BETARELEASE"
	FileName  = ".betarelease"
)

const (
	KeyConfig     = "config"
	KeyWorkDir    = "workdir"
	KeyMaster     = "master"
	KeyRemote     = "remote"
	KeyDryRun     = "dry-run"
	KeyVerbose    = "verbose"
	KeyReportAll  = "report-all"
	KeyUntracked  = "untracked"
	KeyVar        = "var"
	KeyHashVar    = "hash-var"
	KeyBackend    = "backend"
	KeyColor      = "color"
	KeyTheme      = "theme"
	KeyGithubDump = "github-dump"
)

var (
	colorModes = []string{"auto", "always", "never"}
	themes     = []string{"auto", "light", "dark"}
)

type Config struct {
	File string // config file in use, empty when none was found

	WorkDir   string
	Master    string
	Remote    string
	DryRun    bool
	Verbose   bool
	ReportAll bool
	Untracked bool

	Var     string
	HashVar string
	Backend backend.Kind

	Color string
	Theme string

	GithubDump string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyWorkDir, ".")
	v.SetDefault(KeyMaster, "master")
	v.SetDefault(KeyRemote, "")
	v.SetDefault(KeyDryRun, false)
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyReportAll, false)
	v.SetDefault(KeyUntracked, false)
	v.SetDefault(KeyVar, "__version__")
	v.SetDefault(KeyHashVar, "__hash__")
	v.SetDefault(KeyBackend, string(backend.KindNative))
	v.SetDefault(KeyColor, "auto")
	v.SetDefault(KeyTheme, "auto")
}

// Load resolves the configuration. Flags that were not set on the command
// line fall back to the environment, then to the config file, then to the
// defaults.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv(KeyGithubDump, "GITHUB_DUMP"); err != nil {
		return nil, err
	}
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if file := v.GetString(KeyConfig); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(v.GetString(KeyWorkDir))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		File:       v.ConfigFileUsed(),
		WorkDir:    v.GetString(KeyWorkDir),
		Master:     v.GetString(KeyMaster),
		Remote:     v.GetString(KeyRemote),
		DryRun:     v.GetBool(KeyDryRun),
		Verbose:    v.GetBool(KeyVerbose),
		ReportAll:  v.GetBool(KeyReportAll),
		Untracked:  v.GetBool(KeyUntracked),
		Var:        v.GetString(KeyVar),
		HashVar:    v.GetString(KeyHashVar),
		Backend:    backend.Kind(strings.ToLower(v.GetString(KeyBackend))),
		Color:      strings.ToLower(v.GetString(KeyColor)),
		Theme:      strings.ToLower(v.GetString(KeyTheme)),
		GithubDump: v.GetString(KeyGithubDump),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case backend.KindNative, backend.KindGitCLI:
	default:
		return fmt.Errorf("invalid %s %q (valid values: %s, %s)", KeyBackend, c.Backend, backend.KindNative, backend.KindGitCLI)
	}
	if !slices.Contains(colorModes, c.Color) {
		return fmt.Errorf("invalid %s %q (valid values: %s)", KeyColor, c.Color, strings.Join(colorModes, ", "))
	}
	if !slices.Contains(themes, c.Theme) {
		return fmt.Errorf("invalid %s %q (valid values: %s)", KeyTheme, c.Theme, strings.Join(themes, ", "))
	}
	if strings.TrimSpace(c.Master) == "" {
		return fmt.Errorf("%s must not be empty", KeyMaster)
	}
	if strings.TrimSpace(c.Var) == "" || strings.TrimSpace(c.HashVar) == "" {
		return fmt.Errorf("%s and %s must not be empty", KeyVar, KeyHashVar)
	}
	return nil
}

// ResolveWorkDir returns the absolute work dir.
func (c *Config) ResolveWorkDir() (string, error) {
	return filepath.Abs(c.WorkDir)
}

// ResolveInitFile returns path as an absolute path. Relative paths are taken
// from the current directory, not the work dir.
func (c *Config) ResolveInitFile(path string) (string, error) {
	return filepath.Abs(path)
}
