// Package config loads the namedsql command configuration from flags, the
// environment, a .namedsql.yaml file and .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Name is the config file name without extension.
const Name = ".namedsql"

// EnvPrefix prefixes the environment variables read by viper.
const EnvPrefix = "NAMEDSQL"

// Config holds the command configuration.
type Config struct {
	Dialect     string   `yaml:"dialect" json:"dialect"`
	Path        string   `yaml:"path" json:"path"`
	DatabaseURL string   `yaml:"database_url" json:"database_url"`
	Format      string   `yaml:"format" json:"format"`
	Package     string   `yaml:"package" json:"package"`
	Extensions  []string `yaml:"extensions" json:"extensions"`
	Concurrency int      `yaml:"concurrency" json:"concurrency"`

	// File is the config file that was read, if any.
	File string `yaml:"-" json:"file,omitempty"`
}

// Loader reads a Config.
type Loader struct {
	// Fs is the filesystem config and .env files are read from.
	Fs afero.Fs
	// Dir is searched first for config and .env files.
	Dir string
	// Flags, when set, override every other source for the keys they bind.
	Flags *pflag.FlagSet
	// Getenv looks up process environment variables.
	Getenv func(string) string
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"dialect":     "dialect",
	"path":        "path",
	"db":          "database_url",
	"format":      "format",
	"package":     "package",
	"ext":         "extensions",
	"concurrency": "concurrency",
}

// Load reads the configuration with the default loader: the OS filesystem,
// the working directory and the process environment.
func Load(flags *pflag.FlagSet) (*Config, error) {
	return (&Loader{Flags: flags}).Load()
}

// Load reads the configuration. Precedence, highest first: flags,
// NAMEDSQL_* variables, the config file, defaults. DATABASE_URL is used when
// no database URL is configured, with .env.local overriding the process
// environment and .env filling in only what is unset.
func (l *Loader) Load() (*Config, error) {
	fs := l.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	dir := l.Dir
	if dir == "" {
		dir = "."
	}
	getenv := l.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	v := viper.New()
	v.SetFs(fs)
	v.SetConfigName(Name)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if home, err := homedir.Dir(); err == nil {
		v.AddConfigPath(home)
		v.AddConfigPath(filepath.Join(home, ".config", "namedsql"))
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("dialect", "sqlite")
	v.SetDefault("path", "queries")
	v.SetDefault("format", "text")
	v.SetDefault("package", "queries")
	v.SetDefault("extensions", []string{".sql"})
	v.SetDefault("concurrency", 0)

	if l.Flags != nil {
		for name, key := range flagKeys {
			f := l.Flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("config: bind flag %q: %w", name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	cfg := &Config{
		Dialect:     v.GetString("dialect"),
		Path:        v.GetString("path"),
		DatabaseURL: v.GetString("database_url"),
		Format:      v.GetString("format"),
		Package:     v.GetString("package"),
		Extensions:  v.GetStringSlice("extensions"),
		Concurrency: v.GetInt("concurrency"),
		File:        v.ConfigFileUsed(),
	}
	if cfg.DatabaseURL == "" {
		url, err := databaseURL(fs, dir, getenv)
		if err != nil {
			return nil, err
		}
		cfg.DatabaseURL = url
	}
	return cfg, nil
}

func databaseURL(fs afero.Fs, dir string, getenv func(string) string) (string, error) {
	local, err := readEnv(fs, filepath.Join(dir, ".env.local"))
	if err != nil {
		return "", err
	}
	if url := local["DATABASE_URL"]; url != "" {
		return url, nil
	}
	if url := getenv("DATABASE_URL"); url != "" {
		return url, nil
	}
	env, err := readEnv(fs, filepath.Join(dir, ".env"))
	if err != nil {
		return "", err
	}
	return env["DATABASE_URL"], nil
}

// readEnv parses a dotenv file. A missing file yields no values.
func readEnv(fs afero.Fs, path string) (map[string]string, error) {
	if ok, err := afero.Exists(fs, path); err != nil || !ok {
		return nil, err
	}
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()
	env, err := godotenv.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return env, nil
}
