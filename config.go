package console

import (
	"net/url"
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/hasura/graphql-engine/console/internal/migration"
)

const (
	ConfigFileName             = "config.yaml"
	DefaultMigrationsDirectory = "migrations"
	DefaultEndpoint            = "http://localhost:8080"

	// ViperEnvPrefix prefixes every config key read from the environment,
	// api_paths.metadata becomes HGE_CONSOLE_API_PATHS_METADATA.
	ViperEnvPrefix = "HGE_CONSOLE"
)

var ViperEnvReplacer = strings.NewReplacer(".", "_")

type ServerAPIPaths struct {
	Metadata string `yaml:"metadata,omitempty"`
	Query    string `yaml:"query,omitempty"`
	Version  string `yaml:"version,omitempty"`
	GraphQL  string `yaml:"graphql,omitempty"`
}

type ServerConfig struct {
	Endpoint    string          `yaml:"endpoint"`
	AdminSecret string          `yaml:"admin_secret,omitempty"`
	APIPaths    *ServerAPIPaths `yaml:"api_paths,omitempty"`
	// InsecureSkipTLSVerify disables TLS verification of the endpoint.
	InsecureSkipTLSVerify bool   `yaml:"insecure_skip_tls_verify,omitempty"`
	CAPath                string `yaml:"certificate_authority,omitempty"`

	ParsedEndpoint *url.URL `yaml:"-"`
}

func (s *ServerConfig) ParseEndpoint() error {
	u, err := url.ParseRequestURI(s.Endpoint)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Errorf("endpoint %q must be an http or https url", s.Endpoint)
	}
	s.ParsedEndpoint = u
	return nil
}

// BaseURL is the endpoint with a trailing slash, api paths are resolved
// against it.
func (s *ServerConfig) BaseURL() string {
	u := *s.ParsedEndpoint
	if !strings.HasSuffix(u.Path, "/") {
		u.Path = path.Clean(u.Path) + "/"
		if u.Path == "./" {
			u.Path = "/"
		}
	}
	return u.String()
}

type Config struct {
	ServerConfig `yaml:",inline"`

	MigrationsDirectory string         `yaml:"migrations_directory,omitempty"`
	MigrationMode       migration.Mode `yaml:"migration_mode,omitempty"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("endpoint", DefaultEndpoint)
	v.SetDefault("admin_secret", "")
	v.SetDefault("api_paths.metadata", "v1/metadata")
	v.SetDefault("api_paths.query", "v2/query")
	v.SetDefault("api_paths.version", "v1/version")
	v.SetDefault("api_paths.graphql", "v1/graphql")
	v.SetDefault("migrations_directory", DefaultMigrationsDirectory)
	v.SetDefault("migration_mode", string(migration.ModeDirect))
	v.SetDefault("insecure_skip_tls_verify", false)
	v.SetDefault("certificate_authority", "")
}

// readConfig merges config.yaml, HGE_CONSOLE_* env vars and the bound
// flags. A missing config file is not an error.
func (ec *ExecutionContext) readConfig() error {
	v := ec.Viper
	v.SetEnvPrefix(ViperEnvPrefix)
	v.SetEnvKeyReplacer(ViperEnvReplacer)
	v.AutomaticEnv()
	v.SetConfigName(strings.TrimSuffix(ConfigFileName, path.Ext(ConfigFileName)))
	v.SetConfigType("yaml")
	v.SetFs(ec.Fs)
	v.AddConfigPath(ec.ExecutionDirectory)
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return errors.Wrap(err, "cannot read config from file/env")
		}
		ec.Logger.Debug("no config file found, using flags, env vars and defaults")
	}

	mode, err := migration.ParseMode(v.GetString("migration_mode"))
	if err != nil {
		return err
	}
	ec.Config = &Config{
		ServerConfig: ServerConfig{
			Endpoint:    v.GetString("endpoint"),
			AdminSecret: v.GetString("admin_secret"),
			APIPaths: &ServerAPIPaths{
				Metadata: v.GetString("api_paths.metadata"),
				Query:    v.GetString("api_paths.query"),
				Version:  v.GetString("api_paths.version"),
				GraphQL:  v.GetString("api_paths.graphql"),
			},
			InsecureSkipTLSVerify: v.GetBool("insecure_skip_tls_verify"),
			CAPath:                v.GetString("certificate_authority"),
		},
		MigrationsDirectory: v.GetString("migrations_directory"),
		MigrationMode:       mode,
	}
	if err := ec.Config.ServerConfig.ParseEndpoint(); err != nil {
		return errors.Wrap(err, "unable to parse server endpoint")
	}
	return nil
}

// WriteConfig writes config, or ec.Config when nil, to the project's
// config.yaml.
func (ec *ExecutionContext) WriteConfig(config *Config) error {
	cfg := config
	if cfg == nil {
		cfg = ec.Config
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	return afero.WriteFile(ec.Fs, ec.ConfigFile, b, 0644)
}
