// Package console implements the command line console for the GraphQL
// engine. Every command runs against an ExecutionContext carrying the
// project configuration, the engine clients and the services built on them.
package console

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/briandowns/spinner"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"golang.org/x/term"

	_ "github.com/hasura/graphql-engine/console/internal/datasource/mysql"
	_ "github.com/hasura/graphql-engine/console/internal/datasource/postgres"
	"github.com/hasura/graphql-engine/console/internal/hasura"
	"github.com/hasura/graphql-engine/console/internal/hasura/v1graphql"
	"github.com/hasura/graphql-engine/console/internal/hasura/v1metadata"
	"github.com/hasura/graphql-engine/console/internal/hasura/v1version"
	"github.com/hasura/graphql-engine/console/internal/hasura/v2query"
	"github.com/hasura/graphql-engine/console/internal/httpc"
	"github.com/hasura/graphql-engine/console/internal/migration"
)

const XHasuraAdminSecret = "X-Hasura-Admin-Secret"

type ExecutionContext struct {
	// CMDName is os.Args[0], used when rendering examples.
	CMDName string
	// ID identifies this execution.
	ID string

	Spinner *spinner.Spinner
	Logger  *logrus.Logger
	// Stdout receives command output, logs go to stderr.
	Stdout io.Writer
	// Fs is the filesystem config, env and migration files live on.
	Fs afero.Fs

	ExecutionDirectory string
	// Envfile is loaded relative to ExecutionDirectory.
	Envfile    string
	ConfigFile string
	// MigrationDir is the absolute migrations directory.
	MigrationDir string

	Config *Config

	GlobalConfigDir  string
	GlobalConfigFile string
	GlobalConfig     *GlobalConfig

	Version *Version
	// HasMetadataV3 is true when the server supports multiple sources.
	HasMetadataV3 bool

	Viper    *viper.Viper
	LogLevel string
	NoColor  bool
	// AssumeYes answers every confirmation with yes.
	AssumeYes bool

	IsTerminal bool

	HGEHeaders map[string]string
	APIClient  *hasura.Client

	// Services is set by Validate.
	Services *Services
}

func NewExecutionContext() *ExecutionContext {
	return &ExecutionContext{
		Fs:      afero.NewOsFs(),
		Viper:   viper.New(),
		Envfile: ".env",
		Stdout:  os.Stdout,
	}
}

// Prepare fills in the defaults that do not need a project: logger,
// spinner, version and global config.
func (ec *ExecutionContext) Prepare() error {
	if ec.CMDName == "" {
		ec.CMDName = "hge-console"
		if len(os.Args) > 0 && os.Args[0] != "" {
			ec.CMDName = filepath.Base(os.Args[0])
		}
	}
	if ec.Fs == nil {
		ec.Fs = afero.NewOsFs()
	}
	if ec.Viper == nil {
		ec.Viper = viper.New()
	}
	if ec.Stdout == nil {
		ec.Stdout = os.Stdout
	}
	ec.IsTerminal = term.IsTerminal(int(os.Stdout.Fd()))

	ec.setupSpinner()
	ec.setupLogger()
	if ec.Version == nil {
		ec.Version = NewVersion()
	}
	if err := ec.setupGlobalConfig(); err != nil {
		return errors.Wrap(err, "setting up global config failed")
	}
	if ec.Config == nil {
		ec.Config = &Config{}
	}
	if ec.ID == "" {
		id := "00000000-0000-0000-0000-000000000000"
		u, err := uuid.NewV4()
		if err == nil {
			id = u.String()
		} else {
			ec.Logger.Debugf("generating uuid for execution ID failed, %v", err)
		}
		ec.ID = id
		ec.Logger.Debugf("execution id: %v", ec.ID)
	}
	return nil
}

// Validate reads the project configuration, builds the engine clients and
// checks the server version.
func (ec *ExecutionContext) Validate(ctx context.Context) error {
	if ec.ExecutionDirectory == "" {
		wd, err := os.Getwd()
		if err != nil {
			return errors.Wrap(err, "cannot get current directory")
		}
		ec.ExecutionDirectory = wd
	}
	if err := ec.loadEnvfile(); err != nil {
		return errors.Wrap(err, "loading .env file failed")
	}
	ec.ConfigFile = filepath.Join(ec.ExecutionDirectory, ConfigFileName)
	if err := ec.readConfig(); err != nil {
		return errors.Wrap(err, "cannot read config")
	}

	ec.MigrationDir = ec.Config.MigrationsDirectory
	if !filepath.IsAbs(ec.MigrationDir) {
		ec.MigrationDir = filepath.Join(ec.ExecutionDirectory, ec.MigrationDir)
	}
	if ec.Config.MigrationMode == migration.ModeMigrations {
		if err := ec.Fs.MkdirAll(ec.MigrationDir, os.ModePerm); err != nil {
			return errors.Wrap(err, "cannot create migrations directory")
		}
	}

	ec.Logger.Debug("graphql engine endpoint: ", ec.Config.Endpoint)
	if ec.Config.AdminSecret != "" {
		ec.HGEHeaders = map[string]string{XHasuraAdminSecret: ec.Config.AdminSecret}
	}
	if err := ec.setupAPIClient(); err != nil {
		return errors.Wrap(err, "setting up engine clients failed")
	}
	if err := ec.checkServerVersion(ctx); err != nil {
		return errors.Wrap(err, "version check")
	}
	ec.Services = NewServices(ec)
	return nil
}

func (ec *ExecutionContext) setupAPIClient() error {
	server := ec.Config.ServerConfig
	tlsConfig, err := httpc.GenerateTLSConfig(server.CAPath, server.InsecureSkipTLSVerify)
	if err != nil {
		return err
	}
	client, err := httpc.New(httpc.NewHTTPClientWithTLSConfig(tlsConfig), server.BaseURL(), ec.HGEHeaders)
	if err != nil {
		return err
	}
	ec.APIClient = &hasura.Client{
		V1Metadata: v1metadata.New(client, server.APIPaths.Metadata),
		V2Query:    v2query.New(client, server.APIPaths.Query),
		V1Version:  v1version.New(client, server.APIPaths.Version),
		V1Graphql:  v1graphql.New(client, server.APIPaths.GraphQL),
	}
	return nil
}

func (ec *ExecutionContext) checkServerVersion(ctx context.Context) error {
	v, err := ec.APIClient.V1Version.GetVersion(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get version from server")
	}
	ec.Version.SetServerVersion(v.Version)
	compatible, reason := ec.Version.CheckServerCompatibility()
	ec.Logger.Debugf("versions: console: [%s] server: [%s]", ec.Version.CLI, ec.Version.Server)
	ec.Logger.Debugf("compatibility check: [%v] %v", compatible, reason)
	if !compatible {
		ec.Logger.Warnf("[console: %s] [server: %s] version mismatch: %s", ec.Version.CLI, ec.Version.Server, reason)
	}
	ec.HasMetadataV3, err = ec.Version.HasMetadataV3()
	return err
}

func (ec *ExecutionContext) setupSpinner() {
	if ec.Spinner == nil {
		spnr := spinner.New(spinner.CharSets[7], 100*time.Millisecond)
		spnr.Writer = os.Stderr
		ec.Spinner = spnr
	}
}

// Spin replaces the running spinner with one showing message.
func (ec *ExecutionContext) Spin(message string) {
	if ec.IsTerminal {
		ec.Spinner.Stop()
		ec.Spinner.Prefix = message
		ec.Spinner.Start()
	} else {
		ec.Logger.Println(message)
	}
}

func (ec *ExecutionContext) loadEnvfile() error {
	envfile := filepath.Join(ec.ExecutionDirectory, ec.Envfile)
	f, err := ec.Fs.Open(envfile)
	if err != nil {
		// only a user provided envfile has to exist
		if ec.Envfile != ".env" {
			return err
		}
		if !os.IsNotExist(err) {
			ec.Logger.Warn(err)
		}
		return nil
	}
	defer f.Close()
	env, err := gotenv.StrictParse(f)
	if err != nil {
		return err
	}
	for k, v := range env {
		if _, set := os.LookupEnv(k); set {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return err
		}
	}
	ec.Logger.Debug("ENV vars read from: ", envfile)
	return nil
}

func (ec *ExecutionContext) setupLogger() {
	if ec.Logger == nil {
		ec.Logger = logrus.New()
	}
	if ec.LogLevel != "" {
		level, err := logrus.ParseLevel(ec.LogLevel)
		if err != nil {
			ec.Logger.WithError(err).Error("error parsing log-level flag")
			return
		}
		ec.Logger.SetLevel(level)
	}
	ec.Logger.Hooks = make(logrus.LevelHooks)
	ec.Logger.AddHook(newSpinnerHandlerHook(ec.Logger, ec.Spinner, ec.IsTerminal, ec.NoColor))
}

// Confirm asks a yes/no question. Without a terminal the answer is no
// unless AssumeYes is set.
func (ec *ExecutionContext) Confirm(message string) bool {
	if ec.AssumeYes {
		return true
	}
	if !ec.IsTerminal {
		ec.Logger.Warnf("%s: no terminal to confirm on, pass --yes to proceed", message)
		return false
	}
	ec.Spinner.Stop()
	answer := false
	if err := survey.AskOne(&survey.Confirm{Message: message}, &answer); err != nil {
		ec.Logger.WithError(err).Debug("reading confirmation failed")
		return false
	}
	return answer
}
