package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/hasura/graphql-engine/console"
	"github.com/hasura/graphql-engine/console/internal/apiserver"
	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/migration"
)

type serveOptions struct {
	EC *console.ExecutionContext

	address   string
	apiPort   string
	staticDir string
	cdnAssets string
	serveOpts apiserver.ServeOpts
}

func NewServeCmd(ec *console.ExecutionContext) *cobra.Command {
	opts := &serveOptions{EC: ec}
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local API the web console writes migrations through",
		Long: `Run the local API server. Every change posted to it is applied to the GraphQL
engine and written to the migrations directory, whatever the configured migration mode.`,
		Example: `  # Serve on the default port and open the console:
  hge-console serve

  # Serve on another port without a browser:
  hge-console serve --api-port 9700 --no-browser`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd)
		},
	}
	f := serveCmd.Flags()
	f.StringVar(&opts.address, "address", "localhost", "address to serve the API on")
	f.StringVar(&opts.apiPort, "api-port", "9693", "port to serve the API on")
	f.StringVar(&opts.staticDir, "static-dir", "", "directory with console assets served under /static")
	f.StringVar(&opts.cdnAssets, "cdn-assets", apiserver.DefaultCDNAssets, "base url the console page loads its bundles from")
	f.BoolVar(&opts.serveOpts.DontOpenBrowser, "no-browser", false, "do not open the console in a browser")
	f.StringVar(&opts.serveOpts.Browser, "browser", "", "open the console in this browser")
	f.StringVar(&opts.serveOpts.ConsoleURL, "console-url", "", "url opened in the browser (default: the API address)")
	return serveCmd
}

func (o *serveOptions) run(cmd *cobra.Command) error {
	var op errors.Op = "commands.serveOptions.run"
	ec := o.EC
	if err := ec.Fs.MkdirAll(ec.MigrationDir, os.ModePerm); err != nil {
		return errors.E(op, err)
	}
	services := ec.Services
	pipeline := migration.NewPipeline(ec.APIClient.V1Metadata, services.Store, services.Notifier, ec.Logger, migration.Config{
		Mode:  migration.ModeMigrations,
		Dir:   ec.MigrationDir,
		Fs:    ec.Fs,
		Query: ec.APIClient.V2Query,
	})
	server := apiserver.New(apiserver.Options{
		Address:   o.address,
		Port:      o.apiPort,
		StaticDir: o.staticDir,
		Console: &apiserver.ConsolePage{
			APIHost:       "http://" + o.address,
			APIPort:       o.apiPort,
			DataAPIURL:    ec.Config.Endpoint,
			AdminSecret:   ec.Config.AdminSecret,
			CLIVersion:    ec.Version.CLI,
			ServerVersion: ec.Version.Server,
			AssetsVersion: ec.Version.AssetsVersion(),
			CDNAssets:     o.cdnAssets,
		},
		Runner:   pipeline,
		Exporter: services.Metadata,
		Sources:  services.Sources,
		Notifier: services.Notifier,
		Logger:   ec.Logger,
	})
	if err := server.Serve(cmd.Context(), o.serveOpts); err != nil {
		return errors.E(op, err)
	}
	return nil
}
