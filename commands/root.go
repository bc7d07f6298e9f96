// Package commands contains the definition for all the commands present in
// the hge-console command line tool.
package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/hasura/graphql-engine/console"
)

// skipValidation is set on commands which work without a reachable engine.
const skipValidation = "skip-validation"

// NewRootCmd builds the "hge-console" command tree around ec.
func NewRootCmd(ec *console.ExecutionContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "hge-console",
		Short:         "Manage the metadata of a GraphQL engine from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := ec.Prepare(); err != nil {
				return err
			}
			if cmd.Annotations[skipValidation] == "true" {
				return nil
			}
			return ec.Validate(cmd.Context())
		},
	}
	rootCmd.AddCommand(
		NewSourcesCmd(ec),
		NewMetadataCmd(ec),
		NewActionsCmd(ec),
		NewEventTriggersCmd(ec),
		NewSQLCmd(ec),
		NewAllowListCmd(ec),
		NewEventsCmd(ec),
		NewSchemaCmd(ec),
		NewGraphQLCmd(ec),
		NewMigrateCmd(ec),
		NewServeCmd(ec),
		NewVersionCmd(ec),
	)

	f := rootCmd.PersistentFlags()
	f.StringVar(&ec.LogLevel, "log-level", "INFO", "log level (DEBUG, INFO, WARN, ERROR, FATAL)")
	f.StringVar(&ec.ExecutionDirectory, "project", "", "directory where commands are executed (default: current dir)")
	f.StringVar(&ec.Envfile, "envfile", ".env", "dotenv file to load environment variables from, relative to the project directory")
	f.BoolVar(&ec.NoColor, "no-color", false, "do not colorize output (default: false)")
	f.BoolVarP(&ec.AssumeYes, "yes", "y", false, "answer yes to every confirmation")

	f.String("endpoint", "", "http(s) endpoint for the GraphQL engine")
	f.String("admin-secret", "", "admin secret for the GraphQL engine")
	f.Bool("insecure-skip-tls-verify", false, "skip TLS verification and disable cert checking (default: false)")
	f.String("certificate-authority", "", "path to a cert file for the certificate authority")
	f.String("migration-mode", "", "how metadata changes are applied (direct, migrations)")
	bindPFlag(ec.Viper, "endpoint", f.Lookup("endpoint"))
	bindPFlag(ec.Viper, "admin_secret", f.Lookup("admin-secret"))
	bindPFlag(ec.Viper, "insecure_skip_tls_verify", f.Lookup("insecure-skip-tls-verify"))
	bindPFlag(ec.Viper, "certificate_authority", f.Lookup("certificate-authority"))
	bindPFlag(ec.Viper, "migration_mode", f.Lookup("migration-mode"))

	return rootCmd
}

// Execute runs the command line with a fresh execution context.
func Execute(ctx context.Context) error {
	ec := console.NewExecutionContext()
	err := NewRootCmd(ec).ExecuteContext(ctx)
	if ec.Spinner != nil {
		ec.Spinner.Stop()
	}
	return err
}
