package commands

import (
	"github.com/spf13/cobra"

	"github.com/hasura/graphql-engine/console"
	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/migration"
)

func NewMigrateCmd(ec *console.ExecutionContext) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Manage the migrations written for metadata changes",
		SilenceUsage: true,
	}
	migrateCmd.AddCommand(newMigrateResetCmd(ec))
	return migrateCmd
}

func newMigrateResetCmd(ec *console.ExecutionContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete every migration file and the recorded migration versions",
		Long: `Delete every file in the migrations directory and the migration versions recorded
on the server. The metadata of the server is left untouched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var op errors.Op = "commands.migrateReset"
			if !ec.Confirm("This will delete every migration in " + ec.MigrationDir + ". Continue?") {
				ec.Logger.Info("cancelled")
				return nil
			}
			ec.Spin("Removing migrations...")
			err := migration.Reset(cmd.Context(), ec.Fs, ec.MigrationDir, ec.Services.State, ec.Logger)
			ec.Spinner.Stop()
			if err != nil {
				return errors.E(op, err)
			}
			ec.Logger.Info("migrations reset")
			return nil
		},
	}
}
