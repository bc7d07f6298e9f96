package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hasura/graphql-engine/console"
	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/migration"
	"github.com/hasura/graphql-engine/console/internal/schema"
)

func NewSchemaCmd(ec *console.ExecutionContext) *cobra.Command {
	var source string
	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Change database schemas through reversible migrations",
		Long: `Every change runs as SQL on the data source together with the SQL undoing it.
In the migrations mode both end up in the migrations directory.`,
		SilenceUsage: true,
	}
	schemaCmd.PersistentFlags().StringVar(&source, "source", "", "data source to change (default: the selected one)")
	schemaCmd.AddCommand(
		newSchemaCreateCmd(ec, &source),
		newSchemaDropCmd(ec, &source),
		newSchemaAddColumnCmd(ec, &source),
		newSchemaDropColumnCmd(ec, &source),
		newSchemaRenameColumnCmd(ec, &source),
		newSchemaCommentCmd(ec, &source),
	)
	return schemaCmd
}

// runSchemaChange loads the metadata so sources resolve, then runs change.
func runSchemaChange(cmd *cobra.Command, ec *console.ExecutionContext, op errors.Op, change func(svc *schema.Service) (*migration.Result, error)) error {
	if _, err := loadMetadata(cmd.Context(), ec); err != nil {
		return errors.E(op, err)
	}
	res, err := change(ec.Services.Schema)
	if err != nil {
		return errors.E(op, err)
	}
	reportMigration(ec, res)
	return nil
}

func newSchemaCreateCmd(ec *console.ExecutionContext, source *string) *cobra.Command {
	return &cobra.Command{
		Use:   "create <schema>",
		Short: "Create a schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaChange(cmd, ec, "commands.schemaCreate", func(svc *schema.Service) (*migration.Result, error) {
				return svc.CreateSchema(cmd.Context(), *source, args[0])
			})
		},
	}
}

func newSchemaDropCmd(ec *console.ExecutionContext, source *string) *cobra.Command {
	return &cobra.Command{
		Use:   "drop <schema>",
		Short: "Drop a schema with everything in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var op errors.Op = "commands.schemaDrop"
			if !ec.Confirm(fmt.Sprintf("Are you sure you want to drop the schema %q with everything in it?", args[0])) {
				return cancelled(ec, errors.E(op, errors.KindCancelled, "schema drop declined"))
			}
			return runSchemaChange(cmd, ec, op, func(svc *schema.Service) (*migration.Result, error) {
				return svc.DropSchema(cmd.Context(), *source, args[0])
			})
		},
	}
}

func newSchemaAddColumnCmd(ec *console.ExecutionContext, source *string) *cobra.Command {
	var col schema.Column
	cmd := &cobra.Command{
		Use:   "add-column <schema.table> <column>",
		Short: "Add a column to a table",
		Example: `  # Add a nullable text column with a default
  hge-console schema add-column public.orders note --type text --nullable --default none`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var op errors.Op = "commands.schemaAddColumn"
			table, err := parseQualifiedTable(args[0])
			if err != nil {
				return errors.E(op, err)
			}
			col.Name = args[1]
			return runSchemaChange(cmd, ec, op, func(svc *schema.Service) (*migration.Result, error) {
				return svc.AddColumn(cmd.Context(), *source, table, col)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&col.Type, "type", "", "column type")
	f.BoolVar(&col.Nullable, "nullable", false, "allow null values")
	f.BoolVar(&col.Unique, "unique", false, "add a unique constraint")
	f.StringVar(&col.Default, "default", "", "default value or SQL function")
	return cmd
}

func newSchemaDropColumnCmd(ec *console.ExecutionContext, source *string) *cobra.Command {
	return &cobra.Command{
		Use:   "drop-column <schema.table> <column>",
		Short: "Drop a column of a table",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var op errors.Op = "commands.schemaDropColumn"
			table, err := parseQualifiedTable(args[0])
			if err != nil {
				return errors.E(op, err)
			}
			if !ec.Confirm(fmt.Sprintf("Are you sure you want to drop the column %q of %s?", args[1], args[0])) {
				return cancelled(ec, errors.E(op, errors.KindCancelled, "column drop declined"))
			}
			return runSchemaChange(cmd, ec, op, func(svc *schema.Service) (*migration.Result, error) {
				return svc.DropColumn(cmd.Context(), *source, table, args[1])
			})
		},
	}
}

func newSchemaRenameColumnCmd(ec *console.ExecutionContext, source *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rename-column <schema.table> <column> <new-name>",
		Short: "Rename a column of a table",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var op errors.Op = "commands.schemaRenameColumn"
			table, err := parseQualifiedTable(args[0])
			if err != nil {
				return errors.E(op, err)
			}
			return runSchemaChange(cmd, ec, op, func(svc *schema.Service) (*migration.Result, error) {
				return svc.RenameColumn(cmd.Context(), *source, table, args[1], args[2])
			})
		},
	}
}

func newSchemaCommentCmd(ec *console.ExecutionContext, source *string) *cobra.Command {
	var column string
	cmd := &cobra.Command{
		Use:   "comment <schema.table> <comment>",
		Short: "Set the comment of a table or of one of its columns",
		Long:  "Set the comment of a table or, with --column, of one of its columns. An empty comment removes it.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var op errors.Op = "commands.schemaComment"
			table, err := parseQualifiedTable(args[0])
			if err != nil {
				return errors.E(op, err)
			}
			return runSchemaChange(cmd, ec, op, func(svc *schema.Service) (*migration.Result, error) {
				return svc.SetComment(cmd.Context(), *source, table, column, args[1])
			})
		},
	}
	cmd.Flags().StringVar(&column, "column", "", "comment on this column instead of the table")
	return cmd
}
