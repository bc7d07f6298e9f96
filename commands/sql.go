package commands

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hasura/graphql-engine/console"
	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura"
	"github.com/hasura/graphql-engine/console/internal/rawsql"
)

func NewSQLCmd(ec *console.ExecutionContext) *cobra.Command {
	sqlCmd := &cobra.Command{
		Use:          "sql",
		Short:        "Run SQL on a connected database",
		SilenceUsage: true,
	}
	sqlCmd.AddCommand(newSQLRunCmd(ec))
	return sqlCmd
}

type sqlRunOptions struct {
	EC *console.ExecutionContext

	file     string
	sql      string
	downFile string
	output   string
	req      rawsql.Request
}

func newSQLRunCmd(ec *console.ExecutionContext) *cobra.Command {
	opts := &sqlRunOptions{EC: ec}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run SQL statements, schema changes are applied as a migration",
		Example: `  # Query a table:
  hge-console sql run --sql "select id, email from users limit 5" --read-only

  # Create a table and track it:
  hge-console sql run --file create_orders.sql --track --name create_orders

  # Give up after 10 seconds:
  hge-console sql run --sql "select pg_sleep(60)" --timeout 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.sql, "sql", "", "SQL to run")
	f.StringVar(&opts.file, "file", "", "file with the SQL to run, - reads stdin")
	f.StringVar(&opts.req.Source, "source", "", "source to run the SQL on (default: the last used source)")
	f.BoolVar(&opts.req.Cascade, "cascade", false, "cascade dropped objects into the metadata")
	f.BoolVar(&opts.req.ReadOnly, "read-only", false, "run in a read only transaction")
	f.BoolVar(&opts.req.IsMigration, "migration", false, "apply the SQL as a migration even without schema changes")
	f.StringVar(&opts.req.MigrationName, "name", rawsql.DefaultMigrationName, "name of the migration")
	f.StringVar(&opts.downFile, "down", "", "file with the SQL reverting the migration")
	f.BoolVar(&opts.req.TrackCreated, "track", false, "track the tables, views and functions the SQL creates")
	f.IntVar(&opts.req.StatementTimeout, "timeout", 0, "statement timeout in seconds, 0 disables it")
	f.StringVarP(&opts.output, "output", "o", "", "output format of returned rows (allowed values: json, yaml)")
	return cmd
}

func (o *sqlRunOptions) run(cmd *cobra.Command) error {
	var op errors.Op = "commands.sqlRunOptions.run"
	req := o.req
	switch {
	case o.sql != "" && o.file != "":
		return errors.E(op, errors.KindBadInput, "--sql and --file cannot be used together")
	case o.file != "":
		b, err := readInput(o.EC, o.file, os.Stdin)
		if err != nil {
			return errors.E(op, errors.KindBadInput, err)
		}
		req.SQL = string(b)
	default:
		req.SQL = o.sql
	}
	if o.downFile != "" {
		b, err := readInput(o.EC, o.downFile, nil)
		if err != nil {
			return errors.E(op, errors.KindBadInput, err)
		}
		req.DownSQL = string(b)
	}
	if _, err := loadMetadata(cmd.Context(), o.EC); err != nil {
		return errors.E(op, err)
	}
	o.EC.Spin("Running SQL...")
	res, err := o.EC.Services.RawSQL.Run(cmd.Context(), req)
	o.EC.Spinner.Stop()
	if err != nil {
		return errors.E(op, err)
	}
	if res.Migration != nil {
		reportMigration(o.EC, res.Migration)
	}
	for _, obj := range res.Tracked {
		o.EC.Logger.WithField("kind", obj.Type).Infof("tracked %s.%s", obj.Schema, obj.Name)
	}
	return o.print(res)
}

// print renders the returned rows, the first row holds the column names.
func (o *sqlRunOptions) print(res *rawsql.Result) error {
	if res.ResultType != hasura.TuplesOK || len(res.Rows) == 0 {
		o.EC.Logger.Info("SQL executed")
		return nil
	}
	if o.output != "" {
		header := res.Rows[0]
		records := make([]map[string]string, 0, len(res.Rows)-1)
		for _, row := range res.Rows[1:] {
			record := make(map[string]string, len(header))
			for i, col := range header {
				if i < len(row) {
					record[col] = row[i]
				}
			}
			records = append(records, record)
		}
		return writeOutput(o.EC.Stdout, o.output, records)
	}
	table := newTableWriter(o.EC.Stdout)
	header := make([]string, len(res.Rows[0]))
	for i, col := range res.Rows[0] {
		header[i] = strings.ToUpper(col)
	}
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.AppendBulk(res.Rows[1:])
	table.Render()
	return nil
}
