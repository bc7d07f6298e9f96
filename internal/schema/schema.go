// Package schema changes database schemas through migrations. Every change
// is a run_sql pair built by the source's driver: the statement and the one
// undoing it.
package schema

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/hasura/graphql-engine/console/internal/datasource"
	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura"
	"github.com/hasura/graphql-engine/console/internal/metadataquery"
	"github.com/hasura/graphql-engine/console/internal/migration"
	"github.com/hasura/graphql-engine/console/internal/rawsql"
)

type Runner interface {
	Run(ctx context.Context, m migration.Migration, msgs migration.Messages, cbs migration.Callbacks) (*migration.Result, error)
}

// Sources resolves source names and introspects tables, *rawsql.Service
// is the usual one.
type Sources interface {
	Resolve(name string) (*rawsql.Target, error)
	FetchTable(ctx context.Context, source string, table datasource.QualifiedTable) (*datasource.Table, error)
}

type Service struct {
	runner   Runner
	sources  Sources
	notifier migration.Notifier
	logger   *logrus.Logger
}

func New(runner Runner, sources Sources, notifier migration.Notifier, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{runner: runner, sources: sources, notifier: notifier, logger: logger}
}

// change is one schema change before it becomes a migration.
type change struct {
	name string
	up   string
	// down is empty when the change cannot be undone.
	down string
	msgs migration.Messages
}

var unsafeName = regexp.MustCompile(`[^\w\-]+`)

func migrationName(parts ...string) string {
	return strings.Trim(unsafeName.ReplaceAllString(strings.Join(parts, "_"), "_"), "_")
}

func (s *Service) run(ctx context.Context, t *rawsql.Target, c change) (*migration.Result, error) {
	var op errors.Op = "schema.Service.run"
	m := migration.Migration{
		Name:   c.name,
		Source: t.Name,
		Query:  true,
		Up:     []hasura.RequestBody{metadataquery.RunSQL(t.Kind, metadataquery.RunSQLArgs{SQL: c.up, Source: t.Name})},
	}
	if c.down != "" {
		m.Down = []hasura.RequestBody{metadataquery.RunSQL(t.Kind, metadataquery.RunSQLArgs{SQL: c.down, Source: t.Name})}
	}
	res, err := s.runner.Run(ctx, m, c.msgs, migration.Callbacks{})
	if err != nil {
		return nil, errors.E(op, err)
	}
	return res, nil
}

func (s *Service) resolve(op errors.Op, source string, msgs migration.Messages) (*rawsql.Target, error) {
	t, err := s.sources.Resolve(source)
	if err != nil {
		return nil, s.fail(op, msgs, err)
	}
	return t, nil
}

func (s *Service) fail(op errors.Op, msgs migration.Messages, err error) error {
	if msgs.Error != "" {
		s.notifier.Error(msgs.Error, "", err)
	}
	return errors.E(op, err)
}

var (
	createSchemaMessages = migration.Messages{Request: "Creating schema...", Success: "Schema created", Error: "Creating schema failed"}
	dropSchemaMessages   = migration.Messages{Request: "Deleting schema...", Success: "Schema deleted", Error: "Deleting schema failed"}
	addColumnMessages    = migration.Messages{Request: "Adding column...", Success: "Column added", Error: "Adding column failed"}
	dropColumnMessages   = migration.Messages{Request: "Deleting column...", Success: "Column deleted", Error: "Deleting column failed"}
	renameColumnMessages = migration.Messages{Request: "Renaming column...", Success: "Column renamed", Error: "Renaming column failed"}
	commentMessages      = migration.Messages{Request: "Updating comment...", Success: "Comment updated", Error: "Updating comment failed"}
)

func (s *Service) CreateSchema(ctx context.Context, source, schema string) (*migration.Result, error) {
	var op errors.Op = "schema.Service.CreateSchema"
	t, err := s.resolve(op, source, createSchemaMessages)
	if err != nil {
		return nil, err
	}
	up, err := t.Driver.CreateSchemaSQL(schema)
	if err != nil {
		return nil, s.fail(op, createSchemaMessages, err)
	}
	down, err := t.Driver.DropSchemaSQL(schema)
	if err != nil {
		return nil, s.fail(op, createSchemaMessages, err)
	}
	return s.run(ctx, t, change{name: migrationName("create_schema", schema), up: up, down: down, msgs: createSchemaMessages})
}

// DropSchema removes schema with everything in it. The down step only
// recreates the empty schema.
func (s *Service) DropSchema(ctx context.Context, source, schema string) (*migration.Result, error) {
	var op errors.Op = "schema.Service.DropSchema"
	t, err := s.resolve(op, source, dropSchemaMessages)
	if err != nil {
		return nil, err
	}
	up, err := t.Driver.DropSchemaSQL(schema)
	if err != nil {
		return nil, s.fail(op, dropSchemaMessages, err)
	}
	down, err := t.Driver.CreateSchemaSQL(schema)
	if err != nil {
		return nil, s.fail(op, dropSchemaMessages, err)
	}
	return s.run(ctx, t, change{name: migrationName("drop_schema", schema), up: up, down: down, msgs: dropSchemaMessages})
}

type Column struct {
	Name     string
	Type     string
	Nullable bool
	Unique   bool
	Default  string
}

func (s *Service) AddColumn(ctx context.Context, source string, table datasource.QualifiedTable, col Column) (*migration.Result, error) {
	var op errors.Op = "schema.Service.AddColumn"
	t, err := s.resolve(op, source, addColumnMessages)
	if err != nil {
		return nil, err
	}
	up, err := t.Driver.AddColumnSQL(table, col.Name, col.Type, &datasource.AddColumnOptions{Nullable: col.Nullable, Unique: col.Unique, Default: col.Default})
	if err != nil {
		return nil, s.fail(op, addColumnMessages, err)
	}
	down, err := t.Driver.DropColumnSQL(table, col.Name)
	if err != nil {
		return nil, s.fail(op, addColumnMessages, err)
	}
	return s.run(ctx, t, change{
		name: migrationName("alter_table", table.Schema, table.Name, "add_column", col.Name),
		up:   up,
		down: down,
		msgs: addColumnMessages,
	})
}

// DropColumn removes column. The down step adds it back with the type,
// nullability and default it has now, when the driver can tell.
func (s *Service) DropColumn(ctx context.Context, source string, table datasource.QualifiedTable, column string) (*migration.Result, error) {
	var op errors.Op = "schema.Service.DropColumn"
	t, err := s.resolve(op, source, dropColumnMessages)
	if err != nil {
		return nil, err
	}
	up, err := t.Driver.DropColumnSQL(table, column)
	if err != nil {
		return nil, s.fail(op, dropColumnMessages, err)
	}
	current, err := s.fetch(ctx, t, table)
	if err != nil {
		return nil, s.fail(op, dropColumnMessages, err)
	}
	var down string
	if current != nil {
		col := findColumn(current, column)
		if col == nil {
			return nil, s.fail(op, dropColumnMessages, errors.E(op, errors.KindBadInput, fmt.Sprintf("column %q not found in %s.%s", column, table.Schema, table.Name)))
		}
		opts := &datasource.AddColumnOptions{Nullable: col.Nullable()}
		if col.ColumnDefault != nil {
			opts.Default = *col.ColumnDefault
		}
		if down, err = t.Driver.AddColumnSQL(table, column, t.Driver.ColumnType(*col), opts); err != nil {
			return nil, s.fail(op, dropColumnMessages, err)
		}
	}
	return s.run(ctx, t, change{
		name: migrationName("alter_table", table.Schema, table.Name, "drop_column", column),
		up:   up,
		down: down,
		msgs: dropColumnMessages,
	})
}

func (s *Service) RenameColumn(ctx context.Context, source string, table datasource.QualifiedTable, oldName, newName string) (*migration.Result, error) {
	var op errors.Op = "schema.Service.RenameColumn"
	t, err := s.resolve(op, source, renameColumnMessages)
	if err != nil {
		return nil, err
	}
	if oldName == newName {
		return nil, s.fail(op, renameColumnMessages, errors.E(op, errors.KindBadInput, "the new column name is the current one"))
	}
	up, err := t.Driver.RenameColumnSQL(table, oldName, newName)
	if err != nil {
		return nil, s.fail(op, renameColumnMessages, err)
	}
	down, err := t.Driver.RenameColumnSQL(table, newName, oldName)
	if err != nil {
		return nil, s.fail(op, renameColumnMessages, err)
	}
	return s.run(ctx, t, change{
		name: migrationName("alter_table", table.Schema, table.Name, "rename_column", oldName, "to", newName),
		up:   up,
		down: down,
		msgs: renameColumnMessages,
	})
}

// SetComment replaces the comment of a table, or of one of its columns when
// column is set. The down step restores the comment found before.
func (s *Service) SetComment(ctx context.Context, source string, table datasource.QualifiedTable, column, comment string) (*migration.Result, error) {
	var op errors.Op = "schema.Service.SetComment"
	t, err := s.resolve(op, source, commentMessages)
	if err != nil {
		return nil, err
	}
	on := datasource.CommentOnTable
	if column != "" {
		on = datasource.CommentOnColumn
	}
	up, err := t.Driver.SetCommentSQL(on, table, column, comment)
	if err != nil {
		return nil, s.fail(op, commentMessages, err)
	}
	current, err := s.fetch(ctx, t, table)
	if err != nil {
		return nil, s.fail(op, commentMessages, err)
	}
	var down string
	if current != nil {
		previous := current.Comment
		if on == datasource.CommentOnColumn {
			col := findColumn(current, column)
			if col == nil {
				return nil, s.fail(op, commentMessages, errors.E(op, errors.KindBadInput, fmt.Sprintf("column %q not found in %s.%s", column, table.Schema, table.Name)))
			}
			previous = col.Comment
		}
		var old string
		if previous != nil {
			old = *previous
		}
		if down, err = t.Driver.SetCommentSQL(on, table, column, old); err != nil {
			return nil, s.fail(op, commentMessages, err)
		}
	}
	parts := []string{"alter_table", table.Schema, table.Name}
	if column != "" {
		parts = append(parts, "alter_column", column)
	}
	return s.run(ctx, t, change{
		name: migrationName(append(parts, "comment")...),
		up:   up,
		down: down,
		msgs: commentMessages,
	})
}

// fetch introspects table. It returns nil without error when the driver
// has no catalog query, the change then goes out without a down step.
func (s *Service) fetch(ctx context.Context, t *rawsql.Target, table datasource.QualifiedTable) (*datasource.Table, error) {
	current, err := s.sources.FetchTable(ctx, t.Name, table)
	if errors.IsKind(errors.KindNotSupported, err) {
		s.logger.WithField("source", t.Name).Warnf("cannot introspect %s.%s, the migration has no down step", table.Schema, table.Name)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return current, nil
}

func findColumn(table *datasource.Table, name string) *datasource.Column {
	for i := range table.Columns {
		if table.Columns[i].ColumnName == name {
			return &table.Columns[i]
		}
	}
	return nil
}
