package schema

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasura/graphql-engine/console/internal/datasource"
	_ "github.com/hasura/graphql-engine/console/internal/datasource/mysql"
	_ "github.com/hasura/graphql-engine/console/internal/datasource/postgres"
	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/metadataquery"
	"github.com/hasura/graphql-engine/console/internal/migration"
	"github.com/hasura/graphql-engine/console/internal/notify"
	"github.com/hasura/graphql-engine/console/internal/rawsql"
)

type recordingRunner struct {
	runs []migration.Migration
	err  error
}

func (r *recordingRunner) Run(_ context.Context, m migration.Migration, _ migration.Messages, _ migration.Callbacks) (*migration.Result, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.runs = append(r.runs, m)
	return &migration.Result{Version: int64(len(r.runs)), Name: m.Name}, nil
}

// fakeSources knows the kind of each source and the tables it holds.
type fakeSources struct {
	kinds  map[string]datasource.Kind
	tables map[datasource.QualifiedTable]*datasource.Table
}

func (f *fakeSources) Resolve(name string) (*rawsql.Target, error) {
	if name == "" {
		name = "default"
	}
	kind, ok := f.kinds[name]
	if !ok {
		return nil, errors.E("test", errors.KindBadInput, "unknown source "+name)
	}
	d, err := datasource.Get(kind)
	if err != nil {
		return nil, err
	}
	return &rawsql.Target{Name: name, Kind: kind, Driver: d}, nil
}

func (f *fakeSources) FetchTable(_ context.Context, source string, table datasource.QualifiedTable) (*datasource.Table, error) {
	if f.kinds[source] == datasource.MySQL {
		return nil, datasource.NotSupported("test")
	}
	t, ok := f.tables[table]
	if !ok {
		return nil, errors.E("test", errors.KindBadInput, "table not found")
	}
	return t, nil
}

var orders = datasource.QualifiedTable{Schema: "public", Name: "orders"}

func strp(s string) *string { return &s }

type harness struct {
	runner   *recordingRunner
	notifier *notify.Center
	svc      *Service
}

func newHarness() *harness {
	sources := &fakeSources{
		kinds: map[string]datasource.Kind{"default": datasource.Postgres, "shop": datasource.MySQL},
		tables: map[datasource.QualifiedTable]*datasource.Table{
			orders: {
				TableSchema: "public",
				TableName:   "orders",
				Comment:     strp("customer orders"),
				Columns: []datasource.Column{
					{ColumnName: "id", DataType: "integer", IsNullable: "NO"},
					{ColumnName: "status", DataType: "text", IsNullable: "NO", ColumnDefault: strp("pending")},
				},
			},
		},
	}
	runner := &recordingRunner{}
	notifier := notify.NewCenter(nil, nil)
	return &harness{runner: runner, notifier: notifier, svc: New(runner, sources, notifier, nil)}
}

// sqlOf returns the up and down SQL of the only recorded migration.
func (h *harness) sqlOf(t *testing.T) (up, down string) {
	t.Helper()
	require.Len(t, h.runner.runs, 1)
	m := h.runner.runs[0]
	assert.True(t, m.Query)
	require.Len(t, m.Up, 1)
	up = m.Up[0].Args.(metadataquery.RunSQLArgs).SQL
	if len(m.Down) == 1 {
		down = m.Down[0].Args.(metadataquery.RunSQLArgs).SQL
	}
	return up, down
}

func TestService_Schemas(t *testing.T) {
	h := newHarness()
	res, err := h.svc.CreateSchema(context.Background(), "", "reporting")
	require.NoError(t, err)
	assert.Equal(t, "create_schema_reporting", res.Name)
	up, down := h.sqlOf(t)
	assert.Equal(t, `create schema "reporting";`, up)
	assert.Equal(t, `drop schema "reporting" cascade;`, down)
	assert.Equal(t, "default", h.runner.runs[0].Source)

	h = newHarness()
	_, err = h.svc.DropSchema(context.Background(), "shop", "archive")
	require.NoError(t, err)
	up, down = h.sqlOf(t)
	assert.Equal(t, "DROP SCHEMA `archive`;", up)
	assert.Equal(t, "CREATE SCHEMA `archive`;", down)
	assert.Equal(t, "mysql_run_sql", h.runner.runs[0].Up[0].Type)
}

func TestService_Columns(t *testing.T) {
	t.Run("add", func(t *testing.T) {
		h := newHarness()
		res, err := h.svc.AddColumn(context.Background(), "default", orders, Column{Name: "note", Type: "text", Nullable: true})
		require.NoError(t, err)
		assert.Equal(t, "alter_table_public_orders_add_column_note", res.Name)
		up, down := h.sqlOf(t)
		assert.Equal(t, `alter table "public"."orders" add column "note" text null;`, up)
		assert.Equal(t, `alter table "public"."orders" drop column "note" cascade;`, down)
	})

	t.Run("drop restores the column", func(t *testing.T) {
		h := newHarness()
		_, err := h.svc.DropColumn(context.Background(), "default", orders, "status")
		require.NoError(t, err)
		up, down := h.sqlOf(t)
		assert.Equal(t, `alter table "public"."orders" drop column "status" cascade;`, up)
		assert.Contains(t, down, `alter table "public"."orders" add column "status" text not null default`)
	})

	t.Run("drop of an unknown column", func(t *testing.T) {
		h := newHarness()
		_, err := h.svc.DropColumn(context.Background(), "default", orders, "total")
		require.Error(t, err)
		assert.True(t, errors.IsKind(errors.KindBadInput, err))
		assert.Empty(t, h.runner.runs)
		assert.Equal(t, "Deleting column failed", h.notifier.List()[0].Title)
	})

	t.Run("drop without introspection has no down step", func(t *testing.T) {
		h := newHarness()
		_, err := h.svc.DropColumn(context.Background(), "shop", datasource.QualifiedTable{Schema: "shop", Name: "orders"}, "status")
		require.NoError(t, err)
		up, down := h.sqlOf(t)
		assert.Equal(t, "ALTER TABLE `shop`.`orders` DROP COLUMN `status`;", up)
		assert.Empty(t, down)
	})

	t.Run("rename", func(t *testing.T) {
		h := newHarness()
		res, err := h.svc.RenameColumn(context.Background(), "", orders, "status", "state")
		require.NoError(t, err)
		assert.Equal(t, "alter_table_public_orders_rename_column_status_to_state", res.Name)
		up, down := h.sqlOf(t)
		assert.Equal(t, `alter table "public"."orders" rename column "status" to "state";`, up)
		assert.Equal(t, `alter table "public"."orders" rename column "state" to "status";`, down)

		_, err = h.svc.RenameColumn(context.Background(), "", orders, "status", "status")
		assert.True(t, errors.IsKind(errors.KindBadInput, err))
	})
}

func TestService_SetComment(t *testing.T) {
	h := newHarness()
	res, err := h.svc.SetComment(context.Background(), "", orders, "", "all orders")
	require.NoError(t, err)
	assert.Equal(t, "alter_table_public_orders_comment", res.Name)
	up, down := h.sqlOf(t)
	assert.Equal(t, `comment on table "public"."orders" is 'all orders';`, up)
	assert.Equal(t, `comment on table "public"."orders" is 'customer orders';`, down)

	h = newHarness()
	_, err = h.svc.SetComment(context.Background(), "", orders, "status", "order state")
	require.NoError(t, err)
	up, down = h.sqlOf(t)
	assert.Equal(t, `comment on column "public"."orders"."status" is 'order state';`, up)
	assert.Equal(t, `comment on column "public"."orders"."status" is NULL;`, down)

	h = newHarness()
	_, err = h.svc.SetComment(context.Background(), "shop", datasource.QualifiedTable{Schema: "shop", Name: "orders"}, "status", "x")
	require.Error(t, err)
	assert.True(t, errors.IsKind(errors.KindNotSupported, err))
	assert.Empty(t, h.runner.runs)
}

func TestService_failures(t *testing.T) {
	h := newHarness()
	_, err := h.svc.CreateSchema(context.Background(), "nope", "reporting")
	require.Error(t, err)
	assert.True(t, errors.IsKind(errors.KindBadInput, err))

	_, err = h.svc.CreateSchema(context.Background(), "", " ")
	require.Error(t, err)
	assert.True(t, errors.IsKind(errors.KindBadInput, err))
	assert.Empty(t, h.runner.runs)

	h.runner.err = errors.E("test", errors.KindHasuraAPI, "schema already exists")
	_, err = h.svc.CreateSchema(context.Background(), "", "reporting")
	require.Error(t, err)
	assert.True(t, errors.IsKind(errors.KindHasuraAPI, err))
}

func TestMigrationName(t *testing.T) {
	assert.Equal(t, "create_schema_my_schema", migrationName("create_schema", "my schema"))
	assert.Equal(t, "alter_table_public_orders_add_column_a_b", migrationName("alter_table", "public", "orders", "add_column", "a.b"))
}
