package postgres

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasura/graphql-engine/console/internal/datasource"
	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura"
)

var users = datasource.QualifiedTable{Schema: "public", Name: "users"}

func strPtr(s string) *string { return &s }

func TestDriver_IsTable(t *testing.T) {
	d := Driver{}
	for _, tt := range []string{"TABLE", "BASE TABLE", "PARTITIONED TABLE", "FOREIGN TABLE"} {
		assert.True(t, d.IsTable(datasource.Table{TableType: tt}), tt)
	}
	assert.False(t, d.IsTable(datasource.Table{TableType: "VIEW"}))
	assert.False(t, d.IsTable(datasource.Table{TableType: "MATERIALIZED VIEW"}))
}

func TestDriver_IsColumnAutoIncrement(t *testing.T) {
	d := Driver{}
	tests := []struct {
		name   string
		column datasource.Column
		want   bool
	}{
		{"serial default", datasource.Column{ColumnDefault: strPtr("nextval('users_id_seq'::regclass)")}, true},
		{"identity", datasource.Column{IsIdentity: "YES"}, true},
		{"plain default", datasource.Column{ColumnDefault: strPtr("now()")}, false},
		{"no default", datasource.Column{}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, d.IsColumnAutoIncrement(tc.column))
		})
	}
}

func TestDriver_ColumnType(t *testing.T) {
	d := Driver{}
	assert.Equal(t, "integer", d.ColumnType(datasource.Column{DataType: "integer"}))
	assert.Equal(t, "mood", d.ColumnType(datasource.Column{DataType: "USER-DEFINED", UDTName: "mood"}))
	assert.Equal(t, "text[]", d.ColumnType(datasource.Column{DataType: "ARRAY", UDTName: "_text"}))
	assert.Equal(t, "citext", d.ColumnType(datasource.Column{DataType: "text", DataTypeName: "citext"}))
}

func TestDriver_TableSupportedQueries(t *testing.T) {
	d := Driver{}
	assert.Equal(t, []datasource.Operation{"insert", "select", "update", "delete"},
		d.TableSupportedQueries(datasource.Table{TableType: "TABLE"}))
	assert.Equal(t, []datasource.Operation{"select"},
		d.TableSupportedQueries(datasource.Table{TableType: "VIEW"}))
	assert.Equal(t, []datasource.Operation{"select", "insert", "update", "delete"},
		d.TableSupportedQueries(datasource.Table{TableType: "VIEW", ViewInfo: &datasource.ViewInfo{IsInsertableInto: "YES", IsUpdatable: "YES"}}))
	assert.Equal(t, []datasource.Operation{"select", "delete"},
		d.TableSupportedQueries(datasource.Table{TableType: "VIEW", ViewInfo: &datasource.ViewInfo{IsTriggerDeletable: "YES"}}))
}

func TestDriver_IsTimeoutError(t *testing.T) {
	d := Driver{}
	byCode := &hasura.APIError{Code: "postgres-error", Internal: json.RawMessage(`{"error":{"status_code":"57014","message":"x"}}`)}
	byMessage := &hasura.APIError{Code: "postgres-error", Internal: json.RawMessage(`{"error":{"message":"canceling statement due to statement timeout"}}`)}
	other := &hasura.APIError{Code: "postgres-error", Internal: json.RawMessage(`{"error":{"status_code":"2BP01"}}`)}

	assert.True(t, d.IsTimeoutError(errors.E("test", byCode)))
	assert.True(t, d.IsTimeoutError(byMessage))
	assert.False(t, d.IsTimeoutError(other))
	assert.False(t, d.IsTimeoutError(fmt.Errorf("boom")))
	assert.Equal(t, "2BP01", d.DependencyErrorCode())
}

func TestDriver_CreatedObjects(t *testing.T) {
	d := Driver{}
	sql := `CREATE TABLE "public"."Authors" (id serial);
create or replace view article_view as select 1;
CREATE FUNCTION search.find_articles(q text) returns setof article as $$ select 1 $$ language sql stable;
create table if not exists logs (id int);
create materialized view stats as select 1;
create table measurement_y2021 partition of measurement for values from (1) to (2);`
	got := d.CreatedObjects(sql)
	assert.Equal(t, []datasource.CreatedObject{
		{Type: datasource.ObjectTable, Schema: "public", Name: "Authors"},
		{Type: datasource.ObjectView, Schema: "public", Name: "article_view"},
		{Type: datasource.ObjectFunction, Schema: "search", Name: "find_articles"},
		{Type: datasource.ObjectTable, Schema: "public", Name: "logs"},
		{Type: datasource.ObjectMaterializedView, Schema: "public", Name: "stats"},
		{Type: datasource.ObjectTable, Schema: "public", Name: "measurement_y2021", IsPartition: true},
	}, got)
	assert.Empty(t, d.CreatedObjects("select * from users"))
}

func TestDriver_CreateTableSQL(t *testing.T) {
	d := Driver{}
	tests := []struct {
		name    string
		def     datasource.TableDefinition
		want    []string
		wantErr bool
	}{
		{
			name: "columns keys and comment",
			def: datasource.TableDefinition{
				Table: users,
				Columns: []datasource.ColumnDefinition{
					{Name: "id", Type: "serial"},
					{Name: "name", Type: "text", Nullable: true, Default: "anon"},
					{Name: "created_at", Type: "timestamptz", Default: "now()"},
					{Name: "org_id", Type: "integer", Unique: true},
					{Name: ""},
				},
				PrimaryKeys: []string{"id"},
				ForeignKeys: []datasource.ForeignKeyDefinition{{
					RefSchema: "public", RefTable: "orgs",
					ColumnMappings: []datasource.ColumnMapping{{Column: "org_id", RefColumn: "id"}},
					OnUpdate:       "cascade", OnDelete: "set null",
				}},
				UniqueKeys:       [][]string{{"name", "org_id"}},
				CheckConstraints: []datasource.CheckConstraintDefinition{{Name: "name_len", Check: "length(name) > 1"}},
				Comment:          "it's people",
			},
			want: []string{`CREATE TABLE "public"."users" ("id" serial NOT NULL, "name" text DEFAULT 'anon', "created_at" timestamptz NOT NULL DEFAULT now(), "org_id" integer NOT NULL UNIQUE, PRIMARY KEY ("id"), FOREIGN KEY ("org_id") REFERENCES "public"."orgs"("id") ON UPDATE cascade ON DELETE set null, UNIQUE ("name", "org_id"), CONSTRAINT "name_len" CHECK (length(name) > 1)); COMMENT ON TABLE "public"."users" IS 'it''s people';`},
		},
		{
			name: "uuid default adds pgcrypto first",
			def: datasource.TableDefinition{
				Table:   users,
				Columns: []datasource.ColumnDefinition{{Name: "id", Type: "uuid", Default: "gen_random_uuid()"}},
			},
			want: []string{
				"CREATE EXTENSION IF NOT EXISTS pgcrypto;",
				`CREATE TABLE "public"."users" ("id" uuid NOT NULL DEFAULT gen_random_uuid());`,
			},
		},
		{
			name:    "no columns",
			def:     datasource.TableDefinition{Table: users, Columns: []datasource.ColumnDefinition{{Name: " "}}},
			wantErr: true,
		},
		{
			name: "foreign key column used twice",
			def: datasource.TableDefinition{
				Table:   users,
				Columns: []datasource.ColumnDefinition{{Name: "a", Type: "int"}},
				ForeignKeys: []datasource.ForeignKeyDefinition{{RefSchema: "public", RefTable: "t", ColumnMappings: []datasource.ColumnMapping{
					{Column: "a", RefColumn: "x"}, {Column: "a", RefColumn: "y"},
				}}},
			},
			wantErr: true,
		},
		{
			name: "unknown primary key column",
			def: datasource.TableDefinition{
				Table:       users,
				Columns:     []datasource.ColumnDefinition{{Name: "a", Type: "int"}},
				PrimaryKeys: []string{"b"},
			},
			wantErr: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := d.CreateTableSQL(tc.def)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsKind(errors.KindBadInput, err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDriver_DDL(t *testing.T) {
	d := Driver{}
	must := func(s string, err error) string {
		t.Helper()
		require.NoError(t, err)
		return s
	}
	orders := datasource.ForeignKeyRef{SchemaName: "public", TableName: "orders", Columns: []string{"user_id"}}
	usersRef := datasource.ForeignKeyRef{SchemaName: "public", TableName: "users", Columns: []string{"id"}}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"create schema", must(d.CreateSchemaSQL("app")), `create schema "app";`},
		{"drop schema", must(d.DropSchemaSQL("app")), `drop schema "app" cascade;`},
		{"drop table", must(d.DropTableSQL(users)), `DROP TABLE "public"."users";`},
		{"drop view", must(d.DropSQL(datasource.ObjectView, users)), `DROP VIEW "public"."users";`},
		{"rename table", must(d.RenameSQL(datasource.ObjectTable, "public", "users", "people")), `alter table "public"."users" rename to "people";`},
		{"rename function", must(d.RenameSQL(datasource.ObjectFunction, "public", "f", "g")), `alter function "public"."f" rename to "g";`},
		{"add bare column", must(d.AddColumnSQL(users, "age", "integer", nil)), `alter table "public"."users" add column "age" integer;`},
		{"add column with options", must(d.AddColumnSQL(users, "nick", "text", &datasource.AddColumnOptions{Unique: true, Default: "x"})), `alter table "public"."users" add column "nick" text not null unique default 'x';`},
		{"drop column", must(d.DropColumnSQL(users, "age")), `alter table "public"."users" drop column "age" cascade;`},
		{"rename column", must(d.RenameColumnSQL(users, "age", "years")), `alter table "public"."users" rename column "age" to "years";`},
		{"alter type", must(d.AlterColumnTypeSQL(users, "age", "bigint")), `ALTER TABLE "public"."users" ALTER COLUMN "age" TYPE bigint;`},
		{"set not null", must(d.SetNotNullSQL(users, "age")), `alter table "public"."users" alter column "age" set not null;`},
		{"drop not null", must(d.DropNotNullSQL(users, "age")), `alter table "public"."users" alter column "age" drop not null;`},
		{"set text default", must(d.SetColumnDefaultSQL(users, "nick", "anon", "text")), `alter table "public"."users" alter column "nick" set default 'anon';`},
		{"set function default", must(d.SetColumnDefaultSQL(users, "at", "now()", "timestamptz")), `alter table "public"."users" alter column "at" set default now();`},
		{"drop default", must(d.DropColumnDefaultSQL(users, "at")), `alter table "public"."users" alter column "at" drop default;`},
		{"table comment", must(d.SetCommentSQL(datasource.CommentOnTable, users, "", "all users")), `comment on table "public"."users" is 'all users';`},
		{"clear column comment", must(d.SetCommentSQL(datasource.CommentOnColumn, users, "age", "")), `comment on column "public"."users"."age" is NULL;`},
		{"backslash comment", must(d.SetCommentSQL(datasource.CommentOnTable, users, "", `a\b`)), `comment on table "public"."users" is E'a\\b';`},
		{"unique", must(d.AddUniqueConstraintSQL(users, "users_email_key", []string{"email"})), `alter table "public"."users" add constraint "users_email_key" unique ("email");`},
		{"check", must(d.CreateCheckConstraintSQL(users, "age_positive", "age > 0")), `alter table "public"."users" add constraint "age_positive" check (age > 0);`},
		{"primary key", must(d.CreatePrimaryKeySQL(users, "users_pkey", []string{"id", "org_id"})), `alter table "public"."users" add constraint "users_pkey" primary key ("id", "org_id");`},
		{"create fk", must(d.CreateForeignKeySQL(orders, usersRef, "orders_user_id_fkey", "restrict", "cascade")), `alter table "public"."orders" add constraint "orders_user_id_fkey" foreign key ("user_id") references "public"."users" ("id") on update restrict on delete cascade;`},
		{"alter fk", must(d.AlterForeignKeySQL(orders, usersRef, "old_fk", "new_fk", "", "SET NULL")), `alter table "public"."orders" drop constraint "old_fk", add constraint "new_fk" foreign key ("user_id") references "public"."users" ("id") on update restrict on delete set null;`},
		{"drop constraint", must(d.DropConstraintSQL(users, "users_pkey")), `alter table "public"."users" drop constraint "users_pkey";`},
		{"create trigger", must(d.CreateTriggerSQL(users, "set_updated_at", datasource.TriggerDefinition{
			ActionTiming: "BEFORE", EventManipulation: "UPDATE", ActionOrientation: "ROW",
			ActionStatement: "EXECUTE FUNCTION set_updated_at();", Comment: "touch",
		})), "CREATE TRIGGER \"set_updated_at\"\nBEFORE UPDATE ON \"public\".\"users\"\nFOR EACH ROW EXECUTE FUNCTION set_updated_at();\nCOMMENT ON TRIGGER \"set_updated_at\" ON \"public\".\"users\" IS 'touch';"},
		{"drop trigger", must(d.DropTriggerSQL(users, "set_updated_at")), `DROP TRIGGER "set_updated_at" ON "public"."users";`},
		{"cascade with semicolon", d.CascadeSQL("drop table users;\n"), "drop table users CASCADE;"},
		{"cascade without semicolon", d.CascadeSQL("drop table users"), "drop table users CASCADE;"},
		{"statement timeout", must(d.StatementTimeoutSQL(5)), "SET LOCAL statement_timeout = 5000;"},
		{"quoted identifier", must(d.DropTableSQL(datasource.QualifiedTable{Schema: "public", Name: `we"ird`})), `DROP TABLE "public"."we""ird";`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.got)
		})
	}
}

func TestDriver_DDLValidation(t *testing.T) {
	d := Driver{}
	_, err := d.CreateSchemaSQL("")
	assert.True(t, errors.IsKind(errors.KindBadInput, err))
	_, err = d.DropColumnSQL(users, "")
	assert.True(t, errors.IsKind(errors.KindBadInput, err))
	_, err = d.StatementTimeoutSQL(0)
	assert.True(t, errors.IsKind(errors.KindBadInput, err))
	_, err = d.DropSQL("sequence", users)
	assert.True(t, errors.IsKind(errors.KindBadInput, err))
	_, err = d.CreateForeignKeySQL(
		datasource.ForeignKeyRef{SchemaName: "public", TableName: "a", Columns: []string{"x", "y"}},
		datasource.ForeignKeyRef{SchemaName: "public", TableName: "b", Columns: []string{"x"}},
		"fk", "", "")
	assert.True(t, errors.IsKind(errors.KindBadInput, err))
	_, err = d.CreateForeignKeySQL(
		datasource.ForeignKeyRef{SchemaName: "public", TableName: "a", Columns: []string{"x"}},
		datasource.ForeignKeyRef{SchemaName: "public", TableName: "b", Columns: []string{"x"}},
		"fk", "explode", "")
	assert.True(t, errors.IsKind(errors.KindBadInput, err))
}

func TestDriver_QueriesQuoteLiterals(t *testing.T) {
	d := Driver{}
	sql, err := d.EstimateCountSQL(datasource.QualifiedTable{Schema: "public", Name: "o'brien"})
	require.NoError(t, err)
	assert.Contains(t, sql, "quote_ident('o''brien')")
	assert.Contains(t, sql, "relname = 'o''brien'")

	sql, err = d.ViewDefinitionSQL(datasource.QualifiedTable{Schema: "public", Name: "v"})
	require.NoError(t, err)
	assert.Contains(t, sql, `to_regclass('"public"."v"')`)
	assert.Contains(t, sql, `'CREATE MATERIALIZED VIEW "public"."v" AS `)

	sql, err = d.FetchTablesListSQL([]string{"public", "app"}, nil)
	require.NoError(t, err)
	assert.Contains(t, sql, "pgn.nspname IN ('public', 'app')")

	sql, err = d.FetchTablesListSQL(nil, []datasource.QualifiedTable{users})
	require.NoError(t, err)
	assert.Contains(t, sql, "(pgn.nspname = 'public' AND pgc.relname = 'users')")

	sql, err = d.FetchTablesListSQL(nil, nil)
	require.NoError(t, err)
	assert.Contains(t, sql, `pgn.nspname NOT LIKE 'pg\_%'`)

	sql, err = d.FetchTrackedTableReferencedFkSQL([]string{"public"}, nil)
	require.NoError(t, err)
	assert.Contains(t, sql, "cftn.nspname IN ('public')")

	sql, err = d.AdditionalColumnsInfoSQL("public")
	require.NoError(t, err)
	assert.Equal(t, "SELECT column_name, table_name, is_generated, is_identity, identity_generation FROM information_schema.columns WHERE table_schema = 'public';", sql)
}

func TestDriver_ParseColumnsInfoResult(t *testing.T) {
	d := Driver{}
	got, err := d.ParseColumnsInfoResult([][]string{
		{"column_name", "table_name", "is_generated", "is_identity", "identity_generation"},
		{"id", "users", "NEVER", "YES", "BY DEFAULT"},
		{"full", "users", "ALWAYS", "NO", "NULL"},
		{"id", "orgs", "NEVER", "NO", "NULL"},
	})
	require.NoError(t, err)
	assert.Equal(t, datasource.ColumnsInfoResult{
		"users": {
			"id":   {IsIdentity: true, IdentityGeneration: "BY DEFAULT"},
			"full": {IsGenerated: true},
		},
		"orgs": {"id": {}},
	}, got)

	_, err = d.ParseColumnsInfoResult([][]string{{"h"}, {"short"}})
	assert.Error(t, err)
}

func TestDriver_ArrayToPostgresArray(t *testing.T) {
	d := Driver{}
	got, err := d.ArrayToPostgresArray([]interface{}{1, "a b", nil, true, []interface{}{"x", `q"t`}, "NULL"})
	require.NoError(t, err)
	assert.Equal(t, `{1,"a b",NULL,true,{x,"q\"t"},"NULL"}`, got)

	_, err = d.ArrayToPostgresArray([]interface{}{make(chan int)})
	assert.True(t, errors.IsKind(errors.KindBadInput, err))
}

func TestDriver_registered(t *testing.T) {
	d, err := datasource.Get(datasource.Postgres)
	require.NoError(t, err)
	assert.Equal(t, Driver{}, d)
}
