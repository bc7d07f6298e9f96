package datasource

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura"
)

func TestIsSchemaModification(t *testing.T) {
	tests := []struct {
		sql  string
		want bool
	}{
		{"select 1;", false},
		{"CREATE TABLE foo (id int);", true},
		{"select 1; alter table foo add column bar text", true},
		{"  drop view v", true},
		{"insert into foo values (1); update foo set id = 2;", false},
		{"-- make a table\ncreate table foo (id int);", true},
		{"-- only a comment", false},
		{"", false},
	}
	for _, tc := range tests {
		t.Run(tc.sql, func(t *testing.T) {
			assert.Equal(t, tc.want, IsSchemaModification(tc.sql))
		})
	}
}

func TestIsSQLFunction(t *testing.T) {
	assert.True(t, IsSQLFunction("now()"))
	assert.True(t, IsSQLFunction("gen_random_uuid()"))
	assert.False(t, IsSQLFunction("hello"))
	assert.False(t, IsSQLFunction(""))
}

func TestCreatedObjectsFromRegex(t *testing.T) {
	re := regexp.MustCompile(`(?i)create\s+(?P<type>table|view)\s+(?:(?P<schema>\w+)\.(?P<nameWithSchema>\w+)|(?P<name>\w+))\s*(?P<partition>partition\s+of)?`)
	got := CreatedObjectsFromRegex(re, "create table a.b (id int); CREATE VIEW c AS select 1; create table p partition of b", "public", func(s string) string { return s })
	assert.Equal(t, []CreatedObject{
		{Type: ObjectTable, Schema: "a", Name: "b"},
		{Type: ObjectView, Schema: "public", Name: "c"},
		{Type: ObjectTable, Schema: "public", Name: "p", IsPartition: true},
	}, got)
}

func TestFKActions(t *testing.T) {
	assert.Equal(t, "cascade", FKActionName("c"))
	assert.Equal(t, "set null", FKActionName("n"))
	assert.Equal(t, "x", FKActionName("x"))

	a, err := ValidateFKAction("SET NULL")
	require.NoError(t, err)
	assert.Equal(t, "set null", a)
	a, err = ValidateFKAction("")
	require.NoError(t, err)
	assert.Equal(t, "restrict", a)
	_, err = ValidateFKAction("explode")
	assert.Error(t, err)
}

func TestDecodeRunSQLJSON(t *testing.T) {
	var tables []Table
	err := DecodeRunSQLJSON(&hasura.RunSQLResult{
		ResultType: hasura.TuplesOK,
		Rows: [][]string{
			{"coalesce"},
			{`[{"table_schema":"public","table_name":"users","table_type":"TABLE","columns":[{"column_name":"id","is_nullable":"NO","data_type":"integer"}]}]`},
		},
	}, &tables)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, QualifiedTable{Schema: "public", Name: "users"}, tables[0].Qualified())
	assert.False(t, tables[0].Columns[0].Nullable())

	err = DecodeRunSQLJSON(&hasura.RunSQLResult{Rows: [][]string{{"coalesce"}}}, &tables)
	assert.True(t, errors.IsKind(errors.KindHasuraAPI, err))
	err = DecodeRunSQLJSON(&hasura.RunSQLResult{Rows: [][]string{{"h"}, {"{"}}}, &tables)
	assert.True(t, errors.IsKind(errors.KindHasuraAPI, err))
}

func TestFunctionHelpers(t *testing.T) {
	fns := []Function{
		{FunctionName: "full_name", FunctionSchema: "public", ReturnTypeType: "b"},
		{FunctionName: "user_posts", FunctionSchema: "public", ReturnTypeType: "c"},
		{FunctionName: "audit", FunctionSchema: "logs", ReturnTypeType: "b"},
	}
	assert.Len(t, SchemaFunctions(fns, "public"), 2)
	assert.Empty(t, SchemaFunctions(fns, "nope"))
	assert.NotNil(t, SchemaFunctions(fns, "nope"))

	f := FindFunction(fns, "audit", "logs")
	require.NotNil(t, f)
	assert.Equal(t, "audit", f.FunctionName)
	assert.Nil(t, FindFunction(fns, "audit", "public"))

	table := Table{ComputedFields: []ComputedField{
		{Name: "name", Definition: ComputedFieldDefinition{Function: QualifiedFunction{Schema: "public", Name: "full_name"}}},
		{Name: "posts", Definition: ComputedFieldDefinition{Function: QualifiedFunction{Schema: "public", Name: "user_posts"}}},
		{Name: "ghost", Definition: ComputedFieldDefinition{Function: QualifiedFunction{Schema: "public", Name: "missing"}}},
	}}
	grouped := GroupedTableComputedFields(table, fns)
	require.Len(t, grouped.Scalar, 1)
	assert.Equal(t, "name", grouped.Scalar[0].Name)
	require.Len(t, grouped.Table, 2)
	assert.Equal(t, "posts", grouped.Table[0].Name)
	assert.Equal(t, "ghost", grouped.Table[1].Name)
}

func TestRequireTable(t *testing.T) {
	var op errors.Op = "datasource.TestRequireTable"
	assert.NoError(t, RequireTable(op, QualifiedTable{Schema: "public", Name: "a"}))
	assert.True(t, errors.IsKind(errors.KindBadInput, RequireTable(op, QualifiedTable{Schema: "public"})))
	assert.True(t, errors.IsKind(errors.KindBadInput, RequireTable(op, QualifiedTable{Name: "a"})))
}
