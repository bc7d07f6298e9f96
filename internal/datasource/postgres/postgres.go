// Package postgres is the capability table of postgres sources.
package postgres

import (
	"regexp"
	"strings"

	"github.com/lib/pq"

	"github.com/hasura/graphql-engine/console/internal/datasource"
	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura"
)

func init() {
	datasource.Register(Driver{})
}

// Driver implements datasource.Driver for postgres.
type Driver struct{}

var _ datasource.Driver = Driver{}

func (Driver) Name() datasource.Kind { return datasource.Postgres }

func quoteIdent(name string) string { return pq.QuoteIdentifier(name) }

func quoteTable(t datasource.QualifiedTable) string {
	return quoteIdent(t.Schema) + "." + quoteIdent(t.Name)
}

func quoteIdents(names []string) string {
	quoted := make([]string, 0, len(names))
	for _, n := range names {
		quoted = append(quoted, quoteIdent(n))
	}
	return strings.Join(quoted, ", ")
}

// quoteLiteral drops the leading space pq adds in front of E” strings.
func quoteLiteral(s string) string {
	return strings.TrimSpace(pq.QuoteLiteral(s))
}

// escapeText renders a nullable text value, blank means NULL.
func escapeText(s string) string {
	if s == "" {
		return "NULL"
	}
	return quoteLiteral(s)
}

func unquoteIdent(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
	}
	return strings.ToLower(s)
}

var tableTypes = map[string]bool{
	"TABLE":             true,
	"BASE TABLE":        true,
	"PARTITIONED TABLE": true,
	"FOREIGN TABLE":     true,
}

func (Driver) IsTable(table datasource.Table) bool {
	return tableTypes[strings.ToUpper(table.TableType)]
}

var autoIncrementDefault = regexp.MustCompile(`^nextval\('(.*)_seq'::regclass\)$`)

func (Driver) IsColumnAutoIncrement(column datasource.Column) bool {
	if column.Identity() {
		return true
	}
	return autoIncrementDefault.MatchString(column.Default())
}

// ColumnType resolves USER-DEFINED and ARRAY to the concrete udt name.
func (Driver) ColumnType(column datasource.Column) string {
	t := column.DataTypeName
	if t == "" {
		t = column.DataType
	}
	switch t {
	case "USER-DEFINED":
		return column.UDTName
	case "ARRAY":
		return strings.TrimPrefix(column.UDTName, "_") + "[]"
	}
	return t
}

var stringTypes = map[string]bool{
	"text":              true,
	"varchar":           true,
	"character varying": true,
	"char":              true,
	"character":         true,
	"bpchar":            true,
	"name":              true,
}

func (Driver) IsColTypeString(colType string) bool {
	return stringTypes[strings.ToLower(strings.TrimSpace(colType))]
}

func (d Driver) TableSupportedQueries(table datasource.Table) []datasource.Operation {
	if d.IsTable(table) {
		return []datasource.Operation{
			datasource.OperationInsert,
			datasource.OperationSelect,
			datasource.OperationUpdate,
			datasource.OperationDelete,
		}
	}
	ops := []datasource.Operation{datasource.OperationSelect}
	v := table.ViewInfo
	if v == nil {
		return ops
	}
	if v.IsInsertableInto == "YES" || v.IsTriggerInsertableInto == "YES" {
		ops = append(ops, datasource.OperationInsert)
	}
	if v.IsUpdatable == "YES" || v.IsTriggerUpdatable == "YES" {
		ops = append(ops, datasource.OperationUpdate)
	}
	if v.IsUpdatable == "YES" || v.IsTriggerDeletable == "YES" {
		ops = append(ops, datasource.OperationDelete)
	}
	return ops
}

func (Driver) IsSQLFunction(value string) bool {
	return datasource.IsSQLFunction(value)
}

const (
	queryCanceledCode   = "57014"
	statementTimeoutMsg = "canceling statement due to statement timeout"
)

func (Driver) IsTimeoutError(err error) bool {
	var apiErr *hasura.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.InternalCode() == queryCanceledCode ||
		strings.Contains(apiErr.InternalMessage(), statementTimeoutMsg)
}

// DependencyErrorCode is the SQLSTATE of dependent_objects_still_exist.
func (Driver) DependencyErrorCode() string { return "2BP01" }

func (Driver) ColumnDataTypes() datasource.ColumnDataTypes {
	return datasource.ColumnDataTypes{
		Integer:   "integer",
		Serial:    "serial",
		BigInt:    "bigint",
		BigSerial: "bigserial",
		UUID:      "uuid",
		JSON:      "json",
		JSONB:     "jsonb",
		Timestamp: "timestamp with time zone",
		Time:      "time with time zone",
		Numeric:   "numeric",
		Date:      "date",
		TimeTZ:    "timetz",
		Boolean:   "boolean",
		Text:      "text",
		Array:     "ARRAY",
	}
}

func (Driver) CommonDataTypes() []datasource.DataType {
	return []datasource.DataType{
		{Name: "Integer", Value: "integer", Description: "signed four-byte integer", EngineType: "integer"},
		{Name: "Integer (auto-increment)", Value: "serial", Description: "autoincrementing four-byte integer"},
		{Name: "Text", Value: "text", Description: "variable-length character string", EngineType: "text"},
		{Name: "Boolean", Value: "boolean", Description: "logical Boolean (true/false)", EngineType: "boolean"},
		{Name: "Numeric", Value: "numeric", Description: "exact numeric of selected precision", EngineType: "numeric"},
		{Name: "Timestamp", Value: "timestamptz", Description: "date and time, including time zone", EngineType: "timestamp with time zone"},
		{Name: "Time", Value: "timetz", Description: "time of day (with time zone)", EngineType: "time with time zone"},
		{Name: "Date", Value: "date", Description: "calendar date (year, month, day)", EngineType: "date"},
		{Name: "UUID", Value: "uuid", Description: "universal unique identifier", EngineType: "uuid"},
		{Name: "JSONB", Value: "jsonb", Description: "binary format JSON data", EngineType: "jsonb"},
		{Name: "Big Integer", Value: "bigint", Description: "signed eight-byte integer", EngineType: "bigint"},
		{Name: "Big Integer (auto-increment)", Value: "bigserial", Description: "autoincrementing eight-byte integer"},
	}
}

func (Driver) CheckSchemaModification(sql string) bool {
	return datasource.IsSchemaModification(sql)
}

var createSQLRegex = regexp.MustCompile(`(?i)create\s*(?:|or\s*replace)\s*(?P<type>materialized\s+view|view|table|function)\s*(?:\s*if\s*not\s*exists\s*)?(?:(?P<schema>"?\w+"?)\.(?P<nameWithSchema>"?\w+"?)|(?P<name>"?\w+"?))\s*(?P<partition>partition\s*of)?`)

// CreatedObjects lists the relations and functions created by sql.
// Unqualified names land in public.
func (Driver) CreatedObjects(sql string) []datasource.CreatedObject {
	return datasource.CreatedObjectsFromRegex(createSQLRegex, sql, "public", unquoteIdent)
}

// ArrayToPostgresArray renders values as a postgres array literal body,
// e.g. {1,"a b",NULL}.
func (Driver) ArrayToPostgresArray(values []interface{}) (string, error) {
	var op errors.Op = "postgres.Driver.ArrayToPostgresArray"
	var b strings.Builder
	if err := writeArray(&b, values); err != nil {
		return "", errors.E(op, errors.KindBadInput, err)
	}
	return b.String(), nil
}

func (Driver) SchemaFunctions(functions []datasource.Function, schema string) ([]datasource.Function, error) {
	return datasource.SchemaFunctions(functions, schema), nil
}

func (Driver) FindFunction(functions []datasource.Function, name, schema string) (*datasource.Function, error) {
	return datasource.FindFunction(functions, name, schema), nil
}

func (Driver) GroupedTableComputedFields(table datasource.Table, functions []datasource.Function) (datasource.GroupedComputedFields, error) {
	return datasource.GroupedTableComputedFields(table, functions), nil
}
