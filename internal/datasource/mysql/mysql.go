// Package mysql is the capability table of mysql sources. Catalog
// introspection, function helpers and statement timeouts are not offered
// and answer with datasource.ErrNotSupported.
package mysql

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/hasura/graphql-engine/console/internal/datasource"
	"github.com/hasura/graphql-engine/console/internal/errors"
)

func init() {
	datasource.Register(Driver{})
}

type Driver struct{}

var _ datasource.Driver = Driver{}

func (Driver) Name() datasource.Kind { return datasource.MySQL }

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

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

var literalReplacer = strings.NewReplacer(`\`, `\\`, `'`, `''`)

func quoteLiteral(s string) string {
	return "'" + literalReplacer.Replace(s) + "'"
}

func unquoteIdent(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, "`") && strings.HasSuffix(s, "`") {
		return strings.ReplaceAll(s[1:len(s)-1], "``", "`")
	}
	return s
}

func (Driver) IsTable(table datasource.Table) bool {
	return strings.EqualFold(table.TableType, "BASE TABLE")
}

func (Driver) IsColumnAutoIncrement(column datasource.Column) bool {
	return strings.Contains(strings.ToLower(column.Extra), "auto_increment")
}

// ColumnType prefers the full column_type, e.g. varchar(255).
func (Driver) ColumnType(column datasource.Column) string {
	if column.ColumnType != "" {
		return column.ColumnType
	}
	return column.DataType
}

var stringTypes = map[string]bool{
	"text":       true,
	"varchar":    true,
	"char":       true,
	"tinytext":   true,
	"mediumtext": true,
	"longtext":   true,
}

func (Driver) IsColTypeString(colType string) bool {
	t := strings.ToLower(strings.TrimSpace(colType))
	if i := strings.IndexByte(t, '('); i > 0 {
		t = t[:i]
	}
	return stringTypes[t]
}

// TableSupportedQueries treats every view as read only.
func (d Driver) TableSupportedQueries(table datasource.Table) []datasource.Operation {
	if d.IsTable(table) {
		return []datasource.Operation{
			datasource.OperationInsert,
			datasource.OperationSelect,
			datasource.OperationUpdate,
			datasource.OperationDelete,
		}
	}
	return []datasource.Operation{datasource.OperationSelect}
}

func (Driver) IsSQLFunction(value string) bool {
	return datasource.IsSQLFunction(value)
}

func (Driver) IsTimeoutError(error) bool { return false }

func (Driver) DependencyErrorCode() string { return "" }

func (Driver) ColumnDataTypes() datasource.ColumnDataTypes {
	return datasource.ColumnDataTypes{
		Integer:   "integer",
		Serial:    "serial",
		BigInt:    "bigint",
		JSON:      "json",
		Timestamp: "timestamp stored as UTC",
		Time:      "time",
		TimeTZ:    "time with time zone",
		Numeric:   "numeric",
		Date:      "date",
		Boolean:   "boolean",
		Text:      "text",
	}
}

func (Driver) CommonDataTypes() []datasource.DataType {
	return []datasource.DataType{
		{Name: "Integer", Value: "integer", Description: "signed four-byte integer"},
		{Name: "Integer (auto-increment)", Value: "serial", Description: "autoincrementing unsigned bigint"},
		{Name: "Text", Value: "text", Description: "variable-length character string"},
		{Name: "Boolean", Value: "boolean", Description: "logical Boolean (true/false)"},
		{Name: "Numeric", Value: "numeric", Description: "exact numeric of selected precision (decimal(10,0))"},
		{Name: "Timestamp", Value: "timestamp", Description: "date and time, UTC time zone"},
		{Name: "Time", Value: "time", Description: "time of day (no time zone)"},
		{Name: "Date", Value: "date", Description: "calendar date (year, month, day)"},
		{Name: "Datetime", Value: "datetime", Description: "time with time zone"},
		{Name: "Big Integer", Value: "bigint", Description: "signed eight-byte integer"},
		{Name: "JSON", Value: "json", Description: "json format"},
	}
}

func (Driver) CheckSchemaModification(sql string) bool {
	return datasource.IsSchemaModification(sql)
}

var createSQLRegex = regexp.MustCompile("(?i)create\\s+(?:or\\s+replace\\s+)?(?:algorithm\\s*=\\s*\\w+\\s+)?(?P<type>view|table)\\s+(?:if\\s+not\\s+exists\\s+)?(?:(?P<schema>`?\\w+`?)\\.(?P<nameWithSchema>`?\\w+`?)|(?P<name>`?\\w+`?))")

// CreatedObjects returns the tables and views created by sql. Unqualified
// names carry an empty schema, mysql resolves them against the current
// database.
func (Driver) CreatedObjects(sql string) []datasource.CreatedObject {
	return datasource.CreatedObjectsFromRegex(createSQLRegex, sql, "", unquoteIdent)
}

func (Driver) ArrayToPostgresArray([]interface{}) (string, error) {
	return "", datasource.NotSupported("mysql.Driver.ArrayToPostgresArray")
}

func (Driver) SchemaFunctions([]datasource.Function, string) ([]datasource.Function, error) {
	return nil, datasource.NotSupported("mysql.Driver.SchemaFunctions")
}

func (Driver) FindFunction([]datasource.Function, string, string) (*datasource.Function, error) {
	return nil, datasource.NotSupported("mysql.Driver.FindFunction")
}

func (Driver) GroupedTableComputedFields(datasource.Table, []datasource.Function) (datasource.GroupedComputedFields, error) {
	return datasource.GroupedComputedFields{}, datasource.NotSupported("mysql.Driver.GroupedTableComputedFields")
}

func (Driver) FetchTablesListSQL([]string, []datasource.QualifiedTable) (string, error) {
	return "", datasource.NotSupported("mysql.Driver.FetchTablesListSQL")
}

func (Driver) FetchTrackedTableFkSQL([]string, []datasource.QualifiedTable) (string, error) {
	return "", datasource.NotSupported("mysql.Driver.FetchTrackedTableFkSQL")
}

func (Driver) FetchTrackedTableReferencedFkSQL([]string, []datasource.QualifiedTable) (string, error) {
	return "", datasource.NotSupported("mysql.Driver.FetchTrackedTableReferencedFkSQL")
}

func (Driver) FetchColumnTypesSQL() (string, error) {
	return "", datasource.NotSupported("mysql.Driver.FetchColumnTypesSQL")
}

func (Driver) FetchColumnCastsSQL() (string, error) {
	return "", datasource.NotSupported("mysql.Driver.FetchColumnCastsSQL")
}

func (Driver) FetchColumnDefaultFunctionsSQL(string) (string, error) {
	return "", datasource.NotSupported("mysql.Driver.FetchColumnDefaultFunctionsSQL")
}

func (Driver) SchemaListSQL() (string, error) {
	return "SELECT schema_name FROM information_schema.schemata WHERE schema_name NOT IN ('information_schema', 'mysql', 'performance_schema', 'sys') ORDER BY schema_name ASC;", nil
}

func (Driver) AdditionalColumnsInfoSQL(string) (string, error) {
	return "", datasource.NotSupported("mysql.Driver.AdditionalColumnsInfoSQL")
}

func (Driver) ParseColumnsInfoResult([][]string) (datasource.ColumnsInfoResult, error) {
	return nil, datasource.NotSupported("mysql.Driver.ParseColumnsInfoResult")
}

func (Driver) StatementTimeoutSQL(int) (string, error) {
	return "", datasource.NotSupported("mysql.Driver.StatementTimeoutSQL")
}

func (Driver) EstimateCountSQL(datasource.QualifiedTable) (string, error) {
	return "", datasource.NotSupported("mysql.Driver.EstimateCountSQL")
}

func (Driver) ViewDefinitionSQL(datasource.QualifiedTable) (string, error) {
	return "", datasource.NotSupported("mysql.Driver.ViewDefinitionSQL")
}

func (Driver) CreateTableSQL(datasource.TableDefinition) ([]string, error) {
	return nil, datasource.NotSupported("mysql.Driver.CreateTableSQL")
}

func requireTable(op errors.Op, t datasource.QualifiedTable) error {
	return datasource.RequireTable(op, t)
}

func requireColumn(op errors.Op, t datasource.QualifiedTable, column string) error {
	if err := datasource.RequireTable(op, t); err != nil {
		return err
	}
	return datasource.RequireName(op, "column name", column)
}

func errBadInput(op errors.Op, format string, args ...interface{}) error {
	return errors.E(op, errors.KindBadInput, fmt.Sprintf(format, args...))
}

// DatabaseName is the database a connection string points at, either a
// mysql:// URL or a driver DSN. It is empty when none is named.
func DatabaseName(conn string) string {
	if strings.HasPrefix(conn, "mysql://") {
		u, err := url.Parse(conn)
		if err != nil {
			return ""
		}
		return strings.Trim(u.Path, "/")
	}
	cfg, err := gomysql.ParseDSN(conn)
	if err != nil {
		return ""
	}
	return cfg.DBName
}
