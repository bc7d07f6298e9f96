package datasource

import (
	"github.com/hasura/graphql-engine/console/internal/errors"
)

// ErrNotSupported is returned by capabilities a driver does not offer.
var ErrNotSupported = errors.E(errors.Op("datasource"), errors.KindNotSupported, errors.New("operation not supported by this data source"))

// NotSupported wraps ErrNotSupported with the calling op so the trail
// names the missing capability.
func NotSupported(op errors.Op) error {
	return errors.E(op, errors.KindNotSupported, ErrNotSupported)
}

// Classifier answers questions about introspected objects.
type Classifier interface {
	IsTable(table Table) bool
	IsColumnAutoIncrement(column Column) bool
	ColumnType(column Column) string
	IsColTypeString(colType string) bool
	TableSupportedQueries(table Table) []Operation
	IsSQLFunction(value string) bool
	IsTimeoutError(err error) bool
	DependencyErrorCode() string
	ColumnDataTypes() ColumnDataTypes
	CommonDataTypes() []DataType
}

// StatementInspector looks inside raw SQL.
type StatementInspector interface {
	CheckSchemaModification(sql string) bool
	CreatedObjects(sql string) []CreatedObject
}

// DDL builds schema changing statements.
type DDL interface {
	CreateSchemaSQL(schema string) (string, error)
	DropSchemaSQL(schema string) (string, error)
	CreateTableSQL(def TableDefinition) ([]string, error)
	DropTableSQL(table QualifiedTable) (string, error)
	DropSQL(kind ObjectKind, table QualifiedTable) (string, error)
	RenameSQL(kind ObjectKind, schema, oldName, newName string) (string, error)
	AddColumnSQL(table QualifiedTable, column, colType string, opts *AddColumnOptions) (string, error)
	DropColumnSQL(table QualifiedTable, column string) (string, error)
	RenameColumnSQL(table QualifiedTable, oldName, newName string) (string, error)
	AlterColumnTypeSQL(table QualifiedTable, column, colType string) (string, error)
	SetNotNullSQL(table QualifiedTable, column string) (string, error)
	DropNotNullSQL(table QualifiedTable, column string) (string, error)
	SetColumnDefaultSQL(table QualifiedTable, column, defaultValue, colType string) (string, error)
	DropColumnDefaultSQL(table QualifiedTable, column string) (string, error)
	SetCommentSQL(on CommentTarget, table QualifiedTable, column, comment string) (string, error)
	AddUniqueConstraintSQL(table QualifiedTable, constraint string, columns []string) (string, error)
	CreateCheckConstraintSQL(table QualifiedTable, constraint, check string) (string, error)
	CreatePrimaryKeySQL(table QualifiedTable, constraint string, columns []string) (string, error)
	CreateForeignKeySQL(from, to ForeignKeyRef, constraint, onUpdate, onDelete string) (string, error)
	AlterForeignKeySQL(from, to ForeignKeyRef, dropConstraint, newConstraint, onUpdate, onDelete string) (string, error)
	DropConstraintSQL(table QualifiedTable, constraint string) (string, error)
	CreateTriggerSQL(table QualifiedTable, name string, def TriggerDefinition) (string, error)
	DropTriggerSQL(table QualifiedTable, name string) (string, error)
	CascadeSQL(sql string) string
	StatementTimeoutSQL(seconds int) (string, error)
	EstimateCountSQL(table QualifiedTable) (string, error)
	ViewDefinitionSQL(view QualifiedTable) (string, error)
}

// Introspection builds the catalog queries the console runs through
// run_sql.
type Introspection interface {
	FetchTablesListSQL(schemas []string, tables []QualifiedTable) (string, error)
	FetchTrackedTableFkSQL(schemas []string, tables []QualifiedTable) (string, error)
	FetchTrackedTableReferencedFkSQL(schemas []string, tables []QualifiedTable) (string, error)
	FetchColumnTypesSQL() (string, error)
	FetchColumnCastsSQL() (string, error)
	FetchColumnDefaultFunctionsSQL(schema string) (string, error)
	SchemaListSQL() (string, error)
	AdditionalColumnsInfoSQL(schema string) (string, error)
	ParseColumnsInfoResult(rows [][]string) (ColumnsInfoResult, error)
}

// FunctionHelpers work on introspected SQL functions.
type FunctionHelpers interface {
	ArrayToPostgresArray(values []interface{}) (string, error)
	SchemaFunctions(functions []Function, schema string) ([]Function, error)
	FindFunction(functions []Function, name, schema string) (*Function, error)
	GroupedTableComputedFields(table Table, functions []Function) (GroupedComputedFields, error)
}

// Driver is the capability table of one database engine. Implementations
// hold no state; every method is a pure function of its arguments.
type Driver interface {
	Name() Kind
	Classifier
	StatementInspector
	DDL
	Introspection
	FunctionHelpers
}
