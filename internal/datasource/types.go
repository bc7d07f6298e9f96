package datasource

import (
	"encoding/json"
	"strings"
)

// Kind names a backing database engine.
type Kind string

const (
	Postgres Kind = "postgres"
	MySQL    Kind = "mysql"
)

func (k Kind) String() string { return string(k) }

// Operation is a GraphQL root operation a table can serve.
type Operation string

const (
	OperationInsert Operation = "insert"
	OperationSelect Operation = "select"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// ObjectKind is the kind of relation a rename or drop statement targets.
type ObjectKind string

const (
	ObjectTable            ObjectKind = "table"
	ObjectView             ObjectKind = "view"
	ObjectMaterializedView ObjectKind = "materialized view"
	ObjectFunction         ObjectKind = "function"
)

// CommentTarget tells SetCommentSQL whether the comment belongs to the
// table or to one of its columns.
type CommentTarget string

const (
	CommentOnTable  CommentTarget = "table"
	CommentOnColumn CommentTarget = "column"
)

type QualifiedTable struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
}

func (q QualifiedTable) String() string {
	return q.Schema + "." + q.Name
}

type QualifiedFunction struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
}

// Column mirrors a row of information_schema.columns enriched with the
// column comment.
type Column struct {
	TableSchema        string  `json:"table_schema"`
	TableName          string  `json:"table_name"`
	ColumnName         string  `json:"column_name"`
	OrdinalPosition    int     `json:"ordinal_position"`
	ColumnDefault      *string `json:"column_default"`
	IsNullable         string  `json:"is_nullable"`
	DataType           string  `json:"data_type"`
	DataTypeName       string  `json:"data_type_name,omitempty"`
	UDTName            string  `json:"udt_name"`
	ColumnType         string  `json:"column_type,omitempty"`
	Extra              string  `json:"extra,omitempty"`
	IsIdentity         string  `json:"is_identity,omitempty"`
	IdentityGeneration *string `json:"identity_generation,omitempty"`
	IsGenerated        string  `json:"is_generated,omitempty"`
	Comment            *string `json:"comment"`
}

func (c Column) Nullable() bool { return strings.EqualFold(c.IsNullable, "YES") }

func (c Column) Identity() bool { return strings.EqualFold(c.IsIdentity, "YES") }

func (c Column) Generated() bool { return strings.EqualFold(c.IsGenerated, "ALWAYS") }

// Default returns the column default or "" when there is none.
func (c Column) Default() string {
	if c.ColumnDefault == nil {
		return ""
	}
	return *c.ColumnDefault
}

type ViewInfo struct {
	IsInsertableInto        string `json:"is_insertable_into"`
	IsUpdatable             string `json:"is_updatable"`
	IsTriggerInsertableInto string `json:"is_trigger_insertable_into"`
	IsTriggerUpdatable      string `json:"is_trigger_updatable"`
	IsTriggerDeletable      string `json:"is_trigger_deletable"`
	ViewDefinition          string `json:"view_definition,omitempty"`
}

type PrimaryKey struct {
	ConstraintName string   `json:"constraint_name"`
	Columns        []string `json:"columns"`
}

type UniqueKey struct {
	ConstraintName string   `json:"constraint_name"`
	Columns        []string `json:"columns"`
}

type CheckConstraint struct {
	ConstraintName string `json:"constraint_name"`
	Check          string `json:"check"`
}

type ForeignKey struct {
	TableSchema    string            `json:"table_schema"`
	TableName      string            `json:"table_name"`
	ConstraintName string            `json:"constraint_name"`
	RefTableSchema string            `json:"ref_table_table_schema"`
	RefTable       string            `json:"ref_table"`
	ColumnMapping  map[string]string `json:"column_mapping"`
	OnUpdate       string            `json:"on_update"`
	OnDelete       string            `json:"on_delete"`
}

// Trigger mirrors a row of information_schema.triggers.
type Trigger struct {
	TriggerName       string `json:"trigger_name"`
	ActionTiming      string `json:"action_timing"`
	EventManipulation string `json:"event_manipulation"`
	ActionOrientation string `json:"action_orientation"`
	ActionStatement   string `json:"action_statement"`
	ActionCondition   string `json:"action_condition,omitempty"`
	Comment           string `json:"comment,omitempty"`
}

type ComputedFieldDefinition struct {
	Function      QualifiedFunction `json:"function"`
	TableArgument string            `json:"table_argument,omitempty"`
}

type ComputedField struct {
	Name       string                  `json:"name"`
	Definition ComputedFieldDefinition `json:"definition"`
	Comment    string                  `json:"comment,omitempty"`
}

// Table is an introspected relation merged with what the metadata knows
// about it.
type Table struct {
	TableSchema      string            `json:"table_schema"`
	TableName        string            `json:"table_name"`
	TableType        string            `json:"table_type"`
	Comment          *string           `json:"comment"`
	Columns          []Column          `json:"columns"`
	PrimaryKey       *PrimaryKey       `json:"primary_key"`
	ForeignKeys      []ForeignKey      `json:"foreign_key_constraints"`
	UniqueKeys       []UniqueKey       `json:"unique_constraints"`
	CheckConstraints []CheckConstraint `json:"check_constraints"`
	Triggers         []Trigger         `json:"triggers"`
	ViewInfo         *ViewInfo         `json:"view_info"`
	ComputedFields   []ComputedField   `json:"computed_fields"`
	IsTableTracked   bool              `json:"is_table_tracked"`
	IsEnum           bool              `json:"is_enum"`
	Configuration    json.RawMessage   `json:"configuration,omitempty"`
}

func (t Table) Qualified() QualifiedTable {
	return QualifiedTable{Schema: t.TableSchema, Name: t.TableName}
}

// FunctionArgType is one input argument type of a SQL function.
type FunctionArgType struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
	Type   string `json:"type"`
}

type Function struct {
	FunctionName       string            `json:"function_name"`
	FunctionSchema     string            `json:"function_schema"`
	FunctionDefinition string            `json:"function_definition"`
	FunctionType       string            `json:"function_type"`
	ReturnTypeType     string            `json:"return_type_type"`
	ReturnTypeName     string            `json:"return_type_name"`
	ReturnTypeSchema   string            `json:"return_type_schema"`
	ReturnsSet         bool              `json:"returns_set"`
	InputArgTypes      []FunctionArgType `json:"input_arg_types"`
	InputArgNames      []string          `json:"input_arg_names"`
	Comment            *string           `json:"comment"`
}

// GroupedComputedFields splits computed fields by what their function
// returns: a base type value or rows of a table.
type GroupedComputedFields struct {
	Scalar []ComputedField
	Table  []ComputedField
}

// DataType is an entry of the column type picker.
type DataType struct {
	Name        string
	Value       string
	Description string
	// EngineType is the engine's internal alias for Value, when it has one.
	EngineType string
}

// ColumnDataTypes names the engine spelling of the type families the
// console treats specially.
type ColumnDataTypes struct {
	Integer   string
	Serial    string
	BigInt    string
	BigSerial string
	UUID      string
	JSON      string
	JSONB     string
	Timestamp string
	Time      string
	Numeric   string
	Date      string
	TimeTZ    string
	Boolean   string
	Text      string
	Array     string
}

// ColumnDefinition is a column of a table being created.
type ColumnDefinition struct {
	Name     string
	Type     string
	Nullable bool
	Unique   bool
	Default  string
}

// ColumnMapping pairs a local column with the column it references.
type ColumnMapping struct {
	Column    string
	RefColumn string
}

// ForeignKeyDefinition is a foreign key of a table being created.
type ForeignKeyDefinition struct {
	RefSchema      string
	RefTable       string
	ColumnMappings []ColumnMapping
	OnUpdate       string
	OnDelete       string
}

type CheckConstraintDefinition struct {
	Name  string
	Check string
}

// TableDefinition carries everything needed to emit CREATE TABLE.
type TableDefinition struct {
	Table            QualifiedTable
	Columns          []ColumnDefinition
	PrimaryKeys      []string
	ForeignKeys      []ForeignKeyDefinition
	UniqueKeys       [][]string
	CheckConstraints []CheckConstraintDefinition
	Comment          string
}

// ForeignKeyRef is one side of a foreign key.
type ForeignKeyRef struct {
	SchemaName string
	TableName  string
	Columns    []string
}

// AddColumnOptions refine ADD COLUMN. A nil pointer adds a bare column.
type AddColumnOptions struct {
	Nullable bool
	Unique   bool
	Default  string
}

// TriggerDefinition is the body of a trigger to create.
type TriggerDefinition struct {
	ActionTiming      string
	EventManipulation string
	ActionOrientation string
	ActionStatement   string
	Comment           string
}

// CreatedObject is a relation or function found in a CREATE statement.
type CreatedObject struct {
	Type        ObjectKind
	Schema      string
	Name        string
	IsPartition bool
}

// ColumnInfo carries generation and identity facts that
// information_schema.columns rows do not expose in Column.
type ColumnInfo struct {
	IsGenerated        bool   `json:"is_generated"`
	IsIdentity         bool   `json:"is_identity"`
	IdentityGeneration string `json:"identity_generation"`
}

// ColumnsInfoResult is keyed by table name, then column name.
type ColumnsInfoResult map[string]map[string]ColumnInfo
