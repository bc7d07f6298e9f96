package postgres

import (
	"fmt"
	"strings"

	"github.com/hasura/graphql-engine/console/internal/datasource"
	"github.com/hasura/graphql-engine/console/internal/errors"
)

// defaultExpr quotes plain values for text like columns and leaves
// function calls and other types untouched.
func (d Driver) defaultExpr(value, colType string) string {
	if d.IsColTypeString(colType) && !d.IsSQLFunction(value) {
		return quoteLiteral(value)
	}
	return value
}

func (Driver) CreateSchemaSQL(schema string) (string, error) {
	var op errors.Op = "postgres.Driver.CreateSchemaSQL"
	if err := datasource.RequireName(op, "schema name", schema); err != nil {
		return "", err
	}
	return fmt.Sprintf("create schema %s;", quoteIdent(schema)), nil
}

func (Driver) DropSchemaSQL(schema string) (string, error) {
	var op errors.Op = "postgres.Driver.DropSchemaSQL"
	if err := datasource.RequireName(op, "schema name", schema); err != nil {
		return "", err
	}
	return fmt.Sprintf("drop schema %s cascade;", quoteIdent(schema)), nil
}

// CreateTableSQL returns the CREATE TABLE statement, preceded by the
// pgcrypto extension when a uuid column defaults to gen_random_uuid().
func (d Driver) CreateTableSQL(def datasource.TableDefinition) ([]string, error) {
	var op errors.Op = "postgres.Driver.CreateTableSQL"
	if err := datasource.RequireTable(op, def.Table); err != nil {
		return nil, err
	}
	var columns []datasource.ColumnDefinition
	for _, c := range def.Columns {
		if strings.TrimSpace(c.Name) != "" {
			columns = append(columns, c)
		}
	}
	if len(columns) == 0 {
		return nil, errors.E(op, errors.KindBadInput, "a table needs at least one column")
	}
	known := map[string]bool{}
	for _, c := range columns {
		known[c.Name] = true
	}

	var parts []string
	hasUUIDDefault := false
	for _, c := range columns {
		if strings.TrimSpace(c.Type) == "" {
			return nil, errors.E(op, errors.KindBadInput, fmt.Sprintf("column %q has no type", c.Name))
		}
		col := quoteIdent(c.Name) + " " + c.Type
		if !c.Nullable {
			col += " NOT NULL"
		}
		if c.Unique {
			col += " UNIQUE"
		}
		if c.Default != "" {
			col += " DEFAULT " + d.defaultExpr(c.Default, c.Type)
			if c.Type == "uuid" && strings.Contains(c.Default, "gen_random_uuid") {
				hasUUIDDefault = true
			}
		}
		parts = append(parts, col)
	}

	var pks []string
	for _, pk := range def.PrimaryKeys {
		if pk == "" {
			continue
		}
		if !known[pk] {
			return nil, errors.E(op, errors.KindBadInput, fmt.Sprintf("primary key column %q is not a column of the table", pk))
		}
		pks = append(pks, pk)
	}
	if len(pks) > 0 {
		parts = append(parts, fmt.Sprintf("PRIMARY KEY (%s)", quoteIdents(pks)))
	}

	for _, fk := range def.ForeignKeys {
		if len(fk.ColumnMappings) == 0 {
			continue
		}
		seen := map[string]bool{}
		var lCols, rCols []string
		for _, m := range fk.ColumnMappings {
			if seen[m.Column] {
				return nil, errors.E(op, errors.KindBadInput, fmt.Sprintf("the column %q seems to be referencing multiple foreign columns", m.Column))
			}
			seen[m.Column] = true
			lCols = append(lCols, m.Column)
			rCols = append(rCols, m.RefColumn)
		}
		onUpdate, err := datasource.ValidateFKAction(fk.OnUpdate)
		if err != nil {
			return nil, errors.E(op, errors.KindBadInput, err)
		}
		onDelete, err := datasource.ValidateFKAction(fk.OnDelete)
		if err != nil {
			return nil, errors.E(op, errors.KindBadInput, err)
		}
		parts = append(parts, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s(%s) ON UPDATE %s ON DELETE %s",
			quoteIdents(lCols),
			quoteTable(datasource.QualifiedTable{Schema: fk.RefSchema, Name: fk.RefTable}),
			quoteIdents(rCols), onUpdate, onDelete))
	}

	for _, uk := range def.UniqueKeys {
		if len(uk) == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("UNIQUE (%s)", quoteIdents(uk)))
	}

	for _, cc := range def.CheckConstraints {
		if cc.Name == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("CONSTRAINT %s CHECK (%s)", quoteIdent(cc.Name), cc.Check))
	}

	create := fmt.Sprintf("CREATE TABLE %s (%s);", quoteTable(def.Table), strings.Join(parts, ", "))
	if def.Comment != "" {
		create += fmt.Sprintf(" COMMENT ON TABLE %s IS %s;", quoteTable(def.Table), quoteLiteral(def.Comment))
	}

	var queries []string
	if hasUUIDDefault {
		queries = append(queries, "CREATE EXTENSION IF NOT EXISTS pgcrypto;")
	}
	return append(queries, create), nil
}

func (Driver) DropTableSQL(table datasource.QualifiedTable) (string, error) {
	var op errors.Op = "postgres.Driver.DropTableSQL"
	if err := datasource.RequireTable(op, table); err != nil {
		return "", err
	}
	return fmt.Sprintf("DROP TABLE %s;", quoteTable(table)), nil
}

func objectKeyword(kind datasource.ObjectKind) (string, error) {
	switch kind {
	case "", datasource.ObjectTable:
		return "table", nil
	case datasource.ObjectView, datasource.ObjectMaterializedView, datasource.ObjectFunction:
		return string(kind), nil
	}
	return "", fmt.Errorf("unknown object kind %q", kind)
}

func (Driver) DropSQL(kind datasource.ObjectKind, table datasource.QualifiedTable) (string, error) {
	var op errors.Op = "postgres.Driver.DropSQL"
	if err := datasource.RequireTable(op, table); err != nil {
		return "", err
	}
	kw, err := objectKeyword(kind)
	if err != nil {
		return "", errors.E(op, errors.KindBadInput, err)
	}
	return fmt.Sprintf("DROP %s %s;", strings.ToUpper(kw), quoteTable(table)), nil
}

func (Driver) RenameSQL(kind datasource.ObjectKind, schema, oldName, newName string) (string, error) {
	var op errors.Op = "postgres.Driver.RenameSQL"
	if err := datasource.RequireName(op, "name", schema, oldName, newName); err != nil {
		return "", err
	}
	kw, err := objectKeyword(kind)
	if err != nil {
		return "", errors.E(op, errors.KindBadInput, err)
	}
	return fmt.Sprintf("alter %s %s rename to %s;", kw,
		quoteTable(datasource.QualifiedTable{Schema: schema, Name: oldName}), quoteIdent(newName)), nil
}

func (d Driver) AddColumnSQL(table datasource.QualifiedTable, column, colType string, opts *datasource.AddColumnOptions) (string, error) {
	var op errors.Op = "postgres.Driver.AddColumnSQL"
	if err := datasource.RequireTable(op, table); err != nil {
		return "", err
	}
	if err := datasource.RequireName(op, "column name and type", column, colType); err != nil {
		return "", err
	}
	sql := fmt.Sprintf("alter table %s add column %s %s", quoteTable(table), quoteIdent(column), colType)
	if opts != nil {
		if opts.Nullable {
			sql += " null"
		} else {
			sql += " not null"
		}
		if opts.Unique {
			sql += " unique"
		}
		if opts.Default != "" {
			sql += " default " + d.defaultExpr(opts.Default, colType)
		}
	}
	return sql + ";", nil
}

func (Driver) DropColumnSQL(table datasource.QualifiedTable, column string) (string, error) {
	var op errors.Op = "postgres.Driver.DropColumnSQL"
	if err := datasource.RequireTable(op, table); err != nil {
		return "", err
	}
	if err := datasource.RequireName(op, "column name", column); err != nil {
		return "", err
	}
	return fmt.Sprintf("alter table %s drop column %s cascade;", quoteTable(table), quoteIdent(column)), nil
}

func (Driver) RenameColumnSQL(table datasource.QualifiedTable, oldName, newName string) (string, error) {
	var op errors.Op = "postgres.Driver.RenameColumnSQL"
	if err := datasource.RequireTable(op, table); err != nil {
		return "", err
	}
	if err := datasource.RequireName(op, "column name", oldName, newName); err != nil {
		return "", err
	}
	return fmt.Sprintf("alter table %s rename column %s to %s;", quoteTable(table), quoteIdent(oldName), quoteIdent(newName)), nil
}

func (Driver) AlterColumnTypeSQL(table datasource.QualifiedTable, column, colType string) (string, error) {
	var op errors.Op = "postgres.Driver.AlterColumnTypeSQL"
	if err := datasource.RequireTable(op, table); err != nil {
		return "", err
	}
	if err := datasource.RequireName(op, "column name and type", column, colType); err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s;", quoteTable(table), quoteIdent(column), colType), nil
}

func (Driver) SetNotNullSQL(table datasource.QualifiedTable, column string) (string, error) {
	return alterColumn("postgres.Driver.SetNotNullSQL", table, column, "set not null")
}

func (Driver) DropNotNullSQL(table datasource.QualifiedTable, column string) (string, error) {
	return alterColumn("postgres.Driver.DropNotNullSQL", table, column, "drop not null")
}

func (Driver) DropColumnDefaultSQL(table datasource.QualifiedTable, column string) (string, error) {
	return alterColumn("postgres.Driver.DropColumnDefaultSQL", table, column, "drop default")
}

func (d Driver) SetColumnDefaultSQL(table datasource.QualifiedTable, column, defaultValue, colType string) (string, error) {
	return alterColumn("postgres.Driver.SetColumnDefaultSQL", table, column, "set default "+d.defaultExpr(defaultValue, colType))
}

func alterColumn(op errors.Op, table datasource.QualifiedTable, column, action string) (string, error) {
	if err := datasource.RequireTable(op, table); err != nil {
		return "", err
	}
	if err := datasource.RequireName(op, "column name", column); err != nil {
		return "", err
	}
	return fmt.Sprintf("alter table %s alter column %s %s;", quoteTable(table), quoteIdent(column), action), nil
}

func (Driver) SetCommentSQL(on datasource.CommentTarget, table datasource.QualifiedTable, column, comment string) (string, error) {
	var op errors.Op = "postgres.Driver.SetCommentSQL"
	if err := datasource.RequireTable(op, table); err != nil {
		return "", err
	}
	switch on {
	case datasource.CommentOnColumn:
		if err := datasource.RequireName(op, "column name", column); err != nil {
			return "", err
		}
		return fmt.Sprintf("comment on column %s.%s is %s;", quoteTable(table), quoteIdent(column), escapeText(comment)), nil
	case datasource.CommentOnTable, "":
		return fmt.Sprintf("comment on table %s is %s;", quoteTable(table), escapeText(comment)), nil
	}
	return "", errors.E(op, errors.KindBadInput, fmt.Sprintf("cannot comment on %q", on))
}

func (Driver) AddUniqueConstraintSQL(table datasource.QualifiedTable, constraint string, columns []string) (string, error) {
	var op errors.Op = "postgres.Driver.AddUniqueConstraintSQL"
	return addConstraint(op, table, constraint, columns, "unique")
}

func (Driver) CreatePrimaryKeySQL(table datasource.QualifiedTable, constraint string, columns []string) (string, error) {
	var op errors.Op = "postgres.Driver.CreatePrimaryKeySQL"
	return addConstraint(op, table, constraint, columns, "primary key")
}

func addConstraint(op errors.Op, table datasource.QualifiedTable, constraint string, columns []string, kind string) (string, error) {
	if err := datasource.RequireTable(op, table); err != nil {
		return "", err
	}
	if err := datasource.RequireName(op, "constraint name", constraint); err != nil {
		return "", err
	}
	if len(columns) == 0 {
		return "", errors.E(op, errors.KindBadInput, "at least one column is required")
	}
	return fmt.Sprintf("alter table %s add constraint %s %s (%s);", quoteTable(table), quoteIdent(constraint), kind, quoteIdents(columns)), nil
}

func (Driver) CreateCheckConstraintSQL(table datasource.QualifiedTable, constraint, check string) (string, error) {
	var op errors.Op = "postgres.Driver.CreateCheckConstraintSQL"
	if err := datasource.RequireTable(op, table); err != nil {
		return "", err
	}
	if err := datasource.RequireName(op, "constraint name and check", constraint, check); err != nil {
		return "", err
	}
	return fmt.Sprintf("alter table %s add constraint %s check (%s);", quoteTable(table), quoteIdent(constraint), check), nil
}

func foreignKeyClause(op errors.Op, from, to datasource.ForeignKeyRef, constraint, onUpdate, onDelete string) (string, error) {
	if err := datasource.RequireName(op, "table name", from.SchemaName, from.TableName, to.SchemaName, to.TableName); err != nil {
		return "", err
	}
	if err := datasource.RequireName(op, "constraint name", constraint); err != nil {
		return "", err
	}
	if len(from.Columns) == 0 || len(from.Columns) != len(to.Columns) {
		return "", errors.E(op, errors.KindBadInput, "foreign key columns must be non empty and pair up")
	}
	upd, err := datasource.ValidateFKAction(onUpdate)
	if err != nil {
		return "", errors.E(op, errors.KindBadInput, err)
	}
	del, err := datasource.ValidateFKAction(onDelete)
	if err != nil {
		return "", errors.E(op, errors.KindBadInput, err)
	}
	return fmt.Sprintf("add constraint %s foreign key (%s) references %s (%s) on update %s on delete %s",
		quoteIdent(constraint), quoteIdents(from.Columns),
		quoteTable(datasource.QualifiedTable{Schema: to.SchemaName, Name: to.TableName}),
		quoteIdents(to.Columns), upd, del), nil
}

func (Driver) CreateForeignKeySQL(from, to datasource.ForeignKeyRef, constraint, onUpdate, onDelete string) (string, error) {
	var op errors.Op = "postgres.Driver.CreateForeignKeySQL"
	clause, err := foreignKeyClause(op, from, to, constraint, onUpdate, onDelete)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("alter table %s %s;",
		quoteTable(datasource.QualifiedTable{Schema: from.SchemaName, Name: from.TableName}), clause), nil
}

func (Driver) AlterForeignKeySQL(from, to datasource.ForeignKeyRef, dropConstraint, newConstraint, onUpdate, onDelete string) (string, error) {
	var op errors.Op = "postgres.Driver.AlterForeignKeySQL"
	if err := datasource.RequireName(op, "constraint name", dropConstraint); err != nil {
		return "", err
	}
	clause, err := foreignKeyClause(op, from, to, newConstraint, onUpdate, onDelete)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("alter table %s drop constraint %s, %s;",
		quoteTable(datasource.QualifiedTable{Schema: from.SchemaName, Name: from.TableName}),
		quoteIdent(dropConstraint), clause), nil
}

func (Driver) DropConstraintSQL(table datasource.QualifiedTable, constraint string) (string, error) {
	var op errors.Op = "postgres.Driver.DropConstraintSQL"
	if err := datasource.RequireTable(op, table); err != nil {
		return "", err
	}
	if err := datasource.RequireName(op, "constraint name", constraint); err != nil {
		return "", err
	}
	return fmt.Sprintf("alter table %s drop constraint %s;", quoteTable(table), quoteIdent(constraint)), nil
}

func (Driver) CreateTriggerSQL(table datasource.QualifiedTable, name string, def datasource.TriggerDefinition) (string, error) {
	var op errors.Op = "postgres.Driver.CreateTriggerSQL"
	if err := datasource.RequireTable(op, table); err != nil {
		return "", err
	}
	if err := datasource.RequireName(op, "trigger name", name); err != nil {
		return "", err
	}
	if err := datasource.RequireName(op, "trigger definition", def.ActionTiming, def.EventManipulation, def.ActionOrientation, def.ActionStatement); err != nil {
		return "", err
	}
	sql := fmt.Sprintf("CREATE TRIGGER %s\n%s %s ON %s\nFOR EACH %s %s;",
		quoteIdent(name), def.ActionTiming, def.EventManipulation, quoteTable(table),
		def.ActionOrientation, strings.TrimSuffix(strings.TrimSpace(def.ActionStatement), ";"))
	if def.Comment != "" {
		sql += fmt.Sprintf("\nCOMMENT ON TRIGGER %s ON %s IS %s;", quoteIdent(name), quoteTable(table), quoteLiteral(def.Comment))
	}
	return sql, nil
}

func (Driver) DropTriggerSQL(table datasource.QualifiedTable, name string) (string, error) {
	var op errors.Op = "postgres.Driver.DropTriggerSQL"
	if err := datasource.RequireTable(op, table); err != nil {
		return "", err
	}
	if err := datasource.RequireName(op, "trigger name", name); err != nil {
		return "", err
	}
	return fmt.Sprintf("DROP TRIGGER %s ON %s;", quoteIdent(name), quoteTable(table)), nil
}

// CascadeSQL appends CASCADE to the last statement of sql.
func (Driver) CascadeSQL(sql string) string {
	sql = strings.TrimRight(sql, " \t\n")
	return strings.TrimSuffix(sql, ";") + " CASCADE;"
}

func (Driver) StatementTimeoutSQL(seconds int) (string, error) {
	var op errors.Op = "postgres.Driver.StatementTimeoutSQL"
	if seconds <= 0 {
		return "", errors.E(op, errors.KindBadInput, "statement timeout must be a positive number of seconds")
	}
	return fmt.Sprintf("SET LOCAL statement_timeout = %d;", seconds*1000), nil
}

func (Driver) EstimateCountSQL(table datasource.QualifiedTable) (string, error) {
	var op errors.Op = "postgres.Driver.EstimateCountSQL"
	if err := datasource.RequireTable(op, table); err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT reltuples::BIGINT FROM pg_class WHERE oid = (quote_ident(%s) || '.' || quote_ident(%s))::regclass::oid AND relname = %s;",
		quoteLiteral(table.Schema), quoteLiteral(table.Name), quoteLiteral(table.Name)), nil
}

// ViewDefinitionSQL yields a query answering with a CREATE statement that
// recreates the view, materialized or not.
func (Driver) ViewDefinitionSQL(view datasource.QualifiedTable) (string, error) {
	var op errors.Op = "postgres.Driver.ViewDefinitionSQL"
	if err := datasource.RequireTable(op, view); err != nil {
		return "", err
	}
	name := quoteTable(view)
	reg := fmt.Sprintf("to_regclass(%s)", quoteLiteral(name))
	return fmt.Sprintf("SELECT CASE WHEN (SELECT relkind FROM pg_class WHERE oid = %s) = 'm' THEN %s ELSE %s END || pg_get_viewdef(%s) AS view_definition;",
		reg,
		quoteLiteral("CREATE MATERIALIZED VIEW "+name+" AS \n"),
		quoteLiteral("CREATE OR REPLACE VIEW "+name+" AS \n"),
		reg), nil
}
