package mysql

import (
	"fmt"
	"strings"

	"github.com/hasura/graphql-engine/console/internal/datasource"
	"github.com/hasura/graphql-engine/console/internal/errors"
)

func (d Driver) defaultExpr(value, colType string) string {
	if d.IsColTypeString(colType) && !d.IsSQLFunction(value) {
		return quoteLiteral(value)
	}
	return value
}

func (Driver) CreateSchemaSQL(schema string) (string, error) {
	var op errors.Op = "mysql.Driver.CreateSchemaSQL"
	if err := datasource.RequireName(op, "schema name", schema); err != nil {
		return "", err
	}
	return fmt.Sprintf("CREATE SCHEMA %s;", quoteIdent(schema)), nil
}

func (Driver) DropSchemaSQL(schema string) (string, error) {
	var op errors.Op = "mysql.Driver.DropSchemaSQL"
	if err := datasource.RequireName(op, "schema name", schema); err != nil {
		return "", err
	}
	return fmt.Sprintf("DROP SCHEMA %s;", quoteIdent(schema)), nil
}

func (Driver) DropTableSQL(table datasource.QualifiedTable) (string, error) {
	var op errors.Op = "mysql.Driver.DropTableSQL"
	if err := requireTable(op, table); err != nil {
		return "", err
	}
	return fmt.Sprintf("DROP TABLE %s;", quoteTable(table)), nil
}

func (Driver) DropSQL(kind datasource.ObjectKind, table datasource.QualifiedTable) (string, error) {
	var op errors.Op = "mysql.Driver.DropSQL"
	if err := requireTable(op, table); err != nil {
		return "", err
	}
	switch kind {
	case "", datasource.ObjectTable:
		return fmt.Sprintf("DROP TABLE %s;", quoteTable(table)), nil
	case datasource.ObjectView:
		return fmt.Sprintf("DROP VIEW %s;", quoteTable(table)), nil
	case datasource.ObjectFunction:
		return fmt.Sprintf("DROP FUNCTION %s;", quoteTable(table)), nil
	}
	return "", errBadInput(op, "mysql has no %s", kind)
}

// RenameSQL uses RENAME TABLE, which mysql applies to views as well.
func (Driver) RenameSQL(kind datasource.ObjectKind, schema, oldName, newName string) (string, error) {
	var op errors.Op = "mysql.Driver.RenameSQL"
	if err := datasource.RequireName(op, "name", schema, oldName, newName); err != nil {
		return "", err
	}
	switch kind {
	case "", datasource.ObjectTable, datasource.ObjectView:
		return fmt.Sprintf("RENAME TABLE %s TO %s;",
			quoteTable(datasource.QualifiedTable{Schema: schema, Name: oldName}),
			quoteTable(datasource.QualifiedTable{Schema: schema, Name: newName})), nil
	}
	return "", datasource.NotSupported(op)
}

func (d Driver) AddColumnSQL(table datasource.QualifiedTable, column, colType string, opts *datasource.AddColumnOptions) (string, error) {
	var op errors.Op = "mysql.Driver.AddColumnSQL"
	if err := requireColumn(op, table, column); err != nil {
		return "", err
	}
	if err := datasource.RequireName(op, "column type", colType); err != nil {
		return "", err
	}
	sql := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", quoteTable(table), quoteIdent(column), colType)
	if opts != nil {
		if opts.Nullable {
			sql += " NULL"
		} else {
			sql += " NOT NULL"
		}
		if opts.Unique {
			sql += " UNIQUE"
		}
		if opts.Default != "" {
			sql += " DEFAULT " + d.defaultExpr(opts.Default, colType)
		}
	}
	return sql + ";", nil
}

func (Driver) DropColumnSQL(table datasource.QualifiedTable, column string) (string, error) {
	var op errors.Op = "mysql.Driver.DropColumnSQL"
	if err := requireColumn(op, table, column); err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", quoteTable(table), quoteIdent(column)), nil
}

func (Driver) RenameColumnSQL(table datasource.QualifiedTable, oldName, newName string) (string, error) {
	var op errors.Op = "mysql.Driver.RenameColumnSQL"
	if err := requireColumn(op, table, oldName); err != nil {
		return "", err
	}
	if err := datasource.RequireName(op, "column name", newName); err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s;", quoteTable(table), quoteIdent(oldName), quoteIdent(newName)), nil
}

func (Driver) AlterColumnTypeSQL(table datasource.QualifiedTable, column, colType string) (string, error) {
	var op errors.Op = "mysql.Driver.AlterColumnTypeSQL"
	if err := requireColumn(op, table, column); err != nil {
		return "", err
	}
	if err := datasource.RequireName(op, "column type", colType); err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s MODIFY %s %s;", quoteTable(table), quoteIdent(column), colType), nil
}

// SetNotNullSQL is not offered: mysql changes nullability only through
// MODIFY with the full column definition.
func (Driver) SetNotNullSQL(datasource.QualifiedTable, string) (string, error) {
	return "", datasource.NotSupported("mysql.Driver.SetNotNullSQL")
}

func (Driver) DropNotNullSQL(datasource.QualifiedTable, string) (string, error) {
	return "", datasource.NotSupported("mysql.Driver.DropNotNullSQL")
}

func (d Driver) SetColumnDefaultSQL(table datasource.QualifiedTable, column, defaultValue, colType string) (string, error) {
	var op errors.Op = "mysql.Driver.SetColumnDefaultSQL"
	if err := requireColumn(op, table, column); err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s;", quoteTable(table), quoteIdent(column), d.defaultExpr(defaultValue, colType)), nil
}

func (Driver) DropColumnDefaultSQL(table datasource.QualifiedTable, column string) (string, error) {
	var op errors.Op = "mysql.Driver.DropColumnDefaultSQL"
	if err := requireColumn(op, table, column); err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT;", quoteTable(table), quoteIdent(column)), nil
}

// SetCommentSQL supports table comments only, column comments need the
// full column definition.
func (Driver) SetCommentSQL(on datasource.CommentTarget, table datasource.QualifiedTable, _ string, comment string) (string, error) {
	var op errors.Op = "mysql.Driver.SetCommentSQL"
	if err := requireTable(op, table); err != nil {
		return "", err
	}
	switch on {
	case datasource.CommentOnTable, "":
		return fmt.Sprintf("ALTER TABLE %s COMMENT = %s;", quoteTable(table), quoteLiteral(comment)), nil
	case datasource.CommentOnColumn:
		return "", datasource.NotSupported(op)
	}
	return "", errBadInput(op, "cannot comment on %q", on)
}

func addConstraint(op errors.Op, table datasource.QualifiedTable, constraint string, columns []string, kind string) (string, error) {
	if err := requireTable(op, table); err != nil {
		return "", err
	}
	if err := datasource.RequireName(op, "constraint name", constraint); err != nil {
		return "", err
	}
	if len(columns) == 0 {
		return "", errBadInput(op, "at least one column is required")
	}
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s %s (%s);", quoteTable(table), quoteIdent(constraint), kind, quoteIdents(columns)), nil
}

func (Driver) AddUniqueConstraintSQL(table datasource.QualifiedTable, constraint string, columns []string) (string, error) {
	return addConstraint("mysql.Driver.AddUniqueConstraintSQL", table, constraint, columns, "UNIQUE")
}

func (Driver) CreatePrimaryKeySQL(table datasource.QualifiedTable, constraint string, columns []string) (string, error) {
	return addConstraint("mysql.Driver.CreatePrimaryKeySQL", table, constraint, columns, "PRIMARY KEY")
}

func (Driver) CreateCheckConstraintSQL(table datasource.QualifiedTable, constraint, check string) (string, error) {
	var op errors.Op = "mysql.Driver.CreateCheckConstraintSQL"
	if err := requireTable(op, table); err != nil {
		return "", err
	}
	if err := datasource.RequireName(op, "constraint name and check", constraint, check); err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s);", quoteTable(table), quoteIdent(constraint), check), nil
}

func foreignKeyClause(op errors.Op, from, to datasource.ForeignKeyRef, constraint, onUpdate, onDelete string) (string, error) {
	if err := datasource.RequireName(op, "table name", from.SchemaName, from.TableName, to.SchemaName, to.TableName); err != nil {
		return "", err
	}
	if err := datasource.RequireName(op, "constraint name", constraint); err != nil {
		return "", err
	}
	if len(from.Columns) == 0 || len(from.Columns) != len(to.Columns) {
		return "", errBadInput(op, "foreign key columns must be non empty and pair up")
	}
	upd, err := datasource.ValidateFKAction(onUpdate)
	if err != nil {
		return "", errors.E(op, errors.KindBadInput, err)
	}
	del, err := datasource.ValidateFKAction(onDelete)
	if err != nil {
		return "", errors.E(op, errors.KindBadInput, err)
	}
	return fmt.Sprintf("ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s) ON UPDATE %s ON DELETE %s",
		quoteIdent(constraint), quoteIdents(from.Columns),
		quoteTable(datasource.QualifiedTable{Schema: to.SchemaName, Name: to.TableName}),
		quoteIdents(to.Columns), strings.ToUpper(upd), strings.ToUpper(del)), nil
}

func (Driver) CreateForeignKeySQL(from, to datasource.ForeignKeyRef, constraint, onUpdate, onDelete string) (string, error) {
	var op errors.Op = "mysql.Driver.CreateForeignKeySQL"
	clause, err := foreignKeyClause(op, from, to, constraint, onUpdate, onDelete)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s %s;",
		quoteTable(datasource.QualifiedTable{Schema: from.SchemaName, Name: from.TableName}), clause), nil
}

func (Driver) AlterForeignKeySQL(from, to datasource.ForeignKeyRef, dropConstraint, newConstraint, onUpdate, onDelete string) (string, error) {
	var op errors.Op = "mysql.Driver.AlterForeignKeySQL"
	if err := datasource.RequireName(op, "constraint name", dropConstraint); err != nil {
		return "", err
	}
	clause, err := foreignKeyClause(op, from, to, newConstraint, onUpdate, onDelete)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s, %s;",
		quoteTable(datasource.QualifiedTable{Schema: from.SchemaName, Name: from.TableName}),
		quoteIdent(dropConstraint), clause), nil
}

func (Driver) DropConstraintSQL(table datasource.QualifiedTable, constraint string) (string, error) {
	var op errors.Op = "mysql.Driver.DropConstraintSQL"
	if err := requireTable(op, table); err != nil {
		return "", err
	}
	if err := datasource.RequireName(op, "constraint name", constraint); err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s;", quoteTable(table), quoteIdent(constraint)), nil
}

// CreateTriggerSQL ignores def.Comment, mysql triggers carry no comment.
func (Driver) CreateTriggerSQL(table datasource.QualifiedTable, name string, def datasource.TriggerDefinition) (string, error) {
	var op errors.Op = "mysql.Driver.CreateTriggerSQL"
	if err := requireTable(op, table); err != nil {
		return "", err
	}
	if err := datasource.RequireName(op, "trigger name", name); err != nil {
		return "", err
	}
	if err := datasource.RequireName(op, "trigger definition", def.ActionTiming, def.EventManipulation, def.ActionStatement); err != nil {
		return "", err
	}
	return fmt.Sprintf("CREATE TRIGGER %s %s %s ON %s FOR EACH ROW %s;",
		quoteTable(datasource.QualifiedTable{Schema: table.Schema, Name: name}),
		def.ActionTiming, def.EventManipulation, quoteTable(table),
		strings.TrimSuffix(strings.TrimSpace(def.ActionStatement), ";")), nil
}

func (Driver) DropTriggerSQL(table datasource.QualifiedTable, name string) (string, error) {
	var op errors.Op = "mysql.Driver.DropTriggerSQL"
	if err := requireTable(op, table); err != nil {
		return "", err
	}
	if err := datasource.RequireName(op, "trigger name", name); err != nil {
		return "", err
	}
	return fmt.Sprintf("DROP TRIGGER %s;", quoteTable(datasource.QualifiedTable{Schema: table.Schema, Name: name})), nil
}

func (Driver) CascadeSQL(sql string) string {
	sql = strings.TrimRight(sql, " \t\n")
	return strings.TrimSuffix(sql, ";") + " CASCADE;"
}
