package datasource

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura"
)

var schemaModifyingPrefixes = []string{"create", "alter", "drop"}

// IsSchemaModification reports whether any statement of sql starts with
// CREATE, ALTER or DROP. Leading line comments are ignored.
func IsSchemaModification(sql string) bool {
	for _, stmt := range strings.Split(strings.ToLower(sql), ";") {
		stmt = stripLineComments(stmt)
		for _, prefix := range schemaModifyingPrefixes {
			if strings.HasPrefix(stmt, prefix) {
				return true
			}
		}
	}
	return false
}

func stripLineComments(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	for strings.HasPrefix(stmt, "--") {
		nl := strings.IndexByte(stmt, '\n')
		if nl < 0 {
			return ""
		}
		stmt = strings.TrimSpace(stmt[nl+1:])
	}
	return stmt
}

var sqlFunctionRegex = regexp.MustCompile(`.*\(.*\)`)

// IsSQLFunction reports whether value looks like a function call such as
// now() or gen_random_uuid().
func IsSQLFunction(value string) bool {
	return sqlFunctionRegex.MatchString(value)
}

// CreatedObjectsFromRegex runs a create statement regex carrying the
// named groups type, schema, nameWithSchema, name and partition.
func CreatedObjectsFromRegex(re *regexp.Regexp, sql, defaultSchema string, unquote func(string) string) []CreatedObject {
	var objects []CreatedObject
	names := re.SubexpNames()
	for _, match := range re.FindAllStringSubmatch(sql, -1) {
		groups := map[string]string{}
		for i, n := range names {
			if n != "" {
				groups[n] = match[i]
			}
		}
		obj := CreatedObject{
			Type:        ObjectKind(strings.Join(strings.Fields(strings.ToLower(groups["type"])), " ")),
			Schema:      defaultSchema,
			IsPartition: strings.TrimSpace(groups["partition"]) != "",
		}
		if groups["schema"] != "" {
			obj.Schema = unquote(groups["schema"])
			obj.Name = unquote(groups["nameWithSchema"])
		} else {
			obj.Name = unquote(groups["name"])
		}
		if obj.Name == "" {
			continue
		}
		objects = append(objects, obj)
	}
	return objects
}

var fkActions = map[string]string{
	"a": "no action",
	"r": "restrict",
	"c": "cascade",
	"n": "set null",
	"d": "set default",
}

// FKActionName expands the single letter codes postgres stores in
// pg_constraint.confupdtype and confdeltype. Unknown codes pass through.
func FKActionName(code string) string {
	if name, ok := fkActions[code]; ok {
		return name
	}
	return code
}

var validFKActions = map[string]bool{
	"no action":   true,
	"restrict":    true,
	"cascade":     true,
	"set null":    true,
	"set default": true,
}

// ValidateFKAction accepts the ON UPDATE/ON DELETE actions both drivers
// understand, in any case.
func ValidateFKAction(action string) (string, error) {
	a := strings.ToLower(strings.TrimSpace(action))
	if a == "" {
		return "restrict", nil
	}
	if !validFKActions[a] {
		return "", fmt.Errorf("invalid foreign key action %q", action)
	}
	return a, nil
}

// DecodeRunSQLJSON unmarshals the single JSON cell introspection queries
// answer with: a header row followed by one row holding the document.
func DecodeRunSQLJSON(result *hasura.RunSQLResult, v interface{}) error {
	var op errors.Op = "datasource.DecodeRunSQLJSON"
	if result == nil || len(result.Rows) < 2 || len(result.Rows[1]) == 0 {
		return errors.E(op, errors.KindHasuraAPI, "run_sql returned no rows")
	}
	cell := result.Rows[1][0]
	if cell == "NULL" {
		cell = "null"
	}
	if err := json.Unmarshal([]byte(cell), v); err != nil {
		return errors.E(op, errors.KindHasuraAPI, fmt.Errorf("decoding run_sql result: %w", err))
	}
	return nil
}

// RequireName fails with KindBadInput when any of the given identifiers is
// blank.
func RequireName(op errors.Op, what string, names ...string) error {
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			return errors.E(op, errors.KindBadInput, fmt.Sprintf("%s is required", what))
		}
	}
	return nil
}

// RequireTable validates both parts of a qualified table name.
func RequireTable(op errors.Op, t QualifiedTable) error {
	if err := RequireName(op, "schema name", t.Schema); err != nil {
		return err
	}
	return RequireName(op, "table name", t.Name)
}

// SchemaFunctions keeps the functions living in schema.
func SchemaFunctions(functions []Function, schema string) []Function {
	out := make([]Function, 0)
	for _, f := range functions {
		if f.FunctionSchema == schema {
			out = append(out, f)
		}
	}
	return out
}

func FindFunction(functions []Function, name, schema string) *Function {
	for i := range functions {
		if functions[i].FunctionName == name && functions[i].FunctionSchema == schema {
			return &functions[i]
		}
	}
	return nil
}

// GroupedTableComputedFields puts computed fields whose function returns a
// base type under Scalar and every other one under Table.
func GroupedTableComputedFields(table Table, functions []Function) GroupedComputedFields {
	grouped := GroupedComputedFields{Scalar: []ComputedField{}, Table: []ComputedField{}}
	for _, cf := range table.ComputedFields {
		fn := FindFunction(functions, cf.Definition.Function.Name, cf.Definition.Function.Schema)
		if fn != nil && fn.ReturnTypeType == "b" {
			grouped.Scalar = append(grouped.Scalar, cf)
			continue
		}
		grouped.Table = append(grouped.Table, cf)
	}
	return grouped
}
