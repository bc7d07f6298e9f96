package actions

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/metadata"
)

const (
	TypeMutation = "mutation"
	TypeQuery    = "query"
)

// Definition is an action signature read from SDL such as
// `type Mutation { login(username: String!): LoginOutput }`.
type Definition struct {
	Name       string
	Type       string
	Arguments  []metadata.InputArgument
	OutputType string
	Comment    string
}

func parseSDL(op errors.Op, sdl string) (*ast.SchemaDocument, error) {
	doc, gqlErr := parser.ParseSchema(&ast.Source{Name: "sdl", Input: sdl})
	if gqlErr != nil {
		return nil, errors.E(op, errors.KindBadInput, gqlErr)
	}
	return doc, nil
}

// ParseActionDefinition reads exactly one field off a Mutation or Query
// type, extended or not.
func ParseActionDefinition(sdl string) (*Definition, error) {
	var op errors.Op = "actions.ParseActionDefinition"
	if strings.TrimSpace(sdl) == "" {
		return nil, errors.E(op, errors.KindBadInput, "action definition cannot be empty")
	}
	doc, err := parseSDL(op, sdl)
	if err != nil {
		return nil, err
	}
	defs := append(ast.DefinitionList{}, doc.Definitions...)
	defs = append(defs, doc.Extensions...)
	if len(defs) != 1 {
		return nil, errors.E(op, errors.KindBadInput, "there must be exactly one root type in the action definition")
	}
	root := defs[0]
	var actionType string
	switch {
	case root.Kind == ast.Object && root.Name == "Mutation":
		actionType = TypeMutation
	case root.Kind == ast.Object && root.Name == "Query":
		actionType = TypeQuery
	default:
		return nil, errors.E(op, errors.KindBadInput, "the action must be defined on type Mutation or type Query")
	}
	if len(root.Fields) != 1 {
		return nil, errors.E(op, errors.KindBadInput, "there must be exactly one action in the definition")
	}
	field := root.Fields[0]
	def := &Definition{
		Name:       field.Name,
		Type:       actionType,
		OutputType: field.Type.String(),
		Comment:    field.Description,
		Arguments:  []metadata.InputArgument{},
	}
	for _, arg := range field.Arguments {
		def.Arguments = append(def.Arguments, metadata.InputArgument{Name: arg.Name, Type: arg.Type.String(), Description: arg.Description})
	}
	return def, nil
}

// ParseTypes reads the custom types of an action. Interfaces, unions and
// type extensions have no custom_types counterpart and are rejected.
func ParseTypes(sdl string) ([]metadata.CustomType, error) {
	var op errors.Op = "actions.ParseTypes"
	types := []metadata.CustomType{}
	if strings.TrimSpace(sdl) == "" {
		return types, nil
	}
	doc, err := parseSDL(op, sdl)
	if err != nil {
		return nil, err
	}
	if len(doc.Extensions) > 0 {
		return nil, errors.E(op, errors.KindBadInput, "type extensions are not supported in custom types")
	}
	seen := map[string]bool{}
	for _, def := range doc.Definitions {
		if seen[def.Name] {
			return nil, errors.E(op, errors.KindBadInput, fmt.Sprintf("type %q is defined more than once", def.Name))
		}
		seen[def.Name] = true

		t := metadata.CustomType{Name: def.Name, Description: def.Description}
		switch def.Kind {
		case ast.Object:
			t.Kind = metadata.KindObject
			t.Fields = fieldsOf(def)
		case ast.InputObject:
			t.Kind = metadata.KindInputObject
			t.Fields = fieldsOf(def)
		case ast.Scalar:
			t.Kind = metadata.KindScalar
		case ast.Enum:
			t.Kind = metadata.KindEnum
			for _, v := range def.EnumValues {
				t.Values = append(t.Values, metadata.EnumValue{
					Value:        v.Name,
					Description:  v.Description,
					IsDeprecated: v.Directives.ForName("deprecated") != nil,
				})
			}
		default:
			return nil, errors.E(op, errors.KindBadInput, fmt.Sprintf("type %q: %s types are not supported", def.Name, strings.ToLower(string(def.Kind))))
		}
		types = append(types, t)
	}
	return types, nil
}

func fieldsOf(def *ast.Definition) []metadata.ObjectField {
	fields := make([]metadata.ObjectField, 0, len(def.Fields))
	for _, f := range def.Fields {
		fields = append(fields, metadata.ObjectField{Name: f.Name, Type: f.Type.String(), Description: f.Description})
	}
	return fields
}

// PrintActionDefinition renders an action back to the SDL ParseActionDefinition reads.
func PrintActionDefinition(a metadata.Action) string {
	root := "Mutation"
	if a.Definition.Type == TypeQuery {
		root = "Query"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "type %s {\n", root)
	writeDescription(&b, "  ", a.Comment)
	b.WriteString("  " + a.Name)
	if len(a.Definition.Arguments) > 0 {
		b.WriteString("(")
		for i, arg := range a.Definition.Arguments {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(arg.Name + ": " + arg.Type)
		}
		b.WriteString(")")
	}
	fmt.Fprintf(&b, ": %s\n}\n", a.Definition.OutputType)
	return b.String()
}

// PrintTypes renders custom types as SDL, relationships are not part of it.
func PrintTypes(types []metadata.CustomType) string {
	var b strings.Builder
	for i, t := range types {
		if i > 0 {
			b.WriteString("\n")
		}
		writeDescription(&b, "", t.Description)
		switch t.Kind {
		case metadata.KindScalar:
			fmt.Fprintf(&b, "scalar %s\n", t.Name)
		case metadata.KindEnum:
			fmt.Fprintf(&b, "enum %s {\n", t.Name)
			for _, v := range t.Values {
				writeDescription(&b, "  ", v.Description)
				b.WriteString("  " + v.Value)
				if v.IsDeprecated {
					b.WriteString(" @deprecated")
				}
				b.WriteString("\n")
			}
			b.WriteString("}\n")
		default:
			keyword := "type"
			if t.Kind == metadata.KindInputObject {
				keyword = "input"
			}
			fmt.Fprintf(&b, "%s %s {\n", keyword, t.Name)
			for _, f := range t.Fields {
				writeDescription(&b, "  ", f.Description)
				fmt.Fprintf(&b, "  %s: %s\n", f.Name, f.Type)
			}
			b.WriteString("}\n")
		}
	}
	return b.String()
}

func writeDescription(b *strings.Builder, indent, desc string) {
	if desc == "" {
		return
	}
	if strings.Contains(desc, "\n") {
		fmt.Fprintf(b, "%s\"\"\"\n%s%s\n%s\"\"\"\n", indent, indent, strings.ReplaceAll(desc, "\n", "\n"+indent), indent)
		return
	}
	fmt.Fprintf(b, "%s%q\n", indent, desc)
}

// UsedTypes lists the custom types an action refers to through its
// arguments and output type, following object and input object fields.
func UsedTypes(def metadata.ActionDefinition, all []metadata.CustomType) []metadata.CustomType {
	byName := map[string]metadata.CustomType{}
	for _, t := range all {
		byName[t.Name] = t
	}
	used := map[string]bool{}
	var visit func(typ string)
	visit = func(typ string) {
		name := BaseTypeName(typ)
		t, ok := byName[name]
		if !ok || used[name] {
			return
		}
		used[name] = true
		for _, f := range t.Fields {
			visit(f.Type)
		}
	}
	visit(def.OutputType)
	for _, arg := range def.Arguments {
		visit(arg.Type)
	}
	out := []metadata.CustomType{}
	for _, t := range all {
		if used[t.Name] {
			out = append(out, t)
		}
	}
	return out
}

// BaseTypeName strips list and non-null wrappers, "[Int!]!" gives "Int".
func BaseTypeName(typ string) string {
	return strings.Trim(typ, "[]! ")
}

func typeNames(types []metadata.CustomType) []string {
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}
