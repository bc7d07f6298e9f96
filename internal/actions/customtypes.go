package actions

import (
	"fmt"
	"regexp"

	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/metadata"
)

var graphQLName = regexp.MustCompile(`^[_A-Za-z][_0-9A-Za-z]*$`)

var builtinScalars = map[string]bool{"Int": true, "Float": true, "String": true, "Boolean": true, "ID": true}

// MergeTypes puts newTypes in front of existing ones, replacing existing
// types of the same name. The replaced names are returned sorted.
func MergeTypes(newTypes, existing []metadata.CustomType) (merged []metadata.CustomType, overlapping []string) {
	incoming := map[string]bool{}
	merged = make([]metadata.CustomType, 0, len(newTypes)+len(existing))
	for _, t := range newTypes {
		incoming[t.Name] = true
		merged = append(merged, t)
	}
	var replaced []metadata.CustomType
	for _, t := range existing {
		if incoming[t.Name] {
			replaced = append(replaced, t)
			continue
		}
		merged = append(merged, t)
	}
	return merged, typeNames(replaced)
}

// HydrateRelationships copies the relationships of existing object types
// onto the redefined ones, SDL has no way to express them.
func HydrateRelationships(newTypes, existing []metadata.CustomType) []metadata.CustomType {
	rels := map[string][]metadata.TypeRelationship{}
	for _, t := range existing {
		if t.Kind == metadata.KindObject && len(t.Relationships) > 0 {
			rels[t.Name] = t.Relationships
		}
	}
	out := make([]metadata.CustomType, len(newTypes))
	for i, t := range newTypes {
		if r, ok := rels[t.Name]; ok && t.Kind == metadata.KindObject {
			t.Relationships = append([]metadata.TypeRelationship{}, r...)
		}
		out[i] = t
	}
	return out
}

// InjectRelationship adds rel to typename, replacing a relationship of the
// same name. types is not modified.
func InjectRelationship(types []metadata.CustomType, typename string, rel metadata.TypeRelationship) []metadata.CustomType {
	out := make([]metadata.CustomType, len(types))
	for i, t := range types {
		if t.Name == typename {
			rels := make([]metadata.TypeRelationship, 0, len(t.Relationships)+1)
			replaced := false
			for _, r := range t.Relationships {
				if r.Name == rel.Name {
					r, replaced = rel, true
				}
				rels = append(rels, r)
			}
			if !replaced {
				rels = append(rels, rel)
			}
			t.Relationships = rels
		}
		out[i] = t
	}
	return out
}

func RemoveRelationship(types []metadata.CustomType, typename, relName string) []metadata.CustomType {
	out := make([]metadata.CustomType, len(types))
	for i, t := range types {
		if t.Name == typename {
			rels := make([]metadata.TypeRelationship, 0, len(t.Relationships))
			for _, r := range t.Relationships {
				if r.Name != relName {
					rels = append(rels, r)
				}
			}
			t.Relationships = rels
		}
		out[i] = t
	}
	return out
}

// ValidateRelationshipName checks relName is free on the object type
// typename, both among its fields and its relationships.
func ValidateRelationshipName(types []metadata.CustomType, typename, relName string) error {
	var op errors.Op = "actions.ValidateRelationshipName"
	if !graphQLName.MatchString(relName) {
		return errors.E(op, errors.KindBadInput, fmt.Sprintf("%q is not a valid GraphQL name", relName))
	}
	for _, t := range types {
		if t.Name != typename {
			continue
		}
		if t.Kind != metadata.KindObject {
			return errors.E(op, errors.KindBadInput, fmt.Sprintf("relationships can only be added to object types, %q is not one", typename))
		}
		for _, f := range t.Fields {
			if f.Name == relName {
				return errors.E(op, errors.KindBadInput, fmt.Sprintf("a field called %q already exists in type %q", relName, typename))
			}
		}
		for _, r := range t.Relationships {
			if r.Name == relName {
				return errors.E(op, errors.KindBadInput, fmt.Sprintf("a relationship called %q already exists in type %q", relName, typename))
			}
		}
		return nil
	}
	return errors.E(op, errors.KindBadInput, fmt.Sprintf("type %q not found", typename))
}

// Validate checks an action against the types it will be created with.
// Argument types must be scalars, enums or input objects and the output
// type must be an object.
func Validate(def *Definition, handler string, types []metadata.CustomType) error {
	var op errors.Op = "actions.Validate"
	if !graphQLName.MatchString(def.Name) {
		return errors.E(op, errors.KindBadInput, fmt.Sprintf("%q is not a valid action name", def.Name))
	}
	if handler == "" {
		return errors.E(op, errors.KindBadInput, "webhook handler cannot be empty")
	}
	byName := map[string]metadata.CustomType{}
	for _, t := range types {
		byName[t.Name] = t
	}
	for _, arg := range def.Arguments {
		name := BaseTypeName(arg.Type)
		if builtinScalars[name] {
			continue
		}
		t, ok := byName[name]
		if !ok {
			return errors.E(op, errors.KindBadInput, fmt.Sprintf("argument %q has undefined type %q", arg.Name, name))
		}
		if t.Kind == metadata.KindObject {
			return errors.E(op, errors.KindBadInput, fmt.Sprintf("argument %q cannot be of object type %q", arg.Name, name))
		}
	}
	out := BaseTypeName(def.OutputType)
	if t, ok := byName[out]; ok {
		if t.Kind == metadata.KindInputObject {
			return errors.E(op, errors.KindBadInput, fmt.Sprintf("output type %q cannot be an input object", out))
		}
		return nil
	}
	if builtinScalars[out] {
		return nil
	}
	return errors.E(op, errors.KindBadInput, fmt.Sprintf("output type %q is not defined", out))
}
