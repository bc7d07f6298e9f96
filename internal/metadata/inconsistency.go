package metadata

import (
	"encoding/json"

	"github.com/hasura/graphql-engine/console/internal/hasura"
)

// Inconsistent object types as reported by the engine.
const (
	InconsistentTable        = "table"
	InconsistentFunction     = "function"
	InconsistentRemoteSchema = "remote_schema"
	InconsistentAction       = "action"
	InconsistentSource       = "source"
	InconsistentEventTrigger = "event_trigger"
)

// ObjectRef identifies a metadata object named in an inconsistency.
type ObjectRef struct {
	Source string
	Schema string
	Name   string
}

// RefOf extracts what an inconsistent object points at. The engine nests
// the qualified name differently per type and version, plain strings
// are names.
func RefOf(o hasura.InconsistentObject) ObjectRef {
	ref := ObjectRef{Name: o.Name}
	if len(o.Definition) == 0 {
		return ref
	}
	var name string
	if err := json.Unmarshal(o.Definition, &name); err == nil {
		if ref.Name == "" {
			ref.Name = name
		}
		return ref
	}
	var def struct {
		Source   string          `json:"source"`
		Name     string          `json:"name"`
		Schema   string          `json:"schema"`
		Table    json.RawMessage `json:"table"`
		Function json.RawMessage `json:"function"`
	}
	if err := json.Unmarshal(o.Definition, &def); err != nil {
		return ref
	}
	ref.Source, ref.Schema = def.Source, def.Schema
	if def.Name != "" {
		ref.Name = def.Name
	}
	nested := def.Table
	if o.Type == InconsistentFunction && len(def.Function) > 0 {
		nested = def.Function
	}
	if len(nested) > 0 {
		var q struct {
			Name   string `json:"name"`
			Schema string `json:"schema"`
		}
		if json.Unmarshal(nested, &q) == nil && q.Name != "" {
			ref.Name, ref.Schema = q.Name, q.Schema
		} else if json.Unmarshal(nested, &name) == nil {
			ref.Name = name
		}
	}
	return ref
}

// IsInconsistent reports whether an object of objType with the given
// schema and name is listed. An empty schema matches by name alone.
func IsInconsistent(objects []hasura.InconsistentObject, objType, schema, name string) bool {
	for _, o := range objects {
		if o.Type != objType {
			continue
		}
		ref := RefOf(o)
		if ref.Name != name {
			continue
		}
		if schema == "" || ref.Schema == schema {
			return true
		}
	}
	return false
}
