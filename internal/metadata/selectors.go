package metadata

import (
	"encoding/json"
	"sync"

	"github.com/ahmetb/go-linq"

	"github.com/hasura/graphql-engine/console/internal/datasource"
	"github.com/hasura/graphql-engine/console/internal/hasura"
)

// Selectors derives views of the store state. Every derivation is cached
// until the store revision moves.
type Selectors struct {
	store *Store

	mu    sync.Mutex
	rev   uint64
	cache map[string]interface{}
}

func NewSelectors(store *Store) *Selectors {
	return &Selectors{store: store, cache: map[string]interface{}{}}
}

func (s *Selectors) memo(key string, derive func(State) interface{}) interface{} {
	st := s.store.State()
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.Revision != s.rev {
		s.cache = map[string]interface{}{}
		s.rev = st.Revision
	}
	if v, ok := s.cache[key]; ok {
		return v
	}
	v := derive(st)
	s.cache[key] = v
	return v
}

// currentSource resolves the source the operator is working on. Metadata
// older than v3 is presented as a single postgres source.
func currentSource(st State) *Source {
	md := st.Metadata
	if md == nil {
		return nil
	}
	if !md.IsV3() {
		return &Source{Name: DefaultSource, Kind: datasource.Postgres, Tables: md.Tables, Functions: md.Functions}
	}
	if st.CurrentSource == "" {
		return nil
	}
	for i := range md.Sources {
		src := &md.Sources[i]
		if src.Name != st.CurrentSource {
			continue
		}
		if st.CurrentDriver != "" && src.Kind != st.CurrentDriver {
			continue
		}
		return src
	}
	return nil
}

// CurrentSource returns the metadata of the selected source, or nil.
func (s *Selectors) CurrentSource() *Source {
	return s.memo("currentSource", func(st State) interface{} { return currentSource(st) }).(*Source)
}

func (s *Selectors) IsV3() bool {
	return s.store.State().Metadata.IsV3()
}

func (s *Selectors) Tables() []TableEntry {
	return s.memo("tables", func(st State) interface{} {
		if src := currentSource(st); src != nil && src.Tables != nil {
			return src.Tables
		}
		return []TableEntry{}
	}).([]TableEntry)
}

// TablesFilter narrows TablesInfo. Schemas win over Tables, an empty
// filter selects everything.
type TablesFilter struct {
	Schemas []string
	Tables  []datasource.QualifiedTable
}

func (s *Selectors) TablesInfo(f TablesFilter) []TableEntry {
	tables := s.Tables()
	if f.Schemas != nil {
		out := []TableEntry{}
		for _, t := range tables {
			for _, schema := range f.Schemas {
				if t.Table.Schema == schema {
					out = append(out, t)
					break
				}
			}
		}
		return out
	}
	if f.Tables != nil {
		out := []TableEntry{}
		for _, t := range tables {
			for _, q := range f.Tables {
				if q == t.Table {
					out = append(out, t)
					break
				}
			}
		}
		return out
	}
	return tables
}

func actionsOf(st State) []Action {
	if st.Metadata == nil {
		return nil
	}
	return st.Metadata.Actions
}

// Roles lists every role named by a table or action permission, first
// occurrence first.
func (s *Selectors) Roles() []string {
	return s.memo("roles", func(st State) interface{} {
		var all []string
		if src := currentSource(st); src != nil {
			for _, t := range src.Tables {
				for _, perms := range [][]Permission{t.InsertPermissions, t.UpdatePermissions, t.SelectPermissions, t.DeletePermissions} {
					for _, p := range perms {
						all = append(all, p.Role)
					}
				}
			}
		}
		for _, a := range actionsOf(st) {
			for _, p := range a.Permissions {
				all = append(all, p.Role)
			}
		}
		roles := []string{}
		linq.From(all).Distinct().ToSlice(&roles)
		return roles
	}).([]string)
}

// Actions returns consistent actions with headers and permissions
// defaulted to empty lists.
func (s *Selectors) Actions() []Action {
	return s.memo("actions", func(st State) interface{} {
		out := []Action{}
		for _, a := range actionsOf(st) {
			if IsInconsistent(st.InconsistentObjects, InconsistentAction, "", a.Name) {
				continue
			}
			if a.Definition.Headers == nil {
				a.Definition.Headers = []Header{}
			}
			if a.Permissions == nil {
				a.Permissions = []ActionPermission{}
			}
			out = append(out, a)
		}
		return out
	}).([]Action)
}

func (s *Selectors) Action(name string) *Action {
	for _, a := range s.Actions() {
		if a.Name == name {
			a := a
			return &a
		}
	}
	return nil
}

func (s *Selectors) CustomTypes() []CustomType {
	return s.memo("customTypes", func(st State) interface{} {
		if st.Metadata == nil {
			return []CustomType{}
		}
		return ParseCustomTypes(st.Metadata.CustomTypes)
	}).([]CustomType)
}

func allRemoteSchemas(st State) []RemoteSchema {
	if st.Metadata == nil || st.Metadata.RemoteSchemas == nil {
		return []RemoteSchema{}
	}
	return st.Metadata.RemoteSchemas
}

// RemoteSchemas leaves out the inconsistent ones.
func (s *Selectors) RemoteSchemas() []RemoteSchema {
	return s.memo("remoteSchemas", func(st State) interface{} {
		out := []RemoteSchema{}
		for _, rs := range allRemoteSchemas(st) {
			if !IsInconsistent(st.InconsistentObjects, InconsistentRemoteSchema, "", rs.Name) {
				out = append(out, rs)
			}
		}
		return out
	}).([]RemoteSchema)
}

func (s *Selectors) RemoteSchemaNames() []string {
	return s.memo("remoteSchemaNames", func(st State) interface{} {
		names := []string{}
		linq.From(allRemoteSchemas(st)).
			SelectT(func(rs RemoteSchema) string { return rs.Name }).
			ToSlice(&names)
		return names
	}).([]string)
}

func (s *Selectors) RemoteSchema(name string) *RemoteSchema {
	st := s.store.State()
	for _, rs := range allRemoteSchemas(st) {
		if rs.Name == name {
			rs := rs
			return &rs
		}
	}
	return nil
}

// FunctionInfo is a tracked function flattened for lookups.
type FunctionInfo struct {
	FunctionName   string          `json:"function_name"`
	FunctionSchema string          `json:"function_schema"`
	Configuration  json.RawMessage `json:"configuration,omitempty"`
}

func functionsOf(st State) []FunctionInfo {
	out := []FunctionInfo{}
	src := currentSource(st)
	if src == nil {
		return out
	}
	for _, f := range src.Functions {
		out = append(out, FunctionInfo{FunctionName: f.Function.Name, FunctionSchema: f.Function.Schema, Configuration: f.Configuration})
	}
	return out
}

func (s *Selectors) Functions() []FunctionInfo {
	return s.memo("functions", func(st State) interface{} { return functionsOf(st) }).([]FunctionInfo)
}

func (s *Selectors) Function(name, schema string) *FunctionInfo {
	for _, f := range s.Functions() {
		if f.FunctionName == name && f.FunctionSchema == schema {
			f := f
			return &f
		}
	}
	return nil
}

// ConsistentFunctions are the functions of the current schema the engine
// has not flagged.
func (s *Selectors) ConsistentFunctions() []FunctionInfo {
	return s.memo("consistentFunctions", func(st State) interface{} {
		out := []FunctionInfo{}
		for _, f := range functionsOf(st) {
			if f.FunctionSchema != st.CurrentSchema {
				continue
			}
			if IsInconsistent(st.InconsistentObjects, InconsistentFunction, f.FunctionSchema, f.FunctionName) {
				continue
			}
			out = append(out, f)
		}
		return out
	}).([]FunctionInfo)
}

func (s *Selectors) FunctionConfiguration(name, schema string) json.RawMessage {
	if f := s.Function(name, schema); f != nil {
		return f.Configuration
	}
	return nil
}

// DataSource is a configured source as listed to the operator.
type DataSource struct {
	Name         string          `json:"name"`
	Driver       datasource.Kind `json:"driver"`
	URL          string          `json:"url"`
	FromEnv      bool            `json:"fromEnv"`
	PoolSettings *PoolSettings   `json:"connection_pool_settings,omitempty"`
}

// DataSources lists v3 sources in metadata order, older metadata has none.
func (s *Selectors) DataSources() []DataSource {
	return s.memo("dataSources", func(st State) interface{} {
		out := []DataSource{}
		if !st.Metadata.IsV3() {
			return out
		}
		for _, src := range st.Metadata.Sources {
			url := src.Configuration.ConnectionInfo.DatabaseURL
			ds := DataSource{
				Name:         src.Name,
				Driver:       src.Kind,
				URL:          url.Value,
				FromEnv:      url.FromEnv != "",
				PoolSettings: src.Configuration.ConnectionInfo.PoolSettings,
			}
			if ds.FromEnv {
				ds.URL = url.FromEnv
			}
			out = append(out, ds)
		}
		return out
	}).([]DataSource)
}

// InitialSource is the source selected when the console starts.
type InitialSource struct {
	Source string
	Driver datasource.Kind
}

// InitDataSource picks the first postgres source, else the first mysql
// one, else nothing on postgres.
func (s *Selectors) InitDataSource() InitialSource {
	return s.memo("initDataSource", func(st State) interface{} {
		if st.Metadata.IsV3() {
			for _, kind := range []datasource.Kind{datasource.Postgres, datasource.MySQL} {
				for _, src := range st.Metadata.Sources {
					if src.Kind == kind {
						return InitialSource{Source: src.Name, Driver: kind}
					}
				}
			}
		}
		return InitialSource{Driver: datasource.Postgres}
	}).(InitialSource)
}

func (s *Selectors) AllowedQueries() []AllowedQuery {
	if q := s.store.State().AllowedQueries; q != nil {
		return q
	}
	return []AllowedQuery{}
}

func (s *Selectors) InconsistentObjects() []hasura.InconsistentObject {
	if o := s.store.State().InconsistentObjects; o != nil {
		return o
	}
	return []hasura.InconsistentObject{}
}

// SourceEventTrigger locates an event trigger inside the metadata.
type SourceEventTrigger struct {
	Source  string
	Table   datasource.QualifiedTable
	Trigger EventTrigger
}

// EventTriggers walks every source, not just the current one.
func (s *Selectors) EventTriggers() []SourceEventTrigger {
	return s.memo("eventTriggers", func(st State) interface{} {
		return EventTriggersOf(st.Metadata)
	}).([]SourceEventTrigger)
}

// EventTriggersOf lists the event triggers of md across sources.
func EventTriggersOf(md *Metadata) []SourceEventTrigger {
	out := []SourceEventTrigger{}
	if md == nil {
		return out
	}
	collect := func(source string, tables []TableEntry) {
		for _, t := range tables {
			for _, et := range t.EventTriggers {
				out = append(out, SourceEventTrigger{Source: source, Table: t.Table, Trigger: et})
			}
		}
	}
	if !md.IsV3() {
		collect(DefaultSource, md.Tables)
		return out
	}
	for _, src := range md.Sources {
		collect(src.Name, src.Tables)
	}
	return out
}
