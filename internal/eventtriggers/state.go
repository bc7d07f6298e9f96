// Package eventtriggers edits the event triggers of tracked tables.
package eventtriggers

import (
	"encoding/json"

	"github.com/hasura/graphql-engine/console/internal/datasource"
	"github.com/hasura/graphql-engine/console/internal/metadata"
)

type Operation string

const (
	OpInsert       Operation = "insert"
	OpUpdate       Operation = "update"
	OpDelete       Operation = "delete"
	OpEnableManual Operation = "enable_manual"
)

// ValueType tells literal values from environment variable names.
type ValueType string

const (
	ValueStatic ValueType = "static"
	ValueEnv    ValueType = "env"
)

type URLConf struct {
	Type  ValueType
	Value string
}

type Header struct {
	Name  string
	Type  ValueType
	Value string
}

// OperationColumn is a table column an update trigger may watch.
type OperationColumn struct {
	Name    string
	Type    string
	Enabled bool
}

// LocalState is an event trigger being edited.
type LocalState struct {
	Name             string
	Source           string
	Table            datasource.QualifiedTable
	Operations       map[Operation]bool
	OperationColumns []OperationColumn
	Webhook          URLConf
	RetryConf        metadata.RetryConf
	Headers          []Header
}

func defaultHeader() Header {
	return Header{Type: ValueStatic}
}

// NewLocalState returns the state of a trigger not created yet.
func NewLocalState() LocalState {
	return LocalState{
		Table: datasource.QualifiedTable{Schema: "public"},
		Operations: map[Operation]bool{
			OpInsert:       false,
			OpUpdate:       false,
			OpDelete:       false,
			OpEnableManual: false,
		},
		OperationColumns: []OperationColumn{},
		Webhook:          URLConf{Type: ValueStatic},
		RetryConf:        metadata.RetryConf{NumRetries: 0, IntervalSec: 10, TimeoutSec: 60},
		Headers:          []Header{defaultHeader()},
		Source:           metadata.DefaultSource,
	}
}

// ParseServerDefinition turns a stored trigger into editable state. table
// provides the columns for the update operation and may be nil.
func ParseServerDefinition(et *metadata.SourceEventTrigger, table *datasource.Table) LocalState {
	if et == nil {
		return NewLocalState()
	}
	def := et.Trigger.Definition
	s := LocalState{
		Name:   et.Trigger.Name,
		Source: et.Source,
		Table:  et.Table,
		Operations: map[Operation]bool{
			OpInsert:       def.Insert != nil,
			OpUpdate:       def.Update != nil,
			OpDelete:       def.Delete != nil,
			OpEnableManual: def.EnableManual,
		},
		OperationColumns: []OperationColumn{},
		Webhook:          parseWebhook(et.Trigger.Webhook, et.Trigger.WebhookFromEnv),
		RetryConf:        et.Trigger.RetryConf,
		Headers:          parseHeaders(et.Trigger.Headers),
	}
	if table != nil {
		var watched json.RawMessage
		if def.Update != nil {
			watched = def.Update.Columns
		}
		s.OperationColumns = operationColumns(watched, table.Columns)
	}
	return s
}

func parseWebhook(webhook, fromEnv string) URLConf {
	if fromEnv != "" {
		return URLConf{Type: ValueEnv, Value: fromEnv}
	}
	return URLConf{Type: ValueStatic, Value: webhook}
}

func parseHeaders(headers []metadata.Header) []Header {
	out := make([]Header, 0, len(headers)+1)
	for _, h := range headers {
		if h.ValueFromEnv != "" {
			out = append(out, Header{Name: h.Name, Type: ValueEnv, Value: h.ValueFromEnv})
			continue
		}
		out = append(out, Header{Name: h.Name, Type: ValueStatic, Value: h.Value})
	}
	return append(out, defaultHeader())
}

// operationColumns marks the watched update columns. The engine stores
// "*" for all of them.
func operationColumns(watched json.RawMessage, columns []datasource.Column) []OperationColumn {
	all := false
	names := map[string]bool{}
	var star string
	if json.Unmarshal(watched, &star) == nil && star == "*" {
		all = true
	} else {
		var list []string
		_ = json.Unmarshal(watched, &list)
		for _, n := range list {
			names[n] = true
		}
	}
	out := make([]OperationColumn, 0, len(columns))
	for _, c := range columns {
		out = append(out, OperationColumn{Name: c.ColumnName, Type: c.DataType, Enabled: all || names[c.ColumnName]})
	}
	return out
}

func (s *LocalState) SetName(name string)     { s.Name = name }
func (s *LocalState) SetSource(source string) { s.Source = source }

// SetTable switches the schema, which clears the table name, or else sets
// the table name.
func (s *LocalState) SetTable(tableName, schemaName string) {
	switch {
	case schemaName != "" && schemaName != s.Table.Schema:
		s.Table = datasource.QualifiedTable{Schema: schemaName}
	case tableName != "":
		s.Table.Name = tableName
	}
}

func (s *LocalState) SetOperations(ops map[Operation]bool) {
	s.Operations = make(map[Operation]bool, len(ops))
	for k, v := range ops {
		s.Operations[k] = v
	}
}

func (s *LocalState) SetOperationColumns(columns []OperationColumn) {
	s.OperationColumns = append([]OperationColumn{}, columns...)
}

func (s *LocalState) SetWebhook(w URLConf)              { s.Webhook = w }
func (s *LocalState) SetRetryConf(r metadata.RetryConf) { s.RetryConf = r }
func (s *LocalState) SetHeaders(headers []Header)       { s.Headers = append([]Header{}, headers...) }

// ResolveTable finds the trigger named name in every source of md.
func ResolveTable(name string, md *metadata.Metadata) (*metadata.SourceEventTrigger, bool) {
	for _, et := range metadata.EventTriggersOf(md) {
		if et.Trigger.Name == name {
			et := et
			return &et, true
		}
	}
	return nil, false
}
