// Package metadata models the engine's metadata document and keeps the
// console's view of it.
package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/hasura/graphql-engine/console/internal/datasource"
)

// Version accepts both 3 and "3" on the wire.
type Version int

func (v *Version) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*v = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid metadata version %q", s)
		}
		*v = Version(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid metadata version %s", b)
	}
	*v = Version(n)
	return nil
}

const (
	V2 Version = 2
	V3 Version = 3
)

// DefaultSource is the name the engine gives the source it was started with.
const DefaultSource = "default"

type Metadata struct {
	Version          Version           `json:"version"`
	Sources          []Source          `json:"sources,omitempty"`
	Tables           []TableEntry      `json:"tables,omitempty"`
	Functions        []FunctionEntry   `json:"functions,omitempty"`
	Actions          []Action          `json:"actions,omitempty"`
	CustomTypes      *CustomTypes      `json:"custom_types,omitempty"`
	RemoteSchemas    []RemoteSchema    `json:"remote_schemas,omitempty"`
	QueryCollections []QueryCollection `json:"query_collections,omitempty"`
	AllowList        []AllowListEntry  `json:"allowlist,omitempty"`
	CronTriggers     []CronTrigger     `json:"cron_triggers,omitempty"`
}

// Parse decodes an exported metadata document.
func Parse(raw []byte) (*Metadata, error) {
	md := new(Metadata)
	if err := json.Unmarshal(raw, md); err != nil {
		return nil, err
	}
	return md, nil
}

func (m *Metadata) IsV3() bool {
	return m != nil && m.Version == V3
}

type Source struct {
	Name          string              `json:"name"`
	Kind          datasource.Kind     `json:"kind"`
	Tables        []TableEntry        `json:"tables"`
	Functions     []FunctionEntry     `json:"functions,omitempty"`
	Configuration SourceConfiguration `json:"configuration"`
}

type SourceConfiguration struct {
	ConnectionInfo ConnectionInfo `json:"connection_info"`
}

type ConnectionInfo struct {
	DatabaseURL  DatabaseURL   `json:"database_url"`
	PoolSettings *PoolSettings `json:"pool_settings,omitempty"`
}

// DatabaseURL is either a literal connection string or the name of the
// environment variable holding it.
type DatabaseURL struct {
	Value   string
	FromEnv string
}

func (u *DatabaseURL) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		u.FromEnv = ""
		return json.Unmarshal(b, &u.Value)
	}
	var obj struct {
		FromEnv   string `json:"from_env"`
		FromValue string `json:"from_value"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	u.FromEnv, u.Value = obj.FromEnv, obj.FromValue
	return nil
}

func (u DatabaseURL) MarshalJSON() ([]byte, error) {
	if u.FromEnv != "" {
		return json.Marshal(map[string]string{"from_env": u.FromEnv})
	}
	return json.Marshal(u.Value)
}

type PoolSettings struct {
	MaxConnections *int `json:"max_connections,omitempty"`
	IdleTimeout    *int `json:"idle_timeout,omitempty"`
	Retries        *int `json:"retries,omitempty"`
}

type TableEntry struct {
	Table               datasource.QualifiedTable  `json:"table"`
	IsEnum              bool                       `json:"is_enum,omitempty"`
	Configuration       json.RawMessage            `json:"configuration,omitempty"`
	ObjectRelationships []Relationship             `json:"object_relationships,omitempty"`
	ArrayRelationships  []Relationship             `json:"array_relationships,omitempty"`
	ComputedFields      []datasource.ComputedField `json:"computed_fields,omitempty"`
	RemoteRelationships []json.RawMessage          `json:"remote_relationships,omitempty"`
	InsertPermissions   []Permission               `json:"insert_permissions,omitempty"`
	SelectPermissions   []Permission               `json:"select_permissions,omitempty"`
	UpdatePermissions   []Permission               `json:"update_permissions,omitempty"`
	DeletePermissions   []Permission               `json:"delete_permissions,omitempty"`
	EventTriggers       []EventTrigger             `json:"event_triggers,omitempty"`
}

type Relationship struct {
	Name    string          `json:"name"`
	Using   json.RawMessage `json:"using"`
	Comment string          `json:"comment,omitempty"`
}

type Permission struct {
	Role       string          `json:"role"`
	Permission json.RawMessage `json:"permission"`
	Comment    string          `json:"comment,omitempty"`
}

type FunctionEntry struct {
	Function      datasource.QualifiedFunction `json:"function"`
	Configuration json.RawMessage              `json:"configuration,omitempty"`
}

type Header struct {
	Name         string `json:"name"`
	Value        string `json:"value,omitempty"`
	ValueFromEnv string `json:"value_from_env,omitempty"`
}

type EventTrigger struct {
	Name           string                 `json:"name"`
	Definition     EventTriggerDefinition `json:"definition"`
	RetryConf      RetryConf              `json:"retry_conf"`
	Webhook        string                 `json:"webhook,omitempty"`
	WebhookFromEnv string                 `json:"webhook_from_env,omitempty"`
	Headers        []Header               `json:"headers,omitempty"`
}

type EventTriggerDefinition struct {
	EnableManual bool           `json:"enable_manual"`
	Insert       *OperationSpec `json:"insert,omitempty"`
	Update       *OperationSpec `json:"update,omitempty"`
	Delete       *OperationSpec `json:"delete,omitempty"`
}

// OperationSpec lists the columns an event trigger operation watches, the
// engine writes "*" for all of them.
type OperationSpec struct {
	Columns json.RawMessage `json:"columns"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type RetryConf struct {
	NumRetries  int `json:"num_retries"`
	IntervalSec int `json:"interval_sec"`
	TimeoutSec  int `json:"timeout_sec"`
}

type Action struct {
	Name        string             `json:"name"`
	Definition  ActionDefinition   `json:"definition"`
	Comment     string             `json:"comment,omitempty"`
	Permissions []ActionPermission `json:"permissions"`
}

type ActionDefinition struct {
	Handler              string          `json:"handler"`
	OutputType           string          `json:"output_type"`
	Arguments            []InputArgument `json:"arguments"`
	Type                 string          `json:"type,omitempty"`
	Kind                 string          `json:"kind,omitempty"`
	Headers              []Header        `json:"headers"`
	ForwardClientHeaders bool            `json:"forward_client_headers,omitempty"`
	Timeout              int             `json:"timeout,omitempty"`
}

type InputArgument struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

type ActionPermission struct {
	Role    string `json:"role"`
	Comment string `json:"comment,omitempty"`
}

type CustomTypes struct {
	InputObjects []InputObjectType `json:"input_objects,omitempty"`
	Objects      []ObjectType      `json:"objects,omitempty"`
	Scalars      []ScalarType      `json:"scalars,omitempty"`
	Enums        []EnumType        `json:"enums,omitempty"`
}

type ObjectField struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

type ObjectType struct {
	Name          string             `json:"name"`
	Description   string             `json:"description,omitempty"`
	Fields        []ObjectField      `json:"fields"`
	Relationships []TypeRelationship `json:"relationships,omitempty"`
}

type InputObjectType struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Fields      []ObjectField `json:"fields"`
}

type ScalarType struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type EnumValue struct {
	Value        string `json:"value"`
	Description  string `json:"description,omitempty"`
	IsDeprecated bool   `json:"is_deprecated,omitempty"`
}

type EnumType struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Values      []EnumValue `json:"values"`
}

// TypeRelationship joins an action output object to a table.
type TypeRelationship struct {
	Name         string                    `json:"name"`
	Type         string                    `json:"type"`
	Source       string                    `json:"source,omitempty"`
	RemoteTable  datasource.QualifiedTable `json:"remote_table"`
	FieldMapping map[string]string         `json:"field_mapping"`
}

type RemoteSchema struct {
	Name       string          `json:"name"`
	Definition json.RawMessage `json:"definition"`
	Comment    string          `json:"comment,omitempty"`
}

type AllowedQuery struct {
	Name  string `json:"name"`
	Query string `json:"query"`
}

type QueryCollection struct {
	Name       string `json:"name"`
	Definition struct {
		Queries []AllowedQuery `json:"queries"`
	} `json:"definition"`
	Comment string `json:"comment,omitempty"`
}

type AllowListEntry struct {
	Collection string `json:"collection"`
}

type CronTrigger struct {
	Name              string          `json:"name"`
	Webhook           string          `json:"webhook"`
	Schedule          string          `json:"schedule"`
	Payload           json.RawMessage `json:"payload,omitempty"`
	IncludeInMetadata bool            `json:"include_in_metadata"`
	Comment           string          `json:"comment,omitempty"`
}
