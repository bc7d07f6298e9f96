package hasura

import (
	"context"
	"encoding/json"
	"io"
)

// CommonMetadataOperations are the metadata API requests that do not
// depend on the kind of the connected sources.
type CommonMetadataOperations interface {
	ExportMetadata(ctx context.Context) (metadata io.Reader, err error)
	ClearMetadata(ctx context.Context) (io.Reader, error)
	ReloadMetadata(ctx context.Context, args ReloadMetadataArgs) (io.Reader, error)
	DropInconsistentMetadata(ctx context.Context) (io.Reader, error)
	ReplaceMetadata(ctx context.Context, metadata io.Reader) (io.Reader, error)
	GetInconsistentMetadata(ctx context.Context) (*GetInconsistentMetadataResponse, error)
}

// ReloadMetadataArgs selects what a reload_metadata call refreshes. A nil
// slice leaves the engine default in place, ReloadAll marks "everything".
type ReloadMetadataArgs struct {
	ReloadRemoteSchemas interface{} `json:"reload_remote_schemas,omitempty"`
	ReloadSources       interface{} `json:"reload_sources,omitempty"`
}

const ReloadAll = true

type GetInconsistentMetadataResponse struct {
	IsConsistent        bool                 `json:"is_consistent"`
	InconsistentObjects []InconsistentObject `json:"inconsistent_objects"`
}

// InconsistentObject is one entry of the engine's inconsistency report.
// Definition is kept raw, its shape depends on Type.
type InconsistentObject struct {
	Type       string          `json:"type"`
	Name       string          `json:"name,omitempty"`
	Reason     string          `json:"reason"`
	Message    json.RawMessage `json:"message,omitempty"`
	Definition json.RawMessage `json:"definition"`
}
