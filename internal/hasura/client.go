// Package hasura holds the request and response shapes of the GraphQL
// engine APIs together with the interfaces the typed clients in its sub
// packages implement.
package hasura

import (
	"context"
	"io"

	"github.com/hasura/graphql-engine/console/internal/httpc"
)

// Client bundles every engine API the console talks to.
type Client struct {
	V1Metadata V1Metadata
	V2Query    V2Query
	V1Version  V1Version
	V1Graphql  V1Graphql
}

type V1Metadata interface {
	CommonMetadataOperations
	CatalogStateOperations
	Send(ctx context.Context, requestBody interface{}) (httpcResponse *httpc.Response, body io.Reader, err error)
	Bulk(ctx context.Context, args []RequestBody) (io.Reader, error)
}

type V2Query interface {
	PGSourceOps
	MySQLSourceOps
	Send(ctx context.Context, requestBody interface{}) (httpcResponse *httpc.Response, body io.Reader, err error)
	Bulk(ctx context.Context, args []RequestBody) (io.Reader, error)
}

type V1Version interface {
	GetVersion(ctx context.Context) (*V1VersionResponse, error)
}

type CatalogStateOperations interface {
	Set(ctx context.Context, key string, state interface{}) (io.Reader, error)
	Get(ctx context.Context) (io.Reader, error)
}

type SourceKind string

const (
	SourceKindPG    SourceKind = "postgres"
	SourceKindMySQL SourceKind = "mysql"
)

// RequestBody is the envelope of every metadata and query API call.
type RequestBody struct {
	Type    string      `json:"type"`
	Version uint        `json:"version,omitempty"`
	Source  string      `json:"source,omitempty"`
	Args    interface{} `json:"args"`
}

type V1VersionResponse struct {
	Version string `json:"version"`
}
