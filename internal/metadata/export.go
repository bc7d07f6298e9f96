package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hasura/graphql-engine/console/internal/errors"
)

// Exporter is the part of the metadata API Export needs.
type Exporter interface {
	ExportMetadata(ctx context.Context) (io.Reader, error)
}

// Export fetches the metadata snapshot into the store. The allow list is
// loaded from the same snapshot.
func Export(ctx context.Context, client Exporter, store *Store) (*Metadata, error) {
	var op errors.Op = "metadata.Export"
	store.Dispatch(ExportMetadataRequest{})
	md, raw, err := fetch(ctx, client)
	if err != nil {
		store.Dispatch(ExportMetadataError{Err: err})
		return nil, errors.E(op, err)
	}
	store.Dispatch(
		ExportMetadataSuccess{Metadata: md, Raw: raw},
		LoadAllowedQueries{Queries: AllowedQueriesFromMetadata(md)},
	)
	return md, nil
}

// Fetch exports the metadata without touching any store.
func Fetch(ctx context.Context, client Exporter) (*Metadata, json.RawMessage, error) {
	var op errors.Op = "metadata.Fetch"
	md, raw, err := fetch(ctx, client)
	if err != nil {
		return nil, nil, errors.E(op, err)
	}
	return md, raw, nil
}

func fetch(ctx context.Context, client Exporter) (*Metadata, json.RawMessage, error) {
	var op errors.Op = "metadata.fetch"
	r, err := client.ExportMetadata(ctx)
	if err != nil {
		return nil, nil, err
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, errors.E(op, errors.KindInternal, err)
	}
	md, err := Parse(raw)
	if err != nil {
		return nil, nil, errors.E(op, errors.KindHasuraAPI, fmt.Errorf("decoding exported metadata: %w", err))
	}
	return md, raw, nil
}
