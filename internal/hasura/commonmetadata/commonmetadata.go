// Package commonmetadata implements the metadata API calls shared by every
// source kind.
package commonmetadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura"
	"github.com/hasura/graphql-engine/console/internal/httpc"
)

type ClientCommonMetadataOps struct {
	*httpc.Client
	path string
}

func New(client *httpc.Client, path string) *ClientCommonMetadataOps {
	return &ClientCommonMetadataOps{client, path}
}

func (c *ClientCommonMetadataOps) send(ctx context.Context, body interface{}) (*bytes.Buffer, error) {
	var op errors.Op = "commonmetadata.ClientCommonMetadataOps.send"
	req, err := c.NewRequest(http.MethodPost, c.path, body)
	if err != nil {
		return nil, errors.E(op, err)
	}
	responseBody := new(bytes.Buffer)
	resp, err := c.LockAndDo(ctx, req, responseBody)
	if err != nil {
		return nil, errors.E(op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.E(op, errors.KindHasuraAPI, hasura.ParseAPIError(resp.StatusCode, responseBody.Bytes()))
	}
	return responseBody, nil
}

func (c *ClientCommonMetadataOps) ExportMetadata(ctx context.Context) (io.Reader, error) {
	var op errors.Op = "commonmetadata.ClientCommonMetadataOps.ExportMetadata"
	body, err := c.send(ctx, hasura.RequestBody{Type: "export_metadata", Args: map[string]string{}})
	if err != nil {
		return nil, errors.E(op, err)
	}
	return body, nil
}

func (c *ClientCommonMetadataOps) ClearMetadata(ctx context.Context) (io.Reader, error) {
	var op errors.Op = "commonmetadata.ClientCommonMetadataOps.ClearMetadata"
	body, err := c.send(ctx, hasura.RequestBody{Type: "clear_metadata", Args: map[string]string{}})
	if err != nil {
		return nil, errors.E(op, err)
	}
	return body, nil
}

func (c *ClientCommonMetadataOps) ReloadMetadata(ctx context.Context, args hasura.ReloadMetadataArgs) (io.Reader, error) {
	var op errors.Op = "commonmetadata.ClientCommonMetadataOps.ReloadMetadata"
	body, err := c.send(ctx, hasura.RequestBody{Type: "reload_metadata", Args: args})
	if err != nil {
		return nil, errors.E(op, err)
	}
	return body, nil
}

func (c *ClientCommonMetadataOps) DropInconsistentMetadata(ctx context.Context) (io.Reader, error) {
	var op errors.Op = "commonmetadata.ClientCommonMetadataOps.DropInconsistentMetadata"
	body, err := c.send(ctx, hasura.RequestBody{Type: "drop_inconsistent_metadata", Args: map[string]string{}})
	if err != nil {
		return nil, errors.E(op, err)
	}
	return body, nil
}

func (c *ClientCommonMetadataOps) ReplaceMetadata(ctx context.Context, metadata io.Reader) (io.Reader, error) {
	var op errors.Op = "commonmetadata.ClientCommonMetadataOps.ReplaceMetadata"
	var args json.RawMessage
	if err := json.NewDecoder(metadata).Decode(&args); err != nil {
		return nil, errors.E(op, errors.KindBadInput, fmt.Errorf("decoding json: %w", err))
	}
	body, err := c.send(ctx, hasura.RequestBody{Type: "replace_metadata", Args: args})
	if err != nil {
		return nil, errors.E(op, err)
	}
	return body, nil
}

func (c *ClientCommonMetadataOps) GetInconsistentMetadata(ctx context.Context) (*hasura.GetInconsistentMetadataResponse, error) {
	var op errors.Op = "commonmetadata.ClientCommonMetadataOps.GetInconsistentMetadata"
	body, err := c.send(ctx, hasura.RequestBody{Type: "get_inconsistent_metadata", Args: map[string]string{}})
	if err != nil {
		return nil, errors.E(op, err)
	}
	response := new(hasura.GetInconsistentMetadataResponse)
	if err := json.NewDecoder(body).Decode(response); err != nil {
		return nil, errors.E(op, errors.KindInternal, fmt.Errorf("decoding inconsistency report: %w", err))
	}
	return response, nil
}
