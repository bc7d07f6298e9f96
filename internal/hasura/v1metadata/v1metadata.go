// Package v1metadata is the client of the engine's /v1/metadata endpoint.
package v1metadata

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura"
	"github.com/hasura/graphql-engine/console/internal/hasura/catalogstate"
	"github.com/hasura/graphql-engine/console/internal/hasura/commonmetadata"
	"github.com/hasura/graphql-engine/console/internal/httpc"
)

type Client struct {
	client *httpc.Client
	path   string

	*commonmetadata.ClientCommonMetadataOps
	*catalogstate.ClientCatalogState
}

var _ hasura.V1Metadata = (*Client)(nil)

func New(c *httpc.Client, path string) *Client {
	return &Client{
		client:                  c,
		path:                    path,
		ClientCommonMetadataOps: commonmetadata.New(c, path),
		ClientCatalogState:      catalogstate.New(c, path),
	}
}

// Send posts an arbitrary body and hands back the raw answer, whatever the
// status code. Callers inspect the response themselves.
func (c *Client) Send(ctx context.Context, body interface{}) (*httpc.Response, io.Reader, error) {
	var op errors.Op = "v1metadata.Client.Send"
	req, err := c.client.NewRequest(http.MethodPost, c.path, body)
	if err != nil {
		return nil, nil, errors.E(op, err)
	}
	responseBody := new(bytes.Buffer)
	resp, err := c.client.LockAndDo(ctx, req, responseBody)
	if err != nil {
		return resp, nil, errors.E(op, err)
	}
	return resp, responseBody, nil
}

// Bulk runs args as a single atomic bulk request. Either every step is
// applied or none is.
func (c *Client) Bulk(ctx context.Context, args []hasura.RequestBody) (io.Reader, error) {
	var op errors.Op = "v1metadata.Client.Bulk"
	resp, body, err := c.Send(ctx, hasura.RequestBody{Type: "bulk", Args: args})
	if err != nil {
		return nil, errors.E(op, err)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(body)
		return nil, errors.E(op, errors.KindHasuraAPI, hasura.ParseAPIError(resp.StatusCode, b))
	}
	return body, nil
}
