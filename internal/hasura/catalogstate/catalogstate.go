// Package catalogstate reads and writes the free form state the engine
// keeps on behalf of its clients. The console records applied migration
// versions there.
package catalogstate

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura"
	"github.com/hasura/graphql-engine/console/internal/httpc"
)

// StateTypeConsole is the catalog state slot owned by the console.
const StateTypeConsole = "console"

type ClientCatalogState struct {
	*httpc.Client
	path string
}

func New(client *httpc.Client, path string) *ClientCatalogState {
	return &ClientCatalogState{client, path}
}

func (c *ClientCatalogState) do(ctx context.Context, request hasura.RequestBody) (io.Reader, error) {
	var op errors.Op = "catalogstate.ClientCatalogState.do"
	req, err := c.NewRequest(http.MethodPost, c.path, request)
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

func (c *ClientCatalogState) Set(ctx context.Context, key string, state interface{}) (io.Reader, error) {
	var op errors.Op = "catalogstate.ClientCatalogState.Set"
	r, err := c.do(ctx, hasura.RequestBody{
		Type: "set_catalog_state",
		Args: map[string]interface{}{
			"type":  key,
			"state": state,
		},
	})
	if err != nil {
		return nil, errors.E(op, err)
	}
	return r, nil
}

func (c *ClientCatalogState) Get(ctx context.Context) (io.Reader, error) {
	var op errors.Op = "catalogstate.ClientCatalogState.Get"
	r, err := c.do(ctx, hasura.RequestBody{Type: "get_catalog_state", Args: map[string]string{}})
	if err != nil {
		return nil, errors.E(op, err)
	}
	return r, nil
}
