// Package v1graphql is the client of the engine's GraphQL endpoint, the
// API the console explorer runs queries against.
package v1graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura"
	"github.com/hasura/graphql-engine/console/internal/httpc"
)

const XHasuraRole = "X-Hasura-Role"

var _ hasura.V1Graphql = (*Client)(nil)

type Client struct {
	*httpc.Client
	path string
}

func New(client *httpc.Client, path string) *Client {
	return &Client{client, path}
}

// Query runs req as role, an empty role runs it as admin.
func (c *Client) Query(ctx context.Context, req hasura.GraphQLRequest, role string) (*hasura.GraphQLResponse, error) {
	var op errors.Op = "v1graphql.Client.Query"
	httpReq, err := c.NewRequest(http.MethodPost, c.path, req)
	if err != nil {
		return nil, errors.E(op, err)
	}
	if role != "" {
		httpReq.Header.Set(XHasuraRole, role)
	}
	b := new(bytes.Buffer)
	resp, err := c.Do(ctx, httpReq, b)
	if err != nil {
		return nil, errors.E(op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.E(op, errors.KindHasuraAPI, hasura.ParseAPIError(resp.StatusCode, b.Bytes()))
	}
	o := new(hasura.GraphQLResponse)
	if err := json.NewDecoder(b).Decode(o); err != nil {
		return nil, errors.E(op, errors.KindInternal, fmt.Errorf("decoding graphql response: %w", err))
	}
	return o, nil
}

// GetIntrospectionSchema introspects the API as seen by role.
func (c *Client) GetIntrospectionSchema(ctx context.Context, role string) (*hasura.IntrospectionSchema, error) {
	var op errors.Op = "v1graphql.Client.GetIntrospectionSchema"
	resp, err := c.Query(ctx, hasura.GraphQLRequest{Query: IntrospectionQuery, OperationName: "IntrospectionQuery"}, role)
	if err != nil {
		return nil, errors.E(op, err)
	}
	if err := resp.Err(); err != nil {
		return nil, errors.E(op, errors.KindHasuraAPI, err)
	}
	var data struct {
		Schema *hasura.IntrospectionSchema `json:"__schema"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, errors.E(op, errors.KindInternal, fmt.Errorf("decoding introspection result: %w", err))
	}
	if data.Schema == nil {
		return nil, errors.E(op, errors.KindHasuraAPI, "introspection returned no schema")
	}
	return data.Schema, nil
}
