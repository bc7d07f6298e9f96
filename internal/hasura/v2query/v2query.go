// Package v2query is the client of the engine's /v2/query endpoint, the
// home of run_sql for every source kind.
package v2query

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura"
	"github.com/hasura/graphql-engine/console/internal/hasura/sourceops/mysql"
	"github.com/hasura/graphql-engine/console/internal/hasura/sourceops/postgres"
	"github.com/hasura/graphql-engine/console/internal/httpc"
)

type Client struct {
	*httpc.Client
	path string

	pg *postgres.SourceOps
	my *mysql.SourceOps
}

var _ hasura.V2Query = (*Client)(nil)

func New(c *httpc.Client, path string) *Client {
	return &Client{
		Client: c,
		path:   path,
		pg:     postgres.New(c, path),
		my:     mysql.New(c, path),
	}
}

func (c *Client) PGRunSQL(ctx context.Context, input hasura.PGRunSQLInput) (*hasura.PGRunSQLOutput, error) {
	return c.pg.PGRunSQL(ctx, input)
}

func (c *Client) MySQLRunSQL(ctx context.Context, input hasura.MySQLRunSQLInput) (*hasura.MySQLRunSQLOutput, error) {
	return c.my.MySQLRunSQL(ctx, input)
}

func (c *Client) Send(ctx context.Context, body interface{}) (*httpc.Response, io.Reader, error) {
	var op errors.Op = "v2query.Client.Send"
	req, err := c.NewRequest(http.MethodPost, c.path, body)
	if err != nil {
		return nil, nil, errors.E(op, err)
	}
	responseBody := new(bytes.Buffer)
	resp, err := c.LockAndDo(ctx, req, responseBody)
	if err != nil {
		return resp, nil, errors.E(op, err)
	}
	return resp, responseBody, nil
}

func (c *Client) Bulk(ctx context.Context, args []hasura.RequestBody) (io.Reader, error) {
	var op errors.Op = "v2query.Client.Bulk"
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
