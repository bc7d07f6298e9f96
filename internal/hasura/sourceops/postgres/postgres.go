// Package postgres sends the query API requests understood by postgres
// sources.
package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura"
	"github.com/hasura/graphql-engine/console/internal/httpc"
)

type SourceOps struct {
	*httpc.Client
	// api subpath eg: "v2/query"
	path string
}

func New(client *httpc.Client, path string) *SourceOps {
	return &SourceOps{client, path}
}

func (d *SourceOps) PGRunSQL(ctx context.Context, input hasura.PGRunSQLInput) (*hasura.PGRunSQLOutput, error) {
	var op errors.Op = "postgres.SourceOps.PGRunSQL"
	req, err := d.NewRequest(http.MethodPost, d.path, hasura.RequestBody{Type: "run_sql", Args: input})
	if err != nil {
		return nil, errors.E(op, err)
	}
	b := new(bytes.Buffer)
	resp, err := d.LockAndDo(ctx, req, b)
	if err != nil {
		return nil, errors.E(op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.E(op, errors.KindHasuraAPI, hasura.ParseAPIError(resp.StatusCode, b.Bytes()))
	}
	o := new(hasura.PGRunSQLOutput)
	if err := json.NewDecoder(b).Decode(o); err != nil {
		return nil, errors.E(op, errors.KindInternal, err)
	}
	return o, nil
}
