// Package mysql sends the query API requests understood by mysql sources.
package mysql

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
	path string
}

func New(client *httpc.Client, path string) *SourceOps {
	return &SourceOps{client, path}
}

func (d *SourceOps) MySQLRunSQL(ctx context.Context, input hasura.MySQLRunSQLInput) (*hasura.MySQLRunSQLOutput, error) {
	var op errors.Op = "mysql.SourceOps.MySQLRunSQL"
	req, err := d.NewRequest(http.MethodPost, d.path, hasura.RequestBody{Type: "mysql_run_sql", Args: input})
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
	o := new(hasura.MySQLRunSQLOutput)
	dec := json.NewDecoder(b)
	dec.UseNumber()
	if err := dec.Decode(o); err != nil {
		return nil, errors.E(op, errors.KindInternal, err)
	}
	return o, nil
}
