package mysql

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasura/graphql-engine/console/internal/hasura"
	"github.com/hasura/graphql-engine/console/internal/testutil"
)

func TestSourceOps_MySQLRunSQL(t *testing.T) {
	engine := testutil.NewFakeEngine(t)
	engine.On("mysql_run_sql", testutil.Reply(http.StatusOK, map[string]interface{}{
		"result_type": "TuplesOk",
		"result":      [][]interface{}{{"id", "name", "deleted_at"}, {1, "alice", nil}},
	}))
	h := New(engine.NewHttpcClient(t, nil), "v2/query")

	got, err := h.MySQLRunSQL(context.Background(), hasura.MySQLRunSQLInput{SQL: "SELECT * FROM `users`;", Source: "shop"})
	require.NoError(t, err)
	assert.Equal(t, hasura.TuplesOK, got.ResultType)

	normalized := got.Normalize()
	assert.Equal(t, [][]string{{"id", "name", "deleted_at"}, {"1", "alice", "NULL"}}, normalized.Rows)
}
