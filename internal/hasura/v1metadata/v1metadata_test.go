package v1metadata

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura"
	"github.com/hasura/graphql-engine/console/internal/testutil"
)

func TestClient_Bulk(t *testing.T) {
	tests := []struct {
		name      string
		responder testutil.Responder
		wantErr   bool
	}{
		{
			"sends every step inside one bulk envelope",
			testutil.Reply(http.StatusOK, []interface{}{map[string]string{"message": "success"}, map[string]string{"message": "success"}}),
			false,
		},
		{
			"fails as a whole",
			testutil.Reply(http.StatusBadRequest, testutil.APIError("already-exists", "action already exists")),
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := testutil.NewFakeEngine(t)
			engine.On("bulk", tt.responder)
			c := New(engine.NewHttpcClient(t, nil), "v1/metadata")

			_, err := c.Bulk(context.Background(), []hasura.RequestBody{
				{Type: "set_custom_types", Args: map[string]interface{}{}},
				{Type: "create_action", Args: map[string]interface{}{"name": "login"}},
			})
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsKind(errors.KindHasuraAPI, err))
				assert.Contains(t, err.Error(), "action already exists")
				return
			}
			require.NoError(t, err)
			reqs := engine.RequestsOfType("bulk")
			require.Len(t, reqs, 1)
			var steps []hasura.RequestBody
			require.NoError(t, json.Unmarshal(reqs[0].Args, &steps))
			require.Len(t, steps, 2)
			assert.Equal(t, "set_custom_types", steps[0].Type)
			assert.Equal(t, "create_action", steps[1].Type)
		})
	}
}

func TestClient_SendReturnsBodyOnFailure(t *testing.T) {
	engine := testutil.NewFakeEngine(t)
	engine.On("pg_add_source", testutil.Reply(http.StatusBadRequest, testutil.APIError("already-exists", "source exists")))
	c := New(engine.NewHttpcClient(t, nil), "v1/metadata")

	resp, body, err := c.Send(context.Background(), hasura.RequestBody{Type: "pg_add_source", Args: map[string]string{"name": "default"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, body)
}
