package v1graphql

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura"
	"github.com/hasura/graphql-engine/console/internal/httpc"
	"github.com/hasura/graphql-engine/console/internal/testutil"
)

var introspection = map[string]interface{}{
	"data": map[string]interface{}{
		"__schema": map[string]interface{}{
			"queryType":    map[string]string{"name": "query_root"},
			"mutationType": map[string]string{"name": "mutation_root"},
			"types": []interface{}{
				map[string]interface{}{
					"kind": "OBJECT",
					"name": "query_root",
					"fields": []interface{}{
						map[string]interface{}{
							"name": "orders",
							"args": []interface{}{
								map[string]interface{}{"name": "limit", "type": map[string]interface{}{"kind": "SCALAR", "name": "Int"}},
							},
							"type": map[string]interface{}{
								"kind": "NON_NULL",
								"ofType": map[string]interface{}{
									"kind": "LIST",
									"ofType": map[string]interface{}{
										"kind":   "NON_NULL",
										"ofType": map[string]interface{}{"kind": "OBJECT", "name": "orders"},
									},
								},
							},
						},
					},
				},
				map[string]interface{}{"kind": "OBJECT", "name": "__Schema"},
			},
		},
	},
}

func TestClient_GetIntrospectionSchema(t *testing.T) {
	engine := testutil.NewFakeEngine(t)
	engine.On("", testutil.Reply(http.StatusOK, introspection))

	schema, err := New(engine.NewHttpcClient(t, nil), "v1/graphql").GetIntrospectionSchema(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "query_root", schema.QueryType.Name)
	assert.Nil(t, schema.SubscriptionType)
	require.Len(t, schema.Types, 2)

	root := schema.Type("query_root")
	require.NotNil(t, root)
	require.Len(t, root.Fields, 1)
	assert.Equal(t, "[orders!]!", root.Fields[0].Type.String())
	assert.Equal(t, "Int", root.Fields[0].Args[0].Type.String())
	assert.True(t, schema.Type("__Schema").Builtin())
	assert.Nil(t, schema.Type("missing"))

	reqs := engine.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/v1/graphql", reqs[0].Path)
	var sent hasura.GraphQLRequest
	require.NoError(t, json.Unmarshal(reqs[0].Raw, &sent))
	assert.Equal(t, IntrospectionQuery, sent.Query)
	assert.Equal(t, "IntrospectionQuery", sent.OperationName)
}

func TestClient_GetIntrospectionSchema_failures(t *testing.T) {
	tests := []struct {
		name      string
		responder testutil.Responder
		errKind   errors.Kind
	}{
		{
			"graphql errors",
			testutil.Reply(http.StatusOK, map[string]interface{}{
				"errors": []interface{}{map[string]interface{}{"message": "introspection is disabled", "extensions": map[string]string{"path": "$"}}},
			}),
			errors.KindHasuraAPI,
		},
		{"no schema", testutil.Reply(http.StatusOK, map[string]interface{}{"data": map[string]interface{}{}}), errors.KindHasuraAPI},
		{"engine error", testutil.Reply(http.StatusUnauthorized, testutil.APIError("access-denied", "invalid x-hasura-admin-secret")), errors.KindHasuraAPI},
		{"broken data", testutil.Reply(http.StatusOK, map[string]interface{}{"data": []int{1}}), errors.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := testutil.NewFakeEngine(t)
			engine.On("", tt.responder)
			_, err := New(engine.NewHttpcClient(t, nil), "v1/graphql").GetIntrospectionSchema(context.Background(), "")
			require.Error(t, err)
			assert.True(t, errors.IsKind(tt.errKind, err), "got kind %v", errors.GetKind(err))
		})
	}
}

func TestClient_Query_role(t *testing.T) {
	var role string
	var body hasura.GraphQLRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role = r.Header.Get(XHasuraRole)
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"orders":[{"id":1}]}}`))
	}))
	defer server.Close()
	client, err := httpc.New(nil, server.URL+"/", nil)
	require.NoError(t, err)

	resp, err := New(client, "v1/graphql").Query(context.Background(), hasura.GraphQLRequest{
		Query:     "query ($n: Int) { orders(limit: $n) { id } }",
		Variables: map[string]interface{}{"n": 1},
	}, "user")
	require.NoError(t, err)
	assert.NoError(t, resp.Err())
	assert.JSONEq(t, `{"orders":[{"id":1}]}`, string(resp.Data))
	assert.Equal(t, "user", role)
	assert.Equal(t, map[string]interface{}{"n": float64(1)}, body.Variables)
}

func TestGraphQLResponse_Err(t *testing.T) {
	resp := &hasura.GraphQLResponse{Errors: []hasura.GraphQLError{
		{Message: "field \"total\" not found", Extensions: map[string]interface{}{"path": "$.selectionSet.orders"}},
		{Message: "second"},
	}}
	assert.EqualError(t, resp.Err(), `graphql: field "total" not found (at $.selectionSet.orders); second`)
}
