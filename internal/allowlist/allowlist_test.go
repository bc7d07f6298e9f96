package allowlist

import (
	"context"
	"net/http"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura/v1metadata"
	"github.com/hasura/graphql-engine/console/internal/metadata"
	"github.com/hasura/graphql-engine/console/internal/notify"
	"github.com/hasura/graphql-engine/console/internal/testutil"
)

func newService(t *testing.T, queries ...metadata.AllowedQuery) (*testutil.FakeEngine, *notify.Center, *Service) {
	t.Helper()
	engine := testutil.NewFakeEngine(t)
	logger, _ := test.NewNullLogger()
	store := metadata.NewStore(metadata.State{AllowedQueries: queries})
	notifier := notify.NewCenter(nil, nil)
	client := v1metadata.New(engine.NewHttpcClient(t, nil), "v1/metadata")
	return engine, notifier, New(client, store, notifier, logger)
}

var (
	getUsers = metadata.AllowedQuery{Name: "getUsers", Query: "query getUsers { users { id } }"}
	getPosts = metadata.AllowedQuery{Name: "getPosts", Query: "query getPosts { posts { id } }"}
)

func TestService_Add(t *testing.T) {
	tcs := []struct {
		name        string
		existing    []metadata.AllowedQuery
		queries     []metadata.AllowedQuery
		isEmptyList bool
		wantType    string
		wantTitle   string
	}{
		{"creates collection", nil, []metadata.AllowedQuery{getUsers, getPosts}, true, "create_query_collection", "Queries added to allow-list"},
		{"appends one", []metadata.AllowedQuery{getUsers}, []metadata.AllowedQuery{getPosts}, false, "add_query_to_collection", "Query added to allow-list"},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			engine, notifier, svc := newService(t, tc.existing...)
			require.NoError(t, svc.Add(context.Background(), tc.queries, tc.isEmptyList))

			reqs := engine.RequestsOfType("bulk")
			require.Len(t, reqs, 1)
			assert.Contains(t, string(reqs[0].Raw), tc.wantType)
			assert.Equal(t, tc.wantTitle, notifier.List()[0].Title)
			assert.Len(t, svc.Queries(), len(tc.existing)+len(tc.queries))
		})
	}
}

func TestService_Add_noQueries(t *testing.T) {
	engine, notifier, svc := newService(t)
	err := svc.Add(context.Background(), nil, true)
	require.Error(t, err)
	assert.Equal(t, errors.KindBadInput, errors.GetKind(err))
	assert.Empty(t, engine.Requests())
	assert.Equal(t, "No queries found", notifier.List()[0].Title)
}

func TestService_Add_failure(t *testing.T) {
	engine, notifier, svc := newService(t)
	engine.On("bulk", testutil.Reply(http.StatusBadRequest, testutil.APIError("already-exists", "collection exists")))
	require.Error(t, svc.Add(context.Background(), []metadata.AllowedQuery{getUsers}, true))
	assert.Empty(t, svc.Queries())
	n := notifier.List()[0]
	assert.Equal(t, notify.LevelError, n.Level)
	assert.Equal(t, "Adding query to allow-list failed", n.Title)
}

func TestService_Update(t *testing.T) {
	engine, notifier, svc := newService(t, getUsers, getPosts)
	renamed := metadata.AllowedQuery{Name: "listUsers", Query: "query listUsers { users { id name } }"}
	require.NoError(t, svc.Update(context.Background(), "getUsers", renamed))

	assert.Len(t, engine.RequestsOfType("bulk"), 1)
	assert.Equal(t, []metadata.AllowedQuery{renamed, getPosts}, svc.Queries())
	assert.Equal(t, "Updated allow-list query", notifier.List()[0].Title)
}

func TestService_Delete(t *testing.T) {
	t.Run("one of many", func(t *testing.T) {
		engine, notifier, svc := newService(t, getUsers, getPosts)
		require.NoError(t, svc.Delete(context.Background(), "getUsers", false))
		reqs := engine.RequestsOfType("drop_query_from_collection")
		require.Len(t, reqs, 1)
		assert.Equal(t, []metadata.AllowedQuery{getPosts}, svc.Queries())
		assert.Equal(t, "Deleted query from allow-list", notifier.List()[0].Title)
	})
	t.Run("last query drops the collection", func(t *testing.T) {
		engine, _, svc := newService(t, getUsers)
		require.NoError(t, svc.Delete(context.Background(), "getUsers", true))
		assert.Len(t, engine.RequestsOfType("drop_query_collection"), 1)
		assert.Empty(t, engine.RequestsOfType("drop_query_from_collection"))
		assert.Empty(t, svc.Queries())
	})
	t.Run("failure keeps the store", func(t *testing.T) {
		engine, notifier, svc := newService(t, getUsers, getPosts)
		engine.On("drop_query_from_collection", testutil.Reply(http.StatusBadRequest, testutil.APIError("not-exists", "query not found")))
		require.Error(t, svc.Delete(context.Background(), "getUsers", false))
		assert.Len(t, svc.Queries(), 2)
		assert.Equal(t, "Deleting query from allow-list failed", notifier.List()[0].Title)
	})
}

func TestService_DeleteAll(t *testing.T) {
	engine, notifier, svc := newService(t, getUsers, getPosts)
	require.NoError(t, svc.DeleteAll(context.Background()))
	assert.Len(t, engine.RequestsOfType("drop_query_collection"), 1)
	assert.Empty(t, svc.Queries())
	assert.Equal(t, "Deleted all queries from allow-list", notifier.List()[0].Title)
}

func TestParseQueries(t *testing.T) {
	doc := `
query getUsers { users { ...userFields } }
mutation addUser($name: String!) { insert_users_one(object: {name: $name}) { id } }
fragment userFields on users { id name }
`
	queries, err := ParseQueries(doc)
	require.NoError(t, err)
	require.Len(t, queries, 2)
	assert.Equal(t, "getUsers", queries[0].Name)
	assert.Contains(t, queries[0].Query, "fragment userFields on users")
	assert.Equal(t, "addUser", queries[1].Name)
	assert.NotContains(t, queries[1].Query, "fragment")

	tcs := []struct {
		name string
		doc  string
	}{
		{"anonymous", "{ users { id } }"},
		{"duplicate", "query a { x } query a { y }"},
		{"syntax", "query a {"},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseQueries(tc.doc)
			require.Error(t, err)
			assert.Equal(t, errors.KindBadInput, errors.GetKind(err))
		})
	}
}
