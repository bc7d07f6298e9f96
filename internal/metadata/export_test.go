package metadata

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura/commonmetadata"
	"github.com/hasura/graphql-engine/console/internal/testutil"
)

func TestExport(t *testing.T) {
	raw, err := os.ReadFile("testdata/metadata_v3.json")
	require.NoError(t, err)

	engine := testutil.NewFakeEngine(t)
	engine.On("export_metadata", func(testutil.Request) (int, interface{}) {
		return http.StatusOK, json.RawMessage(raw)
	})
	client := commonmetadata.New(engine.NewHttpcClient(t, nil), "v1/metadata")
	store := NewStore(State{})

	md, err := Export(context.Background(), client, store)
	require.NoError(t, err)
	assert.True(t, md.IsV3())

	st := store.State()
	assert.False(t, st.Loading)
	assert.Same(t, md, st.Metadata)
	assert.JSONEq(t, string(raw), string(st.Raw))
	assert.Equal(t, []AllowedQuery{{Name: "q1", Query: "query { users { id } }"}}, st.AllowedQueries)
}

func TestExport_failure(t *testing.T) {
	engine := testutil.NewFakeEngine(t)
	engine.On("export_metadata", testutil.Reply(http.StatusInternalServerError, testutil.APIError("unexpected", "boom")))
	client := commonmetadata.New(engine.NewHttpcClient(t, nil), "v1/metadata")
	store := NewStore(State{})

	_, err := Export(context.Background(), client, store)
	require.Error(t, err)
	assert.True(t, errors.IsKind(errors.KindHasuraAPI, err))
	st := store.State()
	assert.False(t, st.Loading)
	assert.Error(t, st.Error)
	assert.Nil(t, st.Metadata)
}
