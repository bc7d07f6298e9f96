package metadata

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hasura/graphql-engine/console/internal/hasura"
)

func TestReduce(t *testing.T) {
	boom := fmt.Errorf("boom")
	md := &Metadata{Version: V3}
	objects := []hasura.InconsistentObject{{Type: "table", Reason: "no such table"}}
	q1 := AllowedQuery{Name: "q1", Query: "query { a }"}
	q2 := AllowedQuery{Name: "q2", Query: "query { b }"}

	tests := []struct {
		name   string
		state  State
		action StoreAction
		want   State
	}{
		{"export request", State{Error: boom}, ExportMetadataRequest{}, State{Loading: true}},
		{"export success", State{Loading: true, Error: boom}, ExportMetadataSuccess{Metadata: md, Raw: json.RawMessage(`{}`)}, State{Metadata: md, Raw: json.RawMessage(`{}`)}},
		{"export error", State{Loading: true}, ExportMetadataError{Err: boom}, State{Error: boom}},
		{"load inconsistent request", State{}, LoadInconsistentObjectsRequest{}, State{OngoingRequest: true}},
		{"load inconsistent success", State{OngoingRequest: true}, LoadInconsistentObjectsSuccess{Objects: objects}, State{InconsistentObjects: objects}},
		{"load inconsistent error", State{OngoingRequest: true}, LoadInconsistentObjectsError{Err: boom}, State{Error: boom}},
		{"load inconsistent error without cause", State{OngoingRequest: true}, LoadInconsistentObjectsError{}, State{Error: errInconsistentObjects}},
		{"drop request", State{}, DropInconsistentMetadataRequest{}, State{OngoingRequest: true}},
		{"drop success", State{OngoingRequest: true, InconsistentObjects: objects}, DropInconsistentMetadataSuccess{}, State{InconsistentObjects: []hasura.InconsistentObject{}}},
		{"drop error", State{OngoingRequest: true, InconsistentObjects: objects}, DropInconsistentMetadataError{Err: boom}, State{InconsistentObjects: objects}},
		{"load allowed", State{}, LoadAllowedQueries{Queries: []AllowedQuery{q1}}, State{AllowedQueries: []AllowedQuery{q1}}},
		{"add allowed", State{AllowedQueries: []AllowedQuery{q1}}, AddAllowedQueries{Queries: []AllowedQuery{q2}}, State{AllowedQueries: []AllowedQuery{q1, q2}}},
		{"update allowed", State{AllowedQueries: []AllowedQuery{q1, q2}}, UpdateAllowedQuery{QueryName: "q1", NewQuery: AllowedQuery{Name: "q1b", Query: "x"}}, State{AllowedQueries: []AllowedQuery{{Name: "q1b", Query: "x"}, q2}}},
		{"delete allowed", State{AllowedQueries: []AllowedQuery{q1, q2}}, DeleteAllowedQuery{QueryName: "q1"}, State{AllowedQueries: []AllowedQuery{q2}}},
		{"delete allow list", State{AllowedQueries: []AllowedQuery{q1, q2}}, DeleteAllowList{}, State{AllowedQueries: []AllowedQuery{}}},
		{"set source", State{}, SetCurrentSource{Source: "default", Driver: "postgres"}, State{CurrentSource: "default", CurrentDriver: "postgres"}},
		{"set schema", State{}, SetCurrentSchema{Schema: "app"}, State{CurrentSchema: "app"}},
		{"migration request", State{}, MigrationRequest{}, State{OngoingRequest: true}},
		{"migration done", State{OngoingRequest: true}, MigrationDone{}, State{}},
		{"migration done with others running", State{OngoingRequest: true}, MigrationDone{Active: true}, State{OngoingRequest: true}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Reduce(tc.state, tc.action))
		})
	}
}

func TestReduce_doesNotMutateInput(t *testing.T) {
	queries := []AllowedQuery{{Name: "q1"}, {Name: "q2"}}
	in := State{AllowedQueries: queries[:1]}
	_ = Reduce(in, AddAllowedQueries{Queries: []AllowedQuery{{Name: "new"}}})
	assert.Equal(t, "q2", queries[1].Name, "appending must not write into the input's backing array")

	in = State{AllowedQueries: queries}
	_ = Reduce(in, UpdateAllowedQuery{QueryName: "q1", NewQuery: AllowedQuery{Name: "changed"}})
	assert.Equal(t, "q1", queries[0].Name)
}

func TestAllowedQueriesFromMetadata(t *testing.T) {
	md := loadFixture(t)
	assert.Equal(t, []AllowedQuery{{Name: "q1", Query: "query { users { id } }"}}, AllowedQueriesFromMetadata(md))
	assert.Equal(t, []AllowedQuery{}, AllowedQueriesFromMetadata(&Metadata{}))
	assert.Equal(t, []AllowedQuery{}, AllowedQueriesFromMetadata(nil))
}
