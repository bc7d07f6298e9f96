package filterquery

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasura/graphql-engine/console/internal/datasource"
	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura/v1metadata"
	"github.com/hasura/graphql-engine/console/internal/testutil"
)

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }

func TestDefaultState(t *testing.T) {
	s := DefaultState()
	assert.Equal(t, []ValueFilter{{}}, s.Filters)
	assert.Equal(t, []OrderBy{{Type: "asc"}}, s.Sorts)
	assert.Equal(t, 10, s.Limit)
	assert.Equal(t, 0, s.Offset)
}

func TestState_SetFilters(t *testing.T) {
	tcs := []struct {
		name string
		in   []ValueFilter
		want int
	}{
		{"empty gets a blank row", nil, 1},
		{"filled last row gets a blank row", []ValueFilter{{Key: "id", Operator: strp("$eq"), Value: "1"}}, 2},
		{"key only counts as filled", []ValueFilter{{Key: "id"}}, 2},
		{"blank last row is kept as is", []ValueFilter{{Key: "id", Value: "1"}, {}}, 2},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			var s State
			s.SetFilters(tc.in)
			require.Len(t, s.Filters, tc.want)
			assert.Equal(t, ValueFilter{}, s.Filters[len(s.Filters)-1])
		})
	}
}

func TestState_SetSorts(t *testing.T) {
	var s State
	s.SetSorts(nil)
	assert.Equal(t, []OrderBy{{Type: "asc"}}, s.Sorts)
	s.SetSorts([]OrderBy{{Column: "created_at", Type: "desc"}})
	assert.Equal(t, []OrderBy{{Column: "created_at", Type: "desc"}, {Type: "asc"}}, s.Sorts)
	s.SetSorts([]OrderBy{{Column: "id"}, {Type: "desc"}})
	assert.Len(t, s.Sorts, 2)
}

var events = map[string]interface{}{
	"events": []interface{}{
		map[string]interface{}{"id": "1", "status": "scheduled"},
		map[string]interface{}{"id": "2", "status": "delivered"},
		map[string]interface{}{"id": "3", "status": "error"},
	},
}

func newQuery(t *testing.T, table string) (*testutil.FakeEngine, *Query) {
	t.Helper()
	engine := testutil.NewFakeEngine(t)
	engine.On("get_scheduled_events", testutil.Reply(http.StatusOK, events))
	client := v1metadata.New(engine.NewHttpcClient(t, nil), "v1/metadata")
	return engine, New(client, datasource.QualifiedTable{Schema: "hdb_catalog", Name: table})
}

func TestQuery_Run(t *testing.T) {
	tcs := []struct {
		name    string
		table   string
		trigger string
		op      TriggerOp
		wantIDs []string
		args    string
	}{
		{"one off pending", "hdb_scheduled_events", "", OpPending, []string{"1"}, `{"type":"one_off"}`},
		{"cron processed", "hdb_cron_events", "nightly", OpProcessed, []string{"2"}, `{"type":"cron","trigger_name":"nightly"}`},
		{"cron invocation", "hdb_cron_events", "nightly", OpInvocation, []string{"2"}, `{"type":"cron","trigger_name":"nightly"}`},
		{"no op keeps all", "hdb_scheduled_events", "", "", []string{"1", "2", "3"}, `{"type":"one_off"}`},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			engine, q := newQuery(t, tc.table)
			q.TriggerName, q.TriggerOp = tc.trigger, tc.op
			rows, err := q.Run(context.Background(), RunOptions{})
			require.NoError(t, err)

			var ids []string
			for _, r := range rows {
				ids = append(ids, r["id"].(string))
			}
			assert.Equal(t, tc.wantIDs, ids)
			assert.Equal(t, len(tc.wantIDs), q.Count())

			reqs := engine.RequestsOfType("get_scheduled_events")
			require.Len(t, reqs, 1)
			assert.JSONEq(t, tc.args, string(reqs[0].Args))
		})
	}
}

func TestQuery_Run_storesOptions(t *testing.T) {
	_, q := newQuery(t, "hdb_scheduled_events")
	sorts := []OrderBy{{Column: "scheduled_time", Type: "desc"}}
	_, err := q.Run(context.Background(), RunOptions{Offset: intp(20), Limit: intp(50), Sorts: sorts})
	require.NoError(t, err)
	assert.Equal(t, 20, q.State().Offset)
	assert.Equal(t, 50, q.State().Limit)
	assert.Equal(t, sorts, q.State().Sorts)
}

func TestQuery_Run_dataTrigger(t *testing.T) {
	engine, q := newQuery(t, "hdb_scheduled_events")
	q.TriggerType = TriggerData
	rows, err := q.Run(context.Background(), RunOptions{Offset: intp(5)})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Empty(t, engine.Requests())
	assert.Equal(t, 0, q.State().Offset)
}

func TestQuery_Run_failures(t *testing.T) {
	t.Run("unknown table", func(t *testing.T) {
		engine, q := newQuery(t, "users")
		_, err := q.Run(context.Background(), RunOptions{})
		require.Error(t, err)
		assert.Equal(t, errors.KindBadInput, errors.GetKind(err))
		assert.Empty(t, engine.Requests())
	})
	t.Run("engine error keeps state", func(t *testing.T) {
		engine, q := newQuery(t, "hdb_scheduled_events")
		engine.On("get_scheduled_events", testutil.Reply(http.StatusBadRequest, testutil.APIError("not-supported", "nope")))
		_, err := q.Run(context.Background(), RunOptions{Limit: intp(99)})
		require.Error(t, err)
		assert.Equal(t, errors.KindHasuraAPI, errors.GetKind(err))
		assert.Equal(t, DefaultLimit, q.State().Limit)
	})
}

func TestQuery_SetState(t *testing.T) {
	_, q := newQuery(t, "hdb_cron_events")
	q.SetState(func(s *State) {
		s.SetLimit(25)
		s.SetOffset(50)
		s.SetFilters([]ValueFilter{{Key: "status", Value: "error"}})
	})
	assert.Equal(t, 25, q.State().Limit)
	assert.Equal(t, 50, q.State().Offset)
	assert.Len(t, q.State().Filters, 2)
}

func TestQuery_Page(t *testing.T) {
	_, q := newQuery(t, "hdb_scheduled_events")
	q.TriggerType = TriggerOneOff
	assert.Empty(t, q.Page())

	_, err := q.Run(context.Background(), RunOptions{Limit: intp(2)})
	require.NoError(t, err)
	require.Len(t, q.Page(), 2)
	assert.Equal(t, "1", q.Page()[0]["id"])

	q.SetState(func(s *State) { s.SetOffset(2) })
	require.Len(t, q.Page(), 1)
	assert.Equal(t, "3", q.Page()[0]["id"])

	q.SetState(func(s *State) { s.SetOffset(5) })
	assert.Empty(t, q.Page())
}
