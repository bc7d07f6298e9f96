// Package filterquery keeps the filter, sort and paging state of an event
// log view and fetches its rows.
package filterquery

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/hasura/graphql-engine/console/internal/datasource"
	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura"
	"github.com/hasura/graphql-engine/console/internal/metadataquery"
)

const (
	DefaultLimit  = 10
	DefaultOffset = 0
)

// ValueFilter is one where clause row. An empty Operator means none was
// picked yet.
type ValueFilter struct {
	Key      string  `json:"key"`
	Operator *string `json:"operator"`
	Value    string  `json:"value"`
}

type OrderBy struct {
	Column string `json:"column"`
	Type   string `json:"type"`
	Nulls  string `json:"nulls,omitempty"`
}

func defaultFilter() ValueFilter { return ValueFilter{} }
func defaultSort() OrderBy       { return OrderBy{Type: "asc"} }

type State struct {
	Filters []ValueFilter
	Sorts   []OrderBy
	Limit   int
	Offset  int
}

func DefaultState() State {
	return State{
		Filters: []ValueFilter{defaultFilter()},
		Sorts:   []OrderBy{defaultSort()},
		Limit:   DefaultLimit,
		Offset:  DefaultOffset,
	}
}

// SetFilters keeps a blank row at the end for the next filter.
func (s *State) SetFilters(filters []ValueFilter) {
	out := append([]ValueFilter{}, filters...)
	if n := len(filters); n == 0 || filters[n-1].Key != "" || filters[n-1].Value != "" {
		out = append(out, defaultFilter())
	}
	s.Filters = out
}

// SetSorts keeps a blank sort at the end for the next column.
func (s *State) SetSorts(sorts []OrderBy) {
	out := append([]OrderBy{}, sorts...)
	if n := len(sorts); n == 0 || sorts[n-1].Column != "" {
		out = append(out, defaultSort())
	}
	s.Sorts = out
}

func (s *State) SetOffset(o int) { s.Offset = o }
func (s *State) SetLimit(l int)  { s.Limit = l }

type TriggerType string

const (
	TriggerCron   TriggerType = "cron"
	TriggerData   TriggerType = "data"
	TriggerOneOff TriggerType = "one_off"
)

// TriggerOp selects which events of a trigger are shown.
type TriggerOp string

const (
	OpPending    TriggerOp = "pending"
	OpProcessed  TriggerOp = "processed"
	OpInvocation TriggerOp = "invocation"
)

// Query fetches the event rows behind one log table.
type Query struct {
	Table       datasource.QualifiedTable
	TriggerName string
	Source      string
	TriggerType TriggerType
	TriggerOp   TriggerOp

	client hasura.V1Metadata
	state  State
	rows   []map[string]interface{}
	count  int
}

func New(client hasura.V1Metadata, table datasource.QualifiedTable) *Query {
	return &Query{Table: table, client: client, state: DefaultState(), rows: []map[string]interface{}{}}
}

func (q *Query) State() State                   { return q.state }
func (q *Query) Rows() []map[string]interface{} { return q.rows }
func (q *Query) Count() int                     { return q.count }

// SetState exposes the setters, the next Run uses the result.
func (q *Query) SetState(fn func(s *State)) { fn(&q.state) }

// RunOptions override the paging and sorts of the state. They are stored
// once the request succeeds.
type RunOptions struct {
	Offset *int
	Limit  *int
	Sorts  []OrderBy
}

// request picks the engine call from the log table name.
func (q *Query) request() (hasura.RequestBody, bool) {
	switch {
	case strings.Contains(q.Table.Name, "scheduled"):
		return metadataquery.ScheduledEvents(metadataquery.ScheduledOneOff, ""), true
	case strings.Contains(q.Table.Name, "cron"):
		return metadataquery.ScheduledEvents(metadataquery.ScheduledCron, q.TriggerName), true
	}
	return hasura.RequestBody{}, false
}

// Run fetches the events and filters them by TriggerOp. Data triggers have
// no listing API and return the current rows untouched.
func (q *Query) Run(ctx context.Context, opts RunOptions) ([]map[string]interface{}, error) {
	var op errors.Op = "filterquery.Query.Run"
	if q.TriggerType == TriggerData {
		return q.rows, nil
	}
	body, ok := q.request()
	if !ok {
		return nil, errors.E(op, errors.KindBadInput, "no event listing for table "+q.Table.Name)
	}
	resp, r, err := q.client.Send(ctx, body)
	if err != nil {
		return nil, errors.E(op, errors.KindNetwork, err)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.E(op, errors.KindInternal, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.E(op, errors.KindHasuraAPI, hasura.ParseAPIError(resp.StatusCode, raw))
	}
	var data struct {
		Events []map[string]interface{} `json:"events"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, errors.E(op, errors.KindHasuraAPI, err)
	}

	rows := filterByOp(data.Events, q.TriggerOp)
	q.rows = rows
	q.count = len(rows)
	if opts.Offset != nil {
		q.state.Offset = *opts.Offset
	}
	if opts.Limit != nil {
		q.state.Limit = *opts.Limit
	}
	if opts.Sorts != nil {
		q.state.Sorts = opts.Sorts
	}
	return rows, nil
}

// Page is the slice of the fetched rows selected by the paging state.
func (q *Query) Page() []map[string]interface{} {
	start := q.state.Offset
	if start < 0 {
		start = 0
	}
	if start > len(q.rows) {
		start = len(q.rows)
	}
	end := len(q.rows)
	if q.state.Limit > 0 && start+q.state.Limit < end {
		end = start + q.state.Limit
	}
	return q.rows[start:end]
}

func filterByOp(events []map[string]interface{}, op TriggerOp) []map[string]interface{} {
	want := ""
	switch op {
	case OpPending:
		want = "scheduled"
	case OpProcessed, OpInvocation:
		want = "delivered"
	}
	out := make([]map[string]interface{}, 0, len(events))
	for _, e := range events {
		if want != "" {
			if status, _ := e["status"].(string); status != want {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}
