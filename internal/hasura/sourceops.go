package hasura

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	CommandOK RunSQLResultType = "CommandOk"
	TuplesOK  RunSQLResultType = "TuplesOk"
)

// PGSourceOps are the query API requests served by postgres sources.
type PGSourceOps interface {
	PGRunSQL(ctx context.Context, input PGRunSQLInput) (response *PGRunSQLOutput, err error)
}

// MySQLSourceOps are the query API requests served by mysql sources.
type MySQLSourceOps interface {
	MySQLRunSQL(ctx context.Context, input MySQLRunSQLInput) (response *MySQLRunSQLOutput, err error)
}

type PGRunSQLInput struct {
	SQL                      string `json:"sql" yaml:"sql"`
	Source                   string `json:"source,omitempty" yaml:"source,omitempty"`
	Cascade                  bool   `json:"cascade,omitempty" yaml:"cascade,omitempty"`
	ReadOnly                 bool   `json:"read_only,omitempty" yaml:"read_only,omitempty"`
	CheckMetadataConsistency *bool  `json:"check_metadata_consistency,omitempty" yaml:"check_metadata_consistency,omitempty"`
}

type RunSQLResultType string

type PGRunSQLOutput struct {
	ResultType RunSQLResultType `json:"result_type" yaml:"result_type"`
	Result     [][]string       `json:"result" yaml:"result"`
}

type MySQLRunSQLInput PGRunSQLInput

// MySQLRunSQLOutput keeps cells untyped, mysql sources answer with native
// JSON numbers and nulls.
type MySQLRunSQLOutput struct {
	ResultType RunSQLResultType `json:"result_type" yaml:"result_type"`
	Result     [][]interface{}  `json:"result" yaml:"result"`
}

// RunSQLResult is the driver independent view of a run_sql answer used by
// callers that do not care which source produced it.
type RunSQLResult struct {
	ResultType RunSQLResultType
	Rows       [][]string
}

func (o *PGRunSQLOutput) Normalize() *RunSQLResult {
	return &RunSQLResult{ResultType: o.ResultType, Rows: o.Result}
}

func (o *MySQLRunSQLOutput) Normalize() *RunSQLResult {
	rows := make([][]string, 0, len(o.Result))
	for _, r := range o.Result {
		row := make([]string, 0, len(r))
		for _, cell := range r {
			switch v := cell.(type) {
			case nil:
				row = append(row, "NULL")
			case string:
				row = append(row, v)
			default:
				b, err := json.Marshal(v)
				if err != nil {
					row = append(row, fmt.Sprint(v))
					continue
				}
				row = append(row, string(b))
			}
		}
		rows = append(rows, row)
	}
	return &RunSQLResult{ResultType: o.ResultType, Rows: rows}
}
