package metadata

import (
	"encoding/json"

	"github.com/hasura/graphql-engine/console/internal/datasource"
	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura"
)

// AllowedQueriesCollection is the query collection backing the allow list.
const AllowedQueriesCollection = "allowed-queries"

// State is the console's copy of the engine metadata plus the flags of
// requests in flight. Reduce never mutates the slices of its input.
type State struct {
	Metadata *Metadata
	// Raw is the exported document exactly as the engine returned it.
	Raw                 json.RawMessage
	Error               error
	Loading             bool
	InconsistentObjects []hasura.InconsistentObject
	OngoingRequest      bool
	AllowedQueries      []AllowedQuery
	CurrentSource       string
	CurrentDriver       datasource.Kind
	CurrentSchema       string
	Revision            uint64
}

// StoreAction is a state transition understood by Reduce.
type StoreAction interface {
	isAction()
}

type (
	ExportMetadataRequest struct{}
	ExportMetadataSuccess struct {
		Metadata *Metadata
		Raw      json.RawMessage
	}
	ExportMetadataError struct{ Err error }

	LoadInconsistentObjectsRequest struct{}
	LoadInconsistentObjectsSuccess struct {
		Objects []hasura.InconsistentObject
	}
	LoadInconsistentObjectsError struct{ Err error }

	DropInconsistentMetadataRequest struct{}
	DropInconsistentMetadataSuccess struct{}
	DropInconsistentMetadataError   struct{ Err error }

	LoadAllowedQueries struct{ Queries []AllowedQuery }
	AddAllowedQueries  struct{ Queries []AllowedQuery }
	UpdateAllowedQuery struct {
		QueryName string
		NewQuery  AllowedQuery
	}
	DeleteAllowedQuery struct{ QueryName string }
	DeleteAllowList    struct{}

	SetCurrentSource struct {
		Source string
		Driver datasource.Kind
	}
	SetCurrentSchema struct{ Schema string }

	// MigrationRequest and MigrationDone bracket a migration call. Active
	// tells whether other calls are still running.
	MigrationRequest struct{}
	MigrationDone    struct{ Active bool }
)

func (ExportMetadataRequest) isAction()           {}
func (ExportMetadataSuccess) isAction()           {}
func (ExportMetadataError) isAction()             {}
func (LoadInconsistentObjectsRequest) isAction()  {}
func (LoadInconsistentObjectsSuccess) isAction()  {}
func (LoadInconsistentObjectsError) isAction()    {}
func (DropInconsistentMetadataRequest) isAction() {}
func (DropInconsistentMetadataSuccess) isAction() {}
func (DropInconsistentMetadataError) isAction()   {}
func (LoadAllowedQueries) isAction()              {}
func (AddAllowedQueries) isAction()               {}
func (UpdateAllowedQuery) isAction()              {}
func (DeleteAllowedQuery) isAction()              {}
func (DeleteAllowList) isAction()                 {}
func (SetCurrentSource) isAction()                {}
func (SetCurrentSchema) isAction()                {}
func (MigrationRequest) isAction()                {}
func (MigrationDone) isAction()                   {}

// errInconsistentObjects stands in when a LoadInconsistentObjectsError
// carries no error.
var errInconsistentObjects = errors.New("loading inconsistent objects failed")

// Reduce is the pure state transition function.
func Reduce(s State, action StoreAction) State {
	switch a := action.(type) {
	case ExportMetadataRequest:
		s.Loading = true
		s.Error = nil
	case ExportMetadataSuccess:
		s.Metadata = a.Metadata
		s.Raw = a.Raw
		s.Loading = false
		s.Error = nil
	case ExportMetadataError:
		s.Loading = false
		s.Error = a.Err

	case LoadInconsistentObjectsRequest:
		s.OngoingRequest = true
	case LoadInconsistentObjectsSuccess:
		s.InconsistentObjects = append([]hasura.InconsistentObject{}, a.Objects...)
		s.OngoingRequest = false
	case LoadInconsistentObjectsError:
		s.Error = a.Err
		if s.Error == nil {
			s.Error = errInconsistentObjects
		}
		s.OngoingRequest = false

	case DropInconsistentMetadataRequest:
		s.OngoingRequest = true
	case DropInconsistentMetadataSuccess:
		s.InconsistentObjects = []hasura.InconsistentObject{}
		s.OngoingRequest = false
	case DropInconsistentMetadataError:
		s.OngoingRequest = false

	case LoadAllowedQueries:
		s.AllowedQueries = append([]AllowedQuery{}, a.Queries...)
	case AddAllowedQueries:
		queries := make([]AllowedQuery, 0, len(s.AllowedQueries)+len(a.Queries))
		queries = append(queries, s.AllowedQueries...)
		s.AllowedQueries = append(queries, a.Queries...)
	case DeleteAllowList:
		s.AllowedQueries = []AllowedQuery{}
	case DeleteAllowedQuery:
		queries := make([]AllowedQuery, 0, len(s.AllowedQueries))
		for _, q := range s.AllowedQueries {
			if q.Name != a.QueryName {
				queries = append(queries, q)
			}
		}
		s.AllowedQueries = queries
	case UpdateAllowedQuery:
		queries := make([]AllowedQuery, 0, len(s.AllowedQueries))
		for _, q := range s.AllowedQueries {
			if q.Name == a.QueryName {
				q = a.NewQuery
			}
			queries = append(queries, q)
		}
		s.AllowedQueries = queries

	case SetCurrentSource:
		s.CurrentSource = a.Source
		s.CurrentDriver = a.Driver
	case SetCurrentSchema:
		s.CurrentSchema = a.Schema

	case MigrationRequest:
		s.OngoingRequest = true
	case MigrationDone:
		s.OngoingRequest = a.Active
	}
	return s
}

// AllowedQueriesFromMetadata reads the queries of the allow list
// collection.
func AllowedQueriesFromMetadata(md *Metadata) []AllowedQuery {
	if md == nil {
		return []AllowedQuery{}
	}
	for _, c := range md.QueryCollections {
		if c.Name == AllowedQueriesCollection {
			return append([]AllowedQuery{}, c.Definition.Queries...)
		}
	}
	return []AllowedQuery{}
}
