// Package allowlist edits the "allowed-queries" query collection.
package allowlist

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura"
	"github.com/hasura/graphql-engine/console/internal/metadata"
	"github.com/hasura/graphql-engine/console/internal/metadataquery"
	"github.com/hasura/graphql-engine/console/internal/migration"
)

type Service struct {
	client   hasura.V1Metadata
	store    *metadata.Store
	notifier migration.Notifier
	logger   *logrus.Logger
}

func New(client hasura.V1Metadata, store *metadata.Store, notifier migration.Notifier, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{client: client, store: store, notifier: notifier, logger: logger}
}

func (s *Service) send(ctx context.Context, body hasura.RequestBody) error {
	var op errors.Op = "allowlist.Service.send"
	resp, r, err := s.client.Send(ctx, body)
	if err != nil {
		return errors.E(op, errors.KindNetwork, err)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(r)
		return errors.E(op, errors.KindHasuraAPI, hasura.ParseAPIError(resp.StatusCode, b))
	}
	return nil
}

// Queries returns the allowed queries currently held by the store.
func (s *Service) Queries() []metadata.AllowedQuery {
	return s.store.State().AllowedQueries
}

// Add appends queries to the allow list, creating the collection first
// when isEmptyList is set.
func (s *Service) Add(ctx context.Context, queries []metadata.AllowedQuery, isEmptyList bool) error {
	var op errors.Op = "allowlist.Service.Add"
	if len(queries) == 0 {
		err := errors.E(op, errors.KindBadInput, "no queries found")
		s.notifier.Error("No queries found", "", nil)
		return err
	}
	body := metadataquery.AddAllowedQueries(queries)
	if isEmptyList {
		body = metadataquery.CreateAllowList(queries)
	}
	if err := s.send(ctx, body); err != nil {
		s.notifier.Error("Adding query to allow-list failed", "", err)
		return errors.E(op, err)
	}
	title := "Query added to allow-list"
	if len(queries) > 1 {
		title = "Queries added to allow-list"
	}
	s.notifier.Success(title, "")
	s.store.Dispatch(metadata.AddAllowedQueries{Queries: queries})
	return nil
}

func (s *Service) Update(ctx context.Context, name string, newQuery metadata.AllowedQuery) error {
	var op errors.Op = "allowlist.Service.Update"
	if err := s.send(ctx, metadataquery.UpdateAllowedQuery(name, newQuery)); err != nil {
		s.notifier.Error("Updating allow-list query failed", "", err)
		return errors.E(op, err)
	}
	s.notifier.Success("Updated allow-list query", "")
	s.store.Dispatch(metadata.UpdateAllowedQuery{QueryName: name, NewQuery: newQuery})
	return nil
}

// Delete removes one query. The last query drops the whole collection since
// the engine rejects an empty one.
func (s *Service) Delete(ctx context.Context, name string, isLast bool) error {
	var op errors.Op = "allowlist.Service.Delete"
	body := metadataquery.DeleteAllowedQuery(name)
	if isLast {
		body = metadataquery.DeleteAllowList()
	}
	if err := s.send(ctx, body); err != nil {
		s.notifier.Error("Deleting query from allow-list failed", "", err)
		return errors.E(op, err)
	}
	s.notifier.Success("Deleted query from allow-list", "")
	s.store.Dispatch(metadata.DeleteAllowedQuery{QueryName: name})
	return nil
}

func (s *Service) DeleteAll(ctx context.Context) error {
	var op errors.Op = "allowlist.Service.DeleteAll"
	if err := s.send(ctx, metadataquery.DeleteAllowList()); err != nil {
		s.notifier.Error("Deleting queries from allow-list failed", "", err)
		return errors.E(op, err)
	}
	s.notifier.Success("Deleted all queries from allow-list", "")
	s.store.Dispatch(metadata.DeleteAllowList{})
	return nil
}

// ParseQueries splits a GraphQL document into one allowed query per named
// operation. Fragments used by an operation are printed along with it.
func ParseQueries(document string) ([]metadata.AllowedQuery, error) {
	var op errors.Op = "allowlist.ParseQueries"
	doc, gqlErr := parser.ParseQuery(&ast.Source{Name: "allowlist", Input: document})
	if gqlErr != nil {
		return nil, errors.E(op, errors.KindBadInput, gqlErr)
	}
	queries := make([]metadata.AllowedQuery, 0, len(doc.Operations))
	seen := map[string]bool{}
	for _, operation := range doc.Operations {
		if operation.Name == "" {
			return nil, errors.E(op, errors.KindBadInput, "all operations must be named")
		}
		if seen[operation.Name] {
			return nil, errors.E(op, errors.KindBadInput, "duplicate operation name "+operation.Name)
		}
		seen[operation.Name] = true

		var buf bytes.Buffer
		formatter.NewFormatter(&buf).FormatQueryDocument(&ast.QueryDocument{
			Operations: ast.OperationList{operation},
			Fragments:  usedFragments(operation.SelectionSet, doc.Fragments, map[string]bool{}),
		})
		queries = append(queries, metadata.AllowedQuery{Name: operation.Name, Query: strings.TrimSpace(buf.String())})
	}
	return queries, nil
}

func usedFragments(set ast.SelectionSet, all ast.FragmentDefinitionList, visited map[string]bool) ast.FragmentDefinitionList {
	var out ast.FragmentDefinitionList
	for _, sel := range set {
		switch sel := sel.(type) {
		case *ast.Field:
			out = append(out, usedFragments(sel.SelectionSet, all, visited)...)
		case *ast.InlineFragment:
			out = append(out, usedFragments(sel.SelectionSet, all, visited)...)
		case *ast.FragmentSpread:
			if visited[sel.Name] {
				continue
			}
			visited[sel.Name] = true
			if def := all.ForName(sel.Name); def != nil {
				out = append(out, def)
				out = append(out, usedFragments(def.SelectionSet, all, visited)...)
			}
		}
	}
	return out
}
