// Package explorer browses the GraphQL API the engine generates and runs
// read only queries against it.
package explorer

import (
	"context"
	"fmt"
	"sort"

	"github.com/ahmetb/go-linq"
	"github.com/sirupsen/logrus"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura"
)

type Service struct {
	client hasura.V1Graphql
	logger *logrus.Logger
}

func New(client hasura.V1Graphql, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{client: client, logger: logger}
}

type TypeSummary struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Fields int    `json:"fields"`
	// Root is query, mutation or subscription for the root types.
	Root string `json:"root,omitempty"`
}

// Types lists the types role can see, by name. Introspection types are
// left out unless builtin is set.
func (s *Service) Types(ctx context.Context, role string, builtin bool) ([]TypeSummary, error) {
	var op errors.Op = "explorer.Service.Types"
	schema, err := s.client.GetIntrospectionSchema(ctx, role)
	if err != nil {
		return nil, errors.E(op, err)
	}
	roots := map[string]string{}
	for root, t := range map[string]*hasura.IntrospectionNamedType{
		"query":        schema.QueryType,
		"mutation":     schema.MutationType,
		"subscription": schema.SubscriptionType,
	} {
		if t != nil {
			roots[t.Name] = root
		}
	}

	var summaries []TypeSummary
	linq.From(schema.Types).
		WhereT(func(t hasura.IntrospectionType) bool { return builtin || !t.Builtin() }).
		SelectT(func(t hasura.IntrospectionType) TypeSummary {
			return TypeSummary{Name: t.Name, Kind: t.Kind, Fields: len(t.Fields) + len(t.InputFields) + len(t.EnumValues), Root: roots[t.Name]}
		}).
		ToSlice(&summaries)
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	s.logger.WithField("role", role).Debugf("introspected %d types", len(schema.Types))
	return summaries, nil
}

// Describe returns the type called name as role sees it.
func (s *Service) Describe(ctx context.Context, role, name string) (*hasura.IntrospectionType, error) {
	var op errors.Op = "explorer.Service.Describe"
	schema, err := s.client.GetIntrospectionSchema(ctx, role)
	if err != nil {
		return nil, errors.E(op, err)
	}
	t := schema.Type(name)
	if t == nil {
		return nil, errors.E(op, errors.KindBadInput, fmt.Sprintf("type %q not found", name))
	}
	return t, nil
}

type RunOptions struct {
	Variables     map[string]interface{}
	OperationName string
	Role          string
	// AllowMutations lets mutations through, the explorer only runs
	// queries otherwise.
	AllowMutations bool
}

// Run checks document and sends the operation it names. The response is
// returned together with the error when the engine answered with
// GraphQL errors.
func (s *Service) Run(ctx context.Context, document string, opts RunOptions) (*hasura.GraphQLResponse, error) {
	var op errors.Op = "explorer.Service.Run"
	operation, err := pickOperation(document, opts.OperationName)
	if err != nil {
		return nil, errors.E(op, err)
	}
	switch operation.Operation {
	case ast.Subscription:
		return nil, errors.E(op, errors.KindNotSupported, "subscriptions need a websocket connection")
	case ast.Mutation:
		if !opts.AllowMutations {
			return nil, errors.E(op, errors.KindBadInput, "the explorer only runs queries, allow mutations to run this one")
		}
	}
	resp, err := s.client.Query(ctx, hasura.GraphQLRequest{Query: document, Variables: opts.Variables, OperationName: opts.OperationName}, opts.Role)
	if err != nil {
		return nil, errors.E(op, err)
	}
	if err := resp.Err(); err != nil {
		return resp, errors.E(op, errors.KindHasuraAPI, err)
	}
	return resp, nil
}

func pickOperation(document, name string) (*ast.OperationDefinition, error) {
	var op errors.Op = "explorer.pickOperation"
	doc, gqlErr := parser.ParseQuery(&ast.Source{Name: "explorer", Input: document})
	if gqlErr != nil {
		return nil, errors.E(op, errors.KindBadInput, gqlErr)
	}
	switch {
	case len(doc.Operations) == 0:
		return nil, errors.E(op, errors.KindBadInput, "the document has no operation")
	case name != "":
		o := doc.Operations.ForName(name)
		if o == nil {
			return nil, errors.E(op, errors.KindBadInput, fmt.Sprintf("operation %q not found", name))
		}
		return o, nil
	case len(doc.Operations) > 1:
		return nil, errors.E(op, errors.KindBadInput, "the document has several operations, name the one to run")
	}
	return doc.Operations[0], nil
}
