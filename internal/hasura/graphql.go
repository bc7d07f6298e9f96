package hasura

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type V1Graphql interface {
	Query(ctx context.Context, req GraphQLRequest, role string) (*GraphQLResponse, error)
	GetIntrospectionSchema(ctx context.Context, role string) (*IntrospectionSchema, error)
}

type GraphQLRequest struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
	OperationName string                 `json:"operationName,omitempty"`
}

type GraphQLError struct {
	Message    string                 `json:"message"`
	Extensions map[string]interface{} `json:"extensions,omitempty"`
}

type GraphQLResponse struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Errors []GraphQLError  `json:"errors,omitempty"`
}

// Err joins the GraphQL errors of the response, nil when there are none.
func (r *GraphQLResponse) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msg := e.Message
		if path, ok := e.Extensions["path"].(string); ok && path != "" {
			msg = fmt.Sprintf("%s (at %s)", msg, path)
		}
		msgs = append(msgs, msg)
	}
	return fmt.Errorf("graphql: %s", strings.Join(msgs, "; "))
}

type IntrospectionNamedType struct {
	Name string `json:"name"`
}

type IntrospectionSchema struct {
	QueryType        *IntrospectionNamedType `json:"queryType"`
	MutationType     *IntrospectionNamedType `json:"mutationType"`
	SubscriptionType *IntrospectionNamedType `json:"subscriptionType"`
	Types            []IntrospectionType     `json:"types"`
}

// Type looks a type up by name.
func (s *IntrospectionSchema) Type(name string) *IntrospectionType {
	for i := range s.Types {
		if s.Types[i].Name == name {
			return &s.Types[i]
		}
	}
	return nil
}

type IntrospectionType struct {
	Kind        string                    `json:"kind"`
	Name        string                    `json:"name"`
	Description string                    `json:"description"`
	Fields      []IntrospectionField      `json:"fields"`
	InputFields []IntrospectionInputValue `json:"inputFields"`
	EnumValues  []IntrospectionEnumValue  `json:"enumValues"`
}

// Builtin reports the introspection types, __Schema and friends.
func (t *IntrospectionType) Builtin() bool {
	return strings.HasPrefix(t.Name, "__")
}

type IntrospectionField struct {
	Name              string                    `json:"name"`
	Description       string                    `json:"description"`
	Args              []IntrospectionInputValue `json:"args"`
	Type              IntrospectionTypeRef      `json:"type"`
	IsDeprecated      bool                      `json:"isDeprecated"`
	DeprecationReason string                    `json:"deprecationReason"`
}

type IntrospectionInputValue struct {
	Name         string               `json:"name"`
	Description  string               `json:"description"`
	Type         IntrospectionTypeRef `json:"type"`
	DefaultValue *string              `json:"defaultValue"`
}

type IntrospectionEnumValue struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	IsDeprecated bool   `json:"isDeprecated"`
}

type IntrospectionTypeRef struct {
	Kind   string                `json:"kind"`
	Name   string                `json:"name"`
	OfType *IntrospectionTypeRef `json:"ofType"`
}

// String renders the reference the way SDL does, [order!]! for a non null
// list of non null orders.
func (r IntrospectionTypeRef) String() string {
	switch r.Kind {
	case "NON_NULL":
		if r.OfType == nil {
			return "!"
		}
		return r.OfType.String() + "!"
	case "LIST":
		if r.OfType == nil {
			return "[]"
		}
		return "[" + r.OfType.String() + "]"
	default:
		return r.Name
	}
}
