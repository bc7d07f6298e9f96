package actions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasura/graphql-engine/console/internal/metadata"
)

var (
	userRel   = metadata.TypeRelationship{Name: "user", Type: "object", FieldMapping: map[string]string{"user_id": "id"}}
	outType   = metadata.CustomType{Kind: metadata.KindObject, Name: "Out", Fields: []metadata.ObjectField{{Name: "user_id", Type: "Int!"}}, Relationships: []metadata.TypeRelationship{userRel}}
	inputType = metadata.CustomType{Kind: metadata.KindInputObject, Name: "In", Fields: []metadata.ObjectField{{Name: "a", Type: "Int"}}}
	dateType  = metadata.CustomType{Kind: metadata.KindScalar, Name: "Date"}
)

func TestMergeTypes(t *testing.T) {
	redefined := metadata.CustomType{Kind: metadata.KindObject, Name: "Out", Fields: []metadata.ObjectField{{Name: "id", Type: "Int!"}}}
	merged, overlapping := MergeTypes([]metadata.CustomType{redefined, dateType}, []metadata.CustomType{inputType, outType})
	assert.Equal(t, []metadata.CustomType{redefined, dateType, inputType}, merged)
	assert.Equal(t, []string{"Out"}, overlapping)

	merged, overlapping = MergeTypes(nil, []metadata.CustomType{inputType})
	assert.Equal(t, []metadata.CustomType{inputType}, merged)
	assert.Empty(t, overlapping)
}

func TestHydrateRelationships(t *testing.T) {
	redefined := metadata.CustomType{Kind: metadata.KindObject, Name: "Out"}
	got := HydrateRelationships([]metadata.CustomType{redefined, dateType}, []metadata.CustomType{outType})
	assert.Equal(t, []metadata.TypeRelationship{userRel}, got[0].Relationships)
	assert.Empty(t, got[1].Relationships)
	assert.Empty(t, redefined.Relationships)
}

func TestInjectAndRemoveRelationship(t *testing.T) {
	types := []metadata.CustomType{outType, inputType}
	account := metadata.TypeRelationship{Name: "account", Type: "object"}

	injected := InjectRelationship(types, "Out", account)
	assert.Len(t, injected[0].Relationships, 2)
	assert.Len(t, types[0].Relationships, 1)

	replaced := InjectRelationship(types, "Out", metadata.TypeRelationship{Name: "user", Type: "array"})
	require.Len(t, replaced[0].Relationships, 1)
	assert.Equal(t, "array", replaced[0].Relationships[0].Type)

	removed := RemoveRelationship(injected, "Out", "user")
	assert.Equal(t, []metadata.TypeRelationship{account}, removed[0].Relationships)
	assert.Equal(t, inputType, removed[1])
}

func TestValidateRelationshipName(t *testing.T) {
	types := []metadata.CustomType{outType, inputType}
	tcs := []struct {
		name     string
		typename string
		rel      string
		wantErr  bool
	}{
		{"free name", "Out", "account", false},
		{"field clash", "Out", "user_id", true},
		{"relationship clash", "Out", "user", true},
		{"invalid name", "Out", "1abc", true},
		{"input object", "In", "rel", true},
		{"unknown type", "Nope", "rel", true},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRelationshipName(types, tc.typename, tc.rel)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	types := []metadata.CustomType{outType, inputType, dateType}
	tcs := []struct {
		name    string
		def     Definition
		handler string
		wantErr bool
	}{
		{"ok", Definition{Name: "a", OutputType: "Out", Arguments: []metadata.InputArgument{{Name: "i", Type: "In!"}, {Name: "d", Type: "Date"}}}, "h", false},
		{"scalar output", Definition{Name: "a", OutputType: "Boolean"}, "h", false},
		{"bad name", Definition{Name: "a-b", OutputType: "Out"}, "h", true},
		{"no handler", Definition{Name: "a", OutputType: "Out"}, "", true},
		{"object argument", Definition{Name: "a", OutputType: "Out", Arguments: []metadata.InputArgument{{Name: "o", Type: "Out"}}}, "h", true},
		{"undefined argument", Definition{Name: "a", OutputType: "Out", Arguments: []metadata.InputArgument{{Name: "o", Type: "Nope"}}}, "h", true},
		{"input output", Definition{Name: "a", OutputType: "In"}, "h", true},
		{"undefined output", Definition{Name: "a", OutputType: "Nope"}, "h", true},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(&tc.def, tc.handler, types)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
