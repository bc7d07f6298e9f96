package errors

import (
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnwrappingErrorsWithKind(t *testing.T) {
	e := E("Test", KindNetwork, &url.Error{
		Op:  "Test URL Error",
		URL: "https://test-url",
		Err: fmt.Errorf("something"),
	})

	assert.True(t, IsKind(KindNetwork, e))
	var urlErr *url.Error
	assert.True(t, As(e, &urlErr))
}

func TestCanGetWrappedKind(t *testing.T) {
	e1 := E("E1", KindHasuraAPI, "some bad error")
	e2 := E("E2", fmt.Errorf("something bad occurred: %w", e1))
	assert.True(t, IsKind(KindHasuraAPI, e2))
	assert.False(t, IsKind(KindBadInput, e2))
}

func TestGetKindDefaultsToOther(t *testing.T) {
	assert.Equal(t, KindOther, GetKind(fmt.Errorf("plain")))
	assert.Equal(t, KindOther, GetKind(E("op", "no kind")))
}

func TestOpsAndTrail(t *testing.T) {
	inner := E("datasource.postgres.CreateTableSQL", KindBadInput, "no columns")
	outer := E("commands.sqlRunOptions.run", inner)

	var e *Error
	require.True(t, As(outer, &e))
	assert.Equal(t, []Op{"commands.sqlRunOptions.run", "datasource.postgres.CreateTableSQL"}, Ops(e))
	assert.Equal(t, "commands.sqlRunOptions.run -> datasource.postgres.CreateTableSQL", OpTrail(outer))
	assert.Equal(t, "", OpTrail(fmt.Errorf("plain")))
	assert.Equal(t, "no columns", outer.Error())
}

func TestGetLocation(t *testing.T) {
	e := E("op", "boom")
	loc := GetLocation(e)
	assert.Contains(t, loc.File, "errors_test.go")
	assert.NotZero(t, loc.Line)
	assert.Equal(t, ErrLocation{}, GetLocation(fmt.Errorf("plain")))
}
