package diff

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasura/graphql-engine/console/internal/errors"
)

func TestSnapshots(t *testing.T) {
	before := []byte(`{"version":3,"sources":[{"name":"default","kind":"postgres","tables":[]}]}`)
	after := []byte(`{"version":3,"sources":[{"name":"default","kind":"postgres","tables":[{"table":{"schema":"public","name":"users"}}]}]}`)

	out := new(bytes.Buffer)
	n, err := Snapshots(before, after, out, true)
	require.NoError(t, err)
	assert.Greater(t, n, 0)
	assert.Contains(t, out.String(), "-  tables: []")
	assert.Contains(t, out.String(), "+      name: users")
	assert.Contains(t, out.String(), "@@")
	assert.NotContains(t, out.String(), "\x1b[")
}

func TestSnapshots_identical(t *testing.T) {
	doc := []byte(`{"version":3}`)
	out := new(bytes.Buffer)
	n, err := Snapshots(doc, doc, out, false)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, out.String())
}

func TestSnapshots_badInput(t *testing.T) {
	_, err := Snapshots([]byte(`{`), []byte(`{}`), new(bytes.Buffer), true)
	require.Error(t, err)
	assert.True(t, errors.IsKind(errors.KindBadInput, err))
}

func TestLine(t *testing.T) {
	assert.Equal(t, "+a", Line("+a", "green", true))
	assert.NotEqual(t, "+a", Line("+a", "green", false))
}
