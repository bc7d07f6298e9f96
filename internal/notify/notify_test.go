package notify

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura"
)

func TestCenter(t *testing.T) {
	color.NoColor = true
	logger, hook := test.NewNullLogger()
	out := new(bytes.Buffer)
	c := NewCenter(logger, out)

	c.Success("Data source added successfully!", "")
	apiErr := &hasura.APIError{Code: "postgres-error", Message: "query execution failed", Internal: []byte(`{"error":{"message":"relation does not exist","status_code":"42P01"}}`)}
	c.Error("Add data source failed", "", errors.E(errors.Op("sources.Service.Add"), errors.KindHasuraAPI, apiErr))

	items := c.List()
	require.Len(t, items, 2)
	assert.Equal(t, LevelError, items[0].Level, "newest first")
	assert.Equal(t, "relation does not exist", items[0].Detail)
	assert.NotEmpty(t, items[0].ID)
	assert.Equal(t, LevelSuccess, items[1].Level)
	assert.Equal(t, 2, c.Unread())

	require.Len(t, hook.AllEntries(), 2)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "Add data source failed", hook.LastEntry().Data["title"])

	assert.Contains(t, out.String(), "Data source added successfully!\n")
	assert.Contains(t, out.String(), "Add data source failed: ")
	assert.Contains(t, out.String(), "  relation does not exist\n")

	assert.True(t, c.MarkRead(items[0].ID))
	assert.False(t, c.MarkRead("missing"))
	assert.Equal(t, 1, c.Unread())
	c.MarkAllRead()
	assert.Equal(t, 0, c.Unread())
}

func TestCenter_bounded(t *testing.T) {
	c := NewCenter(nil, nil)
	c.SetLimit(3)
	for i := 0; i < 5; i++ {
		c.Info(fmt.Sprintf("n%d", i), "")
	}
	items := c.List()
	require.Len(t, items, 3)
	assert.Equal(t, "n4", items[0].Title)
	assert.Equal(t, "n2", items[2].Title)

	c.SetLimit(1)
	assert.Len(t, c.List(), 1)
	c.Clear()
	assert.Empty(t, c.List())
}

func TestCenter_errorMessageFallsBackToErr(t *testing.T) {
	c := NewCenter(nil, nil)
	n := c.Error("Reload data source failed", "", fmt.Errorf("connection refused"))
	assert.Equal(t, "connection refused", n.Message)
	assert.Equal(t, "connection refused", n.Detail)

	n = c.Error("No queries found", "", nil)
	assert.Empty(t, n.Message)
	assert.Empty(t, n.Detail)
}
