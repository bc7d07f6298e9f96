package healthz

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasura/graphql-engine/console/internal/errors"
)

func TestClient_Check(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    *Status
		errKind errors.Kind
	}{
		{"ok", http.StatusOK, "OK", &Status{Healthy: true, Message: "OK"}, 0},
		{"inconsistent metadata", http.StatusOK, "WARN: inconsistent objects in schema\n", &Status{Healthy: true, Message: "WARN: inconsistent objects in schema"}, 0},
		{"down", http.StatusInternalServerError, "ERROR", &Status{Message: "ERROR"}, 0},
		{"not the engine", http.StatusNotFound, "404 page not found", nil, errors.KindHasuraAPI},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var path string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				path = r.URL.Path
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			got, err := New(server.URL+"/hasura/", nil).Check()
			assert.Equal(t, "/hasura/healthz", path)
			if tc.errKind != 0 {
				require.Error(t, err)
				assert.True(t, errors.IsKind(tc.errKind, err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClient_Check_unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL + "/"
	server.Close()

	_, err := New(url, nil).WithTimeout(time.Second).Check()
	require.Error(t, err)
	assert.True(t, errors.IsKind(errors.KindNetwork, err))
}
