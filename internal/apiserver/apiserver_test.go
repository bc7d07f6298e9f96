package apiserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasura/graphql-engine/console/internal/hasura/v1metadata"
	"github.com/hasura/graphql-engine/console/internal/metadata"
	"github.com/hasura/graphql-engine/console/internal/metadataops"
	"github.com/hasura/graphql-engine/console/internal/migration"
	"github.com/hasura/graphql-engine/console/internal/notify"
	"github.com/hasura/graphql-engine/console/internal/sources"
	"github.com/hasura/graphql-engine/console/internal/testutil"
)

var exported = map[string]interface{}{
	"version": 3,
	"sources": []interface{}{
		map[string]interface{}{
			"name":   "default",
			"kind":   "postgres",
			"tables": []interface{}{},
			"configuration": map[string]interface{}{
				"connection_info": map[string]interface{}{"database_url": map[string]interface{}{"from_env": "PG_DATABASE_URL"}},
			},
		},
	},
}

type harness struct {
	engine   *testutil.FakeEngine
	fs       afero.Fs
	notifier *notify.Center
	server   *APIServer
}

func newHarness(t *testing.T, fs afero.Fs) *harness {
	t.Helper()
	engine := testutil.NewFakeEngine(t)
	engine.On("export_metadata", testutil.Reply(http.StatusOK, exported))
	engine.On("get_catalog_state", testutil.Reply(http.StatusOK, map[string]interface{}{"console_state": map[string]interface{}{}}))
	logger, _ := test.NewNullLogger()
	client := v1metadata.New(engine.NewHttpcClient(t, nil), "v1/metadata")
	store := metadata.NewStore(metadata.State{})
	notifier := notify.NewCenter(nil, nil)
	pipeline := migration.NewPipeline(client, store, notifier, logger, migration.Config{Mode: migration.ModeMigrations, Dir: "migrations", Fs: fs})
	server := New(Options{
		Runner:   pipeline,
		Exporter: metadataops.New(client, store, pipeline, notifier, logger),
		Sources:  sources.New(client, store, metadata.NewSelectors(store), notifier, logger),
		Notifier: notifier,
		Logger:   logger,
	})
	return &harness{engine: engine, fs: fs, notifier: notifier, server: server}
}

func (h *harness) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.server.Router.ServeHTTP(w, req)
	var resp Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

var createLogin = map[string]interface{}{
	"name": "create_action_login",
	"up":   []interface{}{map[string]interface{}{"type": "create_action", "args": map[string]interface{}{"name": "login"}}},
	"down": []interface{}{map[string]interface{}{"type": "drop_action", "args": map[string]interface{}{"name": "login"}}},
}

func TestAPIServer_migrate(t *testing.T) {
	h := newHarness(t, afero.NewMemMapFs())
	w, resp := h.do(t, http.MethodPost, "/apis/migrate", createLogin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Regexp(t, regexp.MustCompile(`^\d+_create_action_login$`), resp.Name)

	up, err := afero.ReadFile(h.fs, filepath.Join("migrations", resp.Name, "up.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(up), "type: create_action")
	assert.Len(t, h.engine.RequestsOfType("bulk"), 1)
	assert.Len(t, h.engine.RequestsOfType("set_catalog_state"), 1)
}

func TestAPIServer_migrate_skipExecution(t *testing.T) {
	h := newHarness(t, afero.NewMemMapFs())
	body := map[string]interface{}{"skip_execution": true}
	for k, v := range createLogin {
		body[k] = v
	}
	w, resp := h.do(t, http.MethodPost, "/apis/migrate", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	ok, err := afero.Exists(h.fs, filepath.Join("migrations", resp.Name, "down.yaml"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, h.engine.RequestsOfType("bulk"))
	assert.Len(t, h.engine.RequestsOfType("set_catalog_state"), 1)
}

func TestAPIServer_migrate_errors(t *testing.T) {
	tests := []struct {
		name       string
		fs         afero.Fs
		setup      func(h *harness)
		body       interface{}
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name: "engine rejects the migration",
			fs:   afero.NewMemMapFs(),
			setup: func(h *harness) {
				h.engine.On("bulk", testutil.Reply(http.StatusBadRequest, testutil.APIError("already-exists", "action already exists")))
			},
			body:       createLogin,
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeDataAPIError,
			wantMsg:    "action already exists",
		},
		{
			name:       "files cannot be written",
			fs:         afero.NewReadOnlyFs(afero.NewMemMapFs()),
			body:       createLogin,
			wantStatus: http.StatusInternalServerError,
			wantCode:   CodeCreateFileError,
		},
		{
			name:       "invalid name",
			fs:         afero.NewMemMapFs(),
			body:       map[string]interface{}{"name": "a/b", "up": createLogin["up"]},
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeBadRequest,
			wantMsg:    "may only contain",
		},
		{
			name: "version cannot be recorded",
			fs:   afero.NewMemMapFs(),
			setup: func(h *harness) {
				h.engine.On("set_catalog_state", testutil.Reply(http.StatusInternalServerError, testutil.APIError("unexpected", "database is read only")))
			},
			body:       createLogin,
			wantStatus: http.StatusInternalServerError,
			wantCode:   CodeVersionError,
			wantMsg:    "database is read only",
		},
		{
			name:       "malformed body",
			fs:         afero.NewMemMapFs(),
			body:       `{"name": `,
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeBadRequest,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, tc.fs)
			if tc.setup != nil {
				tc.setup(h)
			}
			w, resp := h.do(t, http.MethodPost, "/apis/migrate", tc.body)
			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Equal(t, tc.wantCode, resp.Code)
			assert.Contains(t, resp.Message, tc.wantMsg)
			assert.Empty(t, resp.Name)
		})
	}
}

func TestAPIServer_metadataAndSources(t *testing.T) {
	h := newHarness(t, afero.NewMemMapFs())

	w, _ := h.do(t, http.MethodGet, "/apis/metadata", nil)
	require.Equal(t, http.StatusOK, w.Code)
	md, err := metadata.Parse(w.Body.Bytes())
	require.NoError(t, err)
	assert.True(t, md.IsV3())

	w, _ = h.do(t, http.MethodGet, "/apis/sources", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Sources []metadata.DataSource `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Sources, 1)
	assert.Equal(t, "default", got.Sources[0].Name)
	assert.True(t, got.Sources[0].FromEnv)
}

func TestAPIServer_metadata_engineDown(t *testing.T) {
	h := newHarness(t, afero.NewMemMapFs())
	h.engine.On("export_metadata", testutil.Reply(http.StatusInternalServerError, testutil.APIError("unexpected", "boom")))
	w, resp := h.do(t, http.MethodGet, "/apis/metadata", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeDataAPIError, resp.Code)
}

func TestAPIServer_notifications(t *testing.T) {
	h := newHarness(t, afero.NewMemMapFs())
	h.notifier.Success("Saved!", "")
	n := h.notifier.Error("Saving failed", "", nil)

	w, _ := h.do(t, http.MethodGet, "/apis/notifications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Notifications []notify.Notification `json:"notifications"`
		Unread        int                   `json:"unread"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got.Notifications, 2)
	assert.Equal(t, 2, got.Unread)

	w, _ = h.do(t, http.MethodPost, "/apis/notifications/read", map[string]string{"id": n.ID})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, h.notifier.Unread())

	w, _ = h.do(t, http.MethodPost, "/apis/notifications/read", map[string]string{"id": "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = h.do(t, http.MethodPost, "/apis/notifications/read", map[string]string{})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, h.notifier.Unread())
}

func TestAPIServer_cors(t *testing.T) {
	h := newHarness(t, afero.NewMemMapFs())
	req := httptest.NewRequest(http.MethodOptions, "/apis/migrate", nil)
	req.Header.Set("Origin", "http://localhost:9695")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", XHasuraAdminSecret)
	w := httptest.NewRecorder()
	h.server.Router.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), XHasuraAdminSecret)
}

func TestAPIServer_Serve(t *testing.T) {
	h := newHarness(t, afero.NewMemMapFs())
	h.server.address, h.server.port = "127.0.0.1", "0"
	opened := make(chan [2]string, 1)
	saved := opener
	t.Cleanup(func() { opener = saved })
	opener.runWith = func(input, app string) error {
		opened <- [2]string{input, app}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- h.server.Serve(ctx, ServeOpts{Browser: "firefox", ConsoleURL: "http://localhost:9695/"})
	}()

	select {
	case got := <-opened:
		assert.Equal(t, [2]string{"http://localhost:9695/", "firefox"}, got)
	case <-time.After(5 * time.Second):
		t.Fatal("browser was not opened")
	}
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestAPIServer_console(t *testing.T) {
	h := newHarness(t, afero.NewMemMapFs())
	require.NoError(t, h.server.setConsole(&ConsolePage{
		APIHost:       "http://localhost",
		APIPort:       "9693",
		DataAPIURL:    "http://engine:8080",
		AdminSecret:   "s3cret",
		AssetsVersion: "channel/stable/v2.1",
	}))

	for _, path := range []string{"/", "/console/data/default/schema/public"} {
		w, _ := h.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
		body := w.Body.String()
		assert.Regexp(t, `dataApiUrl: "http:(\\/|/){2}engine:8080"`, body)
		assert.Contains(t, body, `adminSecret: "s3cret"`)
		assert.Contains(t, body, DefaultCDNAssets+"/channel/stable/v2.1/main.js")
	}

	w, resp := h.do(t, http.MethodPost, "/", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", resp.Code)

	w, resp = h.do(t, http.MethodGet, "/apis/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", resp.Code)
}
