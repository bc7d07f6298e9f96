package actions

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasura/graphql-engine/console/internal/datasource"
	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/metadata"
	"github.com/hasura/graphql-engine/console/internal/migration"
	"github.com/hasura/graphql-engine/console/internal/notify"
)

const currentMetadata = `{
  "version": 3,
  "sources": [],
  "actions": [
    {
      "name": "login",
      "definition": {"handler": "https://auth.example.com/login", "output_type": "LoginOutput", "arguments": [{"name": "username", "type": "String!"}], "type": "mutation", "kind": "synchronous"},
      "permissions": [{"role": "user", "comment": "users may log in"}]
    },
    {
      "name": "whoami",
      "definition": {"handler": "https://auth.example.com/whoami", "output_type": "LoginOutput", "type": "query"}
    }
  ],
  "custom_types": {
    "objects": [{"name": "LoginOutput", "fields": [{"name": "token", "type": "String!"}, {"name": "user_id", "type": "Int!"}],
      "relationships": [{"name": "user", "type": "object", "remote_table": {"schema": "public", "name": "users"}, "field_mapping": {"user_id": "id"}}]}]
  }
}`

type recordingRunner struct {
	runs []migration.Migration
	msgs []migration.Messages
}

func (r *recordingRunner) Run(_ context.Context, m migration.Migration, msgs migration.Messages, cbs migration.Callbacks) (*migration.Result, error) {
	r.runs = append(r.runs, m)
	r.msgs = append(r.msgs, msgs)
	return &migration.Result{Name: m.Name}, nil
}

type harness struct {
	runner    *recordingRunner
	notifier  *notify.Center
	confirmed []string
	answer    bool
	svc       *Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	md, err := metadata.Parse([]byte(currentMetadata))
	require.NoError(t, err)
	store := metadata.NewStore(metadata.State{Metadata: md})
	h := &harness{runner: &recordingRunner{}, notifier: notify.NewCenter(nil, nil), answer: true}
	confirm := func(msg string) bool {
		h.confirmed = append(h.confirmed, msg)
		return h.answer
	}
	h.svc = New(h.runner, metadata.NewSelectors(store), h.notifier, confirm, nil)
	return h
}

func (h *harness) only(t *testing.T) migration.Migration {
	t.Helper()
	require.Len(t, h.runner.runs, 1)
	return h.runner.runs[0]
}

func stepTypes(m migration.Migration) (up, down []string) {
	for _, s := range m.Up {
		up = append(up, s.Type)
	}
	for _, s := range m.Down {
		down = append(down, s.Type)
	}
	return up, down
}

func marshal(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestService_Create(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Create(context.Background(), Input{
		ActionSDL: `type Mutation { "sign up" signup(email: String!, role: Role): SignupOutput }`,
		TypesSDL:  "enum Role { admin user }\ntype SignupOutput { id: Int! }",
		Handler:   " https://auth.example.com/signup ",
	}, migration.Callbacks{})
	require.NoError(t, err)

	m := h.only(t)
	assert.Equal(t, "create_action_signup", m.Name)
	up, down := stepTypes(m)
	assert.Equal(t, []string{"set_custom_types", "create_action"}, up)
	assert.Equal(t, []string{"drop_action", "set_custom_types"}, down)
	assert.JSONEq(t, `{
		"name": "signup",
		"comment": "sign up",
		"definition": {
			"handler": "https://auth.example.com/signup",
			"output_type": "SignupOutput",
			"arguments": [{"name": "email", "type": "String!"}, {"name": "role", "type": "Role"}],
			"type": "mutation",
			"kind": "synchronous",
			"headers": []
		}
	}`, marshal(t, m.Up[1].Args))
	assert.Contains(t, marshal(t, m.Up[0].Args), "SignupOutput")
	assert.Contains(t, marshal(t, m.Up[0].Args), "LoginOutput")
	assert.NotContains(t, marshal(t, m.Down[1].Args), "SignupOutput")
	assert.Equal(t, "Creating action...", h.runner.msgs[0].Request)
	assert.Empty(t, h.confirmed)
}

func TestService_Create_overlappingTypes(t *testing.T) {
	h := newHarness(t)
	h.answer = false
	_, err := h.svc.Create(context.Background(), Input{
		ActionSDL: `type Mutation { login2(username: String!): LoginOutput }`,
		TypesSDL:  `type LoginOutput { token: String! }`,
		Handler:   "https://auth.example.com/login",
	}, migration.Callbacks{})
	assert.Equal(t, ErrCancelled, err)
	assert.Empty(t, h.runner.runs)
	require.Len(t, h.confirmed, 1)
	assert.Contains(t, h.confirmed[0], "LoginOutput")
	assert.Contains(t, h.confirmed[0], "login, whoami")

	h.answer = true
	_, err = h.svc.Create(context.Background(), Input{
		ActionSDL: `type Mutation { login2(username: String!): LoginOutput }`,
		TypesSDL:  `type LoginOutput { token: String! }`,
		Handler:   "https://auth.example.com/login",
	}, migration.Callbacks{})
	require.NoError(t, err)
	// the redefined type keeps its relationship
	assert.Contains(t, marshal(t, h.only(t).Up[0].Args), `"relationships"`)
}

func TestService_Create_invalid(t *testing.T) {
	tcs := []struct {
		name  string
		in    Input
		title string
	}{
		{"bad action sdl", Input{ActionSDL: "type Mutation {", Handler: "h"}, "Invalid Action Definition"},
		{"bad types sdl", Input{ActionSDL: "type Mutation { a: Int }", TypesSDL: "type {", Handler: "h"}, "Invalid Types Definition"},
		{"missing handler", Input{ActionSDL: "type Mutation { a: Int }"}, "Creating action failed"},
		{"undefined output", Input{ActionSDL: "type Mutation { a: Missing }", Handler: "h"}, "Creating action failed"},
		{"already exists", Input{ActionSDL: "type Mutation { login: LoginOutput }", Handler: "h"}, "Creating action failed"},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.svc.Create(context.Background(), tc.in, migration.Callbacks{})
			require.Error(t, err)
			assert.Equal(t, errors.KindBadInput, errors.GetKind(err))
			assert.Empty(t, h.runner.runs)
			require.NotEmpty(t, h.notifier.List())
			assert.Equal(t, tc.title, h.notifier.List()[0].Title)
		})
	}
}

func TestService_Save(t *testing.T) {
	t.Run("same name updates in place", func(t *testing.T) {
		h := newHarness(t)
		current := *h.svc.selectors.Action("login")
		_, err := h.svc.Save(context.Background(), current, Input{
			ActionSDL: `type Mutation { login(username: String!, password: String!): LoginOutput }`,
			Handler:   "https://auth.example.com/v2/login",
			Kind:      "asynchronous",
		}, migration.Callbacks{})
		require.NoError(t, err)
		m := h.only(t)
		assert.Equal(t, "modify_action_login_to_login", m.Name)
		up, down := stepTypes(m)
		assert.Equal(t, []string{"set_custom_types", "update_action"}, up)
		assert.Equal(t, []string{"set_custom_types", "update_action"}, down)
		assert.Contains(t, marshal(t, m.Up[1].Args), "asynchronous")
		assert.Contains(t, marshal(t, m.Down[1].Args), "https://auth.example.com/login")
		assert.Empty(t, h.confirmed)
	})
	t.Run("rename drops and creates", func(t *testing.T) {
		h := newHarness(t)
		current := *h.svc.selectors.Action("login")
		_, err := h.svc.Save(context.Background(), current, Input{
			ActionSDL: `type Mutation { signin(username: String!): LoginOutput }`,
			Handler:   "https://auth.example.com/login",
		}, migration.Callbacks{})
		require.NoError(t, err)
		require.Len(t, h.confirmed, 1)
		m := h.only(t)
		assert.Equal(t, "modify_action_login_to_signin", m.Name)
		up, down := stepTypes(m)
		assert.Equal(t, []string{"drop_action", "set_custom_types", "create_action"}, up)
		assert.Equal(t, []string{"drop_action", "set_custom_types", "create_action"}, down)
		assert.Contains(t, marshal(t, m.Up[0].Args), `"login"`)
		assert.Contains(t, marshal(t, m.Down[0].Args), `"signin"`)
	})
	t.Run("rename declined", func(t *testing.T) {
		h := newHarness(t)
		h.answer = false
		current := *h.svc.selectors.Action("login")
		_, err := h.svc.Save(context.Background(), current, Input{
			ActionSDL: `type Mutation { signin(username: String!): LoginOutput }`,
			Handler:   "h",
		}, migration.Callbacks{})
		assert.Equal(t, ErrCancelled, err)
		assert.Empty(t, h.runner.runs)
	})
}

func TestService_Delete(t *testing.T) {
	h := newHarness(t)
	current := *h.svc.selectors.Action("whoami")
	_, err := h.svc.Delete(context.Background(), current, migration.Callbacks{})
	require.NoError(t, err)
	m := h.only(t)
	assert.Equal(t, "delete_action_whoami", m.Name)
	up, down := stepTypes(m)
	assert.Equal(t, []string{"drop_action"}, up)
	assert.Equal(t, []string{"create_action"}, down)
	assert.Equal(t, "Action deleted successfully", h.runner.msgs[0].Success)
}

func TestService_AddRelationship(t *testing.T) {
	rel := metadata.TypeRelationship{
		Name:         "sessions",
		Type:         "array",
		RemoteTable:  datasource.QualifiedTable{Schema: "public", Name: "sessions"},
		FieldMapping: map[string]string{"user_id": "user_id"},
	}

	t.Run("new", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.AddRelationship(context.Background(), "LoginOutput", rel, nil, migration.Callbacks{})
		require.NoError(t, err)
		m := h.only(t)
		assert.Equal(t, "save_rel_sessions_on_LoginOutput", m.Name)
		assert.Contains(t, marshal(t, m.Up[0].Args), `"sessions"`)
		assert.Contains(t, marshal(t, m.Up[0].Args), `"user"`)
		assert.NotContains(t, marshal(t, m.Down[0].Args), `"sessions"`)
	})
	t.Run("rename removes the old one", func(t *testing.T) {
		h := newHarness(t)
		existing := h.svc.selectors.CustomTypes()[0].Relationships[0]
		renamed := existing
		renamed.Name = "account"
		_, err := h.svc.AddRelationship(context.Background(), "LoginOutput", renamed, &existing, migration.Callbacks{})
		require.NoError(t, err)
		up := marshal(t, h.only(t).Up[0].Args)
		assert.Contains(t, up, `"account"`)
		assert.NotContains(t, up, `"name":"user"`)
	})
	t.Run("name clashes with a field", func(t *testing.T) {
		h := newHarness(t)
		clash := rel
		clash.Name = "token"
		_, err := h.svc.AddRelationship(context.Background(), "LoginOutput", clash, nil, migration.Callbacks{})
		require.Error(t, err)
		assert.Empty(t, h.runner.runs)
		assert.Equal(t, "Saving relationship failed", h.notifier.List()[0].Title)
	})
}

func TestService_RemoveRelationship(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.RemoveRelationship(context.Background(), "LoginOutput", "user", migration.Callbacks{})
	require.NoError(t, err)
	m := h.only(t)
	assert.Equal(t, "remove_action_rel", m.Name)
	assert.NotContains(t, marshal(t, m.Up[0].Args), `"user"`)
	assert.Contains(t, marshal(t, m.Down[0].Args), `"user"`)
	require.Len(t, h.confirmed, 1)
}

func TestPermissionQueries(t *testing.T) {
	action := metadata.Action{Name: "login", Permissions: []metadata.ActionPermission{{Role: "user", Comment: "c"}, {Role: "admin"}}}
	tcs := []struct {
		name     string
		edit     PermissionEdit
		wantUp   []string
		wantDown []string
		wantErr  bool
	}{
		{"new role", PermissionEdit{Role: "guest"}, []string{"create_action_permission"}, []string{"drop_action_permission"}, false},
		{"rename", PermissionEdit{Role: "user", NewRole: "member"}, []string{"drop_action_permission", "create_action_permission"}, []string{"drop_action_permission", "create_action_permission"}, false},
		{"comment only", PermissionEdit{Role: "user", Comment: "new"}, []string{"drop_action_permission", "create_action_permission"}, []string{"drop_action_permission", "create_action_permission"}, false},
		{"rename onto existing", PermissionEdit{Role: "user", NewRole: "admin"}, nil, nil, true},
		{"empty role", PermissionEdit{}, nil, nil, true},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			up, down, err := PermissionQueries(action, tc.edit)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			upTypes, downTypes := stepTypes(migration.Migration{Up: up, Down: down})
			assert.Equal(t, tc.wantUp, upTypes)
			assert.Equal(t, tc.wantDown, downTypes)
		})
	}
}

func TestService_Permissions(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.SavePermission(context.Background(), "login", PermissionEdit{Role: "guest"}, migration.Callbacks{})
	require.NoError(t, err)
	assert.Equal(t, "save_action_perm", h.runner.runs[0].Name)

	_, err = h.svc.SavePermission(context.Background(), "nope", PermissionEdit{Role: "guest"}, migration.Callbacks{})
	require.Error(t, err)

	_, err = h.svc.RemovePermission(context.Background(), "login", "user", migration.Callbacks{})
	require.NoError(t, err)
	m := h.runner.runs[1]
	assert.Equal(t, "removing_action_perm", m.Name)
	assert.JSONEq(t, `{"action":"login","role":"user","comment":"users may log in"}`, marshal(t, m.Down[0].Args))
}
