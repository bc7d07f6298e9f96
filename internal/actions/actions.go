// Package actions creates and modifies actions, their custom types,
// relationships and permissions through the migration pipeline.
package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura"
	"github.com/hasura/graphql-engine/console/internal/metadata"
	"github.com/hasura/graphql-engine/console/internal/metadataquery"
	"github.com/hasura/graphql-engine/console/internal/migration"
)

const DefaultKind = "synchronous"

// Confirm asks the user to go ahead with a destructive change.
type Confirm func(message string) bool

// ErrCancelled is returned when a confirmation is declined.
var ErrCancelled = errors.E("actions", errors.KindCancelled, "cancelled by user")

// Runner applies a migration, *migration.Pipeline is the usual one.
type Runner interface {
	Run(ctx context.Context, m migration.Migration, msgs migration.Messages, cbs migration.Callbacks) (*migration.Result, error)
}

// Input is an action as edited by the user.
type Input struct {
	ActionSDL            string
	TypesSDL             string
	Handler              string
	Kind                 string
	Headers              []metadata.Header
	ForwardClientHeaders bool
	Timeout              int
}

type Service struct {
	runner    Runner
	selectors *metadata.Selectors
	notifier  migration.Notifier
	confirm   Confirm
	logger    *logrus.Logger
}

func New(runner Runner, selectors *metadata.Selectors, notifier migration.Notifier, confirm Confirm, logger *logrus.Logger) *Service {
	if confirm == nil {
		confirm = func(string) bool { return true }
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{runner: runner, selectors: selectors, notifier: notifier, confirm: confirm, logger: logger}
}

type parsed struct {
	def        *Definition
	types      []metadata.CustomType
	definition metadata.ActionDefinition
}

func (s *Service) parse(in Input, errTitle string, existing []metadata.CustomType) (*parsed, error) {
	var op errors.Op = "actions.Service.parse"
	def, err := ParseActionDefinition(in.ActionSDL)
	if err != nil {
		s.notifier.Error("Invalid Action Definition", "", err)
		return nil, errors.E(op, err)
	}
	types, err := ParseTypes(in.TypesSDL)
	if err != nil {
		s.notifier.Error("Invalid Types Definition", "", err)
		return nil, errors.E(op, err)
	}
	handler := strings.TrimSpace(in.Handler)
	merged, _ := MergeTypes(types, existing)
	if err := Validate(def, handler, merged); err != nil {
		s.notifier.Error(errTitle, "", err)
		return nil, errors.E(op, err)
	}
	return &parsed{def: def, types: types, definition: actionDefinition(def, in, handler)}, nil
}

func actionDefinition(def *Definition, in Input, handler string) metadata.ActionDefinition {
	headers := in.Headers
	if headers == nil {
		headers = []metadata.Header{}
	}
	d := metadata.ActionDefinition{
		Handler:              handler,
		OutputType:           def.OutputType,
		Arguments:            def.Arguments,
		Type:                 def.Type,
		Headers:              headers,
		ForwardClientHeaders: in.ForwardClientHeaders,
		Timeout:              in.Timeout,
	}
	// query actions are always synchronous and take no kind
	if def.Type == TypeMutation {
		d.Kind = in.Kind
		if d.Kind == "" {
			d.Kind = DefaultKind
		}
	}
	return d
}

func (s *Service) Create(ctx context.Context, in Input, cbs migration.Callbacks) (*migration.Result, error) {
	var op errors.Op = "actions.Service.Create"
	existing := s.selectors.CustomTypes()
	p, err := s.parse(in, "Creating action failed", existing)
	if err != nil {
		return nil, errors.E(op, err)
	}
	if s.selectors.Action(p.def.Name) != nil {
		err := errors.E(op, errors.KindBadInput, fmt.Sprintf("action %q already exists", p.def.Name))
		s.notifier.Error("Creating action failed", "", err)
		return nil, err
	}

	merged, overlapping := MergeTypes(HydrateRelationships(p.types, existing), existing)
	if len(overlapping) > 0 && !s.confirm(s.overlapMessage(p.def.Name, overlapping)) {
		return nil, ErrCancelled
	}

	m := migration.Migration{
		Name: "create_action_" + p.def.Name,
		Up: []hasura.RequestBody{
			metadataquery.SetCustomTypes(metadata.ReformCustomTypes(merged)),
			metadataquery.CreateAction(p.def.Name, p.definition, p.def.Comment),
		},
		Down: []hasura.RequestBody{
			metadataquery.DropAction(p.def.Name),
			metadataquery.SetCustomTypes(metadata.ReformCustomTypes(existing)),
		},
	}
	return s.runner.Run(ctx, m, migration.Messages{
		Request: "Creating action...",
		Success: "Created action successfully",
		Error:   "Creating action failed",
	}, cbs)
}

// overlapMessage names the actions whose types get redefined.
func (s *Service) overlapMessage(name string, overlapping []string) string {
	all := s.selectors.CustomTypes()
	affected := []string{}
	for _, a := range s.selectors.Actions() {
		if a.Name == name {
			continue
		}
		for _, t := range UsedTypes(a.Definition, all) {
			if contains(overlapping, t.Name) {
				affected = append(affected, a.Name)
				break
			}
		}
	}
	msg := fmt.Sprintf("The following types already exist and will be overwritten: %s.", strings.Join(overlapping, ", "))
	if len(affected) > 0 {
		msg += fmt.Sprintf(" This also affects the actions %s.", strings.Join(affected, ", "))
	}
	return msg + " Continue?"
}

// Save updates current to in. A renamed action is dropped and created
// again, which loses its permissions.
func (s *Service) Save(ctx context.Context, current metadata.Action, in Input, cbs migration.Callbacks) (*migration.Result, error) {
	var op errors.Op = "actions.Service.Save"
	existing := s.selectors.CustomTypes()
	p, err := s.parse(in, "Saving action failed", existing)
	if err != nil {
		return nil, errors.E(op, err)
	}
	merged, _ := MergeTypes(HydrateRelationships(p.types, existing), existing)
	typesUp := metadataquery.SetCustomTypes(metadata.ReformCustomTypes(merged))
	typesDown := metadataquery.SetCustomTypes(metadata.ReformCustomTypes(existing))

	var up, down []hasura.RequestBody
	if current.Name == p.def.Name {
		up = []hasura.RequestBody{typesUp, metadataquery.UpdateAction(current.Name, p.definition, p.def.Comment)}
		down = []hasura.RequestBody{typesDown, metadataquery.UpdateAction(current.Name, current.Definition, current.Comment)}
	} else {
		if !s.confirm("You seem to have changed the action name. This will cause the permissions to be dropped.") {
			return nil, ErrCancelled
		}
		up = []hasura.RequestBody{
			metadataquery.DropAction(current.Name),
			typesUp,
			metadataquery.CreateAction(p.def.Name, p.definition, p.def.Comment),
		}
		down = []hasura.RequestBody{
			metadataquery.DropAction(p.def.Name),
			typesDown,
			metadataquery.CreateAction(current.Name, current.Definition, current.Comment),
		}
	}
	return s.runner.Run(ctx, migration.Migration{
		Name: fmt.Sprintf("modify_action_%s_to_%s", current.Name, p.def.Name),
		Up:   up,
		Down: down,
	}, migration.Messages{
		Request: "Saving action...",
		Success: "Action saved successfully",
		Error:   "Saving action failed",
	}, cbs)
}

func (s *Service) Delete(ctx context.Context, current metadata.Action, cbs migration.Callbacks) (*migration.Result, error) {
	if !s.confirm(fmt.Sprintf("This will permanently delete the action %q", current.Name)) {
		return nil, ErrCancelled
	}
	return s.runner.Run(ctx, migration.Migration{
		Name: "delete_action_" + current.Name,
		Up:   []hasura.RequestBody{metadataquery.DropAction(current.Name)},
		Down: []hasura.RequestBody{metadataquery.CreateAction(current.Name, current.Definition, current.Comment)},
	}, migration.Messages{
		Request: "Deleting action...",
		Success: "Action deleted successfully",
		Error:   "Deleting action failed",
	}, cbs)
}

// AddRelationship saves rel on the object type typename. existing is the
// relationship being edited, nil for a new one.
func (s *Service) AddRelationship(ctx context.Context, typename string, rel metadata.TypeRelationship, existing *metadata.TypeRelationship, cbs migration.Callbacks) (*migration.Result, error) {
	var op errors.Op = "actions.Service.AddRelationship"
	const errTitle = "Saving relationship failed"
	types := s.selectors.CustomTypes()
	withRels := types

	var err error
	switch {
	case existing == nil:
		err = ValidateRelationshipName(types, typename, rel.Name)
	case existing.Name != rel.Name:
		err = ValidateRelationshipName(types, typename, rel.Name)
		withRels = RemoveRelationship(types, typename, existing.Name)
	}
	if err != nil {
		s.notifier.Error(errTitle, "", err)
		return nil, errors.E(op, err)
	}
	withRels = InjectRelationship(withRels, typename, rel)

	return s.runner.Run(ctx, migration.Migration{
		Name: fmt.Sprintf("save_rel_%s_on_%s", rel.Name, typename),
		Up:   []hasura.RequestBody{metadataquery.SetCustomTypes(metadata.ReformCustomTypes(withRels))},
		Down: []hasura.RequestBody{metadataquery.SetCustomTypes(metadata.ReformCustomTypes(types))},
	}, migration.Messages{
		Request: "Saving relationship...",
		Success: "Relationship saved successfully",
		Error:   errTitle,
	}, cbs)
}

func (s *Service) RemoveRelationship(ctx context.Context, typename, relName string, cbs migration.Callbacks) (*migration.Result, error) {
	msg := fmt.Sprintf("This will remove the relationship %q from type %q. This will affect all the actions that use the type %q", relName, typename, typename)
	if !s.confirm(msg) {
		return nil, ErrCancelled
	}
	types := s.selectors.CustomTypes()
	return s.runner.Run(ctx, migration.Migration{
		Name: "remove_action_rel",
		Up:   []hasura.RequestBody{metadataquery.SetCustomTypes(metadata.ReformCustomTypes(RemoveRelationship(types, typename, relName)))},
		Down: []hasura.RequestBody{metadataquery.SetCustomTypes(metadata.ReformCustomTypes(types))},
	}, migration.Messages{
		Request: "Removing relationship...",
		Success: "Relationship removed successfully",
		Error:   "Removing relationship failed",
	}, cbs)
}

// PermissionEdit is a permission being saved. Role is the role it is
// currently stored under, NewRole renames it when set.
type PermissionEdit struct {
	Role    string
	NewRole string
	Comment string
}

// PermissionQueries builds the up and down steps that turn the permissions
// of action into the edited one.
func PermissionQueries(action metadata.Action, edit PermissionEdit) (up, down []hasura.RequestBody, err error) {
	var op errors.Op = "actions.PermissionQueries"
	role := edit.Role
	newRole := edit.NewRole
	if newRole == "" {
		newRole = role
	}
	if newRole == "" {
		return nil, nil, errors.E(op, errors.KindBadInput, "role cannot be empty")
	}
	var current *metadata.ActionPermission
	for i := range action.Permissions {
		if action.Permissions[i].Role == role {
			current = &action.Permissions[i]
		}
		if newRole != role && action.Permissions[i].Role == newRole {
			return nil, nil, errors.E(op, errors.KindBadInput, fmt.Sprintf("permission for role %q already exists", newRole))
		}
	}
	if current == nil {
		up = []hasura.RequestBody{metadataquery.CreateActionPermission(action.Name, newRole, edit.Comment)}
		down = []hasura.RequestBody{metadataquery.DropActionPermission(action.Name, newRole)}
		return up, down, nil
	}
	up = []hasura.RequestBody{
		metadataquery.DropActionPermission(action.Name, role),
		metadataquery.CreateActionPermission(action.Name, newRole, edit.Comment),
	}
	down = []hasura.RequestBody{
		metadataquery.DropActionPermission(action.Name, newRole),
		metadataquery.CreateActionPermission(action.Name, role, current.Comment),
	}
	return up, down, nil
}

func (s *Service) SavePermission(ctx context.Context, actionName string, edit PermissionEdit, cbs migration.Callbacks) (*migration.Result, error) {
	var op errors.Op = "actions.Service.SavePermission"
	const errTitle = "Saving permission failed"
	action := s.selectors.Action(actionName)
	if action == nil {
		err := errors.E(op, errors.KindBadInput, fmt.Sprintf("action %q not found", actionName))
		s.notifier.Error(errTitle, "", err)
		return nil, err
	}
	up, down, err := PermissionQueries(*action, edit)
	if err != nil {
		s.notifier.Error(errTitle, "", err)
		return nil, errors.E(op, err)
	}
	return s.runner.Run(ctx, migration.Migration{Name: "save_action_perm", Up: up, Down: down}, migration.Messages{
		Request: "Saving permission...",
		Success: "Permission saved successfully",
		Error:   errTitle,
	}, cbs)
}

func (s *Service) RemovePermission(ctx context.Context, actionName, role string, cbs migration.Callbacks) (*migration.Result, error) {
	var op errors.Op = "actions.Service.RemovePermission"
	if role == "" {
		err := errors.E(op, errors.KindBadInput, "role cannot be empty")
		s.notifier.Error("Removing permission failed", "", err)
		return nil, err
	}
	if !s.confirm("This will remove the permission for this role") {
		return nil, ErrCancelled
	}
	var comment string
	if action := s.selectors.Action(actionName); action != nil {
		for _, p := range action.Permissions {
			if p.Role == role {
				comment = p.Comment
			}
		}
	}
	return s.runner.Run(ctx, migration.Migration{
		Name: "removing_action_perm",
		Up:   []hasura.RequestBody{metadataquery.DropActionPermission(actionName, role)},
		Down: []hasura.RequestBody{metadataquery.CreateActionPermission(actionName, role, comment)},
	}, migration.Messages{
		Request: "Removing permission...",
		Success: "Permission removed successfully",
		Error:   "Removing permission failed",
	}, cbs)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
