package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hasura/graphql-engine/console"
	"github.com/hasura/graphql-engine/console/internal/actions"
	"github.com/hasura/graphql-engine/console/internal/datasource"
	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/metadata"
	"github.com/hasura/graphql-engine/console/internal/migration"
)

func NewActionsCmd(ec *console.ExecutionContext) *cobra.Command {
	actionsCmd := &cobra.Command{
		Use:          "actions",
		Aliases:      []string{"action"},
		Short:        "Manage actions, their custom types, permissions and relationships",
		SilenceUsage: true,
	}
	actionsCmd.AddCommand(
		newActionsCreateCmd(ec),
		newActionsUpdateCmd(ec),
		newActionsDeleteCmd(ec),
		newActionsPermissionCmd(ec),
		newActionsRelationshipCmd(ec),
	)
	return actionsCmd
}

// actionFlags are the flags describing an action definition.
type actionFlags struct {
	actionSDLFile        string
	typesSDLFile         string
	handler              string
	kind                 string
	timeout              int
	headers              []string
	envHeaders           []string
	forwardClientHeaders bool
}

func (a *actionFlags) register(f *pflag.FlagSet) {
	f.StringVar(&a.actionSDLFile, "action-sdl", "", "file with the action definition, e.g. type Mutation { login(username: String!): LoginResponse }")
	f.StringVar(&a.typesSDLFile, "types-sdl", "", "file with the custom types the action uses")
	f.StringVar(&a.handler, "handler", "", "webhook handler of the action")
	f.StringVar(&a.kind, "kind", actions.DefaultKind, "kind of a mutation action (synchronous, asynchronous)")
	f.IntVar(&a.timeout, "timeout", 0, "seconds to wait for the handler, 0 uses the engine default")
	f.StringArrayVar(&a.headers, "header", nil, "header sent to the handler as name:value (repeatable)")
	f.StringArrayVar(&a.envHeaders, "header-from-env", nil, "header sent to the handler as name:ENV_VAR (repeatable)")
	f.BoolVar(&a.forwardClientHeaders, "forward-client-headers", false, "forward the client headers to the handler")
}

func (a *actionFlags) parseHeaders() ([]metadata.Header, error) {
	var op errors.Op = "commands.actionFlags.parseHeaders"
	headers := []metadata.Header{}
	for _, list := range []struct {
		values  []string
		fromEnv bool
	}{{a.headers, false}, {a.envHeaders, true}} {
		for _, h := range list.values {
			name, value, err := splitHeader(h)
			if err != nil {
				return nil, errors.E(op, err)
			}
			if list.fromEnv {
				headers = append(headers, metadata.Header{Name: name, ValueFromEnv: value})
				continue
			}
			headers = append(headers, metadata.Header{Name: name, Value: value})
		}
	}
	return headers, nil
}

// input builds the action input, flags left unset keep the values of base.
func (a *actionFlags) input(ec *console.ExecutionContext, flags *pflag.FlagSet, base actions.Input) (actions.Input, error) {
	var op errors.Op = "commands.actionFlags.input"
	in := base
	if a.actionSDLFile != "" {
		b, err := readInput(ec, a.actionSDLFile, nil)
		if err != nil {
			return in, errors.E(op, errors.KindBadInput, err)
		}
		in.ActionSDL = string(b)
	}
	if a.typesSDLFile != "" {
		b, err := readInput(ec, a.typesSDLFile, nil)
		if err != nil {
			return in, errors.E(op, errors.KindBadInput, err)
		}
		in.TypesSDL = string(b)
	}
	if flags.Changed("handler") {
		in.Handler = a.handler
	}
	if flags.Changed("kind") || in.Kind == "" {
		in.Kind = a.kind
	}
	if flags.Changed("timeout") {
		in.Timeout = a.timeout
	}
	if flags.Changed("header") || flags.Changed("header-from-env") {
		headers, err := a.parseHeaders()
		if err != nil {
			return in, errors.E(op, err)
		}
		in.Headers = headers
	}
	if flags.Changed("forward-client-headers") {
		in.ForwardClientHeaders = a.forwardClientHeaders
	}
	return in, nil
}

// reportMigration tells where a change went.
func reportMigration(ec *console.ExecutionContext, res *migration.Result) {
	if res == nil {
		return
	}
	if ec.Config.MigrationMode == migration.ModeMigrations {
		ec.Logger.WithField("version", res.Version).Infof("migration %s created", res.Name)
		return
	}
	ec.Logger.Debugf("applied %s", res.Name)
}

func newActionsCreateCmd(ec *console.ExecutionContext) *cobra.Command {
	flags := &actionFlags{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an action from its SDL",
		Example: `  # Create a login action:
  hge-console actions create --action-sdl login.graphql --types-sdl login_types.graphql \
    --handler https://auth.example.com/login --header "X-Client:console"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var op errors.Op = "commands.actionsCreate"
			in, err := flags.input(ec, cmd.Flags(), actions.Input{})
			if err != nil {
				return errors.E(op, err)
			}
			if _, err := loadMetadata(cmd.Context(), ec); err != nil {
				return errors.E(op, err)
			}
			ec.Spin("Creating action...")
			res, err := ec.Services.Actions.Create(cmd.Context(), in, noCallbacks)
			ec.Spinner.Stop()
			if err != nil {
				return cancelled(ec, errors.E(op, err))
			}
			reportMigration(ec, res)
			ec.Logger.Info("action created")
			return nil
		},
	}
	flags.register(cmd.Flags())
	_ = cmd.MarkFlagRequired("action-sdl")
	return cmd
}

// currentAction loads metadata and finds the action called name.
func currentAction(ec *console.ExecutionContext, cmd *cobra.Command, name string) (*metadata.Action, error) {
	var op errors.Op = "commands.currentAction"
	if _, err := loadMetadata(cmd.Context(), ec); err != nil {
		return nil, errors.E(op, err)
	}
	action := ec.Services.Selectors.Action(name)
	if action == nil {
		return nil, errors.E(op, errors.KindBadInput, fmt.Sprintf("action %q not found", name))
	}
	return action, nil
}

func newActionsUpdateCmd(ec *console.ExecutionContext) *cobra.Command {
	flags := &actionFlags{}
	cmd := &cobra.Command{
		Use:   "update <name>",
		Short: "Update an action, flags not given keep their current values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var op errors.Op = "commands.actionsUpdate"
			current, err := currentAction(ec, cmd, args[0])
			if err != nil {
				return errors.E(op, err)
			}
			base := actions.Input{
				ActionSDL:            actions.PrintActionDefinition(*current),
				TypesSDL:             actions.PrintTypes(actions.UsedTypes(current.Definition, ec.Services.Selectors.CustomTypes())),
				Handler:              current.Definition.Handler,
				Kind:                 current.Definition.Kind,
				Headers:              current.Definition.Headers,
				ForwardClientHeaders: current.Definition.ForwardClientHeaders,
				Timeout:              current.Definition.Timeout,
			}
			in, err := flags.input(ec, cmd.Flags(), base)
			if err != nil {
				return errors.E(op, err)
			}
			ec.Spin("Saving action...")
			res, err := ec.Services.Actions.Save(cmd.Context(), *current, in, noCallbacks)
			ec.Spinner.Stop()
			if err != nil {
				return cancelled(ec, errors.E(op, err))
			}
			reportMigration(ec, res)
			ec.Logger.Info("action saved")
			return nil
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func newActionsDeleteCmd(ec *console.ExecutionContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Delete an action",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var op errors.Op = "commands.actionsDelete"
			current, err := currentAction(ec, cmd, args[0])
			if err != nil {
				return errors.E(op, err)
			}
			res, err := ec.Services.Actions.Delete(cmd.Context(), *current, noCallbacks)
			if err != nil {
				return cancelled(ec, errors.E(op, err))
			}
			reportMigration(ec, res)
			ec.Logger.Info("action deleted")
			return nil
		},
	}
}

func newActionsPermissionCmd(ec *console.ExecutionContext) *cobra.Command {
	permissionCmd := &cobra.Command{
		Use:          "permission",
		Aliases:      []string{"permissions"},
		Short:        "Manage the roles allowed to run an action",
		SilenceUsage: true,
	}

	var edit actions.PermissionEdit
	setCmd := &cobra.Command{
		Use:   "set <action>",
		Short: "Allow a role to run an action, or rename the role of an existing permission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var op errors.Op = "commands.actionsPermissionSet"
			if _, err := currentAction(ec, cmd, args[0]); err != nil {
				return errors.E(op, err)
			}
			res, err := ec.Services.Actions.SavePermission(cmd.Context(), args[0], edit, noCallbacks)
			if err != nil {
				return errors.E(op, err)
			}
			reportMigration(ec, res)
			ec.Logger.Info("permission saved")
			return nil
		},
	}
	f := setCmd.Flags()
	f.StringVar(&edit.Role, "role", "", "role the permission is stored under, the new role for a new permission")
	f.StringVar(&edit.NewRole, "new-role", "", "rename the permission to this role")
	f.StringVar(&edit.Comment, "comment", "", "comment on the permission")
	_ = setCmd.MarkFlagRequired("role")

	var dropRole string
	dropCmd := &cobra.Command{
		Use:   "drop <action>",
		Short: "Stop a role from running an action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var op errors.Op = "commands.actionsPermissionDrop"
			if _, err := currentAction(ec, cmd, args[0]); err != nil {
				return errors.E(op, err)
			}
			res, err := ec.Services.Actions.RemovePermission(cmd.Context(), args[0], dropRole, noCallbacks)
			if err != nil {
				return cancelled(ec, errors.E(op, err))
			}
			reportMigration(ec, res)
			ec.Logger.Info("permission removed")
			return nil
		},
	}
	dropCmd.Flags().StringVar(&dropRole, "role", "", "role to remove")
	_ = dropCmd.MarkFlagRequired("role")

	permissionCmd.AddCommand(setCmd, dropCmd)
	return permissionCmd
}

// relationshipFlags describe a relationship from an action output type to
// a table.
type relationshipFlags struct {
	name        string
	relType     string
	source      string
	remoteTable string
	mapping     map[string]string
	replace     bool
}

func (r *relationshipFlags) relationship() (metadata.TypeRelationship, error) {
	var op errors.Op = "commands.relationshipFlags.relationship"
	rel := metadata.TypeRelationship{Name: strings.TrimSpace(r.name), Type: r.relType, Source: r.source, FieldMapping: r.mapping}
	if rel.Type != "object" && rel.Type != "array" {
		return rel, errors.E(op, errors.KindBadInput, fmt.Sprintf("relationship type must be object or array, got %q", rel.Type))
	}
	table, err := parseQualifiedTable(r.remoteTable)
	if err != nil {
		return rel, errors.E(op, err)
	}
	rel.RemoteTable = table
	if len(rel.FieldMapping) == 0 {
		return rel, errors.E(op, errors.KindBadInput, "at least one field mapping is required")
	}
	return rel, nil
}

// parseQualifiedTable reads schema.table, a bare name is in public.
func parseQualifiedTable(s string) (datasource.QualifiedTable, error) {
	schema, name, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok {
		schema, name = "public", schema
	}
	if schema == "" || name == "" {
		return datasource.QualifiedTable{}, errors.E(errors.Op("commands.parseQualifiedTable"), errors.KindBadInput, fmt.Sprintf("invalid table %q, expected schema.table", s))
	}
	return datasource.QualifiedTable{Schema: schema, Name: name}, nil
}

func findRelationship(types []metadata.CustomType, typename, relName string) *metadata.TypeRelationship {
	for _, t := range types {
		if t.Name != typename {
			continue
		}
		for _, rel := range t.Relationships {
			if rel.Name == relName {
				rel := rel
				return &rel
			}
		}
	}
	return nil
}

func newActionsRelationshipCmd(ec *console.ExecutionContext) *cobra.Command {
	relationshipCmd := &cobra.Command{
		Use:          "relationship",
		Aliases:      []string{"relationships", "rel"},
		Short:        "Manage relationships from action output types to tables",
		SilenceUsage: true,
	}

	flags := &relationshipFlags{}
	addCmd := &cobra.Command{
		Use:   "add <type>",
		Short: "Add a relationship to an action output type",
		Example: `  # Join LoginResponse.user_id to public.users.id:
  hge-console actions relationship add LoginResponse --name user --remote-table public.users --mapping user_id=id`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var op errors.Op = "commands.actionsRelationshipAdd"
			rel, err := flags.relationship()
			if err != nil {
				return errors.E(op, err)
			}
			if _, err := loadMetadata(cmd.Context(), ec); err != nil {
				return errors.E(op, err)
			}
			var existing *metadata.TypeRelationship
			if flags.replace {
				if existing = findRelationship(ec.Services.Selectors.CustomTypes(), args[0], rel.Name); existing == nil {
					return errors.E(op, errors.KindBadInput, fmt.Sprintf("type %q has no relationship %q", args[0], rel.Name))
				}
			}
			res, err := ec.Services.Actions.AddRelationship(cmd.Context(), args[0], rel, existing, noCallbacks)
			if err != nil {
				return errors.E(op, err)
			}
			reportMigration(ec, res)
			ec.Logger.Info("relationship saved")
			return nil
		},
	}
	f := addCmd.Flags()
	f.StringVar(&flags.name, "name", "", "name of the relationship")
	f.StringVar(&flags.relType, "type", "object", "relationship type (object, array)")
	f.StringVar(&flags.source, "source", "", "source of the remote table")
	f.StringVar(&flags.remoteTable, "remote-table", "", "table the relationship points at, as schema.table")
	f.StringToStringVar(&flags.mapping, "mapping", nil, "field=column pairs joining the type to the table")
	f.BoolVar(&flags.replace, "replace", false, "replace the existing relationship with the same name")
	_ = addCmd.MarkFlagRequired("name")
	_ = addCmd.MarkFlagRequired("remote-table")

	dropCmd := &cobra.Command{
		Use:   "drop <type> <relationship>",
		Short: "Remove a relationship from an action output type",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var op errors.Op = "commands.actionsRelationshipDrop"
			if _, err := loadMetadata(cmd.Context(), ec); err != nil {
				return errors.E(op, err)
			}
			if findRelationship(ec.Services.Selectors.CustomTypes(), args[0], args[1]) == nil {
				return errors.E(op, errors.KindBadInput, fmt.Sprintf("type %q has no relationship %q", args[0], args[1]))
			}
			res, err := ec.Services.Actions.RemoveRelationship(cmd.Context(), args[0], args[1], noCallbacks)
			if err != nil {
				return cancelled(ec, errors.E(op, err))
			}
			reportMigration(ec, res)
			ec.Logger.Info("relationship removed")
			return nil
		},
	}

	relationshipCmd.AddCommand(addCmd, dropCmd)
	return relationshipCmd
}
