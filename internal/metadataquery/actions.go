package metadataquery

import (
	"github.com/hasura/graphql-engine/console/internal/hasura"
	"github.com/hasura/graphql-engine/console/internal/metadata"
)

func SetCustomTypes(ct metadata.CustomTypes) hasura.RequestBody {
	return hasura.RequestBody{Type: "set_custom_types", Args: ct}
}

type actionArgs struct {
	Name       string                    `json:"name"`
	Definition metadata.ActionDefinition `json:"definition"`
	Comment    string                    `json:"comment,omitempty"`
}

func CreateAction(name string, def metadata.ActionDefinition, comment string) hasura.RequestBody {
	return hasura.RequestBody{Type: "create_action", Args: actionArgs{name, def, comment}}
}

func UpdateAction(name string, def metadata.ActionDefinition, comment string) hasura.RequestBody {
	return hasura.RequestBody{Type: "update_action", Args: actionArgs{name, def, comment}}
}

// DropAction also clears the async action logs.
func DropAction(name string) hasura.RequestBody {
	return hasura.RequestBody{Type: "drop_action", Args: map[string]interface{}{"name": name, "clear_data": true}}
}

func CreateActionPermission(action, role, comment string) hasura.RequestBody {
	args := map[string]interface{}{"action": action, "role": role}
	if comment != "" {
		args["comment"] = comment
	}
	return hasura.RequestBody{Type: "create_action_permission", Args: args}
}

func DropActionPermission(action, role string) hasura.RequestBody {
	return hasura.RequestBody{Type: "drop_action_permission", Args: map[string]string{"action": action, "role": role}}
}
