// Package metadataquery builds the request bodies the console sends to the
// metadata and query APIs. Builders are pure, they never talk to the
// engine.
package metadataquery

import (
	"github.com/hasura/graphql-engine/console/internal/datasource"
	"github.com/hasura/graphql-engine/console/internal/hasura"
)

// sourcePrefix maps a driver to the prefix the engine uses for its source
// scoped request types.
func sourcePrefix(kind datasource.Kind) string {
	switch kind {
	case datasource.MySQL:
		return "mysql_"
	default:
		return "pg_"
	}
}

func sourceType(kind datasource.Kind, name string) string {
	return sourcePrefix(kind) + name
}

func empty() map[string]interface{} { return map[string]interface{}{} }

// Bulk wraps steps in one atomic request.
func Bulk(steps ...hasura.RequestBody) hasura.RequestBody {
	if steps == nil {
		steps = []hasura.RequestBody{}
	}
	return hasura.RequestBody{Type: "bulk", Args: steps}
}

func Export() hasura.RequestBody {
	return hasura.RequestBody{Type: "export_metadata", Args: empty()}
}

// Replace takes the full metadata document, raw or decoded.
func Replace(metadata interface{}) hasura.RequestBody {
	return hasura.RequestBody{Type: "replace_metadata", Args: metadata}
}

func Clear() hasura.RequestBody {
	return hasura.RequestBody{Type: "clear_metadata", Args: empty()}
}

func Reload(args hasura.ReloadMetadataArgs) hasura.RequestBody {
	return hasura.RequestBody{Type: "reload_metadata", Args: args}
}

func GetInconsistent() hasura.RequestBody {
	return hasura.RequestBody{Type: "get_inconsistent_metadata", Args: empty()}
}

func DropInconsistent() hasura.RequestBody {
	return hasura.RequestBody{Type: "drop_inconsistent_metadata", Args: empty()}
}

// ReloadAndGetInconsistent reloads the metadata cache and reads the
// inconsistency report in one call. The report is the second result.
func ReloadAndGetInconsistent(reloadRemoteSchemas bool) hasura.RequestBody {
	args := hasura.ReloadMetadataArgs{}
	if reloadRemoteSchemas {
		args.ReloadRemoteSchemas = hasura.ReloadAll
	}
	return Bulk(Reload(args), GetInconsistent())
}

// ReloadRemoteSchemaAndGetInconsistent refreshes one remote schema and
// reads the inconsistency report. The report is the second result.
func ReloadRemoteSchemaAndGetInconsistent(name string) hasura.RequestBody {
	return Bulk(
		hasura.RequestBody{Type: "reload_remote_schema", Args: map[string]string{"name": name}},
		GetInconsistent(),
	)
}
