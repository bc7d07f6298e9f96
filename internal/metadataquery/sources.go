package metadataquery

import (
	"github.com/hasura/graphql-engine/console/internal/datasource"
	"github.com/hasura/graphql-engine/console/internal/hasura"
	"github.com/hasura/graphql-engine/console/internal/metadata"
)

// AddSourceArgs describe a new connection. URL holds either the url itself
// or, with FromEnv set, the environment variable carrying it.
type AddSourceArgs struct {
	Name         string
	URL          string
	FromEnv      bool
	PoolSettings *metadata.PoolSettings
}

func AddSource(kind datasource.Kind, args AddSourceArgs) hasura.RequestBody {
	info := map[string]interface{}{
		"database_url": metadata.DatabaseURL{Value: args.URL},
	}
	if args.FromEnv {
		info["database_url"] = metadata.DatabaseURL{FromEnv: args.URL}
	}
	if args.PoolSettings != nil {
		info["pool_settings"] = args.PoolSettings
	}
	return hasura.RequestBody{
		Type: sourceType(kind, "add_source"),
		Args: map[string]interface{}{
			"name": args.Name,
			"configuration": map[string]interface{}{
				"connection_info": info,
			},
		},
	}
}

func DropSource(kind datasource.Kind, name string) hasura.RequestBody {
	return hasura.RequestBody{Type: sourceType(kind, "drop_source"), Args: map[string]string{"name": name}}
}

// ReloadSource reloads a single source through reload_metadata.
func ReloadSource(name string) hasura.RequestBody {
	return Reload(hasura.ReloadMetadataArgs{ReloadSources: []string{name}})
}

func TrackTable(kind datasource.Kind, source string, table datasource.QualifiedTable) hasura.RequestBody {
	return hasura.RequestBody{
		Type: sourceType(kind, "track_table"),
		Args: map[string]interface{}{"source": source, "table": table},
	}
}

func UntrackTable(kind datasource.Kind, source string, table datasource.QualifiedTable, cascade bool) hasura.RequestBody {
	return hasura.RequestBody{
		Type: sourceType(kind, "untrack_table"),
		Args: map[string]interface{}{"source": source, "table": table, "cascade": cascade},
	}
}

func TrackFunction(kind datasource.Kind, source string, fn datasource.QualifiedFunction) hasura.RequestBody {
	return hasura.RequestBody{
		Type: sourceType(kind, "track_function"),
		Args: map[string]interface{}{"source": source, "function": fn},
	}
}

func UntrackFunction(kind datasource.Kind, source string, fn datasource.QualifiedFunction) hasura.RequestBody {
	return hasura.RequestBody{
		Type: sourceType(kind, "untrack_function"),
		Args: map[string]interface{}{"source": source, "function": fn},
	}
}

// RunSQLArgs are the arguments of a run_sql request.
type RunSQLArgs struct {
	SQL      string `json:"sql"`
	Source   string `json:"source,omitempty"`
	Cascade  bool   `json:"cascade"`
	ReadOnly bool   `json:"read_only"`
}

// RunSQL targets /v2/query. Postgres keeps the unprefixed request type.
func RunSQL(kind datasource.Kind, args RunSQLArgs) hasura.RequestBody {
	t := "run_sql"
	if kind == datasource.MySQL {
		t = "mysql_run_sql"
	}
	return hasura.RequestBody{Type: t, Args: args}
}
