package metadataquery

import (
	"github.com/hasura/graphql-engine/console/internal/hasura"
	"github.com/hasura/graphql-engine/console/internal/metadata"
)

func addQueryToCollection(q metadata.AllowedQuery) hasura.RequestBody {
	return hasura.RequestBody{
		Type: "add_query_to_collection",
		Args: map[string]string{
			"collection_name": metadata.AllowedQueriesCollection,
			"query_name":      q.Name,
			"query":           q.Query,
		},
	}
}

// CreateAllowList creates the allow-list collection holding queries and
// registers it with the allow list.
func CreateAllowList(queries []metadata.AllowedQuery) hasura.RequestBody {
	if queries == nil {
		queries = []metadata.AllowedQuery{}
	}
	return Bulk(
		hasura.RequestBody{
			Type: "create_query_collection",
			Args: map[string]interface{}{
				"name":       metadata.AllowedQueriesCollection,
				"definition": map[string]interface{}{"queries": queries},
			},
		},
		hasura.RequestBody{
			Type: "add_collection_to_allowlist",
			Args: map[string]string{"collection": metadata.AllowedQueriesCollection},
		},
	)
}

// AddAllowedQueries appends queries to an existing allow-list collection.
func AddAllowedQueries(queries []metadata.AllowedQuery) hasura.RequestBody {
	steps := make([]hasura.RequestBody, 0, len(queries))
	for _, q := range queries {
		steps = append(steps, addQueryToCollection(q))
	}
	return Bulk(steps...)
}

func DeleteAllowedQuery(name string) hasura.RequestBody {
	return hasura.RequestBody{
		Type: "drop_query_from_collection",
		Args: map[string]string{
			"collection_name": metadata.AllowedQueriesCollection,
			"query_name":      name,
		},
	}
}

// UpdateAllowedQuery replaces the query stored under name.
func UpdateAllowedQuery(name string, newQuery metadata.AllowedQuery) hasura.RequestBody {
	return Bulk(DeleteAllowedQuery(name), addQueryToCollection(newQuery))
}

// DeleteAllowList drops the collection and its allow-list entry.
func DeleteAllowList() hasura.RequestBody {
	return hasura.RequestBody{
		Type: "drop_query_collection",
		Args: map[string]interface{}{"collection": metadata.AllowedQueriesCollection, "cascade": true},
	}
}
