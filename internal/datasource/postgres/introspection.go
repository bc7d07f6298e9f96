package postgres

import (
	"fmt"
	"strings"

	"github.com/hasura/graphql-engine/console/internal/datasource"
	"github.com/hasura/graphql-engine/console/internal/errors"
)

// relationFilter narrows a catalog query to schemas, else to qualified
// tables, else to every user schema.
func relationFilter(schemaCol, nameCol string, schemas []string, tables []datasource.QualifiedTable) string {
	if len(schemas) > 0 {
		quoted := make([]string, 0, len(schemas))
		for _, s := range schemas {
			quoted = append(quoted, quoteLiteral(s))
		}
		return fmt.Sprintf("%s IN (%s)", schemaCol, strings.Join(quoted, ", "))
	}
	if len(tables) > 0 {
		conds := make([]string, 0, len(tables))
		for _, t := range tables {
			conds = append(conds, fmt.Sprintf("(%s = %s AND %s = %s)", schemaCol, quoteLiteral(t.Schema), nameCol, quoteLiteral(t.Name)))
		}
		return strings.Join(conds, " OR ")
	}
	return fmt.Sprintf("%s NOT IN ('information_schema', 'hdb_catalog', 'hdb_views') AND %s NOT LIKE 'pg\\_%%'", schemaCol, schemaCol)
}

const fetchTablesListTemplate = `SELECT COALESCE(json_agg(row_to_json(info)), '[]'::JSON) FROM (
SELECT
  pgn.nspname AS table_schema,
  pgc.relname AS table_name,
  CASE
    WHEN pgc.relkind = 'r' THEN 'TABLE'
    WHEN pgc.relkind = 'f' THEN 'FOREIGN TABLE'
    WHEN pgc.relkind = 'v' THEN 'VIEW'
    WHEN pgc.relkind = 'm' THEN 'MATERIALIZED VIEW'
    WHEN pgc.relkind = 'p' THEN 'PARTITIONED TABLE'
  END AS table_type,
  obj_description(pgc.oid) AS comment,
  COALESCE(json_agg(DISTINCT row_to_json(isc)::jsonb || jsonb_build_object('comment', col_description(pga.attrelid, pga.attnum))) FILTER (WHERE isc.column_name IS NOT NULL), '[]'::JSON) AS columns,
  COALESCE(json_agg(DISTINCT row_to_json(ist)::jsonb) FILTER (WHERE ist.trigger_name IS NOT NULL), '[]'::JSON) AS triggers,
  row_to_json(isv) AS view_info
FROM pg_class AS pgc
INNER JOIN pg_namespace AS pgn ON pgc.relnamespace = pgn.oid
LEFT OUTER JOIN information_schema.columns AS isc ON isc.table_schema = pgn.nspname AND isc.table_name = pgc.relname
LEFT OUTER JOIN pg_attribute AS pga ON pga.attrelid = pgc.oid AND pga.attname = isc.column_name
LEFT OUTER JOIN information_schema.triggers AS ist ON ist.event_object_schema = pgn.nspname AND ist.event_object_table = pgc.relname
LEFT OUTER JOIN information_schema.views AS isv ON isv.table_schema = pgn.nspname AND isv.table_name = pgc.relname
WHERE pgc.relkind IN ('r', 'v', 'f', 'm', 'p')
  AND (%s)
GROUP BY pgc.oid, pgn.nspname, pgc.relname, table_type, isv.*
) AS info;`

func (Driver) FetchTablesListSQL(schemas []string, tables []datasource.QualifiedTable) (string, error) {
	return fmt.Sprintf(fetchTablesListTemplate, relationFilter("pgn.nspname", "pgc.relname", schemas, tables)), nil
}

const fetchFkTemplate = `SELECT COALESCE(json_agg(row_to_json(info)), '[]'::JSON) FROM (
SELECT
  q.table_schema::text AS table_schema,
  q.table_name::text AS table_name,
  q.constraint_name::text AS constraint_name,
  min(q.ref_table_table_schema::text) AS ref_table_table_schema,
  min(q.ref_table::text) AS ref_table,
  json_object_agg(ac.attname, afc.attname) AS column_mapping,
  min(q.confupdtype::text) AS on_update,
  min(q.confdeltype::text) AS on_delete
FROM (
  SELECT
    ctn.nspname AS table_schema,
    ct.relname AS table_name,
    r.conrelid AS table_id,
    r.conname AS constraint_name,
    cftn.nspname AS ref_table_table_schema,
    cft.relname AS ref_table,
    r.confrelid AS ref_table_id,
    r.confupdtype,
    r.confdeltype,
    unnest(r.conkey) AS column_id,
    unnest(r.confkey) AS ref_column_id
  FROM pg_constraint r
  JOIN pg_class ct ON r.conrelid = ct.oid
  JOIN pg_namespace ctn ON ct.relnamespace = ctn.oid
  JOIN pg_class cft ON r.confrelid = cft.oid
  JOIN pg_namespace cftn ON cft.relnamespace = cftn.oid
  WHERE r.contype = 'f'::"char"
    AND (%s)
) q
JOIN pg_attribute ac ON q.column_id = ac.attnum AND q.table_id = ac.attrelid
JOIN pg_attribute afc ON q.ref_column_id = afc.attnum AND q.ref_table_id = afc.attrelid
GROUP BY q.table_schema, q.table_name, q.constraint_name
) AS info;`

// FetchTrackedTableFkSQL lists foreign keys declared on the given tables.
func (Driver) FetchTrackedTableFkSQL(schemas []string, tables []datasource.QualifiedTable) (string, error) {
	return fmt.Sprintf(fetchFkTemplate, relationFilter("ctn.nspname", "ct.relname", schemas, tables)), nil
}

// FetchTrackedTableReferencedFkSQL lists foreign keys pointing at the given
// tables.
func (Driver) FetchTrackedTableReferencedFkSQL(schemas []string, tables []datasource.QualifiedTable) (string, error) {
	return fmt.Sprintf(fetchFkTemplate, relationFilter("cftn.nspname", "cft.relname", schemas, tables)), nil
}

const fetchColumnTypesSQL = `SELECT
  string_agg(t.typname, ',') AS "Type Name",
  string_agg(pg_catalog.format_type(t.oid, NULL), ',') AS "Display Name",
  string_agg(coalesce(pg_catalog.obj_description(t.oid, 'pg_type'), ''), ':') AS "Descriptions",
  t.typcategory
FROM pg_catalog.pg_type t
LEFT JOIN pg_catalog.pg_namespace n ON n.oid = t.typnamespace
WHERE (t.typrelid = 0 OR (SELECT c.relkind = 'c' FROM pg_catalog.pg_class c WHERE c.oid = t.typrelid))
  AND NOT EXISTS (SELECT 1 FROM pg_catalog.pg_type el WHERE el.oid = t.typelem AND el.typarray = t.oid)
  AND pg_catalog.pg_type_is_visible(t.oid)
  AND t.typname != 'unknown'
  AND t.typcategory != 'P'
GROUP BY t.typcategory;`

func (Driver) FetchColumnTypesSQL() (string, error) { return fetchColumnTypesSQL, nil }

const fetchColumnCastsSQL = `SELECT
  ts.typname AS "Source Type",
  pg_catalog.format_type(castsource, NULL) AS "Source Info",
  coalesce(pg_catalog.obj_description(castsource, 'pg_type'), '') AS "Source Descriptions",
  string_agg(tt.typname, ',') AS "Target Type",
  string_agg(pg_catalog.format_type(casttarget, NULL), ',') AS "Target Info",
  string_agg(coalesce(pg_catalog.obj_description(casttarget, 'pg_type'), ''), ':') AS "Target Descriptions",
  string_agg(CASE WHEN castfunc = 0 THEN '(binary coercible)' ELSE p.proname END, ',') AS "Function"
FROM pg_catalog.pg_cast c
LEFT JOIN pg_catalog.pg_proc p ON c.castfunc = p.oid
LEFT JOIN pg_catalog.pg_type ts ON c.castsource = ts.oid
LEFT JOIN pg_catalog.pg_namespace ns ON ns.oid = ts.typnamespace
LEFT JOIN pg_catalog.pg_type tt ON c.casttarget = tt.oid
LEFT JOIN pg_catalog.pg_namespace nt ON nt.oid = tt.typnamespace
WHERE (pg_catalog.pg_type_is_visible(ts.oid) OR pg_catalog.pg_type_is_visible(tt.oid))
  AND c.castcontext != 'e'
  AND ts.typname != tt.typname
GROUP BY ts.typname, castsource
ORDER BY 1, 2;`

func (Driver) FetchColumnCastsSQL() (string, error) { return fetchColumnCastsSQL, nil }

// FetchColumnDefaultFunctionsSQL lists argument-less functions of schema
// and pg_catalog usable as column defaults.
func (Driver) FetchColumnDefaultFunctionsSQL(schema string) (string, error) {
	var op errors.Op = "postgres.Driver.FetchColumnDefaultFunctionsSQL"
	if err := datasource.RequireName(op, "schema name", schema); err != nil {
		return "", err
	}
	return fmt.Sprintf(`SELECT p.proname::text AS function_name, pg_catalog.pg_get_function_result(p.oid) AS return_type
FROM pg_catalog.pg_proc p
LEFT JOIN pg_catalog.pg_namespace n ON n.oid = p.pronamespace
WHERE n.nspname IN ('pg_catalog', %s)
  AND p.pronargs = 0
  AND pg_catalog.pg_get_function_result(p.oid) NOT IN ('trigger', 'void', 'event_trigger')
ORDER BY 1;`, quoteLiteral(schema)), nil
}

func (Driver) SchemaListSQL() (string, error) {
	return `SELECT schema_name FROM information_schema.schemata WHERE schema_name NOT IN ('information_schema', 'hdb_catalog', 'hdb_views') AND schema_name NOT LIKE 'pg\_%' ORDER BY schema_name ASC;`, nil
}

func (Driver) AdditionalColumnsInfoSQL(schema string) (string, error) {
	var op errors.Op = "postgres.Driver.AdditionalColumnsInfoSQL"
	if err := datasource.RequireName(op, "schema name", schema); err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT column_name, table_name, is_generated, is_identity, identity_generation FROM information_schema.columns WHERE table_schema = %s;", quoteLiteral(schema)), nil
}

// ParseColumnsInfoResult reads the rows of AdditionalColumnsInfoSQL, the
// first row being the header.
func (Driver) ParseColumnsInfoResult(rows [][]string) (datasource.ColumnsInfoResult, error) {
	var op errors.Op = "postgres.Driver.ParseColumnsInfoResult"
	result := datasource.ColumnsInfoResult{}
	if len(rows) == 0 {
		return result, nil
	}
	for i, row := range rows[1:] {
		if len(row) < 5 {
			return nil, errors.E(op, errors.KindHasuraAPI, fmt.Sprintf("row %d has %d columns, want 5", i+1, len(row)))
		}
		column, table := row[0], row[1]
		generation := row[4]
		if generation == "NULL" {
			generation = ""
		}
		if result[table] == nil {
			result[table] = map[string]datasource.ColumnInfo{}
		}
		result[table][column] = datasource.ColumnInfo{
			IsGenerated:        row[2] == "ALWAYS",
			IsIdentity:         row[3] == "YES",
			IdentityGeneration: generation,
		}
	}
	return result, nil
}
