// Package rawsql runs SQL typed by the user against a source, optionally
// as a migration that also tracks what the SQL created.
package rawsql

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/hasura/graphql-engine/console/internal/datasource"
	mysqlsource "github.com/hasura/graphql-engine/console/internal/datasource/mysql"
	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura"
	"github.com/hasura/graphql-engine/console/internal/metadata"
	"github.com/hasura/graphql-engine/console/internal/metadataquery"
	"github.com/hasura/graphql-engine/console/internal/migration"
)

const DefaultMigrationName = "run_sql_migration"

type Request struct {
	SQL    string
	Source string
	// Cascade lets the engine drop metadata depending on dropped objects.
	Cascade  bool
	ReadOnly bool
	// IsMigration records the SQL as a migration. It is switched on for
	// schema modifying SQL regardless.
	IsMigration   bool
	MigrationName string
	DownSQL       string
	// TrackCreated tracks the tables, views and functions the SQL creates.
	TrackCreated bool
	// StatementTimeout in seconds, zero for none. Migrations never carry it.
	StatementTimeout int
}

type Result struct {
	ResultType hasura.RunSQLResultType
	Rows       [][]string
	Migration  *migration.Result
	Tracked    []datasource.CreatedObject
}

type Runner interface {
	Run(ctx context.Context, m migration.Migration, msgs migration.Messages, cbs migration.Callbacks) (*migration.Result, error)
}

type Service struct {
	query     hasura.V2Query
	runner    Runner
	selectors *metadata.Selectors
	// drivers follows the selected source, nil falls back to the registry.
	drivers  *datasource.Selection
	notifier migration.Notifier
	logger   *logrus.Logger
}

func New(query hasura.V2Query, runner Runner, selectors *metadata.Selectors, drivers *datasource.Selection, notifier migration.Notifier, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{query: query, runner: runner, selectors: selectors, drivers: drivers, notifier: notifier, logger: logger}
}

// Target is the source a request runs against.
type Target struct {
	Name   string
	Kind   datasource.Kind
	Driver datasource.Driver
	// conn is the connection string, empty for sources read from env.
	conn string
}

// Resolve finds the source called name. An empty name is the selected
// source, whose driver comes from the selection, or the default one.
func (s *Service) Resolve(name string) (*Target, error) {
	var op errors.Op = "rawsql.Service.Resolve"
	if name == "" {
		if cur := s.selectors.CurrentSource(); cur != nil {
			name = cur.Name
			if s.drivers != nil && s.drivers.Kind() == cur.Kind {
				return s.withConn(&Target{Name: name, Kind: cur.Kind, Driver: s.drivers.Driver()}), nil
			}
		} else {
			name = metadata.DefaultSource
		}
	}
	t := &Target{Name: name, Kind: datasource.Postgres}
	for _, ds := range s.selectors.DataSources() {
		if ds.Name == name {
			t.Kind = ds.Driver
		}
	}
	driver, err := datasource.Get(t.Kind)
	if err != nil {
		return nil, errors.E(op, err)
	}
	t.Driver = driver
	return s.withConn(t), nil
}

func (s *Service) withConn(t *Target) *Target {
	for _, ds := range s.selectors.DataSources() {
		if ds.Name == t.Name && !ds.FromEnv {
			t.conn = ds.URL
		}
	}
	return t
}

// qualify fills in the schema of objects created without one. Mysql
// resolves those against the database of the connection.
func qualify(t *Target, created []datasource.CreatedObject) error {
	var op errors.Op = "rawsql.qualify"
	if t.Kind != datasource.MySQL {
		return nil
	}
	for i := range created {
		if created[i].Schema != "" {
			continue
		}
		db := mysqlsource.DatabaseName(t.conn)
		if db == "" {
			return errors.E(op, errors.KindBadInput, fmt.Sprintf("cannot tell the database of source %q to track %s, qualify it as <database>.%s", t.Name, created[i].Name, created[i].Name))
		}
		created[i].Schema = db
	}
	return nil
}

var messages = migration.Messages{
	Request: "Executing the Query...",
	Success: "SQL executed!",
	Error:   "SQL execution failed",
}

func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	var op errors.Op = "rawsql.Service.Run"
	t, err := s.Resolve(req.Source)
	if err != nil {
		return nil, s.fail(op, err)
	}
	source, kind, driver := t.Name, t.Kind, t.Driver
	sql := strings.TrimSpace(req.SQL)
	if sql == "" {
		return nil, s.fail(op, errors.E(op, errors.KindBadInput, "SQL cannot be empty"))
	}
	if req.ReadOnly && (req.IsMigration || req.TrackCreated) {
		return nil, s.fail(op, errors.E(op, errors.KindBadInput, "read only SQL cannot be a migration or track objects"))
	}

	isMigration := req.IsMigration || (!req.ReadOnly && driver.CheckSchemaModification(sql))
	var created []datasource.CreatedObject
	if req.TrackCreated {
		for _, obj := range driver.CreatedObjects(sql) {
			if !obj.IsPartition {
				created = append(created, obj)
			}
		}
		if err := qualify(t, created); err != nil {
			return nil, s.fail(op, err)
		}
	}

	if isMigration {
		return s.runMigration(ctx, req, source, kind, sql, created)
	}

	if req.StatementTimeout > 0 {
		timeout, err := driver.StatementTimeoutSQL(req.StatementTimeout)
		if err != nil {
			return nil, s.fail(op, err)
		}
		sql = timeout + "\n" + sql
	}
	s.notifier.Info(messages.Request, "")
	res, err := s.execute(ctx, kind, hasura.PGRunSQLInput{SQL: sql, Source: source, Cascade: req.Cascade, ReadOnly: req.ReadOnly})
	if err != nil {
		if driver.IsTimeoutError(err) {
			return nil, s.fail(op, errors.E(op, errors.KindHasuraAPI, fmt.Errorf("statement timed out: %w", err)))
		}
		return nil, s.fail(op, err)
	}
	s.notifier.Success(messages.Success, "")
	return &Result{ResultType: res.ResultType, Rows: res.Rows}, nil
}

func (s *Service) fail(op errors.Op, err error) error {
	s.notifier.Error(messages.Error, "", err)
	return errors.E(op, err)
}

func (s *Service) execute(ctx context.Context, kind datasource.Kind, in hasura.PGRunSQLInput) (*hasura.RunSQLResult, error) {
	if kind == datasource.MySQL {
		out, err := s.query.MySQLRunSQL(ctx, hasura.MySQLRunSQLInput(in))
		if err != nil {
			return nil, err
		}
		return out.Normalize(), nil
	}
	out, err := s.query.PGRunSQL(ctx, in)
	if err != nil {
		return nil, err
	}
	return out.Normalize(), nil
}

// runMigration applies the SQL through the query API, then tracks the
// created objects through the metadata API as a second migration.
func (s *Service) runMigration(ctx context.Context, req Request, source string, kind datasource.Kind, sql string, created []datasource.CreatedObject) (*Result, error) {
	var op errors.Op = "rawsql.Service.runMigration"
	name := req.MigrationName
	if name == "" {
		name = DefaultMigrationName
	}
	m := migration.Migration{
		Name:   name,
		Source: source,
		Query:  true,
		Up:     []hasura.RequestBody{metadataquery.RunSQL(kind, metadataquery.RunSQLArgs{SQL: sql, Source: source, Cascade: req.Cascade})},
	}
	if down := strings.TrimSpace(req.DownSQL); down != "" {
		m.Down = []hasura.RequestBody{metadataquery.RunSQL(kind, metadataquery.RunSQLArgs{SQL: down, Source: source, Cascade: req.Cascade})}
	}
	res, err := s.runner.Run(ctx, m, messages, migration.Callbacks{})
	if err != nil {
		return nil, errors.E(op, err)
	}
	out := &Result{ResultType: hasura.CommandOK, Migration: res}
	if len(created) == 0 {
		return out, nil
	}

	track := migration.Migration{Name: name + "_track", Source: source}
	for _, obj := range created {
		up, down := trackSteps(kind, source, obj)
		track.Up = append(track.Up, up)
		track.Down = append([]hasura.RequestBody{down}, track.Down...)
	}
	if _, err := s.runner.Run(ctx, track, migration.Messages{
		Success: "Tracked created objects",
		Error:   "Tracking created objects failed",
	}, migration.Callbacks{}); err != nil {
		return out, errors.E(op, err)
	}
	out.Tracked = created
	return out, nil
}

func trackSteps(kind datasource.Kind, source string, obj datasource.CreatedObject) (up, down hasura.RequestBody) {
	if obj.Type == datasource.ObjectFunction {
		fn := datasource.QualifiedFunction{Schema: obj.Schema, Name: obj.Name}
		return metadataquery.TrackFunction(kind, source, fn), metadataquery.UntrackFunction(kind, source, fn)
	}
	table := datasource.QualifiedTable{Schema: obj.Schema, Name: obj.Name}
	return metadataquery.TrackTable(kind, source, table), metadataquery.UntrackTable(kind, source, table, false)
}

// FetchTable introspects one table of a source through the driver's
// catalog query.
func (s *Service) FetchTable(ctx context.Context, source string, table datasource.QualifiedTable) (*datasource.Table, error) {
	var op errors.Op = "rawsql.Service.FetchTable"
	t, err := s.Resolve(source)
	if err != nil {
		return nil, errors.E(op, err)
	}
	source, kind, driver := t.Name, t.Kind, t.Driver
	sql, err := driver.FetchTablesListSQL(nil, []datasource.QualifiedTable{table})
	if err != nil {
		return nil, errors.E(op, err)
	}
	res, err := s.execute(ctx, kind, hasura.PGRunSQLInput{SQL: sql, Source: source, ReadOnly: true})
	if err != nil {
		return nil, errors.E(op, err)
	}
	if len(res.Rows) < 2 || len(res.Rows[1]) == 0 {
		return nil, errors.E(op, errors.KindHasuraAPI, "unexpected catalog query result")
	}
	var tables []datasource.Table
	if err := json.Unmarshal([]byte(res.Rows[1][0]), &tables); err != nil {
		return nil, errors.E(op, errors.KindHasuraAPI, fmt.Errorf("decoding catalog query result: %w", err))
	}
	for i := range tables {
		if tables[i].TableSchema == table.Schema && tables[i].TableName == table.Name {
			return &tables[i], nil
		}
	}
	return nil, errors.E(op, errors.KindBadInput, fmt.Sprintf("table %s.%s not found in source %s", table.Schema, table.Name, source))
}
