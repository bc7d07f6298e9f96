// Package sources manages the databases connected to the engine.
package sources

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/cockroachdb/redact"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/hasura/graphql-engine/console/internal/datasource"
	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura"
	"github.com/hasura/graphql-engine/console/internal/metadata"
	"github.com/hasura/graphql-engine/console/internal/metadataquery"
	"github.com/hasura/graphql-engine/console/internal/migration"
)

// AddOptions describe a source to connect. With FromEnv set URL names the
// environment variable the engine reads the url from.
type AddOptions struct {
	Driver         datasource.Kind
	Name           string
	URL            string
	FromEnv        bool
	MaxConnections *int
	IdleTimeout    *int
}

func (o AddOptions) Validate() error {
	var op errors.Op = "sources.AddOptions.Validate"
	if _, err := datasource.Get(o.Driver); err != nil {
		return errors.E(op, err)
	}
	if strings.TrimSpace(o.Name) == "" {
		return errors.E(op, errors.KindBadInput, "database display name is required")
	}
	if strings.TrimSpace(o.URL) == "" {
		if o.FromEnv {
			return errors.E(op, errors.KindBadInput, "environment variable name is required")
		}
		return errors.E(op, errors.KindBadInput, "database url is required")
	}
	if o.MaxConnections != nil && *o.MaxConnections < 0 {
		return errors.E(op, errors.KindBadInput, "max connections cannot be negative")
	}
	if o.IdleTimeout != nil && *o.IdleTimeout < 0 {
		return errors.E(op, errors.KindBadInput, "idle timeout cannot be negative")
	}
	return nil
}

func (o AddOptions) args() metadataquery.AddSourceArgs {
	args := metadataquery.AddSourceArgs{Name: strings.TrimSpace(o.Name), URL: strings.TrimSpace(o.URL), FromEnv: o.FromEnv}
	if o.MaxConnections != nil || o.IdleTimeout != nil {
		args.PoolSettings = &metadata.PoolSettings{MaxConnections: o.MaxConnections, IdleTimeout: o.IdleTimeout}
	}
	return args
}

type Service struct {
	client    hasura.V1Metadata
	store     *metadata.Store
	selectors *metadata.Selectors
	notifier  migration.Notifier
	logger    *logrus.Logger
}

func New(client hasura.V1Metadata, store *metadata.Store, selectors *metadata.Selectors, notifier migration.Notifier, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{client: client, store: store, selectors: selectors, notifier: notifier, logger: logger}
}

func (s *Service) send(ctx context.Context, body hasura.RequestBody) error {
	var op errors.Op = "sources.Service.send"
	resp, r, err := s.client.Send(ctx, body)
	if err != nil {
		return errors.E(op, errors.KindNetwork, err)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(r)
		return errors.E(op, errors.KindHasuraAPI, hasura.ParseAPIError(resp.StatusCode, b))
	}
	return nil
}

// done notifies and refreshes the metadata after a successful change.
func (s *Service) done(ctx context.Context, message string) {
	s.notifier.Success(message, "")
	if _, err := metadata.Export(ctx, s.client, s.store); err != nil {
		s.logger.WithError(err).Warn("exporting metadata failed")
	}
}

func (s *Service) Add(ctx context.Context, opts AddOptions) error {
	var op errors.Op = "sources.Service.Add"
	if err := opts.Validate(); err != nil {
		s.notifier.Error("Add data source failed", "", err)
		return errors.E(op, err)
	}
	s.logger.Debug(redact.Sprintf("adding %s source %s with url %s", redact.Safe(opts.Driver), redact.Safe(opts.Name), opts.URL).Redact().StripMarkers())
	if err := s.send(ctx, metadataquery.AddSource(opts.Driver, opts.args())); err != nil {
		s.notifier.Error("Add data source failed", "", err)
		return errors.E(op, err)
	}
	s.done(ctx, "Data source added successfully!")
	return nil
}

func (s *Service) Remove(ctx context.Context, driver datasource.Kind, name string) error {
	var op errors.Op = "sources.Service.Remove"
	if name == "" {
		err := errors.E(op, errors.KindBadInput, "database name is required")
		s.notifier.Error("Remove data source failed", "", err)
		return err
	}
	if err := s.send(ctx, metadataquery.DropSource(driver, name)); err != nil {
		s.notifier.Error("Remove data source failed", "", err)
		return errors.E(op, err)
	}
	s.done(ctx, "Data source removed successfully!")
	return nil
}

func (s *Service) Reload(ctx context.Context, name string) error {
	var op errors.Op = "sources.Service.Reload"
	if name == "" {
		err := errors.E(op, errors.KindBadInput, "database name is required")
		s.notifier.Error("Reload data source failed", "", err)
		return err
	}
	if err := s.send(ctx, metadataquery.ReloadSource(name)); err != nil {
		s.notifier.Error("Reload data source failed", "", err)
		return errors.E(op, err)
	}
	s.done(ctx, "Data source reloaded successfully!")
	return nil
}

// Use selects the source name for the operations that follow.
func (s *Service) Use(name string) (metadata.DataSource, error) {
	var op errors.Op = "sources.Service.Use"
	for _, ds := range s.List() {
		if ds.Name == name {
			s.store.Dispatch(metadata.SetCurrentSource{Source: ds.Name, Driver: ds.Driver})
			return ds, nil
		}
	}
	return metadata.DataSource{}, errors.E(op, errors.KindBadInput, fmt.Sprintf("data source %q not found", name))
}

// List returns the connected sources of the last exported metadata.
func (s *Service) List() []metadata.DataSource {
	return s.selectors.DataSources()
}

// HostFromConnectionString extracts the database host of a connection
// string. Postgres urls and mysql DSNs or urls are understood, anything
// else gives "".
func HostFromConnectionString(driver datasource.Kind, conn string) string {
	conn = strings.TrimSpace(conn)
	if conn == "" {
		return ""
	}
	switch driver {
	case datasource.Postgres:
		return postgresHost(conn)
	case datasource.MySQL:
		return mysqlHost(conn)
	}
	return ""
}

func postgresHost(conn string) string {
	info, err := pq.ParseURL(conn)
	if err != nil {
		return ""
	}
	for _, kv := range strings.Fields(info) {
		if v := strings.TrimPrefix(kv, "host="); v != kv {
			return strings.Trim(v, "'")
		}
	}
	return ""
}

func mysqlHost(conn string) string {
	if strings.HasPrefix(conn, "mysql://") {
		u, err := url.Parse(conn)
		if err != nil {
			return ""
		}
		return u.Hostname()
	}
	cfg, err := mysql.ParseDSN(conn)
	if err != nil || cfg.Net != "tcp" {
		return ""
	}
	host, _, err := net.SplitHostPort(cfg.Addr)
	if err != nil {
		return cfg.Addr
	}
	return host
}

// Describe renders a source for listings without leaking credentials.
func Describe(ds metadata.DataSource) string {
	if ds.FromEnv {
		return fmt.Sprintf("%s (%s, from env %s)", ds.Name, ds.Driver, ds.URL)
	}
	host := HostFromConnectionString(ds.Driver, ds.URL)
	if host == "" {
		return fmt.Sprintf("%s (%s)", ds.Name, ds.Driver)
	}
	return fmt.Sprintf("%s (%s at %s)", ds.Name, ds.Driver, host)
}
