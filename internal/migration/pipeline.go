package migration

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura"
	"github.com/hasura/graphql-engine/console/internal/metadata"
)

// Config selects how a Pipeline records migrations. Dir and Fs only
// matter in ModeMigrations.
type Config struct {
	Mode Mode
	Dir  string
	Fs   afero.Fs
	// Query receives migrations flagged Query, it may be nil when none are.
	Query hasura.V2Query
}

// Result describes an applied migration.
type Result struct {
	Version int64
	// Name is <version>_<name>, the directory the files went to in
	// ModeMigrations.
	Name string
}

// Pipeline applies migrations and keeps the metadata store in step.
type Pipeline struct {
	client   hasura.V1Metadata
	store    *metadata.Store
	notifier Notifier
	logger   *logrus.Logger
	cfg      Config
	state    *StateStore

	InFlight *InFlight
	// flightMu keeps the in-flight count and the store flag in step.
	flightMu sync.Mutex

	// mu serializes runs that write files and the catalog state.
	mu sync.Mutex
	// last is the highest version handed out.
	last int64

	now func() time.Time
}

func NewPipeline(client hasura.V1Metadata, store *metadata.Store, notifier Notifier, logger *logrus.Logger, cfg Config) *Pipeline {
	if cfg.Mode == "" {
		cfg.Mode = ModeDirect
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Pipeline{
		client:   client,
		store:    store,
		notifier: notifier,
		logger:   logger,
		cfg:      cfg,
		state:    NewStateStore(client),
		InFlight: new(InFlight),
		now:      time.Now,
	}
}

func (p *Pipeline) Mode() Mode { return p.cfg.Mode }

// Run applies m.Up atomically. On success the metadata is exported again
// into the store. Nothing is retried.
func (p *Pipeline) Run(ctx context.Context, m Migration, msgs Messages, cbs Callbacks) (*Result, error) {
	var op errors.Op = "migration.Pipeline.Run"
	if err := m.Validate(); err != nil {
		p.fail(msgs, cbs, err)
		return nil, errors.E(op, err)
	}

	if m.SkipExecution && p.cfg.Mode != ModeMigrations {
		err := errors.E(op, errors.KindBadInput, "skipping execution needs the migrations mode")
		p.fail(msgs, cbs, err)
		return nil, err
	}

	p.begin()
	defer p.end()
	if msgs.Request != "" {
		p.notifier.Info(msgs.Request, "")
	}

	logger := p.logger.WithFields(logrus.Fields{"migration": m.Name, "mode": p.cfg.Mode})

	var (
		res *Result
		err error
	)
	switch p.cfg.Mode {
	case ModeMigrations:
		res, err = p.applyWithFiles(ctx, m)
	default:
		version := p.nextVersion()
		res = &Result{Version: version, Name: dirName(version, m.Name)}
		err = p.apply(ctx, m)
	}
	if err != nil {
		logger.WithError(err).Debug("migration failed")
		var verr *VersionError
		if errors.As(err, &verr) {
			// the steps are live even though the version is not recorded
			p.reexport(ctx, logger)
		}
		p.fail(msgs, cbs, err)
		return nil, errors.E(op, err)
	}
	logger.Debug("migration applied")

	p.reexport(ctx, logger)
	if msgs.Success != "" {
		p.notifier.Success(msgs.Success, "")
	}
	cbs.success()
	return res, nil
}

func (p *Pipeline) reexport(ctx context.Context, logger *logrus.Entry) {
	if _, err := metadata.Export(ctx, p.client, p.store); err != nil {
		logger.WithError(err).Warn("re-exporting metadata after migration failed")
	}
}

func (p *Pipeline) begin() {
	p.flightMu.Lock()
	defer p.flightMu.Unlock()
	p.InFlight.Begin()
	p.store.Dispatch(metadata.MigrationRequest{})
}

func (p *Pipeline) end() {
	p.flightMu.Lock()
	defer p.flightMu.Unlock()
	p.InFlight.End()
	p.store.Dispatch(metadata.MigrationDone{Active: p.InFlight.Active()})
}

// nextVersion is the current time in milliseconds, bumped past the last
// version so two runs in the same millisecond never share one.
func (p *Pipeline) nextVersion() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nextVersionLocked()
}

func (p *Pipeline) nextVersionLocked() int64 {
	version := p.now().UnixNano() / int64(time.Millisecond)
	if version <= p.last {
		version = p.last + 1
	}
	p.last = version
	return version
}

func (p *Pipeline) fail(msgs Messages, cbs Callbacks, err error) {
	if msgs.Error != "" {
		p.notifier.Error(msgs.Error, "", err)
	}
	cbs.failure(err)
}

func (p *Pipeline) apply(ctx context.Context, m Migration) error {
	var op errors.Op = "migration.Pipeline.apply"
	if m.Query {
		if p.cfg.Query == nil {
			return errors.E(op, errors.KindInternal, "no query API client configured")
		}
		if _, err := p.cfg.Query.Bulk(ctx, m.Up); err != nil {
			return errors.E(op, err)
		}
		return nil
	}
	if _, err := p.client.Bulk(ctx, m.Up); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// applyWithFiles writes the pair, applies it and records the version.
// The files are removed again when applying fails. Once applied they stay,
// a failure recording the version comes back as a *VersionError.
func (p *Pipeline) applyWithFiles(ctx context.Context, m Migration) (*Result, error) {
	var op errors.Op = "migration.Pipeline.applyWithFiles"
	p.mu.Lock()
	defer p.mu.Unlock()

	version := p.nextVersionLocked()
	res := &Result{Version: version, Name: dirName(version, m.Name)}
	f := newFiles(p.cfg.Fs, p.cfg.Dir, version, m.Name)
	if err := f.setUp(m.Up); err != nil {
		return nil, errors.E(op, &FileError{Action: FileCreate, Err: err})
	}
	down := m.Down
	if down == nil {
		down = []hasura.RequestBody{}
	}
	if err := f.setDown(down); err != nil {
		return nil, errors.E(op, &FileError{Action: FileCreate, Err: err})
	}
	if err := f.create(); err != nil {
		return nil, errors.E(op, &FileError{Action: FileCreate, Err: err})
	}

	if !m.SkipExecution {
		if err := p.apply(ctx, m); err != nil {
			var result error = err
			if deleteErr := f.delete(); deleteErr != nil {
				result = multierror.Append(result, errors.E(op, &FileError{Action: FileDelete, Err: deleteErr}))
			}
			return nil, errors.E(op, result)
		}
	}
	if err := p.state.InsertVersion(ctx, m.database(), version); err != nil {
		return nil, errors.E(op, &VersionError{Version: version, Database: m.database(), Err: err})
	}
	return res, nil
}
