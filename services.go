package console

import (
	"github.com/hasura/graphql-engine/console/internal/actions"
	"github.com/hasura/graphql-engine/console/internal/allowlist"
	"github.com/hasura/graphql-engine/console/internal/datasource"
	"github.com/hasura/graphql-engine/console/internal/eventtriggers"
	"github.com/hasura/graphql-engine/console/internal/explorer"
	"github.com/hasura/graphql-engine/console/internal/metadata"
	"github.com/hasura/graphql-engine/console/internal/metadataops"
	"github.com/hasura/graphql-engine/console/internal/migration"
	"github.com/hasura/graphql-engine/console/internal/notify"
	"github.com/hasura/graphql-engine/console/internal/rawsql"
	"github.com/hasura/graphql-engine/console/internal/schema"
	"github.com/hasura/graphql-engine/console/internal/sources"
)

// Services share one metadata store and one notification center, so a
// change made through any of them is seen by all.
type Services struct {
	Store     *metadata.Store
	Selectors *metadata.Selectors
	Notifier  *notify.Center
	// Drivers follows the driver of the selected source.
	Drivers  *datasource.Selection
	Pipeline *migration.Pipeline
	State    *migration.StateStore

	Metadata      *metadataops.Service
	Sources       *sources.Service
	AllowList     *allowlist.Service
	Actions       *actions.Service
	EventTriggers *eventtriggers.Service
	RawSQL        *rawsql.Service
	Schema        *schema.Service
	Explorer      *explorer.Service
}

func NewServices(ec *ExecutionContext) *Services {
	client := ec.APIClient.V1Metadata
	store := metadata.NewStore(metadata.State{})
	drivers := newDriverSelection(ec, store)
	if gc := ec.GlobalConfig; gc != nil && gc.LastSource != "" {
		store.Dispatch(metadata.SetCurrentSource{Source: gc.LastSource, Driver: gc.LastDriver})
	}
	selectors := metadata.NewSelectors(store)
	notifier := notify.NewCenter(ec.Logger, nil)
	pipeline := migration.NewPipeline(client, store, notifier, ec.Logger, migration.Config{
		Mode:  ec.Config.MigrationMode,
		Dir:   ec.MigrationDir,
		Fs:    ec.Fs,
		Query: ec.APIClient.V2Query,
	})
	rawSQL := rawsql.New(ec.APIClient.V2Query, pipeline, selectors, drivers, notifier, ec.Logger)
	return &Services{
		Store:     store,
		Selectors: selectors,
		Notifier:  notifier,
		Drivers:   drivers,
		Pipeline:  pipeline,
		State:     migration.NewStateStore(client),

		Metadata:      metadataops.New(client, store, pipeline, notifier, ec.Logger),
		Sources:       sources.New(client, store, selectors, notifier, ec.Logger),
		AllowList:     allowlist.New(client, store, notifier, ec.Logger),
		Actions:       actions.New(pipeline, selectors, notifier, ec.Confirm, ec.Logger),
		EventTriggers: eventtriggers.New(pipeline, selectors, notifier, ec.Confirm),
		RawSQL:        rawSQL,
		Schema:        schema.New(pipeline, rawSQL, notifier, ec.Logger),
		Explorer:      explorer.New(ec.APIClient.V1Graphql, ec.Logger),
	}
}

// newDriverSelection starts on postgres and switches whenever a source of
// another driver gets selected in store.
func newDriverSelection(ec *ExecutionContext, store *metadata.Store) *datasource.Selection {
	drivers, err := datasource.NewSelection(datasource.Postgres)
	if err != nil {
		// postgres is registered by this package's imports
		panic(err)
	}
	store.Subscribe(func(st metadata.State) {
		if st.CurrentDriver == "" || st.CurrentDriver == drivers.Kind() {
			return
		}
		if err := drivers.SetDriver(st.CurrentDriver); err != nil {
			ec.Logger.WithError(err).Warnf("cannot switch to the %s driver", st.CurrentDriver)
		}
	})
	drivers.Subscribe(func(kind datasource.Kind) {
		ec.Logger.WithField("driver", kind).Debug("data source driver switched")
	})
	return drivers
}
