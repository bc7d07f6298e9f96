package migration

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mitchellh/mapstructure"

	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura"
	"github.com/hasura/graphql-engine/console/internal/hasura/catalogstate"
)

// ConsoleState is what the console keeps in the engine's catalog state.
//
//	"default":
//		version              dirty
//		--------------------------
//		"1616826626133": false
type ConsoleState struct {
	Migrations map[string]map[string]bool `json:"migrations" mapstructure:"migrations"`
	Settings   map[string]string          `json:"settings" mapstructure:"settings"`
}

func (s *ConsoleState) init() {
	if s.Migrations == nil {
		s.Migrations = map[string]map[string]bool{}
	}
	if s.Settings == nil {
		s.Settings = map[string]string{}
	}
}

// Versions lists the recorded versions of database.
func (s *ConsoleState) Versions(database string) map[string]bool {
	return s.Migrations[database]
}

// VersionError is a migration that was applied and written to disk but
// whose version could not be recorded in the catalog state.
type VersionError struct {
	Version  int64
	Database string
	Err      error
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("migration %d is in place but recording its version on %q failed: %v", e.Version, e.Database, e.Err)
}

func (e *VersionError) Unwrap() error { return e.Err }

// StateStore reads and writes ConsoleState through the catalog state API.
type StateStore struct {
	client hasura.CatalogStateOperations
}

func NewStateStore(client hasura.CatalogStateOperations) *StateStore {
	return &StateStore{client}
}

func (s *StateStore) Get(ctx context.Context) (*ConsoleState, error) {
	var op errors.Op = "migration.StateStore.Get"
	r, err := s.client.Get(ctx)
	if err != nil {
		return nil, errors.E(op, err)
	}
	var catalog map[string]interface{}
	if err := json.NewDecoder(r).Decode(&catalog); err != nil {
		return nil, errors.E(op, errors.KindHasuraAPI, fmt.Errorf("decoding catalog state: %w", err))
	}
	state := new(ConsoleState)
	if v, ok := catalog[catalogstate.StateTypeConsole+"_state"]; ok && v != nil {
		if err := mapstructure.Decode(v, state); err != nil {
			return nil, errors.E(op, errors.KindHasuraAPI, fmt.Errorf("decoding console state: %w", err))
		}
	}
	state.init()
	return state, nil
}

func (s *StateStore) Set(ctx context.Context, state *ConsoleState) error {
	var op errors.Op = "migration.StateStore.Set"
	state.init()
	if _, err := s.client.Set(ctx, catalogstate.StateTypeConsole, state); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// InsertVersion records version as applied on database.
func (s *StateStore) InsertVersion(ctx context.Context, database string, version int64) error {
	var op errors.Op = "migration.StateStore.InsertVersion"
	state, err := s.Get(ctx)
	if err != nil {
		return errors.E(op, err)
	}
	if state.Migrations[database] == nil {
		state.Migrations[database] = map[string]bool{}
	}
	state.Migrations[database][strconv.FormatInt(version, 10)] = false
	if err := s.Set(ctx, state); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// Truncate forgets every recorded version and keeps the settings.
func (s *StateStore) Truncate(ctx context.Context) error {
	var op errors.Op = "migration.StateStore.Truncate"
	state, err := s.Get(ctx)
	if err != nil {
		return errors.E(op, err)
	}
	state.Migrations = map[string]map[string]bool{}
	if err := s.Set(ctx, state); err != nil {
		return errors.E(op, err)
	}
	return nil
}
