// Package migration applies metadata changes as reversible up/down pairs,
// either straight against the engine or recorded as migration files.
package migration

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura"
	"github.com/hasura/graphql-engine/console/internal/notify"
)

// Mode decides what happens to a migration besides being applied.
type Mode string

const (
	// ModeDirect only applies the up steps.
	ModeDirect Mode = "direct"
	// ModeMigrations also writes the pair to the migrations directory and
	// records the version in the catalog state.
	ModeMigrations Mode = "migrations"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDirect, ModeMigrations:
		return Mode(s), nil
	case "":
		return ModeDirect, nil
	}
	return "", fmt.Errorf("unknown migration mode %q, expected %q or %q", s, ModeDirect, ModeMigrations)
}

// DefaultDatabase keys migrations that carry no source.
const DefaultDatabase = "default"

// Migration is a metadata change together with the steps undoing it.
type Migration struct {
	Name string
	// Source is the database the version is recorded under.
	Source string
	Up     []hasura.RequestBody
	Down   []hasura.RequestBody
	// Query sends the steps to the query API instead of the metadata API.
	Query bool
	// SkipExecution only writes the files and records the version, for
	// changes already made on the server.
	SkipExecution bool
}

var namePattern = regexp.MustCompile(`^[\w\-]+$`)

func (m Migration) Validate() error {
	var op errors.Op = "migration.Migration.Validate"
	if m.Name == "" {
		return errors.E(op, errors.KindBadInput, "migration name cannot be empty")
	}
	if !namePattern.MatchString(m.Name) {
		return errors.E(op, errors.KindBadInput, fmt.Sprintf("migration name %q may only contain letters, digits, '_' and '-'", m.Name))
	}
	if len(m.Up) == 0 {
		return errors.E(op, errors.KindBadInput, "migration has no up steps")
	}
	return nil
}

func (m Migration) database() string {
	if m.Source == "" {
		return DefaultDatabase
	}
	return m.Source
}

// Messages are the notification titles of a run. Empty ones are skipped.
type Messages struct {
	Request string
	Success string
	Error   string
}

// Callbacks run after the notification of the outcome.
type Callbacks struct {
	OnSuccess func()
	OnError   func(error)
}

func (c Callbacks) success() {
	if c.OnSuccess != nil {
		c.OnSuccess()
	}
}

func (c Callbacks) failure(err error) {
	if c.OnError != nil {
		c.OnError(err)
	}
}

// Notifier receives the outcome of every run, *notify.Center is the
// usual one.
type Notifier interface {
	Info(title, message string) notify.Notification
	Success(title, message string) notify.Notification
	Error(title, message string, err error) notify.Notification
}

// InFlight counts the runs currently talking to the engine.
type InFlight struct {
	mu sync.Mutex
	n  int
}

func (f *InFlight) Begin() {
	f.mu.Lock()
	f.n++
	f.mu.Unlock()
}

func (f *InFlight) End() {
	f.mu.Lock()
	if f.n > 0 {
		f.n--
	}
	f.mu.Unlock()
}

func (f *InFlight) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n > 0
}
