package datasource

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hasura/graphql-engine/console/internal/errors"
)

var (
	driversMu sync.RWMutex
	drivers   = make(map[Kind]Driver)
)

// Register makes a driver available by its name. It panics when called
// twice for the same kind or with a nil driver.
func Register(d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if d == nil {
		panic("datasource: Register driver is nil")
	}
	if _, dup := drivers[d.Name()]; dup {
		panic("datasource: Register called twice for driver " + string(d.Name()))
	}
	drivers[d.Name()] = d
}

func Get(kind Kind) (Driver, error) {
	var op errors.Op = "datasource.Get"
	driversMu.RLock()
	d, ok := drivers[kind]
	driversMu.RUnlock()
	if !ok {
		return nil, errors.E(op, errors.KindBadInput, fmt.Errorf("unknown data source driver %q (forgotten import?)", kind))
	}
	return d, nil
}

// Kinds lists registered drivers in a stable order.
func Kinds() []Kind {
	driversMu.RLock()
	defer driversMu.RUnlock()
	kinds := make([]Kind, 0, len(drivers))
	for k := range drivers {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Selection holds the driver of the source the operator is working on.
// Listeners hear about every switch.
type Selection struct {
	mu        sync.RWMutex
	current   Driver
	listeners map[int]func(Kind)
	nextID    int
}

func NewSelection(kind Kind) (*Selection, error) {
	var op errors.Op = "datasource.NewSelection"
	d, err := Get(kind)
	if err != nil {
		return nil, errors.E(op, err)
	}
	return &Selection{current: d, listeners: map[int]func(Kind){}}, nil
}

func (s *Selection) Driver() Driver {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Selection) Kind() Kind {
	return s.Driver().Name()
}

// SetDriver switches the current driver. Listeners run after the switch,
// outside the lock, so they may read the selection.
func (s *Selection) SetDriver(kind Kind) error {
	var op errors.Op = "datasource.Selection.SetDriver"
	d, err := Get(kind)
	if err != nil {
		return errors.E(op, err)
	}
	s.mu.Lock()
	s.current = d
	fns := make([]func(Kind), 0, len(s.listeners))
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(kind)
	}
	return nil
}

// Subscribe registers fn for driver switches and returns a function that
// removes it again.
func (s *Selection) Subscribe(fn func(Kind)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}
