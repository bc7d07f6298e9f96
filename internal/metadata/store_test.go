package metadata

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStore_Dispatch(t *testing.T) {
	s := NewStore(State{})
	var seen []uint64
	unsubscribe := s.Subscribe(func(st State) { seen = append(seen, st.Revision) })

	st := s.Dispatch(ExportMetadataRequest{})
	assert.True(t, st.Loading)
	assert.Equal(t, uint64(1), s.Revision())

	st = s.Dispatch(SetCurrentSchema{Schema: "public"}, SetCurrentSource{Source: "default"})
	assert.Equal(t, uint64(3), st.Revision)
	assert.Equal(t, "public", st.CurrentSchema)
	assert.Equal(t, []uint64{1, 3}, seen, "one notification per Dispatch")

	unsubscribe()
	s.Dispatch(DeleteAllowList{})
	assert.Len(t, seen, 2)
}

func TestStore_concurrentDispatch(t *testing.T) {
	s := NewStore(State{})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Dispatch(AddAllowedQueries{Queries: []AllowedQuery{{Name: "q"}}})
		}()
	}
	wg.Wait()
	assert.Len(t, s.State().AllowedQueries, 50)
	assert.Equal(t, uint64(50), s.Revision())
}
