package datasource_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasura/graphql-engine/console/internal/datasource"
	_ "github.com/hasura/graphql-engine/console/internal/datasource/mysql"
	_ "github.com/hasura/graphql-engine/console/internal/datasource/postgres"
	"github.com/hasura/graphql-engine/console/internal/errors"
)

func TestKinds(t *testing.T) {
	assert.Equal(t, []datasource.Kind{datasource.MySQL, datasource.Postgres}, datasource.Kinds())
}

func TestGet(t *testing.T) {
	tests := []struct {
		name     string
		kind     datasource.Kind
		wantErr  bool
		wantKind errors.Kind
	}{
		{"postgres", datasource.Postgres, false, 0},
		{"mysql", datasource.MySQL, false, 0},
		{"unknown driver", datasource.Kind("mssql"), true, errors.KindBadInput},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, err := datasource.Get(tc.kind)
			if tc.wantErr {
				require.Error(t, err)
				assert.Equal(t, tc.wantKind, errors.GetKind(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.kind, d.Name())
		})
	}
}

func TestSelection_SetDriver(t *testing.T) {
	s, err := datasource.NewSelection(datasource.Postgres)
	require.NoError(t, err)
	assert.Equal(t, datasource.Postgres, s.Kind())

	var mu sync.Mutex
	var heard []datasource.Kind
	unsubscribe := s.Subscribe(func(k datasource.Kind) {
		mu.Lock()
		defer mu.Unlock()
		heard = append(heard, k)
		// listeners may read the selection
		assert.Equal(t, k, s.Kind())
	})

	require.NoError(t, s.SetDriver(datasource.MySQL))
	assert.Equal(t, datasource.MySQL, s.Driver().Name())

	unsubscribe()
	require.NoError(t, s.SetDriver(datasource.Postgres))
	assert.Equal(t, []datasource.Kind{datasource.MySQL}, heard)

	err = s.SetDriver("oracle")
	require.Error(t, err)
	assert.Equal(t, datasource.Postgres, s.Kind(), "a failed switch keeps the current driver")
}

func TestNewSelection_unknown(t *testing.T) {
	_, err := datasource.NewSelection("sqlite")
	assert.True(t, errors.IsKind(errors.KindBadInput, err))
}
