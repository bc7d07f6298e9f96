package migration

import (
	"context"
	"os"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/hasura/graphql-engine/console/internal/errors"
)

// Reset clears the migration history: the migrations directory is emptied
// and the recorded versions are dropped from the catalog state. An empty
// directory leaves everything untouched.
func Reset(ctx context.Context, fs afero.Fs, dir string, state *StateStore, logger *logrus.Logger) error {
	var op errors.Op = "migration.Reset"
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return errors.E(op, errors.KindBadInput, pkgerrors.Wrap(err, "could not locate migrations directory"))
	}
	if len(entries) == 0 {
		if logger != nil {
			logger.Debug("nothing to delete, the migrations folder is empty")
		}
		return nil
	}
	if err := fs.RemoveAll(dir); err != nil {
		return errors.E(op, pkgerrors.Wrapf(err, "could not delete migration folder at %s", dir))
	}
	if err := fs.MkdirAll(dir, os.ModePerm); err != nil {
		return errors.E(op, pkgerrors.Wrap(err, "cannot create migrations directory"))
	}
	if err := state.Truncate(ctx); err != nil {
		return errors.E(op, pkgerrors.Wrap(err, "failed to make request to the server"))
	}
	return nil
}
