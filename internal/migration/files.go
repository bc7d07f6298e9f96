package migration

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ghodss/yaml"
	"github.com/spf13/afero"

	"github.com/hasura/graphql-engine/console/internal/errors"
)

const (
	upFile   = "up.yaml"
	downFile = "down.yaml"
)

// files is one migration on disk: <dir>/<version>_<name>/{up,down}.yaml.
type files struct {
	fs      afero.Fs
	dir     string
	version int64
	name    string
	up      []byte
	down    []byte
}

func newFiles(fs afero.Fs, dir string, version int64, name string) *files {
	return &files{
		fs:      fs,
		dir:     dir,
		version: version,
		name:    name,
		up:      []byte("[]\n"),
		down:    []byte("[]\n"),
	}
}

// FileAction tells which file operation a FileError comes from.
type FileAction string

const (
	FileCreate FileAction = "create"
	FileDelete FileAction = "delete"
)

// FileError is a failure writing or removing migration files.
type FileError struct {
	Action FileAction
	Err    error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s migration files: %v", e.Action, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

func dirName(version int64, name string) string {
	return fmt.Sprintf("%d_%s", version, name)
}

// DirName is the directory holding the migration, relative to the
// migrations directory.
func (f *files) DirName() string {
	return dirName(f.version, f.name)
}

func (f *files) path() string {
	return filepath.Join(f.dir, f.DirName())
}

func toYAML(steps interface{}) ([]byte, error) {
	b, err := json.Marshal(steps)
	if err != nil {
		return nil, err
	}
	return yaml.JSONToYAML(b)
}

func (f *files) setUp(steps interface{}) error {
	var op errors.Op = "migration.files.setUp"
	b, err := toYAML(steps)
	if err != nil {
		return errors.E(op, errors.KindInternal, err)
	}
	f.up = b
	return nil
}

func (f *files) setDown(steps interface{}) error {
	var op errors.Op = "migration.files.setDown"
	b, err := toYAML(steps)
	if err != nil {
		return errors.E(op, errors.KindInternal, err)
	}
	f.down = b
	return nil
}

func (f *files) create() error {
	var op errors.Op = "migration.files.create"
	if err := f.fs.MkdirAll(f.path(), os.ModePerm); err != nil {
		return errors.E(op, err)
	}
	if err := afero.WriteFile(f.fs, filepath.Join(f.path(), upFile), f.up, 0644); err != nil {
		return errors.E(op, err)
	}
	if err := afero.WriteFile(f.fs, filepath.Join(f.path(), downFile), f.down, 0644); err != nil {
		return errors.E(op, err)
	}
	return nil
}

func (f *files) delete() error {
	var op errors.Op = "migration.files.delete"
	ok, err := afero.DirExists(f.fs, f.path())
	if err != nil {
		return errors.E(op, err)
	}
	if !ok {
		return errors.E(op, fmt.Sprintf("cannot find migration %s", f.DirName()))
	}
	if err := f.fs.RemoveAll(f.path()); err != nil {
		return errors.E(op, err)
	}
	return nil
}
