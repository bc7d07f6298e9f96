package console

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/gofrs/uuid"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/hasura/graphql-engine/console/internal/datasource"
)

const (
	GlobalConfigDirName  = ".hge-console"
	GlobalConfigFileName = "config.json"
)

// GlobalConfig is stored in GlobalConfigFile and shared by every project.
type GlobalConfig struct {
	// UUID identifies this installation, generated on first run.
	UUID string `json:"uuid"`

	// LastSource and LastDriver remember the data source picked last.
	LastSource string          `json:"last_source,omitempty"`
	LastDriver datasource.Kind `json:"last_driver,omitempty"`
}

type rawGlobalConfig struct {
	UUID       *string         `json:"uuid"`
	LastSource string          `json:"last_source,omitempty"`
	LastDriver datasource.Kind `json:"last_driver,omitempty"`

	shouldWrite bool
}

func (c *rawGlobalConfig) read(fs afero.Fs, filename string) error {
	b, err := afero.ReadFile(fs, filename)
	if err != nil {
		return errors.Wrap(err, "read file")
	}
	if err := json.Unmarshal(b, c); err != nil {
		return errors.Wrap(err, "parse file")
	}
	return nil
}

func (c *rawGlobalConfig) validateKeys() error {
	if c.UUID == nil {
		u, err := uuid.NewV4()
		if err != nil {
			return errors.Wrap(err, "failed generating uuid")
		}
		uid := u.String()
		c.UUID = &uid
		c.shouldWrite = true
	}
	if c.LastDriver != "" {
		if _, err := datasource.Get(c.LastDriver); err != nil {
			c.LastSource, c.LastDriver = "", ""
			c.shouldWrite = true
		}
	}
	return nil
}

func (c *rawGlobalConfig) write(fs afero.Fs, filename string) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal file")
	}
	if err := afero.WriteFile(fs, filename, b, 0644); err != nil {
		return errors.Wrap(err, "write file")
	}
	return nil
}

// setupGlobalConfig makes sure the global config directory and file exist
// and reads the file into ec.GlobalConfig.
func (ec *ExecutionContext) setupGlobalConfig() error {
	if len(ec.GlobalConfigDir) == 0 {
		ec.Logger.Debug("global config directory is not pre-set, defaulting")
		home, err := homedir.Dir()
		if err != nil {
			return errors.Wrap(err, "cannot get home directory")
		}
		ec.GlobalConfigDir = filepath.Join(home, GlobalConfigDirName)
		ec.Logger.Debug("global config directory set as '", ec.GlobalConfigDir, "'")
	}
	if err := ec.Fs.MkdirAll(ec.GlobalConfigDir, os.ModePerm); err != nil {
		return errors.Wrap(err, "cannot create global config directory")
	}
	if len(ec.GlobalConfigFile) == 0 {
		ec.GlobalConfigFile = filepath.Join(ec.GlobalConfigDir, GlobalConfigFileName)
	}

	raw := &rawGlobalConfig{}
	if err := raw.read(ec.Fs, ec.GlobalConfigFile); err != nil {
		ec.Logger.Debugf("reading global config failed: %v", err)
		raw = &rawGlobalConfig{}
	}
	if err := raw.validateKeys(); err != nil {
		return errors.Wrap(err, "validating global config failed")
	}
	if raw.shouldWrite {
		if err := raw.write(ec.Fs, ec.GlobalConfigFile); err != nil {
			return errors.Wrap(err, "writing global config failed")
		}
	}
	ec.GlobalConfig = &GlobalConfig{
		UUID:       *raw.UUID,
		LastSource: raw.LastSource,
		LastDriver: raw.LastDriver,
	}
	return nil
}

// RememberSource stores the data source picked last in the global config.
func (ec *ExecutionContext) RememberSource(name string, driver datasource.Kind) error {
	if ec.GlobalConfig == nil {
		return errors.New("global config is not set up")
	}
	uid := ec.GlobalConfig.UUID
	raw := &rawGlobalConfig{UUID: &uid, LastSource: name, LastDriver: driver}
	if err := raw.write(ec.Fs, ec.GlobalConfigFile); err != nil {
		return err
	}
	ec.GlobalConfig.LastSource, ec.GlobalConfig.LastDriver = name, driver
	return nil
}
