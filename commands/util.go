package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hasura/graphql-engine/console"
	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/metadata"
	"github.com/hasura/graphql-engine/console/internal/migration"
)

// bindPFlag binds f to key and documents the env var viper reads it from.
func bindPFlag(v *viper.Viper, key string, f *pflag.Flag) {
	if err := v.BindPFlag(key, f); err != nil {
		fmt.Fprintf(os.Stderr, "viper failed binding pflag: %v with error: %v \n", key, err)
	}
	key = strings.ToUpper(console.ViperEnvPrefix + "_" + console.ViperEnvReplacer.Replace(key))
	f.Usage = f.Usage + fmt.Sprintf(` (env "%s")`, key)
}

func newTableWriter(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetRowSeparator("")
	table.SetColumnSeparator("")
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	return table
}

const (
	outputJSON = "json"
	outputYAML = "yaml"
)

// writeOutput prints v as indented JSON or as YAML.
func writeOutput(w io.Writer, format string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	switch format {
	case outputJSON:
	case outputYAML:
		if b, err = yaml.JSONToYAML(b); err != nil {
			return err
		}
	default:
		return errors.E(errors.Op("commands.writeOutput"), errors.KindBadInput, fmt.Sprintf("unknown output format %q (allowed values: json, yaml)", format))
	}
	_, err = fmt.Fprintln(w, strings.TrimRight(string(b), "\n"))
	return err
}

var noCallbacks = migration.Callbacks{}

// loadMetadata exports the engine's metadata into the services' store.
func loadMetadata(ctx context.Context, ec *console.ExecutionContext) (*metadata.Metadata, error) {
	ec.Spin("Fetching metadata...")
	defer ec.Spinner.Stop()
	return ec.Services.Metadata.ExportMetadata(ctx)
}

// readInput reads path from the project filesystem, "-" reads stdin.
func readInput(ec *console.ExecutionContext, path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return afero.ReadFile(ec.Fs, resolvePath(ec, path))
}

func resolvePath(ec *console.ExecutionContext, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(ec.ExecutionDirectory, path)
}

// cancelled reports a declined confirmation without failing the command.
func cancelled(ec *console.ExecutionContext, err error) error {
	if errors.IsKind(errors.KindCancelled, err) {
		ec.Logger.Info("cancelled")
		return nil
	}
	return err
}

// splitHeader reads a name:value header flag.
func splitHeader(h string) (name, value string, err error) {
	name, value, ok := strings.Cut(h, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", errors.E(errors.Op("commands.splitHeader"), errors.KindBadInput, fmt.Sprintf("invalid header %q, expected name:value", h))
	}
	return name, strings.TrimSpace(value), nil
}
