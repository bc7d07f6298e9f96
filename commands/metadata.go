package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/hasura/graphql-engine/console"
	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura"
	"github.com/hasura/graphql-engine/console/internal/metadataops"
)

func NewMetadataCmd(ec *console.ExecutionContext) *cobra.Command {
	metadataCmd := &cobra.Command{
		Use:          "metadata",
		Aliases:      []string{"md"},
		Short:        "Manage GraphQL engine metadata",
		SilenceUsage: true,
	}
	metadataCmd.AddCommand(
		newMetadataExportCmd(ec),
		newMetadataApplyCmd(ec),
		newMetadataResetCmd(ec),
		newMetadataReloadCmd(ec),
		newMetadataDiffCmd(ec),
		newMetadataInconsistencyCmd(ec),
	)
	return metadataCmd
}

type metadataExportOptions struct {
	EC *console.ExecutionContext

	output string
	file   string
}

func newMetadataExportCmd(ec *console.ExecutionContext) *cobra.Command {
	opts := &metadataExportOptions{EC: ec}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the metadata of the GraphQL engine",
		Example: `  # Print the metadata as yaml:
  hge-console metadata export

  # Save it as json:
  hge-console metadata export -o json --file metadata.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", outputYAML, "output format (allowed values: json, yaml)")
	f.StringVar(&opts.file, "file", "", "write the metadata to this file instead of stdout")
	return cmd
}

func (o *metadataExportOptions) run(cmd *cobra.Command) error {
	var op errors.Op = "commands.metadataExportOptions.run"
	if _, err := loadMetadata(cmd.Context(), o.EC); err != nil {
		return errors.E(op, err)
	}
	raw := o.EC.Services.Store.State().Raw
	var out []byte
	switch o.output {
	case outputJSON:
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			return errors.E(op, errors.KindHasuraAPI, err)
		}
		out = buf.Bytes()
	case outputYAML:
		b, err := yaml.JSONToYAML(raw)
		if err != nil {
			return errors.E(op, errors.KindHasuraAPI, err)
		}
		out = b
	default:
		return errors.E(op, errors.KindBadInput, fmt.Sprintf("unknown output format %q (allowed values: json, yaml)", o.output))
	}
	if !strings.HasSuffix(string(out), "\n") {
		out = append(out, '\n')
	}
	if o.file == "" {
		_, err := o.EC.Stdout.Write(out)
		return err
	}
	path := resolvePath(o.EC, o.file)
	if err := afero.WriteFile(o.EC.Fs, path, out, 0644); err != nil {
		return errors.E(op, err)
	}
	o.EC.Logger.WithField("file", path).Info("metadata exported")
	return nil
}

func newMetadataApplyCmd(ec *console.ExecutionContext) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Replace the metadata of the GraphQL engine with a json or yaml document",
		RunE: func(cmd *cobra.Command, args []string) error {
			var op errors.Op = "commands.metadataApply"
			content, err := readInput(ec, file, os.Stdin)
			if err != nil {
				return errors.E(op, errors.KindBadInput, err)
			}
			ec.Spin("Applying metadata...")
			err = ec.Services.Metadata.ReplaceMetadataFromFile(cmd.Context(), content, noCallbacks)
			ec.Spinner.Stop()
			if err != nil {
				return errors.E(op, err)
			}
			ec.Logger.Info("metadata applied")
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "metadata file to apply, - reads stdin")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newMetadataResetCmd(ec *console.ExecutionContext) *cobra.Command {
	return &cobra.Command{
		Use:     "reset",
		Aliases: []string{"clear"},
		Short:   "Reset the metadata of the GraphQL engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !ec.Confirm("This will reset all metadata of the GraphQL engine. Continue?") {
				ec.Logger.Info("cancelled")
				return nil
			}
			ec.Spin("Resetting metadata...")
			err := ec.Services.Metadata.ResetMetadata(cmd.Context())
			ec.Spinner.Stop()
			if err != nil {
				return errors.E("commands.metadataReset", err)
			}
			ec.Logger.Info("metadata reset")
			return nil
		},
	}
}

func newMetadataReloadCmd(ec *console.ExecutionContext) *cobra.Command {
	var (
		reloadRemoteSchemas bool
		remoteSchema        string
	)
	cmd := &cobra.Command{
		Use:   "reload",
		Short: "Reload the metadata cache of the GraphQL engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			var op errors.Op = "commands.metadataReload"
			var (
				objects []hasura.InconsistentObject
				err     error
			)
			ec.Spin("Reloading metadata...")
			if remoteSchema != "" {
				objects, err = ec.Services.Metadata.ReloadRemoteSchema(cmd.Context(), remoteSchema)
			} else {
				objects, err = ec.Services.Metadata.ReloadMetadata(cmd.Context(), reloadRemoteSchemas)
			}
			ec.Spinner.Stop()
			if err != nil {
				return errors.E(op, err)
			}
			ec.Logger.Info("metadata reloaded")
			if len(objects) > 0 {
				ec.Logger.Warnf("metadata has %d inconsistent objects, run 'metadata inconsistency list' to see them", len(objects))
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&reloadRemoteSchemas, "remote-schemas", false, "also reload every remote schema")
	f.StringVar(&remoteSchema, "remote-schema", "", "reload only the named remote schema")
	return cmd
}

func newMetadataDiffCmd(ec *console.ExecutionContext) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Show the changes applying a metadata file would make",
		RunE: func(cmd *cobra.Command, args []string) error {
			var op errors.Op = "commands.metadataDiff"
			next, err := readInput(ec, file, os.Stdin)
			if err != nil {
				return errors.E(op, errors.KindBadInput, err)
			}
			if _, err := loadMetadata(cmd.Context(), ec); err != nil {
				return errors.E(op, err)
			}
			n, err := metadataops.Diff(ec.Services.Store.State().Raw, next, ec.Stdout, ec.NoColor)
			if err != nil {
				return errors.E(op, err)
			}
			if n == 0 {
				ec.Logger.Info("metadata is up to date")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "metadata file to compare with the server, - reads stdin")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newMetadataInconsistencyCmd(ec *console.ExecutionContext) *cobra.Command {
	inconsistencyCmd := &cobra.Command{
		Use:          "inconsistency",
		Aliases:      []string{"inconsistencies", "ic"},
		Short:        "Manage inconsistent objects in the metadata",
		SilenceUsage: true,
	}
	inconsistencyCmd.AddCommand(
		newMetadataInconsistencyListCmd(ec),
		newMetadataInconsistencyDropCmd(ec),
	)
	return inconsistencyCmd
}

type metadataInconsistencyListOptions struct {
	EC *console.ExecutionContext

	outputFormat string
}

func newMetadataInconsistencyListCmd(ec *console.ExecutionContext) *cobra.Command {
	opts := &metadataInconsistencyListOptions{EC: ec}
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all inconsistent objects from the metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := opts.run(cmd)
			opts.EC.Spinner.Stop()
			if err != nil {
				return fmt.Errorf("failed to list inconsistent metadata: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.outputFormat, "output", "o", "", "select output format for inconsistent metadata objects (allowed values: json, yaml)")
	return cmd
}

func (o *metadataInconsistencyListOptions) run(cmd *cobra.Command) error {
	o.EC.Spin("Getting inconsistent metadata...")
	objects, err := o.EC.Services.Metadata.LoadInconsistentObjects(cmd.Context(), metadataops.LoadOptions{})
	if err != nil {
		return err
	}
	o.EC.Spinner.Stop()
	if len(objects) == 0 {
		o.EC.Logger.Println("metadata is consistent")
		return nil
	}
	if o.outputFormat != "" {
		return writeOutput(o.EC.Stdout, o.outputFormat, objects)
	}
	table := newTableWriter(o.EC.Stdout)
	table.SetHeader([]string{"NAME", "TYPE", "REASON"})
	for _, obj := range objects {
		table.Append([]string{obj.Name, obj.Type, obj.Reason})
	}
	table.Render()
	return nil
}

func newMetadataInconsistencyDropCmd(ec *console.ExecutionContext) *cobra.Command {
	return &cobra.Command{
		Use:   "drop",
		Short: "Drop inconsistent objects from the metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !ec.Confirm("This will drop every inconsistent object from the metadata. Continue?") {
				ec.Logger.Info("cancelled")
				return nil
			}
			ec.Spin("Dropping inconsistent metadata...")
			err := ec.Services.Metadata.DropInconsistentObjects(cmd.Context())
			ec.Spinner.Stop()
			if err != nil {
				return fmt.Errorf("failed to drop inconsistent metadata: %w", err)
			}
			ec.Logger.Info("all inconsistent objects removed from metadata")
			return nil
		},
	}
}
