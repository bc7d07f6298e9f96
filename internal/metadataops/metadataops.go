// Package metadataops implements the console operations acting on the
// metadata document as a whole: export, import, reset, reload and the
// handling of inconsistent objects.
package metadataops

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/buger/jsonparser"
	"github.com/ghodss/yaml"
	"github.com/sirupsen/logrus"

	"github.com/hasura/graphql-engine/console/internal/diff"
	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura"
	"github.com/hasura/graphql-engine/console/internal/metadata"
	"github.com/hasura/graphql-engine/console/internal/metadataquery"
	"github.com/hasura/graphql-engine/console/internal/migration"
)

type Service struct {
	client   hasura.V1Metadata
	store    *metadata.Store
	pipeline *migration.Pipeline
	notifier migration.Notifier
	logger   *logrus.Logger
}

func New(client hasura.V1Metadata, store *metadata.Store, pipeline *migration.Pipeline, notifier migration.Notifier, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{client: client, store: store, pipeline: pipeline, notifier: notifier, logger: logger}
}

// send posts body and returns the answer, failing on non 200 answers.
func (s *Service) send(ctx context.Context, body interface{}) ([]byte, error) {
	var op errors.Op = "metadataops.Service.send"
	resp, r, err := s.client.Send(ctx, body)
	if err != nil {
		return nil, errors.E(op, errors.KindNetwork, err)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.E(op, errors.KindInternal, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.E(op, errors.KindHasuraAPI, hasura.ParseAPIError(resp.StatusCode, b))
	}
	return b, nil
}

// ExportMetadata refreshes the store from the engine.
func (s *Service) ExportMetadata(ctx context.Context) (*metadata.Metadata, error) {
	var op errors.Op = "metadataops.Service.ExportMetadata"
	md, err := metadata.Export(ctx, s.client, s.store)
	if err != nil {
		return nil, errors.E(op, err)
	}
	return md, nil
}

// ReplaceMetadata swaps the engine's metadata for newMetadata through a
// migration whose down step restores the current document.
func (s *Service) ReplaceMetadata(ctx context.Context, newMetadata json.RawMessage, cbs migration.Callbacks) error {
	var op errors.Op = "metadataops.Service.ReplaceMetadata"
	if _, err := metadata.Export(ctx, s.client, s.store); err != nil {
		s.notifier.Error("Metadata import failed", "Failed to get the existing metadata from the server", err)
		if cbs.OnError != nil {
			cbs.OnError(err)
		}
		return errors.E(op, err)
	}
	oldMetadata := s.store.State().Raw

	m := migration.Migration{
		Name: "replace_metadata",
		Up:   []hasura.RequestBody{metadataquery.Replace(newMetadata)},
		Down: []hasura.RequestBody{metadataquery.Replace(oldMetadata)},
	}
	msgs := migration.Messages{
		Request: "Importing metadata...",
		Success: "Metadata imported",
		Error:   "Failed importing metadata",
	}
	if _, err := s.pipeline.Run(ctx, m, msgs, cbs); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// ParseMetadataFile reads a metadata document in JSON or YAML into JSON.
func ParseMetadataFile(content []byte) (json.RawMessage, error) {
	var op errors.Op = "metadataops.ParseMetadataFile"
	content = bytes.TrimSpace(content)
	if len(content) == 0 {
		return nil, errors.E(op, errors.KindBadInput, "metadata file is empty")
	}
	if json.Valid(content) {
		return json.RawMessage(content), nil
	}
	b, err := yaml.YAMLToJSON(content)
	if err != nil {
		return nil, errors.E(op, errors.KindBadInput, err)
	}
	if !bytes.HasPrefix(bytes.TrimSpace(b), []byte("{")) {
		return nil, errors.E(op, errors.KindBadInput, "metadata file does not hold an object")
	}
	return json.RawMessage(b), nil
}

func (s *Service) ReplaceMetadataFromFile(ctx context.Context, content []byte, cbs migration.Callbacks) error {
	var op errors.Op = "metadataops.Service.ReplaceMetadataFromFile"
	md, err := ParseMetadataFile(content)
	if err != nil {
		s.notifier.Error("Error parsing metadata file", err.Error(), err)
		if cbs.OnError != nil {
			cbs.OnError(err)
		}
		return errors.E(op, err)
	}
	if err := s.ReplaceMetadata(ctx, md, cbs); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// ResetMetadata clears the engine's metadata.
func (s *Service) ResetMetadata(ctx context.Context) error {
	var op errors.Op = "metadataops.Service.ResetMetadata"
	if _, err := s.send(ctx, metadataquery.Clear()); err != nil {
		s.notifier.Error("Metadata reset failed", "", err)
		return errors.E(op, err)
	}
	s.notifier.Success("Metadata reset successfully!", "")
	return nil
}

// LoadOptions select what LoadInconsistentObjects reloads before reading
// the report.
type LoadOptions struct {
	Reload              bool
	ReloadRemoteSchemas bool
}

func (s *Service) LoadInconsistentObjects(ctx context.Context, opts LoadOptions) ([]hasura.InconsistentObject, error) {
	var op errors.Op = "metadataops.Service.LoadInconsistentObjects"
	query := metadataquery.GetInconsistent()
	var path []string
	if opts.Reload {
		query = metadataquery.ReloadAndGetInconsistent(opts.ReloadRemoteSchemas)
		path = []string{"[1]"}
	}
	objects, err := s.loadInconsistent(ctx, query, path...)
	if err != nil {
		return nil, errors.E(op, err)
	}
	return objects, nil
}

// ReloadMetadata reloads the metadata cache and the inconsistency report.
func (s *Service) ReloadMetadata(ctx context.Context, reloadRemoteSchemas bool) ([]hasura.InconsistentObject, error) {
	var op errors.Op = "metadataops.Service.ReloadMetadata"
	objects, err := s.LoadInconsistentObjects(ctx, LoadOptions{Reload: true, ReloadRemoteSchemas: reloadRemoteSchemas})
	if err != nil {
		return nil, errors.E(op, err)
	}
	return objects, nil
}

func (s *Service) ReloadRemoteSchema(ctx context.Context, name string) ([]hasura.InconsistentObject, error) {
	var op errors.Op = "metadataops.Service.ReloadRemoteSchema"
	if name == "" {
		return nil, errors.E(op, errors.KindBadInput, "remote schema name cannot be empty")
	}
	objects, err := s.loadInconsistent(ctx, metadataquery.ReloadRemoteSchemaAndGetInconsistent(name), "[1]")
	if err != nil {
		return nil, errors.E(op, err)
	}
	return objects, nil
}

// loadInconsistent sends query and reads inconsistent_objects below path
// in the answer.
func (s *Service) loadInconsistent(ctx context.Context, query hasura.RequestBody, path ...string) ([]hasura.InconsistentObject, error) {
	var op errors.Op = "metadataops.Service.loadInconsistent"
	s.store.Dispatch(metadata.LoadInconsistentObjectsRequest{})
	objects, err := func() ([]hasura.InconsistentObject, error) {
		body, err := s.send(ctx, query)
		if err != nil {
			return nil, err
		}
		raw, dataType, _, err := jsonparser.Get(body, append(path, "inconsistent_objects")...)
		if err != nil {
			return nil, errors.E(op, errors.KindHasuraAPI, fmt.Errorf("reading inconsistency report: %w", err))
		}
		objects := []hasura.InconsistentObject{}
		if dataType == jsonparser.Null {
			return objects, nil
		}
		if err := json.Unmarshal(raw, &objects); err != nil {
			return nil, errors.E(op, errors.KindHasuraAPI, fmt.Errorf("decoding inconsistency report: %w", err))
		}
		return objects, nil
	}()
	if err != nil {
		s.store.Dispatch(metadata.LoadInconsistentObjectsError{Err: err})
		return nil, errors.E(op, err)
	}
	s.store.Dispatch(metadata.LoadInconsistentObjectsSuccess{Objects: objects})
	if len(objects) > 0 {
		s.logger.WithField("count", len(objects)).Warn("metadata is inconsistent")
	}
	return objects, nil
}

// DropInconsistentObjects removes every inconsistent object from the
// metadata and reads the report again.
func (s *Service) DropInconsistentObjects(ctx context.Context) error {
	var op errors.Op = "metadataops.Service.DropInconsistentObjects"
	s.store.Dispatch(metadata.DropInconsistentMetadataRequest{})
	if _, err := s.send(ctx, metadataquery.DropInconsistent()); err != nil {
		s.store.Dispatch(metadata.DropInconsistentMetadataError{Err: err})
		s.notifier.Error("Dropping inconsistent metadata failed", "", err)
		return errors.E(op, err)
	}
	s.store.Dispatch(metadata.DropInconsistentMetadataSuccess{})
	s.notifier.Success("Dropped inconsistent metadata", "")
	if _, err := s.LoadInconsistentObjects(ctx, LoadOptions{}); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// Diff writes the difference between the current and a new metadata
// document, either given as JSON or YAML.
func Diff(current, next []byte, w io.Writer, disableColor bool) (int, error) {
	var op errors.Op = "metadataops.Diff"
	from, err := ParseMetadataFile(current)
	if err != nil {
		return -1, errors.E(op, err)
	}
	to, err := ParseMetadataFile(next)
	if err != nil {
		return -1, errors.E(op, err)
	}
	n, err := diff.Snapshots(from, to, w, disableColor)
	if err != nil {
		return -1, errors.E(op, err)
	}
	return n, nil
}
