package eventtriggers

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/hasura/graphql-engine/console/internal/datasource"
	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura"
	"github.com/hasura/graphql-engine/console/internal/metadata"
	"github.com/hasura/graphql-engine/console/internal/metadataquery"
	"github.com/hasura/graphql-engine/console/internal/migration"
)

// Property is the part of a trigger Modify changes.
type Property string

const (
	PropertyWebhook   Property = "webhook"
	PropertyOps       Property = "ops"
	PropertyRetryConf Property = "retry_conf"
	PropertyHeaders   Property = "headers"
)

func ParseProperty(s string) (Property, error) {
	switch p := Property(s); p {
	case PropertyWebhook, PropertyOps, PropertyRetryConf, PropertyHeaders:
		return p, nil
	}
	return "", errors.E("eventtriggers.ParseProperty", errors.KindBadInput, fmt.Sprintf("unknown event trigger property %q", s))
}

var ErrCancelled = errors.E("eventtriggers", errors.KindCancelled, "cancelled by user")

var triggerName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type Runner interface {
	Run(ctx context.Context, m migration.Migration, msgs migration.Messages, cbs migration.Callbacks) (*migration.Result, error)
}

type Service struct {
	runner    Runner
	selectors *metadata.Selectors
	notifier  migration.Notifier
	confirm   func(string) bool
}

func New(runner Runner, selectors *metadata.Selectors, notifier migration.Notifier, confirm func(string) bool) *Service {
	if confirm == nil {
		confirm = func(string) bool { return true }
	}
	return &Service{runner: runner, selectors: selectors, notifier: notifier, confirm: confirm}
}

// kindOf looks up the driver of a source, pre-v3 metadata only has postgres.
func (s *Service) kindOf(source string) datasource.Kind {
	for _, ds := range s.selectors.DataSources() {
		if ds.Name == source {
			return ds.Driver
		}
	}
	return datasource.Postgres
}

var star = json.RawMessage(`"*"`)

func columnsSpec(columns []OperationColumn) *metadata.OperationSpec {
	if len(columns) == 0 {
		return &metadata.OperationSpec{Columns: star}
	}
	names := []string{}
	for _, c := range columns {
		if c.Enabled {
			names = append(names, c.Name)
		}
	}
	if len(names) == len(columns) {
		return &metadata.OperationSpec{Columns: star}
	}
	b, _ := json.Marshal(names)
	return &metadata.OperationSpec{Columns: b}
}

// serverHeaders drops rows without a name, the editor always keeps a blank one.
func serverHeaders(headers []Header) []metadata.Header {
	out := []metadata.Header{}
	for _, h := range headers {
		name := strings.TrimSpace(h.Name)
		if name == "" {
			continue
		}
		if h.Type == ValueEnv {
			out = append(out, metadata.Header{Name: name, ValueFromEnv: h.Value})
			continue
		}
		out = append(out, metadata.Header{Name: name, Value: h.Value})
	}
	return out
}

func withWebhook(args *metadataquery.EventTriggerArgs, w URLConf) {
	args.Webhook, args.WebhookFromEnv = "", ""
	if w.Type == ValueEnv {
		args.WebhookFromEnv = w.Value
		return
	}
	args.Webhook = w.Value
}

func withOperations(args *metadataquery.EventTriggerArgs, ops map[Operation]bool, columns []OperationColumn) {
	args.Insert, args.Update, args.Delete = nil, nil, nil
	if ops[OpInsert] {
		args.Insert = &metadata.OperationSpec{Columns: star}
	}
	if ops[OpUpdate] {
		args.Update = columnsSpec(columns)
	}
	if ops[OpDelete] {
		args.Delete = &metadata.OperationSpec{Columns: star}
	}
	args.EnableManual = ops[OpEnableManual]
}

// currentArgs rebuilds the create_event_trigger arguments of a stored trigger.
func currentArgs(current metadata.SourceEventTrigger) metadataquery.EventTriggerArgs {
	t := current.Trigger
	return metadataquery.EventTriggerArgs{
		Name:           t.Name,
		Source:         current.Source,
		Table:          current.Table,
		Webhook:        t.Webhook,
		WebhookFromEnv: t.WebhookFromEnv,
		Insert:         t.Definition.Insert,
		Update:         t.Definition.Update,
		Delete:         t.Definition.Delete,
		EnableManual:   t.Definition.EnableManual,
		RetryConf:      t.RetryConf,
		Headers:        t.Headers,
	}
}

func stateArgs(state LocalState) metadataquery.EventTriggerArgs {
	args := metadataquery.EventTriggerArgs{
		Name:      strings.TrimSpace(state.Name),
		Source:    state.Source,
		Table:     state.Table,
		RetryConf: state.RetryConf,
		Headers:   serverHeaders(state.Headers),
	}
	withWebhook(&args, state.Webhook)
	withOperations(&args, state.Operations, state.OperationColumns)
	return args
}

func validate(op errors.Op, args metadataquery.EventTriggerArgs) error {
	switch {
	case !triggerName.MatchString(args.Name):
		return errors.E(op, errors.KindBadInput, "trigger name can only contain alphanumeric characters, '_' and '-'")
	case args.Table.Name == "":
		return errors.E(op, errors.KindBadInput, "table is required")
	case args.Webhook == "" && args.WebhookFromEnv == "":
		return errors.E(op, errors.KindBadInput, "webhook is required")
	case args.Insert == nil && args.Update == nil && args.Delete == nil && !args.EnableManual:
		return errors.E(op, errors.KindBadInput, "at least one operation must be selected")
	case args.RetryConf.NumRetries < 0 || args.RetryConf.IntervalSec < 0 || args.RetryConf.TimeoutSec < 0:
		return errors.E(op, errors.KindBadInput, "retry configuration cannot be negative")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, state LocalState, cbs migration.Callbacks) (*migration.Result, error) {
	var op errors.Op = "eventtriggers.Service.Create"
	args := stateArgs(state)
	if err := validate(op, args); err != nil {
		s.notifier.Error("Creating trigger failed", "", err)
		return nil, err
	}
	kind := s.kindOf(args.Source)
	return s.runner.Run(ctx, migration.Migration{
		Name:   "create_trigger_" + args.Name,
		Source: args.Source,
		Up:     []hasura.RequestBody{metadataquery.CreateEventTrigger(kind, args)},
		Down:   []hasura.RequestBody{metadataquery.DeleteEventTrigger(kind, args.Name, args.Source)},
	}, migration.Messages{
		Request: "Creating trigger...",
		Success: "Trigger created successfully",
		Error:   "Creating trigger failed",
	}, cbs)
}

// Modify replaces current with property taken from state, everything else
// stays as stored. The down step replaces it back.
func (s *Service) Modify(ctx context.Context, property Property, state LocalState, current metadata.SourceEventTrigger, cbs migration.Callbacks) (*migration.Result, error) {
	var op errors.Op = "eventtriggers.Service.Modify"
	down := currentArgs(current)
	down.Replace = true
	up := down
	switch property {
	case PropertyWebhook:
		withWebhook(&up, state.Webhook)
	case PropertyOps:
		withOperations(&up, state.Operations, state.OperationColumns)
	case PropertyRetryConf:
		up.RetryConf = state.RetryConf
	case PropertyHeaders:
		up.Headers = serverHeaders(state.Headers)
	default:
		_, err := ParseProperty(string(property))
		s.notifier.Error("Saving failed", "", err)
		return nil, errors.E(op, err)
	}
	if err := validate(op, up); err != nil {
		s.notifier.Error("Saving failed", "", err)
		return nil, err
	}
	kind := s.kindOf(current.Source)
	return s.runner.Run(ctx, migration.Migration{
		Name:   fmt.Sprintf("modify_tr_%s_%s", current.Trigger.Name, property),
		Source: current.Source,
		Up:     []hasura.RequestBody{metadataquery.CreateEventTrigger(kind, up)},
		Down:   []hasura.RequestBody{metadataquery.CreateEventTrigger(kind, down)},
	}, migration.Messages{
		Request: "Saving...",
		Success: "Saved!",
		Error:   "Saving failed",
	}, cbs)
}

func (s *Service) Delete(ctx context.Context, current metadata.SourceEventTrigger, cbs migration.Callbacks) (*migration.Result, error) {
	if !s.confirm(fmt.Sprintf("This will permanently delete the event trigger %q", current.Trigger.Name)) {
		return nil, ErrCancelled
	}
	kind := s.kindOf(current.Source)
	return s.runner.Run(ctx, migration.Migration{
		Name:   "delete_trigger_" + current.Trigger.Name,
		Source: current.Source,
		Up:     []hasura.RequestBody{metadataquery.DeleteEventTrigger(kind, current.Trigger.Name, current.Source)},
		Down:   []hasura.RequestBody{metadataquery.CreateEventTrigger(kind, currentArgs(current))},
	}, migration.Messages{
		Request: "Deleting trigger...",
		Success: "Trigger deleted successfully",
		Error:   "Deleting trigger failed",
	}, cbs)
}
