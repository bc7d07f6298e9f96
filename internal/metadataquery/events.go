package metadataquery

import (
	"github.com/hasura/graphql-engine/console/internal/datasource"
	"github.com/hasura/graphql-engine/console/internal/hasura"
	"github.com/hasura/graphql-engine/console/internal/metadata"
)

// EventTriggerArgs are the arguments of create_event_trigger.
type EventTriggerArgs struct {
	Name           string                    `json:"name"`
	Source         string                    `json:"source,omitempty"`
	Table          datasource.QualifiedTable `json:"table"`
	Webhook        string                    `json:"webhook,omitempty"`
	WebhookFromEnv string                    `json:"webhook_from_env,omitempty"`
	Insert         *metadata.OperationSpec   `json:"insert,omitempty"`
	Update         *metadata.OperationSpec   `json:"update,omitempty"`
	Delete         *metadata.OperationSpec   `json:"delete,omitempty"`
	EnableManual   bool                      `json:"enable_manual"`
	RetryConf      metadata.RetryConf        `json:"retry_conf"`
	Headers        []metadata.Header         `json:"headers"`
	Replace        bool                      `json:"replace"`
}

func CreateEventTrigger(kind datasource.Kind, args EventTriggerArgs) hasura.RequestBody {
	if args.Headers == nil {
		args.Headers = []metadata.Header{}
	}
	return hasura.RequestBody{Type: sourceType(kind, "create_event_trigger"), Args: args}
}

func DeleteEventTrigger(kind datasource.Kind, name, source string) hasura.RequestBody {
	args := map[string]string{"name": name}
	if source != "" {
		args["source"] = source
	}
	return hasura.RequestBody{Type: sourceType(kind, "delete_event_trigger"), Args: args}
}

// ScheduledEventType selects which scheduled events get_scheduled_events
// lists.
type ScheduledEventType string

const (
	ScheduledOneOff ScheduledEventType = "one_off"
	ScheduledCron   ScheduledEventType = "cron"
)

// ScheduledEvents lists events of the given type. triggerName only
// applies to cron events.
func ScheduledEvents(t ScheduledEventType, triggerName string) hasura.RequestBody {
	args := map[string]interface{}{"type": t}
	if t == ScheduledCron && triggerName != "" {
		args["trigger_name"] = triggerName
	}
	return hasura.RequestBody{Type: "get_scheduled_events", Args: args}
}

func CronTriggers() hasura.RequestBody {
	return hasura.RequestBody{Type: "get_cron_triggers", Args: empty()}
}

// EventInvocations reads the delivery attempts of one scheduled event.
func EventInvocations(t ScheduledEventType, eventID string) hasura.RequestBody {
	return hasura.RequestBody{
		Type: "get_event_invocations",
		Args: map[string]interface{}{"type": t, "event_id": eventID},
	}
}
