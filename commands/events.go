package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hasura/graphql-engine/console"
	"github.com/hasura/graphql-engine/console/internal/datasource"
	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/filterquery"
)

func NewEventsCmd(ec *console.ExecutionContext) *cobra.Command {
	eventsCmd := &cobra.Command{
		Use:          "events",
		Short:        "Inspect scheduled and cron events",
		SilenceUsage: true,
	}
	eventsCmd.AddCommand(newEventsListCmd(ec))
	return eventsCmd
}

type eventsListOptions struct {
	EC *console.ExecutionContext

	triggerType string
	trigger     string
	op          string
	limit       int
	offset      int
	output      string
}

func newEventsListCmd(ec *console.ExecutionContext) *cobra.Command {
	opts := &eventsListOptions{EC: ec}
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the events of one off scheduled triggers or of a cron trigger",
		Example: `  # Pending one off events
  hge-console events list --type one_off --op pending

  # Delivered events of the "nightly" cron trigger
  hge-console events list --type cron --trigger nightly --op processed`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.triggerType, "type", string(filterquery.TriggerOneOff), "event type (one_off, cron)")
	f.StringVar(&opts.trigger, "trigger", "", "name of the cron trigger")
	f.StringVar(&opts.op, "op", "", "only pending or processed events")
	f.IntVar(&opts.limit, "limit", filterquery.DefaultLimit, "number of events to show")
	f.IntVar(&opts.offset, "offset", filterquery.DefaultOffset, "number of events to skip")
	f.StringVarP(&opts.output, "output", "o", "", "output format (allowed values: json, yaml)")
	return cmd
}

// eventTables are the catalog tables the engine keeps the events in.
var eventTables = map[filterquery.TriggerType]string{
	filterquery.TriggerOneOff: "hdb_scheduled_events",
	filterquery.TriggerCron:   "hdb_cron_events",
}

func (o *eventsListOptions) run(cmd *cobra.Command) error {
	var op errors.Op = "commands.eventsListOptions.run"
	triggerType := filterquery.TriggerType(o.triggerType)
	table, ok := eventTables[triggerType]
	if !ok {
		return errors.E(op, errors.KindBadInput, fmt.Sprintf("unknown event type %q, expected one_off or cron", o.triggerType))
	}
	if triggerType == filterquery.TriggerCron && o.trigger == "" {
		return errors.E(op, errors.KindBadInput, "--trigger is required for cron events")
	}
	triggerOp := filterquery.TriggerOp(o.op)
	switch triggerOp {
	case "", filterquery.OpPending, filterquery.OpProcessed:
	default:
		return errors.E(op, errors.KindBadInput, fmt.Sprintf("unknown --op %q, expected pending or processed", o.op))
	}
	if o.limit < 0 || o.offset < 0 {
		return errors.E(op, errors.KindBadInput, "--limit and --offset cannot be negative")
	}

	q := filterquery.New(o.EC.APIClient.V1Metadata, datasource.QualifiedTable{Schema: "hdb_catalog", Name: table})
	q.TriggerType = triggerType
	q.TriggerName = o.trigger
	q.TriggerOp = triggerOp
	o.EC.Spin("Fetching events...")
	_, err := q.Run(cmd.Context(), filterquery.RunOptions{Limit: &o.limit, Offset: &o.offset})
	o.EC.Spinner.Stop()
	if err != nil {
		return errors.E(op, err)
	}

	page := q.Page()
	if o.output != "" {
		return writeOutput(o.EC.Stdout, o.output, page)
	}
	w := newTableWriter(o.EC.Stdout)
	w.SetHeader([]string{"ID", "SCHEDULED AT", "STATUS", "TRIES"})
	for _, e := range page {
		w.Append([]string{field(e, "id"), field(e, "scheduled_time"), field(e, "status"), field(e, "tries")})
	}
	w.Render()
	o.EC.Logger.Debugf("showing %d of %d events", len(page), q.Count())
	return nil
}

func field(row map[string]interface{}, key string) string {
	v, ok := row[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
