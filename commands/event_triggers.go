package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hasura/graphql-engine/console"
	"github.com/hasura/graphql-engine/console/internal/datasource"
	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/eventtriggers"
	"github.com/hasura/graphql-engine/console/internal/metadata"
)

func NewEventTriggersCmd(ec *console.ExecutionContext) *cobra.Command {
	eventTriggersCmd := &cobra.Command{
		Use:          "event-triggers",
		Aliases:      []string{"event-trigger", "et"},
		Short:        "Manage the event triggers of tracked tables",
		SilenceUsage: true,
	}
	eventTriggersCmd.AddCommand(
		newEventTriggersCreateCmd(ec),
		newEventTriggersUpdateCmd(ec),
		newEventTriggersDeleteCmd(ec),
	)
	return eventTriggersCmd
}

// triggerFlags are the editable parts of an event trigger grouped by the
// property Modify saves them under.
type triggerFlags struct {
	webhook        string
	webhookFromEnv string

	insert  bool
	update  bool
	delete  bool
	manual  bool
	columns []string

	numRetries  int
	intervalSec int
	timeoutSec  int

	headers    []string
	envHeaders []string
}

func (t *triggerFlags) register(f *pflag.FlagSet) {
	defaults := eventtriggers.NewLocalState().RetryConf
	f.StringVar(&t.webhook, "webhook", "", "url events are delivered to")
	f.StringVar(&t.webhookFromEnv, "webhook-from-env", "", "environment variable holding the webhook url on the engine")
	f.BoolVar(&t.insert, "insert", false, "fire on insert")
	f.BoolVar(&t.update, "update", false, "fire on update")
	f.BoolVar(&t.delete, "delete", false, "fire on delete")
	f.BoolVar(&t.manual, "manual", false, "allow invoking the trigger manually")
	f.StringSliceVar(&t.columns, "columns", nil, "columns an update has to touch to fire (default: all)")
	f.IntVar(&t.numRetries, "retries", defaults.NumRetries, "number of retries of a failed delivery")
	f.IntVar(&t.intervalSec, "retry-interval", defaults.IntervalSec, "seconds between retries")
	f.IntVar(&t.timeoutSec, "timeout", defaults.TimeoutSec, "seconds to wait for the webhook")
	f.StringArrayVar(&t.headers, "header", nil, "header sent with every event as name:value (repeatable)")
	f.StringArrayVar(&t.envHeaders, "header-from-env", nil, "header sent with every event as name:ENV_VAR (repeatable)")
}

func (t *triggerFlags) changed(f *pflag.FlagSet, property eventtriggers.Property) bool {
	names := map[eventtriggers.Property][]string{
		eventtriggers.PropertyWebhook:   {"webhook", "webhook-from-env"},
		eventtriggers.PropertyOps:       {"insert", "update", "delete", "manual", "columns"},
		eventtriggers.PropertyRetryConf: {"retries", "retry-interval", "timeout"},
		eventtriggers.PropertyHeaders:   {"header", "header-from-env"},
	}[property]
	for _, name := range names {
		if f.Changed(name) {
			return true
		}
	}
	return false
}

// apply writes the flags of property into state. table lists the columns
// of the trigger's table, it may be nil when no columns are selected.
func (t *triggerFlags) apply(f *pflag.FlagSet, property eventtriggers.Property, state *eventtriggers.LocalState, table *datasource.Table) error {
	var op errors.Op = "commands.triggerFlags.apply"
	switch property {
	case eventtriggers.PropertyWebhook:
		if t.webhook != "" && t.webhookFromEnv != "" {
			return errors.E(op, errors.KindBadInput, "--webhook and --webhook-from-env cannot be used together")
		}
		if t.webhookFromEnv != "" {
			state.SetWebhook(eventtriggers.URLConf{Type: eventtriggers.ValueEnv, Value: t.webhookFromEnv})
		} else {
			state.SetWebhook(eventtriggers.URLConf{Type: eventtriggers.ValueStatic, Value: t.webhook})
		}
	case eventtriggers.PropertyOps:
		ops := map[eventtriggers.Operation]bool{}
		for k, v := range state.Operations {
			ops[k] = v
		}
		for flag, operation := range map[string]eventtriggers.Operation{
			"insert": eventtriggers.OpInsert,
			"update": eventtriggers.OpUpdate,
			"delete": eventtriggers.OpDelete,
			"manual": eventtriggers.OpEnableManual,
		} {
			if f.Changed(flag) {
				v, _ := f.GetBool(flag)
				ops[operation] = v
			}
		}
		state.SetOperations(ops)
		if f.Changed("columns") {
			if table == nil {
				return errors.E(op, errors.KindBadInput, "cannot select update columns without the table's columns")
			}
			columns, err := selectColumns(table, t.columns)
			if err != nil {
				return errors.E(op, err)
			}
			state.SetOperationColumns(columns)
		}
	case eventtriggers.PropertyRetryConf:
		retry := state.RetryConf
		if f.Changed("retries") {
			retry.NumRetries = t.numRetries
		}
		if f.Changed("retry-interval") {
			retry.IntervalSec = t.intervalSec
		}
		if f.Changed("timeout") {
			retry.TimeoutSec = t.timeoutSec
		}
		state.SetRetryConf(retry)
	case eventtriggers.PropertyHeaders:
		headers := []eventtriggers.Header{}
		for _, list := range []struct {
			values []string
			typ    eventtriggers.ValueType
		}{{t.headers, eventtriggers.ValueStatic}, {t.envHeaders, eventtriggers.ValueEnv}} {
			for _, h := range list.values {
				name, value, err := splitHeader(h)
				if err != nil {
					return errors.E(op, err)
				}
				headers = append(headers, eventtriggers.Header{Name: name, Type: list.typ, Value: value})
			}
		}
		state.SetHeaders(headers)
	}
	return nil
}

// selectColumns enables the named columns of table.
func selectColumns(table *datasource.Table, names []string) ([]eventtriggers.OperationColumn, error) {
	var op errors.Op = "commands.selectColumns"
	want := map[string]bool{}
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			want[n] = true
		}
	}
	columns := make([]eventtriggers.OperationColumn, 0, len(table.Columns))
	for _, c := range table.Columns {
		columns = append(columns, eventtriggers.OperationColumn{Name: c.ColumnName, Type: c.DataType, Enabled: want[c.ColumnName]})
		delete(want, c.ColumnName)
	}
	for n := range want {
		return nil, errors.E(op, errors.KindBadInput, fmt.Sprintf("table %s.%s has no column %q", table.TableSchema, table.TableName, n))
	}
	return columns, nil
}

var triggerProperties = []eventtriggers.Property{
	eventtriggers.PropertyWebhook,
	eventtriggers.PropertyOps,
	eventtriggers.PropertyRetryConf,
	eventtriggers.PropertyHeaders,
}

func newEventTriggersCreateCmd(ec *console.ExecutionContext) *cobra.Command {
	var (
		source string
		table  string
	)
	flags := &triggerFlags{}
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an event trigger on a table",
		Example: `  # Deliver inserts into public.orders to a webhook:
  hge-console event-triggers create order_placed --table public.orders --insert --webhook https://hooks.example.com/orders

  # Fire only when the status column is updated:
  hge-console event-triggers create order_status --table orders --update --columns status --webhook-from-env ORDERS_HOOK`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var op errors.Op = "commands.eventTriggersCreate"
			qt, err := parseQualifiedTable(table)
			if err != nil {
				return errors.E(op, err)
			}
			if _, err := loadMetadata(cmd.Context(), ec); err != nil {
				return errors.E(op, err)
			}
			state := eventtriggers.NewLocalState()
			state.SetName(args[0])
			if source != "" {
				state.SetSource(source)
			} else if cur := ec.Services.Selectors.CurrentSource(); cur != nil {
				state.SetSource(cur.Name)
			}
			state.SetTable("", qt.Schema)
			state.SetTable(qt.Name, "")

			var tableInfo *datasource.Table
			if cmd.Flags().Changed("columns") {
				if tableInfo, err = ec.Services.RawSQL.FetchTable(cmd.Context(), state.Source, qt); err != nil {
					return errors.E(op, err)
				}
			}
			for _, property := range triggerProperties {
				if err := flags.apply(cmd.Flags(), property, &state, tableInfo); err != nil {
					return errors.E(op, err)
				}
			}
			ec.Spin("Creating trigger...")
			res, err := ec.Services.EventTriggers.Create(cmd.Context(), state, noCallbacks)
			ec.Spinner.Stop()
			if err != nil {
				return errors.E(op, err)
			}
			reportMigration(ec, res)
			ec.Logger.WithField("name", state.Name).Info("event trigger created")
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&source, "source", "", "source of the table (default: the last used source)")
	f.StringVar(&table, "table", "", "table to watch, as schema.table")
	flags.register(f)
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

// currentTrigger loads metadata and finds the trigger called name.
func currentTrigger(ec *console.ExecutionContext, cmd *cobra.Command, name string) (*metadata.SourceEventTrigger, error) {
	var op errors.Op = "commands.currentTrigger"
	md, err := loadMetadata(cmd.Context(), ec)
	if err != nil {
		return nil, errors.E(op, err)
	}
	current, ok := eventtriggers.ResolveTable(name, md)
	if !ok {
		return nil, errors.E(op, errors.KindBadInput, fmt.Sprintf("event trigger %q not found", name))
	}
	return current, nil
}

func newEventTriggersUpdateCmd(ec *console.ExecutionContext) *cobra.Command {
	flags := &triggerFlags{}
	cmd := &cobra.Command{
		Use:   "update <name>",
		Short: "Update an event trigger, flags not given keep their current values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var op errors.Op = "commands.eventTriggersUpdate"
			name := args[0]
			properties := []eventtriggers.Property{}
			for _, p := range triggerProperties {
				if flags.changed(cmd.Flags(), p) {
					properties = append(properties, p)
				}
			}
			if len(properties) == 0 {
				return errors.E(op, errors.KindBadInput, "nothing to update, pass at least one trigger flag")
			}
			current, err := currentTrigger(ec, cmd, name)
			if err != nil {
				return errors.E(op, err)
			}
			table, err := ec.Services.RawSQL.FetchTable(cmd.Context(), current.Source, current.Table)
			if err != nil {
				ec.Logger.WithError(err).Warn("reading the trigger's table failed, operations cannot be changed")
				table = nil
			}
			for _, property := range properties {
				if property == eventtriggers.PropertyOps && table == nil {
					return errors.E(op, errors.KindBadInput, "cannot change operations without the table's columns")
				}
				state := eventtriggers.ParseServerDefinition(current, table)
				if err := flags.apply(cmd.Flags(), property, &state, table); err != nil {
					return errors.E(op, err)
				}
				ec.Spin(fmt.Sprintf("Saving %s...", property))
				res, err := ec.Services.EventTriggers.Modify(cmd.Context(), property, state, *current, noCallbacks)
				ec.Spinner.Stop()
				if err != nil {
					return errors.E(op, err)
				}
				reportMigration(ec, res)
				// every save exports metadata again
				next, ok := eventtriggers.ResolveTable(name, ec.Services.Store.State().Metadata)
				if !ok {
					return errors.E(op, errors.KindHasuraAPI, fmt.Sprintf("event trigger %q disappeared after saving %s", name, property))
				}
				current = next
			}
			ec.Logger.WithField("name", name).Info("event trigger updated")
			return nil
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func newEventTriggersDeleteCmd(ec *console.ExecutionContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Delete an event trigger",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var op errors.Op = "commands.eventTriggersDelete"
			current, err := currentTrigger(ec, cmd, args[0])
			if err != nil {
				return errors.E(op, err)
			}
			res, err := ec.Services.EventTriggers.Delete(cmd.Context(), *current, noCallbacks)
			if err != nil {
				return cancelled(ec, errors.E(op, err))
			}
			reportMigration(ec, res)
			ec.Logger.WithField("name", args[0]).Info("event trigger deleted")
			return nil
		},
	}
}
