package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hasura/graphql-engine/console"
	"github.com/hasura/graphql-engine/console/internal/allowlist"
	"github.com/hasura/graphql-engine/console/internal/errors"
)

func NewAllowListCmd(ec *console.ExecutionContext) *cobra.Command {
	allowListCmd := &cobra.Command{
		Use:          "allowlist",
		Aliases:      []string{"allow-list"},
		Short:        "Manage the queries the GraphQL engine allows",
		SilenceUsage: true,
	}
	allowListCmd.AddCommand(
		newAllowListListCmd(ec),
		newAllowListAddCmd(ec),
		newAllowListUpdateCmd(ec),
		newAllowListDeleteCmd(ec),
		newAllowListClearCmd(ec),
	)
	return allowListCmd
}

func newAllowListListCmd(ec *console.ExecutionContext) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the allowed queries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadMetadata(cmd.Context(), ec); err != nil {
				return errors.E("commands.allowListList", err)
			}
			queries := ec.Services.AllowList.Queries()
			if output != "" {
				return writeOutput(ec.Stdout, output, queries)
			}
			for _, q := range queries {
				fmt.Fprintf(ec.Stdout, "# %s\n%s\n\n", q.Name, q.Query)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output format (allowed values: json, yaml)")
	return cmd
}

func newAllowListAddCmd(ec *console.ExecutionContext) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add every named operation of a GraphQL document to the allow list",
		RunE: func(cmd *cobra.Command, args []string) error {
			var op errors.Op = "commands.allowListAdd"
			b, err := readInput(ec, file, os.Stdin)
			if err != nil {
				return errors.E(op, errors.KindBadInput, err)
			}
			queries, err := allowlist.ParseQueries(string(b))
			if err != nil {
				return errors.E(op, err)
			}
			if _, err := loadMetadata(cmd.Context(), ec); err != nil {
				return errors.E(op, err)
			}
			isEmptyList := len(ec.Services.AllowList.Queries()) == 0
			if err := ec.Services.AllowList.Add(cmd.Context(), queries, isEmptyList); err != nil {
				return errors.E(op, err)
			}
			ec.Logger.WithField("count", len(queries)).Info("queries added to the allow list")
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "GraphQL document with named operations, - reads stdin")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newAllowListUpdateCmd(ec *console.ExecutionContext) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "update <name>",
		Short: "Replace an allowed query with the single operation of a GraphQL document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var op errors.Op = "commands.allowListUpdate"
			b, err := readInput(ec, file, os.Stdin)
			if err != nil {
				return errors.E(op, errors.KindBadInput, err)
			}
			queries, err := allowlist.ParseQueries(string(b))
			if err != nil {
				return errors.E(op, err)
			}
			if len(queries) != 1 {
				return errors.E(op, errors.KindBadInput, fmt.Sprintf("expected one operation, found %d", len(queries)))
			}
			if err := ec.Services.AllowList.Update(cmd.Context(), args[0], queries[0]); err != nil {
				return errors.E(op, err)
			}
			ec.Logger.WithField("name", queries[0].Name).Info("allowed query updated")
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "GraphQL document with the new operation, - reads stdin")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newAllowListDeleteCmd(ec *console.ExecutionContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Remove a query from the allow list",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var op errors.Op = "commands.allowListDelete"
			if _, err := loadMetadata(cmd.Context(), ec); err != nil {
				return errors.E(op, err)
			}
			queries := ec.Services.AllowList.Queries()
			found := false
			for _, q := range queries {
				if q.Name == args[0] {
					found = true
					break
				}
			}
			if !found {
				return errors.E(op, errors.KindBadInput, fmt.Sprintf("query %q is not in the allow list", args[0]))
			}
			if err := ec.Services.AllowList.Delete(cmd.Context(), args[0], len(queries) == 1); err != nil {
				return errors.E(op, err)
			}
			ec.Logger.WithField("name", args[0]).Info("query removed from the allow list")
			return nil
		},
	}
}

func newAllowListClearCmd(ec *console.ExecutionContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every query from the allow list",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !ec.Confirm("This will remove every query from the allow list. Continue?") {
				ec.Logger.Info("cancelled")
				return nil
			}
			if err := ec.Services.AllowList.DeleteAll(cmd.Context()); err != nil {
				return errors.E("commands.allowListClear", err)
			}
			ec.Logger.Info("allow list cleared")
			return nil
		},
	}
}
