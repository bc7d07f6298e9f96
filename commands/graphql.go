package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/hasura/graphql-engine/console"
	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/explorer"
)

func NewGraphQLCmd(ec *console.ExecutionContext) *cobra.Command {
	var role string
	graphqlCmd := &cobra.Command{
		Use:          "graphql",
		Aliases:      []string{"gql"},
		Short:        "Explore the GraphQL API of the engine",
		SilenceUsage: true,
	}
	graphqlCmd.PersistentFlags().StringVar(&role, "role", "", "explore the API as this role (default: admin)")
	graphqlCmd.AddCommand(
		newGraphQLTypesCmd(ec, &role),
		newGraphQLTypeCmd(ec, &role),
		newGraphQLQueryCmd(ec, &role),
	)
	return graphqlCmd
}

func newGraphQLTypesCmd(ec *console.ExecutionContext, role *string) *cobra.Command {
	var builtin bool
	var output string
	cmd := &cobra.Command{
		Use:   "types",
		Short: "List the types of the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			var op errors.Op = "commands.graphqlTypes"
			ec.Spin("Introspecting the API...")
			types, err := ec.Services.Explorer.Types(cmd.Context(), *role, builtin)
			ec.Spinner.Stop()
			if err != nil {
				return errors.E(op, err)
			}
			if output != "" {
				return writeOutput(ec.Stdout, output, types)
			}
			w := newTableWriter(ec.Stdout)
			w.SetHeader([]string{"NAME", "KIND", "FIELDS", "ROOT"})
			for _, t := range types {
				w.Append([]string{t.Name, t.Kind, fmt.Sprint(t.Fields), t.Root})
			}
			w.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&builtin, "builtin", false, "include the introspection types")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output format (allowed values: json, yaml)")
	return cmd
}

func newGraphQLTypeCmd(ec *console.ExecutionContext, role *string) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "type <name>",
		Short: "Show the fields of a type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var op errors.Op = "commands.graphqlType"
			ec.Spin("Introspecting the API...")
			t, err := ec.Services.Explorer.Describe(cmd.Context(), *role, args[0])
			ec.Spinner.Stop()
			if err != nil {
				return errors.E(op, err)
			}
			if output != "" {
				return writeOutput(ec.Stdout, output, t)
			}
			w := newTableWriter(ec.Stdout)
			w.SetHeader([]string{"FIELD", "TYPE", "ARGUMENTS", "DESCRIPTION"})
			for _, f := range t.Fields {
				args := make([]string, 0, len(f.Args))
				for _, a := range f.Args {
					args = append(args, a.Name+": "+a.Type.String())
				}
				w.Append([]string{f.Name, f.Type.String(), strings.Join(args, ", "), f.Description})
			}
			for _, f := range t.InputFields {
				w.Append([]string{f.Name, f.Type.String(), "", f.Description})
			}
			for _, v := range t.EnumValues {
				w.Append([]string{v.Name, t.Name, "", v.Description})
			}
			w.Render()
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output format (allowed values: json, yaml)")
	return cmd
}

type graphqlQueryOptions struct {
	EC   *console.ExecutionContext
	role *string

	query          string
	file           string
	variables      string
	operation      string
	allowMutations bool
}

func newGraphQLQueryCmd(ec *console.ExecutionContext, role *string) *cobra.Command {
	opts := &graphqlQueryOptions{EC: ec, role: role}
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a GraphQL query and print its data",
		Example: `  # Run a query as the user role
  hge-console graphql query --role user --query 'query { orders { id status } }'

  # Run a named operation from a file with variables
  hge-console graphql query -f orders.graphql --operation recent --variables '{"limit": 5}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.query, "query", "q", "", "GraphQL document")
	f.StringVarP(&opts.file, "file", "f", "", "file holding the GraphQL document")
	f.StringVar(&opts.variables, "variables", "", "variables as a JSON object")
	f.StringVar(&opts.operation, "operation", "", "operation of the document to run")
	f.BoolVar(&opts.allowMutations, "allow-mutations", false, "run mutations too")
	return cmd
}

func (o *graphqlQueryOptions) run(cmd *cobra.Command) error {
	var op errors.Op = "commands.graphqlQueryOptions.run"
	document := o.query
	switch {
	case o.query != "" && o.file != "":
		return errors.E(op, errors.KindBadInput, "use either --query or --file")
	case o.file != "":
		b, err := afero.ReadFile(o.EC.Fs, o.file)
		if err != nil {
			return errors.E(op, errors.KindBadInput, fmt.Errorf("reading %s: %w", o.file, err))
		}
		document = string(b)
	case o.query == "":
		return errors.E(op, errors.KindBadInput, "a document is required, pass --query or --file")
	}
	var variables map[string]interface{}
	if o.variables != "" {
		if err := json.Unmarshal([]byte(o.variables), &variables); err != nil {
			return errors.E(op, errors.KindBadInput, fmt.Errorf("--variables is not a JSON object: %w", err))
		}
	}

	o.EC.Spin("Running query...")
	resp, err := o.EC.Services.Explorer.Run(cmd.Context(), document, explorer.RunOptions{
		Variables:      variables,
		OperationName:  o.operation,
		Role:           *o.role,
		AllowMutations: o.allowMutations,
	})
	o.EC.Spinner.Stop()
	if resp != nil && len(resp.Data) > 0 && string(resp.Data) != "null" {
		if werr := writeOutput(o.EC.Stdout, outputJSON, resp.Data); werr != nil {
			return errors.E(op, werr)
		}
	}
	if err != nil {
		return errors.E(op, err)
	}
	return nil
}
