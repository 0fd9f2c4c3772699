package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/asaidimu/go-anansi-neo4j/core/query"
	"github.com/asaidimu/go-anansi-neo4j/core/schema"
)

// OperationOptions holds the inputs shared by compile and exec.
type OperationOptions struct {
	*RootOptions
	Label  string
	Filter string
	Data   string
	From   string
}

func (o *OperationOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.Label, "label", "l", "", "entity label (the source label for relationship operations)")
	cmd.Flags().StringVarP(&o.Filter, "filter", "f", "", "filter as a JSON object")
	cmd.Flags().StringVarP(&o.Data, "data", "d", "", "entity values as a JSON object (create, update, save)")
	cmd.Flags().StringVar(&o.From, "from", "", "source entity values as a JSON object (relationship operations)")
}

// compileOperations maps an operation name to the compiler call producing its
// statement.
var compileOperations = map[string]func(sc *query.StatementCompiler, in operationInput) (query.Statement, error){
	"create": func(sc *query.StatementCompiler, in operationInput) (query.Statement, error) {
		return sc.CompileCreate(in.record())
	},
	"update": func(sc *query.StatementCompiler, in operationInput) (query.Statement, error) {
		return sc.CompileUpdate(in.record())
	},
	"load": func(sc *query.StatementCompiler, in operationInput) (query.Statement, error) {
		return sc.CompileLoad(in.label, in.filter)
	},
	"list": func(sc *query.StatementCompiler, in operationInput) (query.Statement, error) {
		return sc.CompileList(in.label, in.filter)
	},
	"remove": func(sc *query.StatementCompiler, in operationInput) (query.Statement, error) {
		return sc.CompileRemove(in.label, in.filter)
	},
	"create-relationship": func(sc *query.StatementCompiler, in operationInput) (query.Statement, error) {
		return sc.CompileCreateRelationship(in.source(), in.filter)
	},
	"traverse-relationship": func(sc *query.StatementCompiler, in operationInput) (query.Statement, error) {
		return sc.CompileTraverseRelationship(in.source(), in.filter)
	},
	"load-relationship": func(sc *query.StatementCompiler, in operationInput) (query.Statement, error) {
		return sc.CompileLoadRelationship(in.source(), in.filter)
	},
	"update-relationship": func(sc *query.StatementCompiler, in operationInput) (query.Statement, error) {
		return sc.CompileUpdateRelationship(in.source(), in.filter)
	},
	"remove-relationship": func(sc *query.StatementCompiler, in operationInput) (query.Statement, error) {
		return sc.CompileRemoveRelationship(in.source(), in.filter)
	},
}

type operationInput struct {
	label  string
	filter query.Filter
	data   map[string]any
	from   map[string]any
}

func (in operationInput) record() *schema.Record {
	return schema.NewRecord(in.label, in.data)
}

func (in operationInput) source() *schema.Record {
	return schema.NewRecord(in.label, in.from)
}

func (o *OperationOptions) input() (operationInput, error) {
	filter, err := parseFilter(o.Filter)
	if err != nil {
		return operationInput{}, err
	}
	data, err := parseObject("data", o.Data)
	if err != nil {
		return operationInput{}, err
	}
	from, err := parseObject("from", o.From)
	if err != nil {
		return operationInput{}, err
	}
	return operationInput{label: o.Label, filter: filter, data: data, from: from}, nil
}

func operationNames[V any](ops map[string]V) string {
	names := make([]string, 0, len(ops))
	for name := range ops {
		names = append(names, name)
	}
	slices.Sort(names)
	return strings.Join(names, ", ")
}

// compiledStatement is what compile prints.
type compiledStatement struct {
	Statement  string         `json:"statement"`
	Parameters map[string]any `json:"parameters"`
	Shape      query.Shape    `json:"shape"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OperationOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <operation>",
		Short: "Print the Cypher statement and parameters for an operation",
		Long: "Compile an operation into a parameterized Cypher statement without contacting a server.\n\n" +
			"Operations: " + operationNames(compileOperations),
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}
	opts.bind(cmd)
	return cmd
}

func runCompile(opts *OperationOptions, op string, cmd *cobra.Command) error {
	compile, ok := compileOperations[op]
	if !ok {
		return fmt.Errorf("unknown operation %q: must be one of %s", op, operationNames(compileOperations))
	}
	cfg, err := opts.config()
	if err != nil {
		return err
	}
	in, err := opts.input()
	if err != nil {
		return err
	}

	logger := opts.logger()
	defer func() { _ = logger.Sync() }()

	stmt, err := compile(cfg.Compiler(logger), in)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), compiledStatement{
		Statement:  stmt.Text,
		Parameters: stmt.Parameters,
		Shape:      stmt.Shape,
	})
}
