package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/asaidimu/go-anansi-neo4j/core/persistence"
	"github.com/asaidimu/go-anansi-neo4j/core/schema"
	"github.com/asaidimu/go-anansi-neo4j/neo4j"
)

// execOperations maps an operation name to the store call running it. Each
// returns the value printed as JSON.
var execOperations = map[string]func(ctx context.Context, s *persistence.Store, in operationInput) (any, error){
	"save": func(ctx context.Context, s *persistence.Store, in operationInput) (any, error) {
		r, err := s.Save(ctx, in.record())
		if err != nil {
			return nil, err
		}
		return r.Data, nil
	},
	"load": func(ctx context.Context, s *persistence.Store, in operationInput) (any, error) {
		r, err := s.Load(ctx, in.label, in.filter)
		if err != nil || r == nil {
			return nil, err
		}
		return r.Data, nil
	},
	"list": func(ctx context.Context, s *persistence.Store, in operationInput) (any, error) {
		records, err := s.List(ctx, in.label, in.filter)
		return documents(records), err
	},
	"count": func(ctx context.Context, s *persistence.Store, in operationInput) (any, error) {
		return s.Count(ctx, in.label, in.filter)
	},
	"exists": func(ctx context.Context, s *persistence.Store, in operationInput) (any, error) {
		return s.Exists(ctx, in.label, in.filter)
	},
	"remove": func(ctx context.Context, s *persistence.Store, in operationInput) (any, error) {
		r, err := s.Remove(ctx, in.label, in.filter)
		if err != nil || r == nil {
			return nil, err
		}
		return r.Data, nil
	},
	"save-relationship": func(ctx context.Context, s *persistence.Store, in operationInput) (any, error) {
		return s.SaveRelationship(ctx, in.source(), in.filter)
	},
	"load-relationship": func(ctx context.Context, s *persistence.Store, in operationInput) (any, error) {
		r, err := s.LoadRelationship(ctx, in.source(), in.filter)
		if err != nil || r == nil {
			return nil, err
		}
		return r.Data, nil
	},
	"list-relationships": func(ctx context.Context, s *persistence.Store, in operationInput) (any, error) {
		records, err := s.ListRelationships(ctx, in.source(), in.filter)
		return documents(records), err
	},
	"count-relationships": func(ctx context.Context, s *persistence.Store, in operationInput) (any, error) {
		return s.CountRelationships(ctx, in.source(), in.filter)
	},
	"update-relationship": func(ctx context.Context, s *persistence.Store, in operationInput) (any, error) {
		return s.UpdateRelationship(ctx, in.source(), in.filter)
	},
	"remove-relationship": func(ctx context.Context, s *persistence.Store, in operationInput) (any, error) {
		return nil, s.RemoveRelationship(ctx, in.source(), in.filter)
	},
}

func documents(records []*schema.Record) []schema.Document {
	docs := make([]schema.Document, len(records))
	for i, r := range records {
		docs[i] = r.Data
	}
	return docs
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OperationOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exec <operation>",
		Short: "Run a store operation against the configured server",
		Long: "Compile an operation, execute it and print the decoded result as JSON.\n\n" +
			"Operations: " + operationNames(execOperations),
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd.Context(), opts, args[0], cmd)
		},
	}
	opts.bind(cmd)
	return cmd
}

func runExec(ctx context.Context, opts *OperationOptions, op string, cmd *cobra.Command) error {
	run, ok := execOperations[op]
	if !ok {
		return fmt.Errorf("unknown operation %q: must be one of %s", op, operationNames(execOperations))
	}
	if ctx == nil {
		ctx = context.Background()
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

	store, err := neo4j.NewStore(cfg, logger)
	if err != nil {
		return err
	}
	result, err := run(ctx, store, in)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), result)
}
