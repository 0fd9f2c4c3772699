package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/asaidimu/go-anansi-neo4j/neo4j"
)

// NativeOptions holds flags for the native command.
type NativeOptions struct {
	*RootOptions
	Params string
}

// NewNativeCommand creates the native command.
func NewNativeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NativeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:          "native <cypher>",
		Short:        "Run a Cypher statement as given and print its rows",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNative(cmd.Context(), opts, args[0], cmd)
		},
	}
	cmd.Flags().StringVarP(&opts.Params, "params", "p", "", "statement parameters as a JSON object")
	return cmd
}

func runNative(ctx context.Context, opts *NativeOptions, cypher string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := opts.config()
	if err != nil {
		return err
	}
	params, err := parseObject("params", opts.Params)
	if err != nil {
		return err
	}

	logger := opts.logger()
	defer func() { _ = logger.Sync() }()

	store, err := neo4j.NewStore(cfg, logger)
	if err != nil {
		return err
	}
	rows, err := store.Native(ctx, cypher, params)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), rows)
}
