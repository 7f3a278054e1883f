package main

import (
	"context"
	"fmt"
	"time"

	"github.com/MaxRadzey/celservice/internal/app"
	"github.com/MaxRadzey/celservice/internal/client"
	"github.com/MaxRadzey/celservice/internal/config"
	"github.com/MaxRadzey/celservice/internal/service"
	dbstorage "github.com/MaxRadzey/celservice/internal/storage"
	"github.com/spf13/cobra"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
	"google.golang.org/protobuf/encoding/protojson"
)

// converter — общий интерфейс локального сервиса и удалённого клиента.
type converter interface {
	BatchParse(ctx context.Context, expressions []string) ([]*exprpb.Expr, error)
	BatchDeparse(ctx context.Context, expressions []*exprpb.Expr) ([]string, error)
}

type remoteOptions struct {
	url     string
	timeout time.Duration
}

func bindRemoteFlags(cmd *cobra.Command, remote *remoteOptions) {
	cmd.Flags().StringVarP(&remote.url, "remote", "r", "", "base URL of a running celservice; local processing when empty")
	cmd.Flags().DurationVar(&remote.timeout, "timeout", 30*time.Second, "request timeout")
}

func newConverter(cfg *config.Config, remote *remoteOptions) (converter, error) {
	if remote.url != "" {
		return client.New(remote.url, client.WithTimeout(remote.timeout)), nil
	}

	parser, err := app.NewParser(cfg)
	if err != nil {
		return nil, err
	}
	return service.NewService(parser, dbstorage.NewMemoryStorage(0), *cfg), nil
}

func newParseCmd(opts *options) *cobra.Command {
	remote := &remoteOptions{}
	cmd := &cobra.Command{
		Use:   "parse [expression...]",
		Short: "Print the syntax tree of each expression as protobuf JSON, one per line",
		Long:  "Reads expressions from the arguments, or one per line from stdin when no arguments are given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			inputs, err := readInputs(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			conv, err := newConverter(cfg, remote)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), remote.timeout)
			defer cancel()

			trees, err := conv.BatchParse(ctx, inputs)
			if err != nil {
				return err
			}
			for _, tree := range trees {
				line, err := protojson.Marshal(tree)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(line))
			}
			return nil
		},
	}
	bindLimitFlags(cmd.Flags(), opts)
	bindRemoteFlags(cmd, remote)
	return cmd
}

func newDeparseCmd(opts *options) *cobra.Command {
	remote := &remoteOptions{}
	cmd := &cobra.Command{
		Use:   "deparse [tree-json...]",
		Short: "Print the CEL text of each protobuf JSON syntax tree, one per line",
		Long:  "Reads trees from the arguments, or one JSON object per line from stdin when no arguments are given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			inputs, err := readInputs(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			trees := make([]*exprpb.Expr, len(inputs))
			for i, raw := range inputs {
				tree := &exprpb.Expr{}
				if err := protojson.Unmarshal([]byte(raw), tree); err != nil {
					return fmt.Errorf("input %d: %w", i, err)
				}
				trees[i] = tree
			}

			conv, err := newConverter(cfg, remote)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), remote.timeout)
			defer cancel()

			texts, err := conv.BatchDeparse(ctx, trees)
			if err != nil {
				return err
			}
			for _, text := range texts {
				fmt.Fprintln(cmd.OutOrStdout(), text)
			}
			return nil
		},
	}
	bindLimitFlags(cmd.Flags(), opts)
	bindRemoteFlags(cmd, remote)
	return cmd
}
