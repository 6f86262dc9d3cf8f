package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/quotagate/quotagate/internal/limits"
)

func newClassCmd() *cobra.Command {
	var (
		klass        string
		defaultClass string
	)
	opts := defaultStorageOptions()

	cmd := &cobra.Command{
		Use:   "class <tenant-id>",
		Short: "Query or set the rate-limit class for a tenant",
		Long: `Looks up the rate-limit class currently associated with a tenant, or, with
--class, maps the tenant to a new class. Setting the default class name
removes the stored override instead of writing it explicitly.`,
		Example: `  quotagate class 42:10.0.0.1 --storage redis --redis-host redis.internal
  quotagate class 42:10.0.0.1 --class gold --storage redis
  quotagate class 42:10.0.0.1 --class ip-class --storage redis`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, closeStore, err := opts.open()
			if err != nil {
				return err
			}
			defer closeStore()

			resolver := limits.NewClassResolver(st, defaultClass)
			return runClass(cmd.Context(), resolver, args[0], klass, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&klass, "class", "c", "", "if set, the class to associate with the tenant")
	cmd.Flags().StringVar(&defaultClass, "default-class", limits.DefaultClass, "class name treated as the implicit default")
	opts.addFlags(cmd)

	return cmd
}

func runClass(ctx context.Context, resolver *limits.ClassResolver, tenant, klass string, out io.Writer) error {
	previous, err := resolver.GetOrSet(ctx, tenant, klass)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Tenant %s:\n", tenant)
	if klass != "" {
		fmt.Fprintf(out, "  Previous rate-limit class: %s\n", previous)
		fmt.Fprintf(out, "  New rate-limit class: %s\n", klass)
	} else {
		fmt.Fprintf(out, "  Configured rate-limit class: %s\n", previous)
	}
	return nil
}
