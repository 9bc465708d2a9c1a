package cli

import (
	"checklist/internal/core"
	"checklist/pkg/domain"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// withService resolves the collection argument, opens the configured backend
// and runs fn against a service for that collection.
func withService(cmd *cobra.Command, opts *RootOptions, collection string, fn func(context.Context, *core.Service) error) error {
	schema, ok := domain.LookupSchema(collection)
	if !ok {
		return NewExitError(ExitUsage, fmt.Sprintf("unknown collection %q", collection))
	}
	cfg, logger, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	backend, err := core.OpenBackend(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open %s backend: %w", cfg.Storage.Driver, err)
	}
	defer func() {
		if cerr := backend.Close(); cerr != nil {
			logger.Warn("close backend", "err", cerr)
		}
	}()
	store, err := core.NewStore(ctx, schema, backend)
	if err != nil {
		return err
	}
	return fn(ctx, core.NewService(store, core.WithLogger(logger)))
}

func newListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <collection>",
		Short: "Print a collection ordered by priority",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, opts, args[0], func(ctx context.Context, svc *core.Service) error {
				recs, err := svc.ListSorted(ctx)
				if err != nil {
					return err
				}
				return printRecords(cmd.OutOrStdout(), opts.Output, svc.Schema(), recs)
			})
		},
	}
}

func newAddCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "add <collection> <primary> <secondary>",
		Short:   "Create a record",
		Example: "  checklistd add todos ann \"buy milk\"\n  checklistd add players Ada Hegerberg",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, opts, args[0], func(ctx context.Context, svc *core.Service) error {
				rec, err := svc.Create(ctx, args[1], args[2])
				if err != nil {
					return err
				}
				return printRecord(cmd.OutOrStdout(), opts.Output, svc.Schema(), rec)
			})
		},
	}
}

func newToggleCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <collection> <id>",
		Short: "Flip the checked flag of a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, opts, args[0], func(ctx context.Context, svc *core.Service) error {
				rec, err := svc.ToggleChecked(ctx, args[1])
				if err != nil {
					return err
				}
				return printRecord(cmd.OutOrStdout(), opts.Output, svc.Schema(), rec)
			})
		},
	}
}

func newPriorityCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "priority <collection> <id> <1-3>",
		Aliases: []string{"prio"},
		Short:   "Set the priority of a record",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, opts, args[0], func(ctx context.Context, svc *core.Service) error {
				rec, err := svc.SetPriority(ctx, args[1], args[2])
				if err != nil {
					return err
				}
				return printRecord(cmd.OutOrStdout(), opts.Output, svc.Schema(), rec)
			})
		},
	}
}

func newDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <collection> <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a record and print the remaining ones",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, opts, args[0], func(ctx context.Context, svc *core.Service) error {
				remaining, removed, err := svc.Delete(ctx, args[1])
				if err != nil {
					return err
				}
				if !removed {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s %s not present\n", svc.Schema().Singular, args[1])
				}
				return printRecords(cmd.OutOrStdout(), opts.Output, svc.Schema(), domain.SortByPriority(remaining))
			})
		},
	}
}

func printRecord(w io.Writer, output string, schema domain.Schema, rec domain.Record) error {
	if output == "text" {
		_, err := fmt.Fprintln(w, formatRecord(rec))
		return err
	}
	data, err := schema.MarshalRecord(rec)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

func printRecords(w io.Writer, output string, schema domain.Schema, recs []domain.Record) error {
	if output == "text" {
		var b strings.Builder
		for _, rec := range recs {
			b.WriteString(formatRecord(rec))
			b.WriteByte('\n')
		}
		_, err := io.WriteString(w, b.String())
		return err
	}
	data, err := schema.MarshalRecords(recs)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// formatRecord renders "[x] 1 ann: buy milk (id)".
func formatRecord(rec domain.Record) string {
	mark := " "
	if rec.Checked {
		mark = "x"
	}
	return fmt.Sprintf("[%s] %d %s: %s (%s)", mark, rec.Priority, rec.PrimaryLabel, rec.SecondaryLabel, rec.ID)
}
