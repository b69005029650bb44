package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JaimeStill/microtravel/internal/batch"
	"github.com/JaimeStill/microtravel/internal/cli"
)

type runFlags struct {
	confirm     bool
	destination string
	output      string
	workers     int
	timeout     time.Duration
	prefix      string
}

func newRunCmd(opts *options) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run <operation> <image-id>...",
		Short: "Run a batch locally against the API",
		Long: "Run download, delete, move, or archive over the given images, one item at a time.\n" +
			"Downloads are packaged into a single zip written to --output.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocal(cmd, opts, flags, args[0], args[1:])
		},
	}
	cmd.Flags().BoolVar(&flags.confirm, "confirm", false, "skip the delete confirmation prompt")
	cmd.Flags().StringVar(&flags.destination, "destination", "", "destination collection id for move, or \"unassigned\"")
	cmd.Flags().StringVarP(&flags.output, "output", "o", ".", "directory that receives the download archive")
	cmd.Flags().IntVar(&flags.workers, "workers", 1, "items attempted at once")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 60*time.Second, "per-item response timeout")
	cmd.Flags().StringVar(&flags.prefix, "prefix", batch.DefaultArchivePrefix, "archive file name prefix")
	return cmd
}

func runLocal(cmd *cobra.Command, opts *options, flags runFlags, operation string, ids []string) error {
	op, err := batch.ParseOperation(operation)
	if err != nil {
		return err
	}
	if err := requireDestination(op, flags.destination); err != nil {
		return err
	}
	if flags.workers < 1 || flags.workers > batch.MaxWorkers {
		return fmt.Errorf("--workers must be between 1 and %d, got %d", batch.MaxWorkers, flags.workers)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api, err := opts.client()
	if err != nil {
		return err
	}

	refs, err := api.Resolve(ctx, ids)
	if err != nil {
		return err
	}

	account, err := api.Account(ctx)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}

	confirmed, err := confirmDestructive(cmd, op, len(refs), flags.confirm)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	coord := batch.NewCoordinator(
		batch.NewExecutor(api, flags.timeout),
		batch.Options{Workers: flags.workers, ArchivePrefix: flags.prefix},
		opts.logger(stderr),
	)

	b, err := coord.Prepare(uuid.NewString(), batch.Request{
		Operation: op,
		Refs:      refs,
		Params:    batch.Params{DestinationID: flags.destination},
		Confirmed: confirmed,
		Tier:      account.Tier,
	})
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	report, runErr := cli.Track(b.Reporter().Snapshot(), func(send func(batch.Progress)) (*batch.Report, error) {
		unsubscribe := b.Reporter().Subscribe(send)
		defer unsubscribe()
		return b.Run(runCtx)
	}, cli.TrackOptions{
		Plain:  opts.plainOutput(stderr),
		Input:  cmd.InOrStdin(),
		Output: stderr,
		Cancel: cancel,
	})
	if report == nil {
		return runErr
	}

	return finish(cmd.OutOrStdout(), report, flags.output, runErr)
}

// finish writes any artifact, prints the report, and returns the batch error.
func finish(out io.Writer, report *batch.Report, dir string, runErr error) error {
	if report.Artifact != nil {
		path, err := writeArtifact(dir, report.Artifact)
		if err != nil {
			return err
		}
		report.Artifact.Name = path
	}

	if err := cli.PrintJSON(out, report); err != nil {
		return err
	}
	return runErr
}

// requireDestination rejects a move without a destination before any request
// is sent.
func requireDestination(op batch.Operation, destination string) error {
	if op == batch.OpMove && destination == "" {
		return batch.ErrMissingDestination
	}
	return nil
}

// confirmDestructive asks before destructive operations unless skip is set.
// Non-destructive operations need no confirmation.
func confirmDestructive(cmd *cobra.Command, op batch.Operation, n int, skip bool) (bool, error) {
	if !op.Destructive() || skip {
		return true, nil
	}

	ok, err := cli.Confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), fmt.Sprintf("Permanently %s %d image(s)?", op, n))
	if err != nil {
		return false, err
	}
	if !ok {
		return false, cli.ErrDeclined
	}
	return true, nil
}
