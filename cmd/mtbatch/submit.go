package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/microtravel/internal/batch"
	"github.com/JaimeStill/microtravel/internal/cli"
	"github.com/JaimeStill/microtravel/internal/client"
)

func newSubmitCmd(opts *options) *cobra.Command {
	var (
		confirm     bool
		destination string
		output      string
		detach      bool
	)

	cmd := &cobra.Command{
		Use:   "submit <operation> <image-id>...",
		Short: "Start a batch on the server and follow its progress",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := batch.ParseOperation(args[0])
			if err != nil {
				return err
			}
			if err := requireDestination(op, destination); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			api, err := opts.client()
			if err != nil {
				return err
			}

			confirmed, err := confirmDestructive(cmd, op, len(args)-1, confirm)
			if err != nil {
				return err
			}

			progress, err := api.StartBatch(ctx, batch.StartCommand{
				Operation:     string(op),
				ImageIDs:      args[1:],
				DestinationID: destination,
				Confirm:       confirmed,
			})
			if err != nil {
				return err
			}

			if detach {
				return cli.PrintJSON(cmd.OutOrStdout(), progress)
			}

			stderr := cmd.ErrOrStderr()
			report, runErr := cli.Track(*progress, func(send func(batch.Progress)) (*batch.Report, error) {
				return follow(ctx, api, progress.BatchID, send)
			}, cli.TrackOptions{
				Plain:  opts.plainOutput(stderr),
				Input:  cmd.InOrStdin(),
				Output: stderr,
				Cancel: func() { cancelRemote(api, progress.BatchID) },
			})
			if report == nil {
				return runErr
			}

			if report.Operation == batch.OpDownload && report.Succeeded > 0 {
				artifact, err := api.BatchArchive(ctx, report.ID)
				if err != nil {
					return fmt.Errorf("fetch archive: %w", err)
				}
				report.Artifact = artifact
			}

			return finish(cmd.OutOrStdout(), report, output, runErr)
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "skip the delete confirmation prompt")
	cmd.Flags().StringVar(&destination, "destination", "", "destination collection id for move, or \"unassigned\"")
	cmd.Flags().StringVarP(&output, "output", "o", ".", "directory that receives the download archive")
	cmd.Flags().BoolVar(&detach, "detach", false, "print the batch id and return without following progress")
	return cmd
}

// follow streams progress until the batch ends, then loads its report.
func follow(ctx context.Context, api *client.Client, id string, send func(batch.Progress)) (*batch.Report, error) {
	if _, err := api.Events(ctx, id, send); err != nil {
		return nil, err
	}

	snapshot, err := api.Batch(ctx, id)
	if err != nil {
		return nil, err
	}
	if snapshot.Report == nil {
		return nil, client.ErrStreamEnded
	}
	if snapshot.Report.Error != "" {
		return snapshot.Report, errors.New(snapshot.Report.Error)
	}
	return snapshot.Report, nil
}

func cancelRemote(api *client.Client, id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	api.CancelBatch(ctx, id)
}
