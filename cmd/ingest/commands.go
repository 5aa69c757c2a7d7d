package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ingest/internal/app"
	"ingest/internal/domain"
	appErrors "ingest/internal/errors"
	"ingest/internal/history"
	"ingest/internal/infra/volumes"
	"ingest/internal/presentation"
)

const progressInterval = 200 * time.Millisecond

func newCopyCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "copy SRC [DEST]",
		Short: "Copy one volume now, without watching",
		Long: "Copy SRC into DEST. Without DEST the marker on SRC is used, " +
			"then the configured destination.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.close()

			src := args[0]
			if _, err := e.fs.Stat(src); err != nil {
				return appErrors.Wrap(appErrors.NotFound, "stat", src, err)
			}

			var explicit string
			if len(args) == 2 {
				explicit = args[1]
			}
			dest, err := resolveDestination(e, src, explicit)
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			printer := presentation.Printer{Writer: os.Stdout, Verbose: verbose}
			copier := e.copier()

			plan, err := copier.Plan(src, dest)
			if err != nil {
				return err
			}
			printer.PrintPlan(plan)

			type result struct {
				plan domain.CopyPlan
				err  error
			}
			started := time.Now()
			done := make(chan result, 1)
			go func() {
				plan, err := copier.Transfer(ctx, src, dest)
				done <- result{plan, err}
			}()

			ticker := time.NewTicker(progressInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					printer.PrintProgress(e.progress.Snapshot())
				case res := <-done:
					printer.PrintProgress(e.progress.Snapshot())
					if res.plan.Source != "" {
						plan = res.plan
					}
					record(e, plan.Source, plan.Destination, plan, started, res.err)
					if res.err != nil {
						fmt.Fprintln(os.Stdout)
						return res.err
					}
					printer.PrintResult(plan, time.Since(started))
					return nil
				}
			}
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "list every file before copying")
	return cmd
}

// resolveDestination prefers an explicit argument, then the marker on src,
// then the configured default.
func resolveDestination(e *env, src, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if dest, ok := app.ReadMarker(e.fs, src); ok {
		return dest, nil
	}
	if dest := e.settings.Destination(); dest != "" {
		return dest, nil
	}
	return "", appErrors.Wrap(appErrors.InvalidConfig, "resolve destination", src,
		errors.New("no DEST given, no marker on the volume and no destination configured"))
}

func record(e *env, src, dest string, plan domain.CopyPlan, started time.Time, copyErr error) {
	if e.history == nil {
		return
	}
	rec := domain.CopyRecord{
		ID:         app.NewRequestID(),
		Src:        src,
		Dest:       dest,
		Files:      plan.FileCount(),
		Bytes:      plan.TotalBytes,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if copyErr != nil {
		rec.Error = appErrors.UserMessage(copyErr)
	}
	if err := e.history.Record(rec); err != nil {
		e.logger.Warn("recording history failed", "error", err)
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.close()

			cfg := e.settings.Snapshot()
			out := cmd.OutOrStdout()
			dest := cfg.Destination
			if dest == "" {
				dest = "(not set)"
			}
			fmt.Fprintf(out, "config dir:   %s\n", e.dir)
			fmt.Fprintf(out, "destination:  %s\n", dest)
			fmt.Fprintf(out, "interval:     %s\n", cfg.Watch.Interval)
			fmt.Fprintf(out, "mount roots:  %v\n", cfg.Watch.MountRoots)
			fmt.Fprintf(out, "log file:     %s (%s)\n", cfg.Logging.File, cfg.Logging.Level)
			fmt.Fprintf(out, "history:      %s\n", cfg.History.Path)
			return nil
		},
	}

	setDest := &cobra.Command{
		Use:   "set-destination PATH",
		Short: "Set the default destination for volumes without a marker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.close()

			if err := e.settings.SetDestination(args[0]); err != nil {
				return appErrors.Wrap(appErrors.InvalidConfig, "set destination", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Destination set to %s\n", e.settings.Destination())
			return nil
		},
	}

	cmd.AddCommand(show, setDest)
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var limit int
	var verbose bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent copies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.close()

			// Read-only so a running watcher can keep recording.
			store, err := history.OpenReadOnly(e.settings.Snapshot().History.Path)
			if err != nil {
				return appErrors.Wrap(appErrors.IOFailure, "history", "", err)
			}
			records, err := store.Recent(limit)
			if err != nil {
				return appErrors.Wrap(appErrors.IOFailure, "history", "", err)
			}
			presentation.Printer{Writer: cmd.OutOrStdout(), Verbose: verbose}.PrintHistory(records)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show ids and durations")
	return cmd
}

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List block devices that are attached but not mounted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			devices, err := volumes.UnmountedDevices(ctx)
			if err != nil {
				return appErrors.Wrap(appErrors.Internal, "list devices", "", err)
			}
			presentation.Printer{Writer: cmd.OutOrStdout()}.PrintDevices(devices, volumes.CardReaderPresent(ctx))
			return nil
		},
	}
}

func newMountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mount DEVICE",
		Short: "Mount a block device through udisks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := volumes.Mount(cmd.Context(), args[0])
			if err != nil {
				return appErrors.Wrap(appErrors.Internal, "mount", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}
