package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vigil/internal/logging"
	"vigil/internal/uploader"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var backlog bool

	cmd := &cobra.Command{
		Use:   "upload [file]",
		Short: "Upload a recording, or the whole output directory backlog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !backlog && len(args) == 0 {
				return fmt.Errorf("provide a file to upload or use --backlog")
			}
			if backlog && len(args) > 0 {
				return fmt.Errorf("--backlog does not take a file argument")
			}

			store, err := uploader.NewS3Store(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("init object store: %w", err)
			}

			manager := uploader.NewManager(cfg, store, logging.NewNop())
			manager.Start(cmd.Context())
			defer manager.Stop(cfg.ShutdownGrace())

			var handles []*uploader.Handle
			if backlog {
				handles, err = manager.SubmitDir(cfg.Paths.OutputDir)
				if err != nil {
					return err
				}
				if len(handles) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No uploadable files in %s\n", cfg.Paths.OutputDir)
					return nil
				}
			} else {
				path, err := filepath.Abs(args[0])
				if err != nil {
					return err
				}
				if _, err := os.Stat(path); err != nil {
					return fmt.Errorf("stat %s: %w", path, err)
				}
				handle, err := manager.Submit(uploader.Job{Path: path, Key: filepath.Base(path)})
				if err != nil {
					return err
				}
				handles = []*uploader.Handle{handle}
			}

			out := cmd.OutOrStdout()
			failures := 0
			for _, handle := range handles {
				result, err := handle.Await(cmd.Context())
				if err != nil {
					return err
				}
				switch result.Status {
				case uploader.StatusCompleted:
					fmt.Fprintf(out, "%s  %s  %s\n", result.Key, humanize.Bytes(uint64(result.Bytes)), result.URL)
				default:
					failures++
					fmt.Fprintf(out, "%s  %s: %v\n", result.Key, result.Status, result.Err)
				}
			}
			if failures > 0 {
				return fmt.Errorf("%d of %d uploads failed", failures, len(handles))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&backlog, "backlog", false, "Upload every video file in the output directory")
	return cmd
}
