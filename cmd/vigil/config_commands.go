package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"vigil/internal/config"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigShowCommand())
	configCmd.AddCommand(newConfigNewCommand())

	return configCmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "show",
		Short:       "Show the resolved configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Root().PersistentFlags().GetString("config")
			cfg, resolved, exists, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path:        %s\n", resolved)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintf(out, "Output directory:   %s\n", cfg.Paths.OutputDir)
			fmt.Fprintf(out, "Log directory:      %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "Database:           %s\n", cfg.DatabasePath())
			fmt.Fprintf(out, "Detector:           %s\n", cfg.Detection.DetectorURL)
			fmt.Fprintf(out, "Bucket:             %s (%s)\n", cfg.Storage.Bucket, cfg.Storage.Region)
			fmt.Fprintf(out, "Compression:        %s\n", compressionSummary(cfg))
			fmt.Fprintf(out, "Notifications:      %d service URL(s)\n", len(cfg.Notifications.ServiceURLs))
			fmt.Fprintf(out, "Cameras:\n")
			for _, cam := range cfg.Cameras {
				state := "disabled"
				if cam.Enabled {
					state = "enabled"
				}
				fmt.Fprintf(out, "  %-16s %s (%s)\n", cam.ID, cam.Source, state)
			}
			return nil
		},
	}
}

func compressionSummary(cfg *config.Config) string {
	if !cfg.Compression.Enabled {
		return "disabled"
	}
	return fmt.Sprintf("enabled, quality %s, target %d%%", cfg.Compression.Quality, cfg.Compression.TargetReduction)
}

func newConfigNewCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "new",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set storage.bucket and camera sources before starting vigild.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}
