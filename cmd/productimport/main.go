// Command productimport imports an XML product catalog into an EAV store.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ruslano69/productimport/pkg/report"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

const defaultConfigFile = "productimport.yaml"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "productimport",
		Short: "Import XML product catalogs into an EAV store",
		Long: `productimport streams a product catalog document into a MySQL, PostgreSQL
or SQLite catalog schema in batches. Category paths, attribute sets, store
views and select options are resolved to their ids; missing categories and
options can be created on the way.

Example Usage:
  productimport config init --type mysql
  productimport import catalog.xml.gz --config productimport.yaml
  productimport import s3://feeds/catalog.xml --dry-run`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	var createConfig struct{ mysql, postgres, sqlite bool }
	root.Flags().BoolVar(&createConfig.mysql, "create-config-mysql", false, "write a sample MySQL config and exit")
	root.Flags().BoolVar(&createConfig.postgres, "create-config-postgres", false, "write a sample PostgreSQL config and exit")
	root.Flags().BoolVar(&createConfig.sqlite, "create-config-sqlite", false, "write a sample SQLite config and exit")
	root.RunE = func(cmd *cobra.Command, args []string) error {
		switch {
		case createConfig.mysql:
			return writeSampleConfig(cmd.OutOrStdout(), "mysql", defaultConfigFile)
		case createConfig.postgres:
			return writeSampleConfig(cmd.OutOrStdout(), "postgres", defaultConfigFile)
		case createConfig.sqlite:
			return writeSampleConfig(cmd.OutOrStdout(), "sqlite", defaultConfigFile)
		}
		return cmd.Help()
	}

	root.AddCommand(newImportCommand(), newConfigCommand(), newVersionCommand())
	return root
}

func newImportCommand() *cobra.Command {
	var (
		configFile string
		batchSize  int
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a catalog document (file, - for stdin, or s3://bucket/key)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := DefaultConfig()
			if configFile != "" {
				loaded, err := LoadConfig(configFile)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if cmd.Flags().Changed("batch-size") {
				cfg.Import.BatchSize = batchSize
			}
			if cmd.Flags().Changed("dry-run") {
				cfg.Import.DryRun = dryRun
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			log, err := newLogger(cfg.Logging, cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("invalid logging level: %w", err)
			}

			summary, err := newImportRun(cfg, log, cmd.ErrOrStderr()).Execute(cmd.Context(), args[0])
			if summary.RunID != "" {
				printSummary(cmd.OutOrStdout(), summary)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "config file (YAML)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "products per batch (overrides import.batch_size)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate and resolve without writing products")
	return cmd
}

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
	}

	var (
		dbType string
		output string
	)
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeSampleConfig(cmd.OutOrStdout(), dbType, output)
		},
	}
	initCmd.Flags().StringVarP(&dbType, "type", "t", "mysql", "database type: mysql, postgres, sqlite")
	initCmd.Flags().StringVarP(&output, "output", "o", defaultConfigFile, "output file")

	cmd.AddCommand(initCmd)
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "productimport %s\n", version)
		},
	}
}

func writeSampleConfig(out io.Writer, dbType, filename string) error {
	cfg, err := CreateSampleConfig(dbType)
	if err != nil {
		return err
	}
	if err := SaveConfig(filename, cfg); err != nil {
		return err
	}
	fmt.Fprintf(out, "Sample %s config written to %s\n", cfg.Database.Type, filename)
	return nil
}

func printSummary(out io.Writer, s report.Summary) {
	mode := "write"
	if s.DryRun {
		mode = "dry run"
	}
	fmt.Fprintf(out, `
=== Import Report ===
Run:        %s
Source:     %s
Digest:     %s
Mode:       %s
OK:         %d
Failed:     %d
Status:     %s
Total time: %s
=====================
`, s.RunID, s.Source, s.InputDigest, mode, s.OK, s.Failed, s.Status(), s.Duration.Round(time.Millisecond))
}
