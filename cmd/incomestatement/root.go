package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"incomestatement/internal/config"
	"incomestatement/internal/dataprocessing"
	"incomestatement/internal/infrastructure"
	"incomestatement/internal/statement"
	"incomestatement/internal/validation"
	"incomestatement/pkg/contracts"
	"incomestatement/pkg/contracts/domain"
)

// cli carries the flags and collaborators shared by every subcommand
type cli struct {
	stdout io.Writer
	stderr io.Writer

	file     string
	products []string
	debug    bool

	cfg      *config.Config
	logger   *slog.Logger
	files    *validation.FileValidator
	registry *dataprocessing.Registry
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "incomestatement",
		Short:         "Compute lending income statements from Product/Metric/Value tables",
		Version:       contracts.GetFullVersionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate("{{.Version}}\n")

	root.PersistentFlags().StringVarP(&c.file, "file", "f", "", "input table (.csv or .xlsx)")
	root.PersistentFlags().BoolVar(&c.debug, "debug", false, "log to stderr at debug level")

	root.AddCommand(
		c.productsCmd(),
		c.computeCmd(),
		c.exportCmd(),
		c.chartCmd(),
	)
	return root
}

func (c *cli) init() error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(c.stderr, "Warning: failed to load config, using defaults: %v\n", err)
		cfg = config.Default()
	}
	c.cfg = cfg

	// stdout carries command output, so logs go to stderr
	level := slog.LevelWarn
	if c.debug {
		level = slog.LevelDebug
	}
	c.logger = infrastructure.WithComponent(
		slog.New(slog.NewJSONHandler(c.stderr, &slog.HandlerOptions{Level: level})), "cli")

	c.files = validation.NewFileValidator(cfg.Upload.AllowedExtensions, c.logger)
	c.registry = dataprocessing.NewRegistry(cfg.Upload, c.logger)
	return nil
}

// addProductsFlag registers --products. Omitting the flag selects every
// product. The flag may repeat, and a name containing a comma is quoted.
func (c *cli) addProductsFlag(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&c.products, "products", "p", nil,
		`comma separated products, quote names with commas: '"X, Inc",B' (default: all)`)
}

// selection trims each name the way the index trims Product cells and drops
// blank entries
func (c *cli) selection(cmd *cobra.Command) domain.Selection {
	if !cmd.Flags().Changed("products") {
		return nil
	}
	selection := domain.Selection{}
	for _, p := range c.products {
		if p = strings.TrimSpace(p); p != "" {
			selection = append(selection, p)
		}
	}
	return selection
}

// loadIndex reads --file and pivots it into a product index
func (c *cli) loadIndex(ctx context.Context) (*statement.ProductIndex, error) {
	if c.file == "" {
		return nil, fmt.Errorf("--file is required")
	}
	if err := c.files.ValidateInputFile(c.file); err != nil {
		return nil, err
	}

	f, err := os.Open(c.file)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", c.file, err)
	}
	defer f.Close()

	table, err := c.registry.Load(ctx, c.file, f)
	if err != nil {
		return nil, err
	}

	index, err := statement.BuildIndex(table)
	if err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "table indexed",
		slog.String("file", c.file),
		slog.Int("products", index.Len()),
		slog.Int("rows", index.Rows()),
		slog.Int("overwrites", index.Overwrites()))
	return index, nil
}

// compute loads --file and evaluates the selected products
func (c *cli) compute(cmd *cobra.Command) (*domain.ResultSet, error) {
	index, err := c.loadIndex(cmd.Context())
	if err != nil {
		return nil, err
	}
	selection := c.selection(cmd)
	if selection == nil {
		selection = index.Products()
	}
	return statement.Compute(index, selection)
}
