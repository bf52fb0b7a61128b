package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"incomestatement/internal/exporter"
	api "incomestatement/pkg/contracts/api/v1"
	"incomestatement/pkg/contracts/domain"
)

func (c *cli) productsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "products",
		Short: "List the products of a table in first-seen order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := c.loadIndex(cmd.Context())
			if err != nil {
				return err
			}
			for _, p := range index.Products() {
				fmt.Fprintln(c.stdout, p)
			}
			return nil
		},
	}
}

func (c *cli) computeCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute the income statement for a product selection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "table", "json", "markdown":
			default:
				return fmt.Errorf("invalid --format %q (expected table, json or markdown)", format)
			}

			result, err := c.compute(cmd)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				enc := json.NewEncoder(c.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(api.ComputeData{Result: result, View: exporter.NewView(result)})
			case "markdown":
				_, err := io.WriteString(c.stdout, exporter.Markdown(result))
				return err
			default:
				return exporter.WriteTable(c.stdout, result)
			}
		},
	}
	c.addProductsFlag(cmd)
	cmd.Flags().StringVar(&format, "format", "table", "output format: table, json or markdown")
	return cmd
}

func (c *cli) exportCmd() *cobra.Command {
	var (
		out       string
		bom       bool
		formatted bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the income statement to a .csv, .xlsx, .html or .md file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.files.ValidateOutputFile(out, ".csv", ".xlsx", ".html", ".md"); err != nil {
				return err
			}

			result, err := c.compute(cmd)
			if err != nil {
				return err
			}

			var write func(io.Writer, *domain.ResultSet) error
			switch strings.ToLower(filepath.Ext(out)) {
			case ".csv":
				opts := exporter.CSVOptions{BOMPrefix: bom, Formatted: formatted}
				write = func(w io.Writer, r *domain.ResultSet) error { return exporter.WriteCSV(w, r, opts) }
			case ".xlsx":
				write = exporter.WriteXLSX
			case ".html":
				write = exporter.WriteHTML
			default:
				write = func(w io.Writer, r *domain.ResultSet) error {
					_, err := io.WriteString(w, exporter.Markdown(r))
					return err
				}
			}
			return c.writeFile(out, result, write)
		},
	}
	c.addProductsFlag(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file")
	cmd.Flags().BoolVar(&bom, "bom", false, "prefix CSV output with a UTF-8 byte order mark")
	cmd.Flags().BoolVar(&formatted, "formatted", false, "write CSV values with thousands separators")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func (c *cli) chartCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Render the headline margins as a PNG bar chart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.files.ValidateOutputFile(out, ".png"); err != nil {
				return err
			}

			result, err := c.compute(cmd)
			if err != nil {
				return err
			}
			return c.writeFile(out, result, func(w io.Writer, r *domain.ResultSet) error {
				return exporter.WriteChart(w, r, exporter.DefaultChartOptions)
			})
		},
	}
	c.addProductsFlag(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output .png file")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

// writeFile renders into memory first so a failed render leaves no partial file
func (c *cli) writeFile(path string, result *domain.ResultSet, write func(io.Writer, *domain.ResultSet) error) error {
	var buf bytes.Buffer
	if err := write(&buf, result); err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	c.logger.Debug("output written",
		"file", path,
		"bytes", buf.Len())
	fmt.Fprintf(c.stdout, "Wrote %s\n", path)
	return nil
}
