package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirillkom/pdf-analysis-gateway/internal/core/domain"
	"github.com/kirillkom/pdf-analysis-gateway/internal/infrastructure/gateway"
)

const defaultGatewayURL = "http://localhost:8080"

type rootOptions struct {
	gatewayURL string
	timeout    time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:          "analyze",
		Short:        "Upload documents to the analysis gateway",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.gatewayURL, "gateway", envOr("GATEWAY_URL", defaultGatewayURL), "gateway base URL")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "request timeout")

	rootCmd.AddCommand(newUploadCmd(opts))
	rootCmd.AddCommand(newDownloadCmd(opts))
	return rootCmd
}

func (o *rootOptions) client() *gateway.Client {
	return gateway.New(o.gatewayURL, gateway.Options{Timeout: o.timeout})
}

func newUploadCmd(opts *rootOptions) *cobra.Command {
	var table bool
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Analyze a document and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open document: %w", err)
			}
			defer f.Close()

			name := filepath.Base(args[0])
			out := cmd.OutOrStdout()
			if table {
				rows, err := opts.client().AnalyzeRows(cmd.Context(), name, f)
				if err != nil {
					return err
				}
				return printTable(out, rows)
			}

			result, err := opts.client().Analyze(cmd.Context(), name, f)
			if err != nil {
				return err
			}
			return printResult(out, result)
		},
	}
	cmd.Flags().BoolVar(&table, "table", false, "print only the result rows (CSV, JSON rows or the envelope preview)")
	return cmd
}

func newDownloadCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "download <reference>",
		Short: "Fetch a result file through the gateway",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := opts.client().Download(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer file.Body.Close()

			var dst io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				dst = f
			}
			if _, err := io.Copy(dst, file.Body); err != nil {
				return fmt.Errorf("write download: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func printResult(w io.Writer, result *domain.AnalysisResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "csv_download\t%s\n", orDash(result.CSVDownload))
	fmt.Fprintf(tw, "json_download\t%s\n", orDash(result.JSONDownload))
	if result.NumRecords != nil {
		fmt.Fprintf(tw, "num_records\t%d\n", *result.NumRecords)
	} else {
		fmt.Fprintln(tw, "num_records\t-")
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(result.PreviewRows) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	return printTable(w, result.PreviewRows)
}

func printTable(w io.Writer, rows domain.TabularData) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, cell)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
