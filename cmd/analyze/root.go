package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"rfmbasket/internal/config"
	"rfmbasket/internal/dataprocessing"
	apperrors "rfmbasket/internal/errors"
	"rfmbasket/internal/exporter"
	"rfmbasket/internal/infrastructure"
	"rfmbasket/internal/validation"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

type options struct {
	out      string
	rulesOut string
	format   string
	logLevel string
	rules    int
	preview  int
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "analyze <file.xlsx|file.csv>",
		Short: "Segment customers by RFM and mine basket rules from a sales export",
		Long: `analyze reads an Online Retail style spreadsheet, clusters customers on
recency, frequency and monetary value, and mines association rules between
products bought on the same invoice.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.out, "out", "o", "", "write customer segments CSV to this path")
	f.StringVar(&opts.rulesOut, "rules-out", "", "write the ranked association rules CSV to this path")
	f.IntVar(&opts.rules, "rules", config.DefaultTopRules, "number of top rules to report")
	f.IntVar(&opts.preview, "preview", config.DefaultPreviewRows, "number of raw and cleaned rows to preview")
	f.StringVarP(&opts.format, "format", "f", formatTable, "output format: table or json")
	f.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")

	return cmd
}

func (o *options) validate() error {
	o.format = strings.ToLower(o.format)
	if o.format != formatTable && o.format != formatJSON {
		return apperrors.NewAppValidationError(fmt.Sprintf("invalid --format %q: must be %s or %s", o.format, formatTable, formatJSON))
	}
	if o.rules < 1 {
		return apperrors.NewAppValidationError(fmt.Sprintf("invalid --rules %d: must be at least 1", o.rules))
	}
	if o.preview < 0 {
		return apperrors.NewAppValidationError(fmt.Sprintf("invalid --preview %d: must not be negative", o.preview))
	}
	return nil
}

func runAnalyze(ctx context.Context, stdout, stderr io.Writer, path string, opts *options) error {
	logger, err := infrastructure.NewLogger(config.LoggingConfig{Level: opts.logLevel, Output: "console"}, stderr)
	if err != nil {
		return apperrors.NewConfigError("failed to initialize logger", err)
	}

	validator := validation.NewFileValidator(logger, config.DefaultMaxUploadBytes)
	if err := validator.ValidateInputFile(path); err != nil {
		return apperrors.NewInputError("input file rejected", err).WithContext("path", path)
	}
	for _, target := range []string{opts.out, opts.rulesOut} {
		if target == "" {
			continue
		}
		if err := validator.ValidateOutputDirectory(filepath.Dir(target)); err != nil {
			return err
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return apperrors.NewInputError("failed to open "+path, err)
	}
	defer file.Close()

	processor := dataprocessing.NewProcessor(
		dataprocessing.WithLogger(logger),
		dataprocessing.WithPreviewRows(opts.preview),
		dataprocessing.WithTopRules(opts.rules),
	)

	result, err := processor.Run(ctx, file, filepath.Base(path))
	if err != nil {
		return apperrors.NewParsingError("analysis of "+path+" failed", err)
	}

	writer := exporter.NewCSVWriter(logger)
	if opts.out != "" {
		if err := writer.ExportSegments(opts.out, result); err != nil {
			return err
		}
		logger.Info("Segments exported", slog.String("path", opts.out), slog.Int("customers", len(result.Customers)))
	}
	if opts.rulesOut != "" {
		if err := writer.ExportRules(opts.rulesOut, result.Rules); err != nil {
			return err
		}
		logger.Info("Rules exported", slog.String("path", opts.rulesOut), slog.Int("rules", len(result.Rules)))
	}

	if opts.format == formatJSON {
		return renderJSON(stdout, result)
	}
	return renderReport(stdout, result)
}
