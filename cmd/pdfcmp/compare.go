package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/benedoc-inc/pdfcmp"
	"github.com/benedoc-inc/pdfcmp/core/compare"
	"github.com/benedoc-inc/pdfcmp/core/visual"
	"github.com/benedoc-inc/pdfcmp/internal/config"
	"github.com/benedoc-inc/pdfcmp/internal/metrics"
)

type compareFlags struct {
	configPath  string
	format      string
	limit       int
	exclude     []string
	metadata    bool
	noInfo      bool
	visual      bool
	outputDir   string
	metricsFile string
}

func newCompareCmd(g *globalFlags) *cobra.Command {
	f := &compareFlags{}
	cmd := &cobra.Command{
		Use:   "compare <expected.pdf> <actual.pdf>",
		Short: "Compare two PDF files",
		Long: `Compares the object graphs of two PDF files and prints every difference with its path.
With --visual, documents that differ are also rendered and compared page by page.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd, g, f, args[0], args[1])
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.configPath, "config", "c", "", "Path to a YAML config file")
	fl.StringVarP(&f.format, "format", "f", string(compare.FormatText), "Report format: text, json, xml or yaml")
	fl.IntVarP(&f.limit, "limit", "n", compare.DefaultLimit, "Stop after this many differences")
	fl.StringSliceVar(&f.exclude, "exclude", nil, "Dictionary keys to ignore at the top level")
	fl.BoolVar(&f.metadata, "metadata", false, "Compare the XMP metadata stream")
	fl.BoolVar(&f.noInfo, "no-info", false, "Skip the document information dictionary")
	fl.BoolVar(&f.visual, "visual", false, "Render differing documents and compare the pages")
	fl.StringVarP(&f.outputDir, "output-dir", "o", "", "Directory for rendered pages and difference images")
	fl.StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")
	return cmd
}

// settings loads the config file and applies explicitly set flags over it.
func (f *compareFlags) settings(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return cfg, err
	}
	fl := cmd.Flags()
	if fl.Changed("format") {
		cfg.Report.Format = compare.Format(strings.ToLower(f.format))
	}
	if fl.Changed("limit") {
		cfg.Compare.Limit = f.limit
	}
	if fl.Changed("exclude") {
		cfg.Compare.ExcludedKeys = append(cfg.Compare.ExcludedKeys, f.exclude...)
	}
	if fl.Changed("metadata") {
		cfg.Compare.Metadata = f.metadata
	}
	if fl.Changed("no-info") {
		cfg.Compare.Info = !f.noInfo
	}
	if fl.Changed("visual") {
		cfg.Visual.Enabled = f.visual
	}
	if fl.Changed("output-dir") {
		cfg.Visual.OutputDir = f.outputDir
	}
	if fl.Changed("metrics-file") {
		cfg.Metrics.Textfile = f.metricsFile
	}
	return cfg, cfg.Validate()
}

func runCompare(cmd *cobra.Command, g *globalFlags, f *compareFlags, leftPath, rightPath string) error {
	cfg, err := f.settings(cmd)
	if err != nil {
		return err
	}
	log, closeLog, err := g.logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	m := metrics.New()
	opts := cfg.CompareOptions()
	opts.Logger = log
	opts.Metrics = m

	log.Debug("comparing", "expected", leftPath, "actual", rightPath, "limit", opts.Limit)
	res, err := pdfcmp.CompareFiles(leftPath, rightPath, opts)
	if err != nil {
		return err
	}
	for _, w := range res.Warnings.Warnings() {
		log.Warn("tolerated damage", "warning", w)
	}

	if !res.OK() && cfg.Visual.Enabled {
		o := cfg.Orchestrator()
		o.Logger = log
		o.Metrics = m
		vr, err := o.Compare(cmd.Context(),
			visual.Input{Name: docName(leftPath), Path: leftPath},
			visual.Input{Name: docName(rightPath), Path: rightPath},
			res.DifferingPages, cfg.IgnoredRegions())
		if err != nil {
			return fmt.Errorf("visual comparison failed: %w", err)
		}
		res.VisualSummary = vr.Summary()
	}

	out, err := compare.GenerateReport(res, cfg.Report.Format)
	if err != nil {
		return err
	}
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	if _, err := cmd.OutOrStdout().Write(out); err != nil {
		return err
	}

	if cfg.Metrics.Textfile != "" {
		if err := m.WriteToTextfile(cfg.Metrics.Textfile); err != nil {
			return fmt.Errorf("cannot write metrics: %w", err)
		}
	}

	stderr := cmd.ErrOrStderr()
	if res.OK() {
		fmt.Fprintln(stderr, paint(stderr, color.FgGreen, color.Bold).Sprint("EQUAL"), res.Summary())
		return nil
	}
	fmt.Fprintln(stderr, paint(stderr, color.FgRed, color.Bold).Sprint("DIFFERENT"), res.Summary())
	return errDifferent
}

// docName is the file name without directory and extension.
func docName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
