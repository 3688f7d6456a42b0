package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tsawler/pdfcompare"
	"github.com/tsawler/pdfcompare/extract"
	"github.com/tsawler/pdfcompare/ocr"
	"github.com/tsawler/pdfcompare/remote"
	"github.com/tsawler/pdfcompare/report"
)

type compareFlags struct {
	output      string
	reportName  string
	reportFile  string
	changesOnly bool
	context     int
	width       int
	remoteURL   string
	useOCR      bool
	legend      string
	noColor     bool
}

func newCompareCmd(a *app) *cobra.Command {
	var f compareFlags

	cmd := &cobra.Command{
		Use:   "compare OLD.pdf NEW.pdf",
		Short: "Compare two PDFs, write the annotated PDF and print the line diff",
		Long: `compare extracts both documents, prints a side-by-side line diff and,
with -o, writes a copy of NEW with additions highlighted in red and
modifications in yellow.

The report format is text unless --report is given or --report-file has a
known extension (.html, .txt, .json, .yaml).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runCompare(ctx, cmd, args[0], args[1], f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.output, "output", "o", "", "write the annotated copy of NEW to this path")
	fl.StringVarP(&f.reportName, "report", "r", "", "report format: text, html, json or yaml")
	fl.StringVar(&f.reportFile, "report-file", "", "write the report to this file instead of stdout")
	fl.BoolVar(&f.changesOnly, "changes-only", false, "hide unchanged lines outside the context")
	fl.IntVar(&f.context, "context", 3, "unchanged lines shown around each change with --changes-only")
	fl.IntVar(&f.width, "width", 0, "text report column width (default 60)")
	fl.StringVar(&f.remoteURL, "remote", "", "extraction service URL for the report text")
	fl.BoolVar(&f.useOCR, "ocr", false, "recognize pages without a usable text layer")
	fl.StringVar(&f.legend, "legend", "", "draw the color key and this caption on highlighted pages")
	fl.BoolVar(&f.noColor, "no-color", false, "disable colored output")
	return cmd
}

func (a *app) runCompare(ctx context.Context, cmd *cobra.Command, oldPath, newPath string, f compareFlags) error {
	out := newUI(cmd.ErrOrStderr(), f.noColor)

	format, err := reportFormat(f.reportName, f.reportFile)
	if err != nil {
		return err
	}

	c, err := a.comparer(oldPath, newPath, f, out)
	if err != nil {
		return err
	}
	if f.output == "" {
		c = c.SkipAnnotation()
	}

	stop := startSpinner(fmt.Sprintf("Comparing %s and %s", oldPath, newPath))
	res, warnings, err := c.Compare(ctx)
	stop()
	if err != nil {
		return fmt.Errorf("compare failed: %w", err)
	}

	for _, w := range warnings {
		out.Warning("%s", w.Message)
	}

	if err := a.writeReport(cmd.OutOrStdout(), res, format, f); err != nil {
		return err
	}

	if f.output != "" {
		if err := os.WriteFile(f.output, res.Annotated, 0o644); err != nil {
			return fmt.Errorf("failed to write annotated PDF: %w", err)
		}
		out.Success("Annotated PDF written to %s (%d highlights)", f.output, len(res.Regions))
	}
	out.Summary(res.Summary)
	return nil
}

func (a *app) comparer(oldPath, newPath string, f compareFlags, out *ui) (*pdfcompare.Comparer, error) {
	cfg := a.cfg
	c := pdfcompare.Open(oldPath, newPath).
		Config(cfg.LocalConfig()).
		Annotation(cfg.AnnotateOptions()).
		HeightFactor(cfg.Annotate.HeightFactor).
		Logger(a.logger)

	if f.legend != "" {
		c = c.Legend(f.legend)
	}

	if rec := a.recognizer(f.useOCR, out); rec != nil {
		c = c.Recognizer(rec)
	}

	remoteURL := f.remoteURL
	if remoteURL == "" {
		remoteURL = cfg.Remote.URL
	}
	if remoteURL != "" {
		client, err := remote.NewClient(remote.Config{BaseURL: remoteURL, Timeout: cfg.Remote.Timeout}, a.logger)
		if err != nil {
			return nil, err
		}
		c = c.Remote(client)
	}
	return c, nil
}

// recognizer returns the OCR engine when OCR is requested by flag or
// configuration and compiled in.
func (a *app) recognizer(flag bool, out *ui) extract.Recognizer {
	if !flag && !a.cfg.OCR.Enabled {
		return nil
	}
	if !ocr.Enabled {
		out.Warning("OCR requested but this binary was built without Tesseract support; rebuild with -tags ocr")
		return nil
	}
	return ocr.NewEngine(a.cfg.EngineConfig(), a.logger)
}

func (a *app) writeReport(stdout io.Writer, res *pdfcompare.Result, format report.Format, f compareFlags) error {
	opts := report.Options{
		ChangesOnly: f.changesOnly,
		Context:     f.context,
		Width:       f.width,
		NoColor:     f.noColor || f.reportFile != "",
		Standalone:  f.reportFile != "",
		Title:       fmt.Sprintf("%s vs %s", res.Name1, res.Name2),
	}

	write := func(w io.Writer) error {
		if err := report.Write(w, res.Report(), format, opts); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		return nil
	}
	if f.reportFile == "" {
		return write(stdout)
	}

	file, err := os.Create(f.reportFile)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return writeAndClose(file, write)
}

// writeAndClose runs write on wc and closes it. A close error is returned
// when the write succeeded.
func writeAndClose(wc io.WriteCloser, write func(io.Writer) error) error {
	if err := write(wc); err != nil {
		wc.Close()
		return err
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close report: %w", err)
	}
	return nil
}

// reportFormat resolves the report format from the flag, then from the
// report file extension, and defaults to text.
func reportFormat(name, file string) (report.Format, error) {
	if name != "" {
		return report.ParseFormat(name)
	}
	if file != "" {
		if f := report.Detect(file); f != report.Unknown {
			return f, nil
		}
	}
	return report.Text, nil
}
