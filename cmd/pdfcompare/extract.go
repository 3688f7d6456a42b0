package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tsawler/pdfcompare/extract"
	"github.com/tsawler/pdfcompare/remote"
)

func newExtractCmd(a *app) *cobra.Command {
	var (
		asJSON  bool
		useOCR  bool
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "extract FILE.pdf",
		Short: "Print the text of a PDF as the comparison sees it",
		Long: `extract prints the assembled text of one document: one line per text
line and a blank line between pages. Text recognized inside images of
mixed pages follows an [IMAGE CONTENT] marker.

With --json the output has the same shape as the server's /api/extract
response, including per-page methods and statistics.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newUI(cmd.ErrOrStderr(), noColor)

			opts := []extract.LocalOption{extract.WithLogger(a.logger)}
			if rec := a.recognizer(useOCR, out); rec != nil {
				opts = append(opts, extract.WithRecognizer(rec))
			}
			doc, err := extract.NewLocal(a.cfg.LocalConfig(), opts...).ExtractFile(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("extract %s: %w", args[0], err)
			}
			return writeExtraction(cmd.OutOrStdout(), filepath.Base(args[0]), doc, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output pages and statistics as JSON")
	cmd.Flags().BoolVar(&useOCR, "ocr", false, "recognize pages without a usable text layer")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	return cmd
}

func writeExtraction(w io.Writer, name string, doc *extract.Document, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(remote.ExtractResponse{
			Success:        true,
			DocumentResult: remote.NewDocumentResult(name, doc),
		})
	}
	_, err := io.WriteString(w, doc.ReportText())
	return err
}
