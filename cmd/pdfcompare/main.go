// Command pdfcompare compares two PDF documents and highlights the changes
// of the newer one.
//
// Usage:
//
//	pdfcompare compare OLD.pdf NEW.pdf -o NEW-annotated.pdf
//	pdfcompare compare OLD.pdf NEW.pdf --report html --report-file diff.html
//	pdfcompare extract FILE.pdf --json
//	pdfcompare serve --addr :8000
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tsawler/pdfcompare/config"
	"github.com/tsawler/pdfcompare/internal/logging"
	"github.com/tsawler/pdfcompare/ocr"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// app holds the state shared by the subcommands.
type app struct {
	cfgFile string
	verbose bool

	cfg    *config.Config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zerolog.Nop()}

	root := &cobra.Command{
		Use:   "pdfcompare",
		Short: "Compare two PDF documents and highlight what changed",
		Long: `pdfcompare extracts the text of two PDF documents, diffs it line by line
and word by word, and draws the additions and modifications onto a copy of
the newer document.

Settings are read from pdfcompare.yaml (in the working directory,
$HOME/.pdfcompare or /etc/pdfcompare), a .env file and PDFCOMPARE_*
environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			a.cfg = cfg

			level := cfg.Log.Level
			if a.verbose {
				level = "debug"
			}
			a.logger = logging.New(logging.Config{
				Level:   level,
				Format:  cfg.Log.Format,
				Output:  cmd.ErrOrStderr(),
				Service: "pdfcompare",
			})
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file path")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newCompareCmd(a))
	root.AddCommand(newExtractCmd(a))
	root.AddCommand(newServeCmd(a))
	root.AddCommand(newVersionCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		newUI(os.Stderr, false).Error("%v", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printVersion(cmd.OutOrStdout(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output in JSON format")
	return cmd
}

func printVersion(w io.Writer, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(map[string]any{
			"version": version,
			"go":      runtime.Version(),
			"ocr":     ocr.Enabled,
		})
	}
	ocrState := "disabled"
	if ocr.Enabled {
		ocrState = "enabled"
	}
	_, err := fmt.Fprintf(w, "pdfcompare %s (%s, OCR %s)\n", version, runtime.Version(), ocrState)
	return err
}
