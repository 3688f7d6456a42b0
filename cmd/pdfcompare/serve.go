package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tsawler/pdfcompare/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the extraction and comparison API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if addr == "" {
				addr = cfg.Server.Addr
			}

			opts := server.Options{
				Version:         version,
				MaxUploadBytes:  cfg.Server.MaxUploadBytes,
				RequestTimeout:  cfg.Server.RequestTimeout,
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
				Extract:         cfg.LocalConfig(),
				Annotate:        cfg.AnnotateOptions(),
				HeightFactor:    cfg.Annotate.HeightFactor,
			}
			if rec := a.recognizer(false, newUI(cmd.ErrOrStderr(), false)); rec != nil {
				opts.Recognizer = rec
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a.logger.Info().
				Str("addr", addr).
				Int64("max_upload_bytes", opts.MaxUploadBytes).
				Bool("ocr", opts.Recognizer != nil).
				Msg("starting server")
			return server.New(opts, a.logger).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8000)")
	return cmd
}
