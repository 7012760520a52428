package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"vbscope/internal/diag"
	"vbscope/internal/symbols"
)

var watchCmd = &cobra.Command{
	Use:   "watch [flags] [directory]",
	Short: "Resolve the project again whenever a module file changes",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9464)")
	watchCmd.Flags().Bool("diagnostics", true, "print diagnostics after every run")
}

func runWatch(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("metrics-addr")
	showDiags, _ := cmd.Flags().GetBool("diagnostics")
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")

	s, err := openSession(cmd, projectDir(args, 0))
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if addr != "" {
		srv := &http.Server{Addr: addr, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fmt.Fprintf(cmd.ErrOrStderr(), "metrics: %v\n", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if err := s.provider.Watch(ctx); err != nil {
		return err
	}
	if !quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "watching %s (ctrl+c to stop)\n", s.manifest.Root)
	}
	err = s.pipeline.Watch(ctx, s.manifest.Pipeline.Debounce, func(g *symbols.Graph, err error) {
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "resolve: %v\n", err)
			return
		}
		if showDiags {
			if err := printDiagnostics(cmd, s, g, "pretty", diag.SevInfo); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "diagnostics: %v\n", err)
			}
		}
		if !quiet {
			printSummary(cmd, g, s.pipeline.State())
			fmt.Fprintf(cmd.OutOrStdout(), "status: %s\n", s.pipeline.State().Aggregate().Label())
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
