package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/wudi/preflight/compliance/registry"
	"github.com/wudi/preflight/config"
	"github.com/wudi/preflight/observability"
	"github.com/wudi/preflight/sink"
	"github.com/wudi/preflight/watch"
)

func rootCmd() *cobra.Command {
	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Check PDF files against prepress profiles",
		Long: `preflight validates PDF files against a profile of conformance rules
(page boxes, document metadata, colour spaces, PDF/X identification) and
reports every violation it finds.

Without --profile the base PDF/X profile is used.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.settingsPath, "config", "c", "", "Settings file path (YAML)")
	pf.StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVarP(&flags.profilePath, "profile", "p", "", "Profile definition (YAML)")
	pf.StringVarP(&flags.format, "format", "f", "text", "Report format (text, json, markdown, html)")
	pf.IntVar(&flags.concurrency, "concurrency", 1, "Pages evaluated in parallel")

	cmd.AddCommand(checkCmd(flags), watchCmd(flags), rulesCmd(), versionCmd())
	return cmd
}

func settingsFor(cmd *cobra.Command, flags *globalFlags) (*config.Settings, error) {
	return loadSettings(flags, func(name string) bool { return cmd.Flags().Changed(name) })
}

func checkCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file|glob>...",
		Short: "Preflight files once and print a report per file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := settingsFor(cmd, flags)
			if err != nil {
				return err
			}
			a, err := newApp(s, cmd.ErrOrStderr(), nil)
			if err != nil {
				return err
			}
			files, err := expand(args)
			if err != nil {
				return err
			}
			out := sink.NewWriterSink(cmd.OutOrStdout(), a.renderer)
			failed := false
			for _, path := range files {
				rep, err := a.checkFile(cmd.Context(), path)
				switch {
				case isEncrypted(err):
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", path, encryptedMessage)
					failed = true
					continue
				case err != nil:
					return err
				}
				if err := out.Publish(cmd.Context(), rep); err != nil {
					return err
				}
				failed = failed || !rep.Compliant
			}
			if failed {
				return errNotCompliant
			}
			return nil
		},
	}
}

// expand resolves glob arguments. Plain paths must exist.
func expand(args []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	for _, arg := range args {
		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err != nil {
				return nil, err
			}
			matches = []string{arg}
		}
		sort.Strings(matches)
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	return files, nil
}

func watchCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <dir>",
		Short: "Preflight every PDF dropped into a hot folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := settingsFor(cmd, flags)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, s, args[0])
		},
	}
}

func runWatch(ctx context.Context, cmd *cobra.Command, s *config.Settings, dir string) error {
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewPrometheusMetrics(reg)
	if err != nil {
		return err
	}
	a, err := newApp(s, cmd.ErrOrStderr(), metrics)
	if err != nil {
		return err
	}

	sinks := sink.Multi{sink.NewWriterSink(cmd.OutOrStdout(), a.renderer)}
	if s.NATS.URL != "" {
		ns, err := sink.ConnectNATS(s.NATS.URL, s.NATS.Subject)
		if err != nil {
			return err
		}
		sinks = append(sinks, ns)
	}
	defer sinks.Close()

	if s.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: s.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server failed", observability.Error("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	w, err := watch.New(dir, watch.Config{Debounce: s.Watch.Debounce, Patterns: s.Watch.Patterns}, a.logger)
	if err != nil {
		return err
	}
	defer w.Stop()
	if err := w.Start(ctx); err != nil {
		return err
	}

	for ev := range w.Events() {
		rep, err := a.checkFile(ctx, ev.Path)
		switch {
		case isEncrypted(err):
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", ev.Path, encryptedMessage)
			continue
		case err != nil:
			a.logger.Warn("preflight failed", observability.String("path", ev.Path), observability.Error("error", err))
			continue
		}
		if err := sinks.Publish(ctx, rep); err != nil {
			a.logger.Warn("publish failed", observability.String("path", ev.Path), observability.Error("error", err))
		}
	}
	return nil
}

func rulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the rules a profile definition can use",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := registry.Default()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, name := range reg.Names() {
				e, _ := reg.Lookup(name)
				fmt.Fprintf(tw, "%s\t%s\n", name, e.Description)
			}
			return tw.Flush()
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	}
}
