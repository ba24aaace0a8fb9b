package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/wudi/preflight/compliance"
	"github.com/wudi/preflight/compliance/pdfx"
	"github.com/wudi/preflight/config"
	"github.com/wudi/preflight/observability"
	"github.com/wudi/preflight/parser"
	"github.com/wudi/preflight/report"
	"github.com/wudi/preflight/security"
)

// encryptedMessage is printed instead of a report for encrypted files.
const encryptedMessage = "Can't preflight an encrypted PDF"

// globalFlags are shared by all subcommands.
type globalFlags struct {
	settingsPath string
	logLevel     string
	profilePath  string
	format       string
	concurrency  int
}

type app struct {
	settings *config.Settings
	logger   observability.Logger
	metrics  observability.Metrics
	profile  *compliance.Profile
	renderer report.Renderer
}

// loadSettings applies flags that were set on top of the settings file.
func loadSettings(f *globalFlags, changed func(string) bool) (*config.Settings, error) {
	s := config.DefaultSettings()
	if f.settingsPath != "" {
		loaded, err := config.LoadSettings(f.settingsPath)
		if err != nil {
			return nil, err
		}
		s = loaded
	}
	if changed("log-level") {
		s.LogLevel = f.logLevel
	}
	if changed("profile") {
		s.Profile = f.profilePath
	}
	if changed("format") {
		s.Format = f.format
	}
	if changed("concurrency") {
		s.Concurrency = f.concurrency
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func newApp(s *config.Settings, stderr io.Writer, metrics observability.Metrics) (*app, error) {
	handler := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: observability.ParseLevel(s.LogLevel)})
	logger := observability.NewSlogLogger(slog.New(handler))
	if metrics == nil {
		metrics = observability.NopMetrics{}
	}

	opts := []compliance.Option{
		compliance.WithLogger(logger),
		compliance.WithTracer(observability.NewLogTracer(logger)),
		compliance.WithMetrics(metrics),
		compliance.WithConcurrency(s.Concurrency),
		compliance.WithLimits(s.Limits.Security()),
	}
	var (
		profile *compliance.Profile
		err     error
	)
	if s.Profile == "" {
		profile, err = pdfx.NewBaseProfile(opts...)
	} else {
		profile, err = config.LoadProfile(s.Profile, nil, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	renderer, err := report.New(report.Format(s.Format))
	if err != nil {
		return nil, err
	}
	return &app{settings: s, logger: logger, metrics: metrics, profile: profile, renderer: renderer}, nil
}

// checkFile preflights one file. Encrypted files return
// security.ErrEncrypted.
func (a *app) checkFile(ctx context.Context, path string) (*compliance.Report, error) {
	doc, err := parser.OpenContext(ctx, path, parser.Config{Limits: a.settings.Limits.Security()})
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	rep, err := a.profile.Validate(ctx, doc)
	if err != nil {
		return nil, err
	}
	rep.Source = path
	return rep, nil
}

// isEncrypted reports whether err stems from an encrypted document.
func isEncrypted(err error) bool { return errors.Is(err, security.ErrEncrypted) }
