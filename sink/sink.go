// Package sink delivers finished reports.
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/wudi/preflight/compliance"
	"github.com/wudi/preflight/report"
)

// Sink receives reports as they are produced.
type Sink interface {
	Publish(ctx context.Context, r *compliance.Report) error
	Close() error
}

// WriterSink renders reports to a writer.
type WriterSink struct {
	mu       sync.Mutex
	w        io.Writer
	renderer report.Renderer
}

func NewWriterSink(w io.Writer, renderer report.Renderer) *WriterSink {
	return &WriterSink{w: w, renderer: renderer}
}

func (s *WriterSink) Publish(ctx context.Context, r *compliance.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderer.Render(s.w, r)
}

func (s *WriterSink) Close() error { return nil }

// Conn is the part of *nats.Conn used by NATSSink.
type Conn interface {
	PublishMsg(m *nats.Msg) error
	Drain() error
}

// Header names set on published reports.
const (
	HeaderProfile   = "Preflight-Profile"
	HeaderCompliant = "Preflight-Compliant"
	HeaderReportID  = "Nats-Msg-Id"
)

// NATSSink publishes reports as JSON.
type NATSSink struct {
	conn    Conn
	subject string
}

// ConnectNATS dials url and returns a sink publishing on subject.
func ConnectNATS(url, subject string) (*NATSSink, error) {
	nc, err := nats.Connect(url,
		nats.Name("preflight"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return NewNATSSink(nc, subject), nil
}

func NewNATSSink(conn Conn, subject string) *NATSSink {
	return &NATSSink{conn: conn, subject: subject}
}

func (s *NATSSink) Publish(ctx context.Context, r *compliance.Report) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	msg := nats.NewMsg(s.subject)
	msg.Data = data
	msg.Header.Set(HeaderProfile, r.Profile)
	msg.Header.Set(HeaderCompliant, strconv.FormatBool(r.Compliant))
	msg.Header.Set(HeaderReportID, r.ID)
	if err := s.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish report: %w", err)
	}
	return nil
}

// Close drains pending messages.
func (s *NATSSink) Close() error { return s.conn.Drain() }

// Multi fans a report out to several sinks. Every sink is tried.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, r *compliance.Report) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
