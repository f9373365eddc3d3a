// Package status holds the client's single status indicator: the outcome of
// the last thing the user asked for. Every operation, and every failure no
// operation handled, ends up here.
package status

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/docqa/internal/logging"
)

type Severity string

const (
	OK   Severity = "ok"
	Warn Severity = "warn"
)

// Kind classifies what produced a record.
type Kind string

const (
	KindOK         Kind = "ok"
	KindProgress   Kind = "progress"
	KindBusy       Kind = "busy"
	KindValidation Kind = "validation"
	KindNetwork    Kind = "network"
	KindHTTP       Kind = "http"
	KindParse      Kind = "parse"
	KindInternal   Kind = "internal"
)

type Record struct {
	Message  string
	Severity Severity
	Kind     Kind
	At       time.Time
}

// Sink is the view-side status indicator.
type Sink interface {
	ShowStatus(r Record)
}

// Channel keeps only the most recent Record. Reports are synchronous: when
// Report returns, the sink has been updated.
type Channel struct {
	mu     sync.Mutex
	last   Record
	sink   Sink
	logger logging.Logger
	now    func() time.Time
}

// NewChannel creates a channel forwarding to sink (may be nil) and logging
// through logger (may be nil).
func NewChannel(sink Sink, logger logging.Logger) *Channel {
	return &Channel{sink: sink, logger: logger, now: time.Now}
}

// Report records msg with a kind inferred from severity.
func (c *Channel) Report(msg string, sev Severity) {
	kind := KindOK
	if sev == Warn {
		kind = KindInternal
	}
	c.ReportKind(kind, msg, sev)
}

// ReportKind records msg, replacing whatever was there before.
func (c *Channel) ReportKind(kind Kind, msg string, sev Severity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := Record{Message: msg, Severity: sev, Kind: kind, At: c.now()}
	c.last = r

	if c.logger != nil {
		if sev == Warn {
			c.logger.Warn(context.Background(), "status", "msg", msg, "kind", string(kind))
		} else {
			c.logger.Debug(context.Background(), "status", "msg", msg, "kind", string(kind))
		}
	}
	if c.sink != nil {
		c.sink.ShowStatus(r)
	}
}

// Last returns the current record; the zero Record before the first report.
func (c *Channel) Last() Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}
