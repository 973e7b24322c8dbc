// Package logger provides structured logging capabilities for the application.
package logger

import (
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// FieldScrapeRun is the marker field key identifying scrape-run log entries
const FieldScrapeRun = "scrape_run"

// ScrapeLogSink receives formatted scrape-run log lines.
// This abstraction keeps the logger package independent of the scraper package;
// the progress snapshot's bounded log ring implements it.
type ScrapeLogSink interface {
	// AppendLog appends one formatted log line
	AppendLog(line string)
}

// ScrapeLogHook mirrors log entries tagged with FieldScrapeRun into a sink.
// Unlike a database-backed hook there is no buffering: the sink is an
// in-memory ring and appends are cheap.
type ScrapeLogHook struct {
	sink ScrapeLogSink
}

// NewScrapeLogHook creates a new ScrapeLogHook with the given sink.
func NewScrapeLogHook(sink ScrapeLogSink) *ScrapeLogHook {
	return &ScrapeLogHook{sink: sink}
}

// scrapeLogCore wraps a zapcore.Core to intercept scrape-run entries.
type scrapeLogCore struct {
	zapcore.Core
	hook   *ScrapeLogHook
	fields []zapcore.Field
}

// WrapCore wraps a zapcore.Core with the ScrapeLogHook.
func (h *ScrapeLogHook) WrapCore(core zapcore.Core) zapcore.Core {
	return &scrapeLogCore{
		Core:   core,
		hook:   h,
		fields: nil,
	}
}

// With creates a new Core with additional fields.
func (c *scrapeLogCore) With(fields []zapcore.Field) zapcore.Core {
	// Merge fields
	newFields := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	newFields = append(newFields, c.fields...)
	newFields = append(newFields, fields...)

	return &scrapeLogCore{
		Core:   c.Core.With(fields),
		hook:   c.hook,
		fields: newFields,
	}
}

// Check determines whether the supplied Entry should be logged.
func (c *scrapeLogCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return ce.AddCore(entry, c)
	}
	return ce
}

// Write intercepts log writes and mirrors tagged entries into the sink.
func (c *scrapeLogCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	// First, write to the underlying core
	if err := c.Core.Write(entry, fields); err != nil {
		return err
	}

	// Combine with context fields
	allFields := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	allFields = append(allFields, c.fields...)
	allFields = append(allFields, fields...)

	if !hasScrapeMarker(allFields) {
		return nil
	}

	c.hook.sink.AppendLog(formatScrapeLine(entry, allFields))
	return nil
}

// Sync flushes the underlying core.
func (c *scrapeLogCore) Sync() error {
	return c.Core.Sync()
}

// hasScrapeMarker reports whether the fields carry the scrape-run marker.
func hasScrapeMarker(fields []zapcore.Field) bool {
	for _, field := range fields {
		if field.Key == FieldScrapeRun && field.Type == zapcore.BoolType && field.Integer == 1 {
			return true
		}
	}
	return false
}

// formatScrapeLine renders an entry as an ISO-timestamped one-liner for the ring.
func formatScrapeLine(entry zapcore.Entry, fields []zapcore.Field) string {
	var b strings.Builder
	b.WriteString(entry.Time.UTC().Format(time.RFC3339))
	b.WriteByte(' ')
	b.WriteString(entry.Message)

	for _, field := range fields {
		if field.Key == FieldScrapeRun {
			continue
		}
		b.WriteByte(' ')
		b.WriteString(field.Key)
		b.WriteByte('=')
		buf := bufferpool.Get()
		appendFieldValue(buf, field)
		b.WriteString(buf.String())
		buf.Free()
	}

	return b.String()
}
