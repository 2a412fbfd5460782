package log

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/vqp-project/responder/core"
)

// MemoryAuditPort is an in-process core.AuditPort, useful for tests and
// single-process deployments that don't need a durable audit trail
// beyond the syslog lines Logger.Audit already emits.
type MemoryAuditPort struct {
	mu      sync.Mutex
	entries []core.AuditEntry
}

// NewMemoryAuditPort returns an empty MemoryAuditPort.
func NewMemoryAuditPort() *MemoryAuditPort {
	return &MemoryAuditPort{}
}

// Record implements core.AuditPort.
func (p *MemoryAuditPort) Record(ctx context.Context, entry core.AuditEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, entry)
	return nil
}

// Entries returns a snapshot of every entry recorded so far, in
// recording order.
func (p *MemoryAuditPort) Entries() []core.AuditEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]core.AuditEntry, len(p.entries))
	copy(out, p.entries)
	return out
}

// LoggingAuditPort wraps a Logger as a core.AuditPort: every entry is
// serialized to JSON and written through Audit or AuditErr depending
// on whether it represents a processed query or a fault. Responders
// that don't need a queryable audit store can use this as their only
// AuditPort.
type LoggingAuditPort struct {
	logger Logger
}

// NewLoggingAuditPort wraps logger as a core.AuditPort.
func NewLoggingAuditPort(logger Logger) *LoggingAuditPort {
	return &LoggingAuditPort{logger: logger}
}

// Record implements core.AuditPort.
func (p *LoggingAuditPort) Record(ctx context.Context, entry core.AuditEntry) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if entry.Event == core.EventErrorOccurred {
		p.logger.AuditErr(string(b))
	} else {
		p.logger.Audit(string(b))
	}
	return nil
}
