// Package auditlog holds the append-only audit ledger written by every workflow action.
package auditlog

import (
	"errors"
	"fmt"
	"sort"

	"github.com/banking/sar-workbench/internal/domain"
	"github.com/google/uuid"
)

// ErrTampered is returned by Verify when a signature does not match the chain.
var ErrTampered = errors.New("audit log signature chain broken")

// Signer produces and checks chained signatures. prev is the signature of the
// preceding event, empty for the first one.
type Signer interface {
	Sign(prev string, event domain.AuditEvent) string
	Verify(prev string, event domain.AuditEvent) bool
}

// Log is an append-only, ordered sequence of audit events.
// It is not safe for concurrent use.
type Log struct {
	events []domain.AuditEvent
	signer Signer
}

// New creates an empty log. signer may be nil.
func New(signer Signer) *Log {
	return &Log{signer: signer}
}

// Append validates the event, stamps its identity and sequence, and adds it to the end.
func (l *Log) Append(event domain.AuditEvent) (domain.AuditEvent, error) {
	if err := event.Validate(); err != nil {
		return domain.AuditEvent{}, err
	}

	event.EventID = uuid.New()
	event.Sequence = uint64(len(l.events)) + 1
	event.Signature = ""
	if l.signer != nil {
		event.Signature = l.signer.Sign(l.lastSignature(), event)
	}

	l.events = append(l.events, event)
	return event, nil
}

func (l *Log) lastSignature() string {
	if len(l.events) == 0 {
		return ""
	}
	return l.events[len(l.events)-1].Signature
}

// Query returns the matching events, newest first. Events sharing a timestamp
// are ordered by descending sequence.
func (l *Log) Query(filter domain.AuditEventFilter) []domain.AuditEvent {
	result := make([]domain.AuditEvent, 0, len(l.events))
	for _, e := range l.events {
		if filter.Matches(e) {
			result = append(result, e)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.After(result[j].Timestamp)
		}
		return result[i].Sequence > result[j].Sequence
	})
	return result
}

// Since returns events with a sequence greater than seq, in append order.
func (l *Log) Since(seq uint64) []domain.AuditEvent {
	if seq >= uint64(len(l.events)) {
		return nil
	}
	out := make([]domain.AuditEvent, len(l.events)-int(seq))
	copy(out, l.events[seq:])
	return out
}

// Len returns the number of appended events.
func (l *Log) Len() int { return len(l.events) }

// Last returns the sequence of the newest event, 0 when empty.
func (l *Log) Last() uint64 { return uint64(len(l.events)) }

// Verify walks the signature chain. Unsigned logs always verify.
func (l *Log) Verify() error {
	if l.signer == nil {
		return nil
	}
	prev := ""
	for _, e := range l.events {
		if !l.signer.Verify(prev, e) {
			return fmt.Errorf("%w at sequence %d", ErrTampered, e.Sequence)
		}
		prev = e.Signature
	}
	return nil
}
