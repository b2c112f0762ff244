package auditlog

import (
	"testing"
	"time"

	"github.com/banking/sar-workbench/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 2, 12, 9, 0, 0, 0, time.UTC)

type fakeSigner struct{}

func (fakeSigner) Sign(prev string, e domain.AuditEvent) string {
	return prev + "/" + e.Description
}

func (f fakeSigner) Verify(prev string, e domain.AuditEvent) bool {
	return f.Sign(prev, e) == e.Signature
}

func event(offset time.Duration, user string, action domain.ActionType, desc string) domain.AuditEvent {
	return domain.NewAuditEvent(base.Add(offset), user, action, "CASE-3401", desc)
}

func TestAppendAssignsSequenceAndID(t *testing.T) {
	log := New(nil)

	first, err := log.Append(event(0, "a.patel", domain.ActionEvidenceUpdated, "1 transaction tagged"))
	require.NoError(t, err)
	second, err := log.Append(event(time.Minute, "a.patel", domain.ActionNarrativeGenerated, "v1"))
	require.NoError(t, err)

	assert.Equal(t, uint64(1), first.Sequence)
	assert.Equal(t, uint64(2), second.Sequence)
	assert.NotEqual(t, first.EventID, second.EventID)
	assert.Equal(t, 2, log.Len())
	assert.Equal(t, uint64(2), log.Last())
}

func TestAppendRejectsMalformedEvent(t *testing.T) {
	log := New(nil)

	_, err := log.Append(domain.NewAuditEvent(base, "", domain.ActionDraftSaved, "CASE-3401", "x"))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = log.Append(domain.NewAuditEvent(base, "a.patel", domain.ActionType("Deleted"), "CASE-3401", "x"))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	assert.Equal(t, 0, log.Len())
}

func TestQueryOrdersNewestFirst(t *testing.T) {
	log := New(nil)
	_, _ = log.Append(event(0, "a.patel", domain.ActionEvidenceUpdated, "e"))
	_, _ = log.Append(event(time.Minute, "a.patel", domain.ActionDraftSaved, "s1"))
	_, _ = log.Append(event(2*time.Minute, "m.khan", domain.ActionReviewApproved, "ok"))
	_, _ = log.Append(event(2*time.Minute, "a.patel", domain.ActionDraftSaved, "s2"))

	all := log.Query(domain.AuditEventFilter{})
	require.Len(t, all, 4)
	assert.Equal(t, "s2", all[0].Description)
	assert.Equal(t, "ok", all[1].Description)
	assert.Equal(t, "s1", all[2].Description)
	assert.Equal(t, "e", all[3].Description)

	saved := log.Query(domain.AuditEventFilter{Actions: []domain.ActionType{domain.ActionDraftSaved}})
	require.Len(t, saved, 2)
	for _, e := range saved {
		assert.Equal(t, domain.ActionDraftSaved, e.Action)
	}
	assert.Equal(t, "s2", saved[0].Description)

	byUser := log.Query(domain.AuditEventFilter{User: "m.khan"})
	require.Len(t, byUser, 1)
	assert.Equal(t, domain.ActionReviewApproved, byUser[0].Action)
}

func TestQueryDoesNotMutateLog(t *testing.T) {
	log := New(nil)
	_, _ = log.Append(event(0, "a.patel", domain.ActionEvidenceUpdated, "e"))

	result := log.Query(domain.AuditEventFilter{})
	result[0].Description = "changed"

	assert.Equal(t, "e", log.Query(domain.AuditEventFilter{})[0].Description)
}

func TestSince(t *testing.T) {
	log := New(nil)
	_, _ = log.Append(event(0, "a.patel", domain.ActionEvidenceUpdated, "e"))
	_, _ = log.Append(event(time.Minute, "a.patel", domain.ActionDraftSaved, "s"))

	assert.Len(t, log.Since(0), 2)
	tail := log.Since(1)
	require.Len(t, tail, 1)
	assert.Equal(t, "s", tail[0].Description)
	assert.Empty(t, log.Since(2))
	assert.Empty(t, log.Since(10))
}

func TestVerifyDetectsTampering(t *testing.T) {
	log := New(fakeSigner{})
	_, _ = log.Append(event(0, "a.patel", domain.ActionEvidenceUpdated, "e"))
	_, _ = log.Append(event(time.Minute, "a.patel", domain.ActionDraftSaved, "s"))

	require.NoError(t, log.Verify())
	assert.Equal(t, "/e/s", log.events[1].Signature)

	log.events[0].Description = "rewritten"
	assert.ErrorIs(t, log.Verify(), ErrTampered)
}
