package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateTextRoundTrip(t *testing.T) {
	d := NewDate(2026, time.February, 11)
	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2026-02-11", string(text))

	var back Date
	require.NoError(t, back.UnmarshalText(text))
	assert.True(t, back.Equal(d))

	err = back.UnmarshalText([]byte("11/02/2026"))
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestEmptyEvidenceSummaryJSONRoundTrip(t *testing.T) {
	empty := SummarizeEvidence(EvidenceSelection{}, nil)

	data, err := json.Marshal(empty)
	require.NoError(t, err)

	var back EvidenceSummary
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.IsEmpty())
	assert.True(t, back.Earliest.IsZero())
	assert.True(t, back.Latest.IsZero())
	assert.Equal(t, "No evidence selected", back.String())
}
