package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_RoundTripsRawBytes(t *testing.T) {
	record := []byte(`{"user":1,"level":"foo.bar","time":12345,"score_completion":5,"score_finesse":5,"timestamp":999}`)

	e, err := Parse(record)
	require.NoError(t, err)

	assert.Equal(t, 1, e.User)
	assert.Equal(t, "foo.bar", e.Level)
	assert.Equal(t, 12345, e.Time)
	assert.Equal(t, 5, e.ScoreCompletion)
	assert.Equal(t, 5, e.ScoreFinesse)
	assert.Equal(t, int64(999), e.Timestamp)
	assert.Equal(t, record, e.Raw())
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := Parse([]byte("not json"))
	assert.Error(t, err)
}

func TestScore_Better_HigherRatingWins(t *testing.T) {
	better := Score{Completion: 5, Finesse: 5, Time: 5000, Timestamp: 1}
	worse := Score{Completion: 5, Finesse: 4, Time: 1000, Timestamp: 1}

	assert.True(t, better.Better(worse))
	assert.False(t, worse.Better(better))
}

func TestScore_Better_TiebreaksOnLowerTime(t *testing.T) {
	faster := Score{Completion: 5, Finesse: 5, Time: 1000, Timestamp: 1}
	slower := Score{Completion: 5, Finesse: 5, Time: 2000, Timestamp: 1}

	assert.True(t, faster.Better(slower))
	assert.False(t, slower.Better(faster))
}

func TestScore_Better_TiebreaksOnLowerTimestamp(t *testing.T) {
	earlier := Score{Completion: 5, Finesse: 5, Time: 1000, Timestamp: 1}
	later := Score{Completion: 5, Finesse: 5, Time: 1000, Timestamp: 2}

	assert.True(t, earlier.Better(later))
	assert.False(t, later.Better(earlier))
}

func TestFromEvent(t *testing.T) {
	e := Event{ScoreCompletion: 5, ScoreFinesse: 4, Time: 1000, Timestamp: 42}
	s := FromEvent(e)

	assert.Equal(t, Score{Completion: 5, Finesse: 4, Time: 1000, Timestamp: 42}, s)
}
