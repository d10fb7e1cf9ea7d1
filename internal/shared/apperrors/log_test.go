package apperrors

import (
	"testing"

	"github.com/golangci/golangci-billing/internal/shared/logutil"
	"github.com/stretchr/testify/assert"
)

type trackedEvent struct {
	level Level
	text  string
}

type recordingTracker struct {
	events *[]trackedEvent
}

func (rt recordingTracker) Track(level Level, errorText string, _ map[string]interface{}) {
	*rt.events = append(*rt.events, trackedEvent{level: level, text: errorText})
}

func (rt recordingTracker) WithTags(map[string]string) Tracker {
	return rt
}

func TestTrackedLogReportsErrorsAndWarnings(t *testing.T) {
	var events []trackedEvent
	log := logutil.NewStderrLog("test")
	log.SetLevel(logutil.LogLevelError + 1) // keep test output quiet

	tl := WrapLogWithTracker(log, logutil.Context{"customer": "c1"}, recordingTracker{events: &events})
	tl.Infof("not tracked")
	tl.Warnf("gateway slow: %d ms", 1500)
	tl.Child("syncer").Errorf("commit failed: %s", "conflict")

	assert.Equal(t, []trackedEvent{
		{level: LevelWarn, text: "gateway slow: 1500 ms"},
		{level: LevelError, text: "commit failed: conflict"},
	}, events)
}

func TestMergeTags(t *testing.T) {
	base := map[string]string{"a": "1"}
	merged := mergeTags(base, map[string]string{"b": "2", "a": "3"})

	assert.Equal(t, map[string]string{"a": "3", "b": "2"}, merged)
	assert.Equal(t, map[string]string{"a": "1"}, base)
}
