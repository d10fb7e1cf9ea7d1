package analytics

import (
	"context"
	"testing"

	"github.com/dukex/mixpanel"
	"github.com/golangci/golangci-billing/internal/shared/logutil"
	"github.com/pkg/errors"
	"github.com/savaki/amplitude-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAmplitude struct {
	events []amplitude.Event
}

func (f *fakeAmplitude) Publish(e amplitude.Event) error {
	f.events = append(f.events, e)
	return nil
}

type fakeMixpanel struct {
	distinctIDs []string
	events      []*mixpanel.Event
}

func (f *fakeMixpanel) Track(distinctID, _ string, e *mixpanel.Event) error {
	f.distinctIDs = append(f.distinctIDs, distinctID)
	f.events = append(f.events, e)
	return errors.New("mixpanel is down")
}

func TestTrack(t *testing.T) {
	a := &fakeAmplitude{}
	m := &fakeMixpanel{}
	tr := amplitudeMixpanelTracker{amplitude: a, mixpanel: m, log: logutil.NewStderrLog("test")}

	props := map[string]interface{}{"plan": "pro"}
	tr.Track(context.Background(), "c1", EventSubscribed, props)

	require.Len(t, a.events, 1)
	assert.Equal(t, "c1", a.events[0].UserId)
	assert.Equal(t, string(EventSubscribed), a.events[0].EventType)
	assert.Equal(t, "pro", a.events[0].EventProperties["plan"])

	require.Len(t, m.events, 1)
	assert.Equal(t, []string{"c1"}, m.distinctIDs)
	assert.Equal(t, "0", m.events[0].IP)

	// props are copied, not shared
	a.events[0].EventProperties["plan"] = "free"
	assert.Equal(t, "pro", props["plan"])
}

func TestTrackSkipsCancelledContext(t *testing.T) {
	a := &fakeAmplitude{}
	tr := amplitudeMixpanelTracker{amplitude: a, log: logutil.NewStderrLog("test")}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr.Track(ctx, "c1", EventSubscribed, nil)
	assert.Empty(t, a.events)
}
