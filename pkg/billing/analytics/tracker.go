// Package analytics reports billing events to Amplitude and Mixpanel.
package analytics

import (
	"context"

	"github.com/dukex/mixpanel"
	"github.com/golangci/golangci-billing/internal/shared/config"
	"github.com/golangci/golangci-billing/internal/shared/logutil"
	"github.com/savaki/amplitude-go"
)

type EventName string

const (
	EventSubscribed           EventName = "Subscribed"
	EventSubscriptionCanceled EventName = "Subscription canceled"
	EventTransactionRefunded  EventName = "Transaction refunded"
)

type Tracker interface {
	Track(ctx context.Context, customerID string, event EventName, props map[string]interface{})
}

type amplitudePublisher interface {
	Publish(e amplitude.Event) error
}

type mixpanelTracker interface {
	Track(distinctID, eventName string, e *mixpanel.Event) error
}

type amplitudeMixpanelTracker struct {
	amplitude amplitudePublisher
	mixpanel  mixpanelTracker
	log       logutil.Log
}

// NewTracker sends events to the services whose keys are configured. With
// no keys events are only logged.
func NewTracker(cfg config.Config, log logutil.Log) Tracker {
	t := amplitudeMixpanelTracker{log: log}
	if key := cfg.GetString("AMPLITUDE_API_KEY"); key != "" {
		t.amplitude = amplitude.New(key)
	}
	if key := cfg.GetString("MIXPANEL_API_KEY"); key != "" {
		t.mixpanel = mixpanel.New(key, "")
	}
	return t
}

func (t amplitudeMixpanelTracker) Track(ctx context.Context, customerID string, eventName EventName, props map[string]interface{}) {
	if ctx.Err() != nil {
		return
	}

	eventProps := map[string]interface{}{}
	for k, v := range props {
		eventProps[k] = v
	}
	t.log.Infof("track event %s for %s with props %+v", eventName, customerID, eventProps)

	if t.amplitude != nil {
		ev := amplitude.Event{
			UserId:          customerID,
			EventType:       string(eventName),
			EventProperties: eventProps,
		}
		if err := t.amplitude.Publish(ev); err != nil {
			t.log.Warnf("Can't publish %+v to amplitude: %s", ev, err)
		}
	}

	if t.mixpanel != nil {
		const ip = "0" // don't auto-detect
		ev := &mixpanel.Event{
			IP:         ip,
			Properties: eventProps,
		}
		if err := t.mixpanel.Track(customerID, string(eventName), ev); err != nil {
			t.log.Warnf("Can't publish event %s (%+v) to mixpanel: %s", string(eventName), ev, err)
		}
	}
}
