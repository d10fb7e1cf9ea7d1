package apperrors

import (
	"fmt"

	"github.com/getsentry/raven-go"
	"github.com/pkg/errors"
)

type SentryTracker struct {
	tags map[string]string
}

func NewSentryTracker(dsn, env string) (*SentryTracker, error) {
	raven.SetEnvironment(env)
	err := raven.SetDSN(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "can't set sentry dsn")
	}

	return &SentryTracker{}, nil
}

func (t SentryTracker) Track(level Level, errorText string, ctx map[string]interface{}) {
	tags := mergeTags(t.tags, nil)
	for k, v := range ctx {
		tags[k] = fmt.Sprintf("%v", v)
	}

	switch level {
	case LevelError:
		raven.CaptureError(errors.New(errorText), tags)
	case LevelWarn:
		raven.CaptureMessage(errorText, tags)
	default:
		panic("invalid level " + level)
	}
}

func (t SentryTracker) WithTags(tags map[string]string) Tracker {
	t.tags = mergeTags(t.tags, tags)
	return t
}
