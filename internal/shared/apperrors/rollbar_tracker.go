package apperrors

import (
	"errors"

	"github.com/stvp/rollbar"
)

type RollbarTracker struct {
	project string
	tags    map[string]string
}

func NewRollbarTracker(token, project, env string) *RollbarTracker {
	rollbar.Environment = env
	rollbar.Token = token

	return &RollbarTracker{
		project: project,
	}
}

func (t RollbarTracker) Track(level Level, errorText string, ctx map[string]interface{}) {
	fields := []*rollbar.Field{}

	if ctx != nil {
		fields = append(fields, &rollbar.Field{
			Name: "props",
			Data: ctx,
		})
	}

	if len(t.tags) != 0 {
		fields = append(fields, &rollbar.Field{
			Name: "tags",
			Data: t.tags,
		})
	}

	fields = append(fields, &rollbar.Field{
		Name: "project",
		Data: t.project,
	})

	var rollbarLevel string
	switch level {
	case LevelError:
		rollbarLevel = rollbar.ERR
	case LevelWarn:
		rollbarLevel = rollbar.WARN
	default:
		panic("invalid level " + level)
	}

	rollbar.Error(rollbarLevel, errors.New(errorText), fields...)
}

func (t RollbarTracker) WithTags(tags map[string]string) Tracker {
	t.tags = mergeTags(t.tags, tags)
	return t
}
