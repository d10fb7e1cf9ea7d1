package apperrors

type Level string

const (
	LevelError Level = "ERROR"
	LevelWarn  Level = "WARN"
)

type Tracker interface {
	Track(level Level, errorText string, ctx map[string]interface{})
	// WithTags returns a tracker that attaches tags to every tracked event.
	WithTags(tags map[string]string) Tracker
}

func mergeTags(base, extra map[string]string) map[string]string {
	ret := map[string]string{}
	for k, v := range base {
		ret[k] = v
	}
	for k, v := range extra {
		ret[k] = v
	}
	return ret
}
