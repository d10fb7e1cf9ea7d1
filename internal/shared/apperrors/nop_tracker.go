package apperrors

type NopTracker struct{}

func NewNopTracker() *NopTracker {
	return &NopTracker{}
}

func (t NopTracker) Track(level Level, errorText string, ctx map[string]interface{}) {
}

func (t NopTracker) WithTags(tags map[string]string) Tracker {
	return t
}
