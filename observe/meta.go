package observe

// CacheMeta identifies the cache component emitting telemetry.
type CacheMeta struct {
	Component string // facade, memo, http, storage
	Name      string // wrapper or cache name (optional)
	Backend   string // storage backend kind (optional)
	Prefix    string // storage prefix (optional)
}

// SpanName returns the deterministic span name for this component.
// Format: cache.<component>.<name> or cache.<component>
func (m CacheMeta) SpanName() string {
	if m.Name != "" {
		return "cache." + m.component() + "." + m.Name
	}
	return "cache." + m.component()
}

func (m CacheMeta) component() string {
	if m.Component == "" {
		return "facade"
	}
	return m.Component
}
