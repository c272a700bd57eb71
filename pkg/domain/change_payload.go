package domain

// EntityID returns the record identifier. Every domain entity embeds Base
// and inherits it, which lets rules address change payloads uniformly.
func (b Base) EntityID() string { return b.ID }

type identifiable interface{ EntityID() string }

// PayloadAs re-types a change's Before or After payload. The second return
// is false when the payload is nil or of a different entity type.
func PayloadAs[T any](payload any) (T, bool) {
	v, ok := payload.(T)
	return v, ok
}

// ChangeID returns the identifier carried by a change, preferring the After
// payload. It returns the empty string for changes without identifiable
// payloads.
func ChangeID(c Change) string {
	if v, ok := c.After.(identifiable); ok && v.EntityID() != "" {
		return v.EntityID()
	}
	if v, ok := c.Before.(identifiable); ok {
		return v.EntityID()
	}
	return ""
}
