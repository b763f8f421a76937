package policy

// StatusRef is the minimal view of an entity's joined status row needed to
// derive finality.
type StatusRef struct {
	ID      int64
	Name    string
	IsFinal bool
}

// IsLocked reports whether the entity holding this status is read-only.
// A missing status row is an integrity gap in the store and locks the entity
// rather than assuming it is editable.
func IsLocked(status *StatusRef) bool {
	if status == nil {
		return true
	}
	return status.IsFinal
}
