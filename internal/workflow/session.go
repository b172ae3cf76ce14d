package workflow

// Session identifies who is operating the device for the current shift.
// It is a plain value handed to the services that stamp work items; nothing
// reads identity from global state.
type Session struct {
	UserID   string
	UserName string
	DeviceID string
	BranchID string
}

// Valid reports whether the session can stamp work items.
func (s Session) Valid() bool {
	return s.UserID != "" && s.DeviceID != "" && s.BranchID != ""
}
