package constants

// Action is the kind of change recorded in the activity log.
type Action string

const (
	ActionUploaded Action = "uploaded"
	ActionCreated  Action = "created"
	ActionUpdated  Action = "updated"
	ActionDeleted  Action = "deleted"
	ActionExported Action = "exported"
)

// IsValid checks if the action is one of the known values.
func (a Action) IsValid() bool {
	switch a {
	case ActionUploaded, ActionCreated, ActionUpdated, ActionDeleted, ActionExported:
		return true
	}
	return false
}

func (a Action) String() string {
	return string(a)
}

// ExportFilter selects which contacts an export includes.
type ExportFilter string

const (
	ExportAll    ExportFilter = "all"
	ExportSent   ExportFilter = "sent"
	ExportUnsent ExportFilter = "unsent"
)

// ParseExportFilter maps a query value onto a filter; unknown values mean all.
func ParseExportFilter(s string) ExportFilter {
	switch ExportFilter(s) {
	case ExportSent:
		return ExportSent
	case ExportUnsent:
		return ExportUnsent
	default:
		return ExportAll
	}
}

// SentFlag returns the sent value the filter requires, or nil for all.
func (f ExportFilter) SentFlag() *bool {
	switch f {
	case ExportSent:
		v := true
		return &v
	case ExportUnsent:
		v := false
		return &v
	}
	return nil
}
