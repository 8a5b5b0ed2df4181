package database

// image lifecycle statuses
const (
	ImageStatusPending  = "pending"
	ImageStatusAssigned = "assigned"
	ImageStatusLabeled  = "labeled"
	ImageStatusSkipped  = "skipped"
)

// background task statuses (preview generation)
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusError      = "error"
)

// annotation history actions
const (
	HistoryActionCreate = "create"
	HistoryActionDelete = "delete"
)
