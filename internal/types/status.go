package types

// Status is the lifecycle marker shared by every tenant-scoped table. Rows
// are never physically deleted - Status tracks whether a row should still
// surface in normal queries.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
	StatusDeleted  Status = "deleted"
)
