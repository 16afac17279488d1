package blueprint

import "time"

// Blueprint represents a row in the blueprints table. ID is the
// caller-supplied identity the blueprint's store paths are keyed by; it is
// immutable once assigned.
type Blueprint struct {
	ID           string
	MainFileName string
	Description  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
