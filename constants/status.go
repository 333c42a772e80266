package constants

// ExtractionStatus is the canonical status for extraction artifacts.
type ExtractionStatus string

// Stable values (store these exact strings in the DB).
const (
	StatusPending    ExtractionStatus = "PENDING"    // created, no extraction attempted yet
	StatusExtracting ExtractionStatus = "EXTRACTING" // external call in flight
	StatusComplete   ExtractionStatus = "COMPLETE"   // terminal success
	StatusError      ExtractionStatus = "ERROR"      // terminal failure
)

// Terminal reports whether no further status transition is permitted.
func (s ExtractionStatus) Terminal() bool {
	return s == StatusComplete || s == StatusError
}
