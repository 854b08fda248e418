package model

// Writer defines a generic interface for emitting a generated report to a
// destination (console, file, database).
type Writer interface {
	// Write takes a report payload and renders or persists it.
	// The implementation is expected to know how to handle the payload type
	// it receives. The timestamp labels the snapshot the payload was taken at.
	Write(payload interface{}, timestamp string) error
}
