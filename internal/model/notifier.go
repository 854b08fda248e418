package model

// Notifier defines a generic interface for sending alert notifications.
type Notifier interface {
	Send(subject, body string) error
}
