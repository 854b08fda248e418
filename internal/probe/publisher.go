package probe

import (
	"log"

	"github.com/nats-io/nats.go"

	"github.com/crazyharmony/traf-exercize/internal/config"
)

// Publisher is responsible for publishing raw capture log lines to a NATS
// subject. The payload is the line bytes as read from the source.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(cfg config.ProbeConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)
	return &Publisher{nc: nc, subject: cfg.Subject}, nil
}

// Publish sends one log line to the configured NATS subject.
func (p *Publisher) Publish(line string) error {
	return p.nc.Publish(p.subject, []byte(line))
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
}
