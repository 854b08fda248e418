package probe

import (
	"log"

	"github.com/nats-io/nats.go"

	"github.com/crazyharmony/traf-exercize/internal/config"
)

// LineHandler is a function that processes a received capture log line.
type LineHandler func(line string)

// Subscriber is responsible for subscribing to a NATS subject and handing
// received log lines to a handler.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
	closed  chan struct{}
}

// NewSubscriber creates a new NATS subscriber.
func NewSubscriber(cfg config.ProbeConfig) (*Subscriber, error) {
	closed := make(chan struct{})
	nc, err := nats.Connect(cfg.NATSURL,
		nats.ClosedHandler(func(*nats.Conn) { close(closed) }))
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)
	return &Subscriber{nc: nc, subject: cfg.Subject, closed: closed}, nil
}

// Start subscribes to the configured subject and starts processing messages
// with the provided handler. NATS delivers messages of one subscription
// serially, so the handler never runs concurrently with itself.
func (s *Subscriber) Start(handler LineHandler) error {
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		handler(string(msg.Data))
	})
	if err != nil {
		return err
	}
	s.sub = sub
	log.Printf("Subscribed to '%s'. Waiting for records...", s.subject)
	return nil
}

// Close drains the NATS connection and blocks until every in-flight message
// handler has returned. After Close the handler is never invoked again, so
// callers may safely tear down whatever the handler writes to.
func (s *Subscriber) Close() {
	if s.nc == nil {
		return
	}
	if err := s.nc.Drain(); err != nil {
		log.Printf("Warning: NATS drain failed, closing hard: %v", err)
		s.nc.Close()
	}
	<-s.closed
	log.Println("NATS connection drained and closed.")
}
