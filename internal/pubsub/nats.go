package pubsub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/Billy-Davies-2/esccup-draft/internal/logger"
)

// NATSOptions configures the JetStream stream events are written to
type NATSOptions struct {
	Subject string
	Stream  string
	Storage nats.StorageType
	MaxAge  time.Duration
}

// DefaultNATSOptions keeps a day of events on disk
func DefaultNATSOptions() NATSOptions {
	return NATSOptions{
		Subject: "esccup.events",
		Stream:  "ESCCUP_EVENTS",
		Storage: nats.FileStorage,
		MaxAge:  24 * time.Hour,
	}
}

// NATSTransport relays events through a JetStream subject
type NATSTransport struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	sub     *nats.Subscription
	subject string

	mu     sync.RWMutex
	events chan Event
	closed bool

	server *server.Server // set when the server runs in-process
}

// ConnectNATS connects to the NATS server at url and ensures the stream exists
func ConnectNATS(url string, opts NATSOptions) (*NATSTransport, error) {
	nc, err := nats.Connect(url,
		nats.Name("esccup-draft"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "connect to NATS")
	}

	t, err := newNATSTransport(nc, opts)
	if err != nil {
		nc.Close()
		return nil, err
	}
	logger.Info("Connected to NATS", "url", nc.ConnectedUrl(), "subject", opts.Subject)
	return t, nil
}

func newNATSTransport(nc *nats.Conn, opts NATSOptions) (*NATSTransport, error) {
	if opts.Subject == "" || opts.Stream == "" {
		return nil, errors.New("NATS subject and stream are required")
	}

	js, err := nc.JetStream()
	if err != nil {
		return nil, errors.Wrap(err, "create JetStream context")
	}

	if _, err := js.StreamInfo(opts.Stream); err != nil {
		if !errors.Is(err, nats.ErrStreamNotFound) {
			return nil, errors.Wrapf(err, "lookup stream %s", opts.Stream)
		}
		if _, err := js.AddStream(&nats.StreamConfig{
			Name:     opts.Stream,
			Subjects: []string{opts.Subject},
			Storage:  opts.Storage,
			MaxAge:   opts.MaxAge,
		}); err != nil {
			return nil, errors.Wrapf(err, "create stream %s", opts.Stream)
		}
		logger.Info("JetStream stream created", "stream", opts.Stream, "subject", opts.Subject)
	}

	t := &NATSTransport{
		nc:      nc,
		js:      js,
		subject: opts.Subject,
		events:  make(chan Event, 256),
	}

	// only events published after startup reach live clients
	t.sub, err = js.Subscribe(opts.Subject, t.handle, nats.DeliverNew(), nats.ManualAck())
	if err != nil {
		return nil, errors.Wrapf(err, "subscribe to %s", opts.Subject)
	}
	return t, nil
}

func (t *NATSTransport) handle(msg *nats.Msg) {
	var e Event
	if err := json.Unmarshal(msg.Data, &e); err != nil {
		logger.Error("Dropping undecodable event", "subject", msg.Subject, "error", err)
		// a redelivery would fail the same way
		_ = msg.Term()
		return
	}

	t.mu.RLock()
	if !t.closed {
		select {
		case t.events <- e:
		default:
			logger.Warn("Event relay full, dropping event", "type", e.Type)
		}
	}
	t.mu.RUnlock()

	if err := msg.Ack(); err != nil {
		logger.Debug("Ack failed", "error", err)
	}
}

// Publish writes e to the stream
func (t *NATSTransport) Publish(e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "encode event")
	}
	if _, err := t.js.Publish(t.subject, data, nats.MsgId(e.ID)); err != nil {
		return errors.Wrapf(err, "publish to %s", t.subject)
	}
	logger.Debug("Published event", "type", e.Type, "subject", t.subject)
	return nil
}

func (t *NATSTransport) Events() <-chan Event {
	return t.events
}

// Ping reports whether the connection is up
func (t *NATSTransport) Ping() error {
	if status := t.nc.Status(); status != nats.CONNECTED {
		return errors.Newf("nats connection %s", status)
	}
	return nil
}

// Close stops the subscription, the connection and any in-process server
func (t *NATSTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	close(t.events)
	t.mu.Unlock()

	if t.sub != nil {
		if err := t.sub.Unsubscribe(); err != nil {
			logger.Debug("Unsubscribe failed", "error", err)
		}
	}
	t.nc.Close()

	if t.server != nil {
		t.server.Shutdown()
		t.server.WaitForShutdown()
		logger.Info("Embedded NATS server stopped")
	}
	return nil
}
