package pubsub

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/Billy-Davies-2/esccup-draft/internal/logger"
)

// EmbeddedOptions configures an in-process NATS server for development
type EmbeddedOptions struct {
	Port     int    // -1 picks a free port
	StoreDir string // empty keeps JetStream in memory
	NATSOptions
}

// DefaultEmbeddedOptions uses a random port and in-memory storage
func DefaultEmbeddedOptions() EmbeddedOptions {
	opts := EmbeddedOptions{Port: -1, NATSOptions: DefaultNATSOptions()}
	opts.Storage = nats.MemoryStorage
	opts.MaxAge = time.Hour
	return opts
}

// StartEmbedded starts a JetStream enabled NATS server in this process and
// connects a transport to it. Closing the transport stops the server.
func StartEmbedded(opts EmbeddedOptions) (*NATSTransport, error) {
	port := opts.Port
	if port == 0 {
		port = -1
	}

	ns, err := server.NewServer(&server.Options{
		Host:      "127.0.0.1",
		Port:      port,
		JetStream: true,
		StoreDir:  opts.StoreDir,
		NoSigs:    true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create embedded NATS server")
	}
	ns.SetLogger(natsLogger{}, false, false)

	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		return nil, errors.New("embedded NATS server did not start within 10s")
	}

	nc, err := nats.Connect(ns.ClientURL())
	if err != nil {
		ns.Shutdown()
		return nil, errors.Wrap(err, "connect to embedded NATS")
	}

	t, err := newNATSTransport(nc, opts.NATSOptions)
	if err != nil {
		nc.Close()
		ns.Shutdown()
		return nil, err
	}
	t.server = ns

	logger.Info("Embedded NATS server started", "url", ns.ClientURL())
	return t, nil
}

// ClientURL returns the in-process server address, or "" for a remote server
func (t *NATSTransport) ClientURL() string {
	if t.server == nil {
		return ""
	}
	return t.server.ClientURL()
}

// natsLogger routes server logs through our logger
type natsLogger struct{}

func (natsLogger) Noticef(format string, v ...any) {
	logger.Info("nats: " + fmt.Sprintf(format, v...))
}

func (natsLogger) Warnf(format string, v ...any) {
	logger.Warn("nats: " + fmt.Sprintf(format, v...))
}

func (natsLogger) Fatalf(format string, v ...any) {
	logger.Error("nats: " + fmt.Sprintf(format, v...))
}

func (natsLogger) Errorf(format string, v ...any) {
	logger.Error("nats: " + fmt.Sprintf(format, v...))
}

func (natsLogger) Debugf(format string, v ...any) {
	logger.Debug("nats: " + fmt.Sprintf(format, v...))
}

func (natsLogger) Tracef(format string, v ...any) {
	logger.Debug("nats trace: " + fmt.Sprintf(format, v...))
}
