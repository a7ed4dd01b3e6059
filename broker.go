package txscope

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
)

// Broker hands out connections for a Source. Inside a transaction it returns
// the connection bound to the execution context; otherwise it opens a new one.
type Broker struct {
	source Source
	log    logrus.FieldLogger
}

// NewBroker creates a Broker for the given source.
func NewBroker(source Source, log logrus.FieldLogger) *Broker {
	if log == nil {
		log = discardLogger()
	}
	return &Broker{source: source, log: log}
}

// Acquire returns the connection bound to ctx for the broker's source, or a
// freshly opened connection when there is none.
func (b *Broker) Acquire(ctx context.Context) (Conn, error) {
	if conn, ok := Lookup(ctx, b.source); ok {
		return conn, nil
	}

	conn, err := b.source.Conn(ctx)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}
	return conn, nil
}

// Release gives back a connection obtained from Acquire. A connection bound to
// ctx is left open for its transaction; any other connection is closed.
func (b *Broker) Release(ctx context.Context, conn Conn) error {
	if conn == nil {
		return nil
	}
	if bound, ok := Lookup(ctx, b.source); ok && bound == conn {
		return nil
	}

	err := conn.Close()
	if err != nil {
		b.log.WithError(err).Warn("closing connection")
		return &ConnectionError{Err: err}
	}
	return nil
}

func discardLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
