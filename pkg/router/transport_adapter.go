package router

import (
	"time"

	"github.com/gabrielmiguelok/cardgrid/pkg/core"
	"github.com/gabrielmiguelok/cardgrid/pkg/protocol"
	"github.com/gabrielmiguelok/cardgrid/pkg/transport"
)

// TransportAdapter lets a core.Socket push through a transport.Transport.
type TransportAdapter struct {
	t transport.Transport
}

// NewTransportAdapter wraps t.
func NewTransportAdapter(t transport.Transport) *TransportAdapter {
	return &TransportAdapter{t: t}
}

// Send implements core.Transport.
func (a *TransportAdapter) Send(msg core.Message) error {
	return a.t.Send(&protocol.Message{
		Ref:       msg.Ref,
		Topic:     msg.Topic,
		Event:     msg.Event,
		Payload:   msg.Payload,
		Timestamp: time.Now().UnixMilli(),
	})
}

// Close implements core.Transport.
func (a *TransportAdapter) Close() error {
	return a.t.Close()
}

// IsConnected implements core.Transport.
func (a *TransportAdapter) IsConnected() bool {
	return a.t.IsConnected()
}
