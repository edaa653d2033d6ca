package bridge

// Local is an in-process bridge for a map host living in the same binary.
// The host posts inbound messages and drains outbound ones; the engine sees
// the same interface as the websocket hub.
type Local struct {
	inbound  chan Inbound
	outbound chan Outbound
}

// NewLocal creates a local bridge with the given queue depth per direction.
func NewLocal(buffer int) *Local {
	if buffer < 1 {
		buffer = inboundBuffer
	}
	return &Local{
		inbound:  make(chan Inbound, buffer),
		outbound: make(chan Outbound, buffer),
	}
}

// Post queues a message for the engine. Returns false when the queue is full.
func (l *Local) Post(m Inbound) bool {
	select {
	case l.inbound <- m:
		return true
	default:
		return false
	}
}

// Inbound returns messages posted by the host.
func (l *Local) Inbound() <-chan Inbound {
	return l.inbound
}

// Send queues a message for the host, dropping it when the host is not draining.
func (l *Local) Send(m Outbound) error {
	select {
	case l.outbound <- m:
	default:
	}
	return nil
}

// Outbound returns messages sent by the engine.
func (l *Local) Outbound() <-chan Outbound {
	return l.outbound
}

// Drain returns every queued outbound message without blocking.
func (l *Local) Drain() []Outbound {
	var out []Outbound
	for {
		select {
		case m := <-l.outbound:
			out = append(out, m)
		default:
			return out
		}
	}
}
