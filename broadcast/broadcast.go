// broadcast/broadcast.go
package broadcast

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/wfunc/battleship/game"
)

var (
	ErrNoEndpoint = errors.New("no endpoint registered")
	ErrClosed     = errors.New("broadcaster closed")
)

// DefaultWriteTimeout bounds a single datagram send.
const DefaultWriteTimeout = time.Second

// Broadcaster delivers out-of-band notices. Delivery is best effort.
type Broadcaster interface {
	Notify(notice game.Notice) error
}

// UDPBroadcaster writes each notice as one datagram from the shared
// registration socket.
type UDPBroadcaster struct {
	conn    net.PacketConn
	timeout time.Duration
	mutex   sync.Mutex
	closed  bool
}

func NewUDPBroadcaster(conn net.PacketConn) *UDPBroadcaster {
	return &UDPBroadcaster{conn: conn, timeout: DefaultWriteTimeout}
}

func (b *UDPBroadcaster) Notify(notice game.Notice) error {
	if notice.Endpoint == nil {
		return ErrNoEndpoint
	}
	return b.send(notice.Endpoint, notice.Text)
}

// Reply answers a datagram on the same socket, used for registration acks.
func (b *UDPBroadcaster) Reply(addr net.Addr, text string) error {
	return b.send(addr, text)
}

func (b *UDPBroadcaster) send(addr net.Addr, text string) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.closed {
		return ErrClosed
	}
	if b.timeout > 0 {
		b.conn.SetWriteDeadline(time.Now().Add(b.timeout))
	}
	if _, err := b.conn.WriteTo([]byte(text), addr); err != nil {
		return fmt.Errorf("send to %s: %w", addr, err)
	}
	return nil
}

// Close stops further sends. The socket itself belongs to the caller.
func (b *UDPBroadcaster) Close() {
	b.mutex.Lock()
	b.closed = true
	b.mutex.Unlock()
}
