// network/connection.go
package network

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Connection is a player's primary stream: newline-terminated text lines
// in both directions.
type Connection interface {
	ReadLine() (string, error)
	SendLine(text string) error
	Close() error
	RemoteAddr() net.Addr
}

// DefaultWriteTimeout bounds a single write so a stalled peer cannot hold
// the writer forever. Reads never time out.
const DefaultWriteTimeout = 5 * time.Second

// TCPConnection frames lines on a raw stream socket.
type TCPConnection struct {
	conn         net.Conn
	reader       *bufio.Reader
	sendMutex    sync.Mutex
	writeTimeout time.Duration
}

func NewTCPConnection(conn net.Conn) *TCPConnection {
	return &TCPConnection{
		conn:         conn,
		reader:       bufio.NewReader(conn),
		writeTimeout: DefaultWriteTimeout,
	}
}

// ReadLine returns the next line without its terminator. A final line
// without a newline is still returned before io.EOF.
func (c *TCPConnection) ReadLine() (string, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *TCPConnection) SendLine(text string) error {
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()

	if c.writeTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	_, err := c.conn.Write([]byte(text + "\n"))
	return err
}

func (c *TCPConnection) Close() error {
	return c.conn.Close()
}

func (c *TCPConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// WSConnection carries one line per websocket text message.
type WSConnection struct {
	conn         *websocket.Conn
	sendMutex    sync.Mutex
	writeTimeout time.Duration
}

func NewWSConnection(conn *websocket.Conn) *WSConnection {
	return &WSConnection{conn: conn, writeTimeout: DefaultWriteTimeout}
}

func (c *WSConnection) ReadLine() (string, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func (c *WSConnection) SendLine(text string) error {
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()

	if c.writeTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

func (c *WSConnection) Close() error {
	return c.conn.Close()
}

func (c *WSConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
