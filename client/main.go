package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// lineConn is the primary stream, over TCP or WebSocket.
type lineConn interface {
	ReadLine() (string, error)
	SendLine(text string) error
	Close() error
}

type tcpConn struct {
	conn   net.Conn
	reader *bufio.Reader
}

func (c *tcpConn) ReadLine() (string, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *tcpConn) SendLine(text string) error {
	_, err := c.conn.Write([]byte(text + "\n"))
	return err
}

func (c *tcpConn) Close() error { return c.conn.Close() }

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) ReadLine() (string, error) {
	_, message, err := c.conn.ReadMessage()
	return string(message), err
}

func (c *wsConn) SendLine(text string) error {
	return c.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

func (c *wsConn) Close() error {
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

func dial(host string, port int, useWS bool) (lineConn, error) {
	addr := net.JoinHostPort(host, fmt.Sprint(port))
	if useWS {
		u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
		log.Printf("Connecting to %s", u.String())
		c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
		if err != nil {
			return nil, err
		}
		return &wsConn{conn: c}, nil
	}
	log.Printf("Connecting to %s", addr)
	c, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &tcpConn{conn: c, reader: bufio.NewReader(c)}, nil
}

// register asks for notifications for slot ("<n> <match>") and prints them
// as they arrive.
func register(server string, slot string) {
	udpAddr, err := net.ResolveUDPAddr("udp", server)
	if err != nil {
		log.Printf("Resolve %s failed: %v", server, err)
		return
	}
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		log.Printf("Listen udp failed: %v", err)
		return
	}
	if _, err := conn.WriteToUDP([]byte("REGISTER "+slot), udpAddr); err != nil {
		log.Printf("Register failed: %v", err)
		conn.Close()
		return
	}

	go func() {
		defer conn.Close()
		buf := make([]byte, 1024)
		for {
			n, _, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			fmt.Printf("[notice] %s\n", buf[:n])
		}
	}()
}

func main() {
	host := flag.String("host", "localhost", "server host")
	port := flag.Int("port", 5001, "TCP port, or HTTP port with -ws")
	udpPort := flag.Int("udp", 5005, "UDP notification port")
	useWS := flag.Bool("ws", false, "connect over WebSocket")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	c, err := dial(*host, *port, *useWS)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			line, err := c.ReadLine()
			if err != nil {
				log.Println("Connection closed:", err)
				return
			}
			fmt.Println(line)
			// "PLAYER <n> <match>" is echoed back as "REGISTER <n> <match>".
			if slot, ok := strings.CutPrefix(line, "PLAYER "); ok {
				register(net.JoinHostPort(*host, fmt.Sprint(*udpPort)), slot)
			}
		}
	}()

	// Write loop
	input := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			input <- scanner.Text()
		}
		close(input)
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			c.SendLine("EXIT")
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case text, ok := <-input:
			if !ok {
				c.SendLine("EXIT")
				<-done
				return
			}
			if strings.TrimSpace(text) == "" {
				continue
			}
			if err := c.SendLine(text); err != nil {
				log.Println("Write error:", err)
				return
			}
		}
	}
}
