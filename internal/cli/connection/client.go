// Package connection provides the protocol client for bloomgate-cli.
package connection

import (
	"bufio"
	"net"
	"strings"
	"time"
)

// DefaultTimeout bounds dialing and each command round trip.
const DefaultTimeout = 10 * time.Second

// Client is a text protocol client. It holds one TCP connection and sends
// one command line per Execute call.
type Client struct {
	addr    string
	timeout time.Duration
	conn    net.Conn
	br      *bufio.Reader
}

// NewClient creates a client for the given server address.
func NewClient(addr string) *Client {
	return &Client{addr: addr, timeout: DefaultTimeout}
}

// Connect dials the server.
func (c *Client) Connect() error {
	conn, err := net.DialTimeout("tcp", c.addr, c.timeout)
	if err != nil {
		return err
	}
	c.conn = conn
	c.br = bufio.NewReader(conn)
	return nil
}

// Close closes the connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Execute sends a command line and returns the response line without its
// terminator.
func (c *Client) Execute(cmd string) (string, error) {
	if c.conn == nil {
		if err := c.Connect(); err != nil {
			return "", err
		}
	}

	if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return "", err
	}
	if _, err := c.conn.Write([]byte(cmd + "\n")); err != nil {
		return "", err
	}

	response, err := c.br.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(response, "\r\n"), nil
}
