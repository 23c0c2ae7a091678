package hl7

import (
	"bytes"
	"fmt"
	"log/slog"
	"net"
	"time"
)

// Client is a minimal outbound MLLP sender. The service itself never
// initiates HL7 traffic; the client exists for integration tests and for
// operators replaying captured messages against a running instance.
type Client struct {
	addr    string
	timeout time.Duration
}

func NewClient(addr string) *Client {
	return &Client{
		addr:    addr,
		timeout: 30 * time.Second,
	}
}

// Send wraps message in an MLLP frame, writes it and returns the MSA
// acknowledgment code from the synchronous reply.
func (c *Client) Send(message []byte) (string, error) {
	conn, err := net.DialTimeout("tcp", c.addr, c.timeout)
	if err != nil {
		return "", fmt.Errorf("dialing %s: %w", c.addr, err)
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(c.timeout))
	if _, err := conn.Write(Wrap(message)); err != nil {
		return "", fmt.Errorf("writing message: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(c.timeout))
	ack, err := c.readACK(conn)
	if err != nil {
		return "", fmt.Errorf("reading ACK: %w", err)
	}

	code := ackCode(ack)
	slog.Debug("HL7 message sent", "address", c.addr, "ackCode", code)
	return code, nil
}

// readACK accumulates reply bytes until one complete MLLP frame arrives.
func (c *Client) readACK(conn net.Conn) ([]byte, error) {
	decoder := NewDecoder(1 << 20)
	chunk := make([]byte, 4096)

	for {
		n, err := conn.Read(chunk)
		if n > 0 {
			frames, ferr := decoder.Push(chunk[:n])
			if len(frames) > 0 {
				return frames[0], nil
			}
			if ferr != nil {
				return nil, ferr
			}
		}
		if err != nil {
			return nil, err
		}
	}
}

// ackCode extracts MSA-1 from an acknowledgment message.
func ackCode(ack []byte) string {
	for _, line := range bytes.Split(ack, []byte("\r")) {
		if bytes.HasPrefix(line, []byte("MSA")) {
			fields := bytes.Split(line, []byte(FieldSeparator))
			if len(fields) > 1 {
				return string(fields[1])
			}
		}
	}
	return ""
}
