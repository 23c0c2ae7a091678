package hl7

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync/atomic"
	"time"
)

// Handler processes one parsed inbound message. A nil return produces an
// AA acknowledgment, any error an AE.
type Handler interface {
	Route(ctx context.Context, msg *Message) error
}

// AuditFunc records the outcome of one processed frame. Recording is best
// effort and never changes the acknowledgment.
type AuditFunc func(ctx context.Context, remoteAddr string, msg *Message, raw []byte, accepted bool, procErr error)

// Stats are the in-process message counters exposed by the status API.
type Stats struct {
	Received int64 `json:"received"`
	Accepted int64 `json:"accepted"`
	Rejected int64 `json:"rejected"`
}

// Server is the MLLP listener. Each accepted connection is handled on its
// own goroutine; within one connection frames are processed strictly in
// arrival order and the ACK for a frame is written before the next frame
// is touched.
type Server struct {
	port        int
	handler     Handler
	audit       AuditFunc
	idleTimeout time.Duration
	maxBytes    int
	listener    net.Listener

	received atomic.Int64
	accepted atomic.Int64
	rejected atomic.Int64
}

// NewServer creates an MLLP server. audit may be nil. maxBytes caps the
// size of a single unterminated frame before the connection is dropped;
// idleTimeout closes connections that stop sending mid-frame or never
// send at all.
func NewServer(port int, handler Handler, audit AuditFunc, idleTimeout time.Duration, maxBytes int) *Server {
	return &Server{
		port:        port,
		handler:     handler,
		audit:       audit,
		idleTimeout: idleTimeout,
		maxBytes:    maxBytes,
	}
}

func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.listener = listener

	slog.Info("HL7 MLLP server started", "port", s.Port(), "address", addr)

	go s.acceptConnections(ctx)
	return nil
}

// Port returns the bound port, which differs from the configured one when
// the server was started on port 0.
func (s *Server) Port() int {
	if s.listener != nil {
		if tcpAddr, ok := s.listener.Addr().(*net.TCPAddr); ok {
			return tcpAddr.Port
		}
	}
	return s.port
}

// Snapshot returns the current message counters.
func (s *Server) Snapshot() Stats {
	return Stats{
		Received: s.received.Load(),
		Accepted: s.accepted.Load(),
		Rejected: s.rejected.Load(),
	}
}

func (s *Server) acceptConnections(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := s.listener.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Error("Connection accept failed", "error", err)
				continue
			}

			go s.handleConnection(ctx, conn)
		}
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	remoteAddr := conn.RemoteAddr().String()
	slog.Info("HL7 connection accepted", "remoteAddr", remoteAddr)
	defer slog.Info("HL7 connection closed", "remoteAddr", remoteAddr)

	decoder := NewDecoder(s.maxBytes)
	chunk := make([]byte, 4096)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
		n, err := conn.Read(chunk)
		if n > 0 {
			frames, ferr := decoder.Push(chunk[:n])
			for _, frame := range frames {
				s.processFrame(ctx, conn, remoteAddr, frame)
			}
			if ferr != nil {
				slog.Error("Dropping connection on oversized frame",
					"remoteAddr", remoteAddr,
					"buffered", decoder.Buffered())
				return
			}
		}
		if err != nil {
			if err == io.EOF {
				return
			}
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				slog.Warn("HL7 connection idle timeout", "remoteAddr", remoteAddr)
				return
			}
			slog.Error("HL7 read failed", "error", err, "remoteAddr", remoteAddr)
			return
		}
	}
}

// processFrame runs the Parse -> Route -> ACK pipeline for one extracted
// frame. Processing errors are confined to the frame: the ACK carries AE
// and the connection keeps going.
func (s *Server) processFrame(ctx context.Context, conn net.Conn, remoteAddr string, frame []byte) {
	s.received.Add(1)

	msg, err := Parse(frame)
	if err == nil {
		err = s.handler.Route(ctx, msg)
	}

	code := AckAccept
	if err != nil {
		code = AckError
		s.rejected.Add(1)
		slog.Error("HL7 message rejected",
			"error", err,
			"remoteAddr", remoteAddr,
			"parseFailed", errors.Is(err, ErrMissingMSH))
	} else {
		s.accepted.Add(1)
	}

	if s.audit != nil {
		s.audit(ctx, remoteAddr, msg, frame, err == nil, err)
	}

	if _, werr := conn.Write(Wrap(BuildACK(msg, code))); werr != nil {
		slog.Error("ACK write failed", "error", werr, "remoteAddr", remoteAddr)
	}
}

func (s *Server) Stop() error {
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}
