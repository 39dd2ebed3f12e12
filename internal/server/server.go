// Package server runs the cooperative main loop: per iteration it
// services the event log's pending trigger, then polls for at most one
// client connection and serves exactly one command/response exchange
// on it.
package server

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/openmuon/mumasp/internal/hw/clock"
	"github.com/openmuon/mumasp/internal/logic/eventlog"
)

// DefaultAddr is the listening endpoint the deployed instrument uses.
const DefaultAddr = ":1033"

const (
	// pollWait bounds the accept poll of one loop iteration; it sets
	// the worst-case latency between two event-log service points when
	// the controller is idle.
	pollWait = 20 * time.Millisecond

	// readWait is how long one connection may take to deliver its
	// request bytes. Exactly one read is issued: bytes that arrive
	// later are never seen.
	readWait = 250 * time.Millisecond
)

// Server accepts one connection at a time on a TCP endpoint.
type Server struct {
	ln      net.Listener
	handler *Handler
	log     zerolog.Logger
}

// Listen binds the command endpoint.
func Listen(addr string, h *Handler, log zerolog.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	log.Info().Str("addr", ln.Addr().String()).Msg("command server listening")
	return &Server{ln: ln, handler: h, log: log}, nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Close shuts the listener down.
func (s *Server) Close() error {
	return s.ln.Close()
}

// Run drives the main loop until ctx is cancelled. Command handlers
// run inline: a calibration or move blocks the loop for its full
// duration, and triggers arriving meanwhile coalesce into the single
// pending flag.
func (s *Server) Run(ctx context.Context, events *eventlog.Log, clk clock.Clock) error {
	defer s.ln.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		events.Service(clk.Now())

		if err := s.PollOnce(); err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Error().Err(err).Msg("accept failed")
		}
	}
}

// PollOnce performs one bounded accept poll and, if a client is
// waiting, serves its single command. Deadline expiry with no client
// is not an error.
func (s *Server) PollOnce() error {
	type deadliner interface {
		SetDeadline(t time.Time) error
	}
	if d, ok := s.ln.(deadliner); ok {
		_ = d.SetDeadline(time.Now().Add(pollWait))
	}

	conn, err := s.ln.Accept()
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil
		}
		return err
	}
	defer conn.Close()

	s.serve(conn)
	return nil
}

// serve reads whatever request bytes are buffered on the connection in
// a single read, dispatches, responds and lets the caller close. One
// command per connection.
func (s *Server) serve(conn net.Conn) {
	_ = conn.SetDeadline(time.Now().Add(readWait))

	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		s.log.Debug().Err(err).Str("client", conn.RemoteAddr().String()).Msg("empty request")
		return
	}

	s.handler.Handle(buf[:n], conn)
}
