package lineserver

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/bloomgate-go/internal/telemetry/metric"
)

// ErrLineTooLong is returned when a command line exceeds MaxLineLen.
var ErrLineTooLong = errors.New("lineserver: line too long")

// Config holds the protocol server configuration.
type Config struct {
	// Address is the TCP listen address.
	Address string
	// ReadTimeout is the timeout for reading a command line (default: 30s).
	// Helps prevent slowloris attacks.
	ReadTimeout time.Duration
	// WriteTimeout is the timeout for writing a response (default: 30s).
	WriteTimeout time.Duration
	// IdleTimeout is the timeout for idle connections (default: 5m).
	IdleTimeout time.Duration
	// MaxLineLen caps the length of a single command line in bytes
	// (default: 64 KiB). Longer lines close the connection.
	MaxLineLen int
	// RateLimit is the maximum number of commands per second per client IP
	// (default: 0, disabled).
	RateLimit int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Address:      "127.0.0.1:4989",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  5 * time.Minute,
		MaxLineLen:   64 * 1024,
	}
}

// Server accepts TCP connections and dispatches command lines to a Handler.
type Server struct {
	cfg     Config
	handler *Handler
	logger  *slog.Logger
	metrics *metric.Metrics

	ln      net.Listener
	running atomic.Bool
	wg      sync.WaitGroup
}

// New creates a protocol server.
func New(cfg Config, handler *Handler, logger *slog.Logger, metrics *metric.Metrics) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 5 * time.Minute
	}
	if cfg.MaxLineLen == 0 {
		cfg.MaxLineLen = 64 * 1024
	}

	return &Server{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

// Start begins listening and serving. It returns once the listener is
// bound; serving continues in the background until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}
	s.ln = ln
	s.running.Store(true)
	s.logger.Info("protocol server listening", "address", ln.Addr().String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.acceptLoop(ctx, ln); err != nil && s.running.Load() {
			s.logger.Error("accept loop error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown closes the listener and waits for in-flight connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)

	var firstErr error
	if s.ln != nil {
		if err := s.ln.Close(); err != nil {
			firstErr = err
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return firstErr
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(c)
		}()
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()

	if s.metrics != nil {
		s.metrics.ConnectionsOpen.Inc()
		defer s.metrics.ConnectionsOpen.Dec()
	}

	clientIP := remoteIP(conn)
	br := bufio.NewReader(conn)
	bw := bufio.NewWriter(conn)

	for {
		// First byte: allow the full idle timeout between commands.
		if err := conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout)); err != nil {
			return
		}
		if _, err := br.Peek(1); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				s.logger.Debug("connection idle timeout", "remote", conn.RemoteAddr())
				return
			}
			s.logger.Debug("connection read error", "remote", conn.RemoteAddr(), "error", err)
			return
		}

		// After first byte: tighten to the per-command read timeout.
		if err := conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
			return
		}

		line, err := readLine(br, s.cfg.MaxLineLen)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				s.logger.Debug("connection read timeout", "remote", conn.RemoteAddr())
				return
			}
			if errors.Is(err, ErrLineTooLong) {
				s.logger.Warn("oversized command line", "remote", conn.RemoteAddr())
				_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
				_, _ = bw.WriteString("MALFORMED_COMMAND line too long\n")
				_ = bw.Flush()
				return // close on protocol limit violation
			}
			return
		}

		resp := s.handler.Handle(line, clientIP)

		if err := conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
			return
		}
		if _, err := bw.WriteString(resp + "\n"); err != nil {
			return
		}
		if err := bw.Flush(); err != nil {
			return
		}
	}
}

// readLine reads one '\n'-terminated line of at most max bytes, trimming
// the terminator and an optional preceding '\r'.
func readLine(br *bufio.Reader, max int) (string, error) {
	var buf []byte
	for {
		chunk, err := br.ReadSlice('\n')
		buf = append(buf, chunk...)
		if len(buf) > max {
			return "", ErrLineTooLong
		}
		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return "", err
	}
	buf = bytes.TrimSuffix(buf, []byte("\n"))
	buf = bytes.TrimSuffix(buf, []byte("\r"))
	return string(buf), nil
}

func remoteIP(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}
