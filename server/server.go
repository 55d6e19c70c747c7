// Package server exposes the auction engine over a one-shot-connection
// request protocol: a client connects, writes one JSON request, half-closes
// its write side, and reads the single JSON response. The listener is plain
// TCP or, for VM-guest deployments, a vsock port.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/mdlayher/vsock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cloudmarket-io/auctionhouse/auction"
)

const readTimeout = 30 * time.Second

// Options configure the listener and worker pool.
type Options struct {
	Transport  string // "tcp" or "vsock"
	Addr       string // tcp address
	VsockPort  uint32
	MaxWorkers int
}

type Server struct {
	engine *auction.Engine
	log    *zap.Logger
	opts   Options
}

func New(engine *auction.Engine, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 8
	}
	return &Server{
		engine: engine,
		log:    logger.Named("server"),
		opts:   opts,
	}
}

func (s *Server) listen() (net.Listener, error) {
	switch s.opts.Transport {
	case "vsock":
		listener, err := vsock.Listen(s.opts.VsockPort, nil)
		if err != nil {
			return nil, fmt.Errorf("listen vsock port %d: %w", s.opts.VsockPort, err)
		}
		return listener, nil
	case "tcp", "":
		listener, err := net.Listen("tcp", s.opts.Addr)
		if err != nil {
			return nil, fmt.Errorf("listen tcp %s: %w", s.opts.Addr, err)
		}
		return listener, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", s.opts.Transport)
	}
}

// Run serves until ctx is cancelled, then closes the listener and drains.
func (s *Server) Run(ctx context.Context) error {
	listener, err := s.listen()
	if err != nil {
		return err
	}
	s.log.Info("listening",
		zap.String("transport", s.opts.Transport),
		zap.String("addr", listener.Addr().String()),
		zap.Int("max_workers", s.opts.MaxWorkers))

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		<-ctx.Done()
		return listener.Close()
	})

	group.Go(func() error {
		// Worker slots; a full pool rejects the connection outright
		// rather than queueing it.
		semaphore := make(chan struct{}, s.opts.MaxWorkers)

		for {
			conn, err := listener.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.log.Error("accept failed", zap.Error(err))
				continue
			}

			select {
			case semaphore <- struct{}{}:
				go func(c net.Conn) {
					defer func() { <-semaphore }()
					s.handleConnection(c)
				}(conn)
			default:
				s.log.Warn("worker pool full, rejecting connection")
				if err := conn.Close(); err != nil {
					s.log.Error("close rejected connection", zap.Error(err))
				}
			}
		}
	})

	err = group.Wait()
	if ctx.Err() != nil {
		s.log.Info("shut down")
		return nil
	}
	return err
}

func (s *Server) handleConnection(conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic recovered in connection handler", zap.Any("panic", r))
		}
		if err := conn.Close(); err != nil {
			s.log.Error("close connection", zap.Error(err))
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, conn); err != nil {
		s.log.Error("read request", zap.Error(err))
		return
	}

	response := s.Dispatch(buf.Bytes())

	if err := json.NewEncoder(conn).Encode(response); err != nil {
		s.log.Error("write response", zap.Error(err))
	}
}
