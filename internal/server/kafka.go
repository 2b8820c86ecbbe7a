package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rizkyandriawan/monowire/internal/config"
	"github.com/rizkyandriawan/monowire/internal/engine"
	"github.com/rizkyandriawan/monowire/internal/observability"
	"github.com/rizkyandriawan/monowire/internal/protocol"
	"github.com/rizkyandriawan/monowire/internal/store"
	"github.com/rs/zerolog"
)

// KafkaServer handles Kafka protocol connections
type KafkaServer struct {
	config      *config.Config
	engine      *engine.Engine
	metrics     *observability.Metrics
	logger      zerolog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.Mutex
	listener    net.Listener
	connections sync.Map
	connCount   atomic.Int32
	stopChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

// NewKafkaServer creates a new KafkaServer. metrics may be nil.
func NewKafkaServer(cfg *config.Config, eng *engine.Engine, metrics *observability.Metrics, logger zerolog.Logger) *KafkaServer {
	ctx, cancel := context.WithCancel(context.Background())
	return &KafkaServer{
		config:   cfg,
		engine:   eng,
		metrics:  metrics,
		logger:   observability.Component(logger, "kafka"),
		ctx:      ctx,
		cancel:   cancel,
		stopChan: make(chan struct{}),
	}
}

// ListenAndServe listens on server.kafka_addr and serves until Close.
func (s *KafkaServer) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.config.Server.KafkaAddr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln, one goroutine per connection. It
// returns nil once Close is called.
func (s *KafkaServer) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.stopped() {
		s.mu.Unlock()
		ln.Close()
		return nil
	}
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info().Str("addr", ln.Addr().String()).
		Str("max_frame_size", humanize.Bytes(uint64(s.config.Limits.MaxFrameSize))).
		Msg("kafka listener started")

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.stopChan:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn().Err(err).Msg("accept error")
			continue
		}

		// Check connection limit
		if int(s.connCount.Load()) >= s.config.Limits.MaxConnections {
			s.logger.Warn().Str("remote", conn.RemoteAddr().String()).
				Int("max_connections", s.config.Limits.MaxConnections).
				Msg("connection limit reached, rejecting")
			s.metrics.FrameRejected(observability.RejectConnectionLimit)
			conn.Close()
			continue
		}

		// Close holds mu while it walks connections, so a connection is
		// either registered before that walk or rejected here.
		s.mu.Lock()
		if s.stopped() {
			s.mu.Unlock()
			conn.Close()
			return nil
		}
		s.connCount.Add(1)
		s.connections.Store(conn, struct{}{})
		s.wg.Add(1)
		s.mu.Unlock()

		go s.handleConnection(conn)
	}
}

// Addr returns the listener address, or nil before Serve.
func (s *KafkaServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close stops accepting, closes open connections and waits for their
// goroutines to exit.
func (s *KafkaServer) Close() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.cancel()

		s.mu.Lock()
		if s.listener != nil {
			err = s.listener.Close()
		}

		// Close all connections
		s.connections.Range(func(key, _ any) bool {
			if conn, ok := key.(net.Conn); ok {
				conn.Close()
			}
			return true
		})
		s.mu.Unlock()
	})

	s.wg.Wait()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return err
}

func (s *KafkaServer) stopped() bool {
	select {
	case <-s.stopChan:
		return true
	default:
		return false
	}
}

func (s *KafkaServer) handleConnection(conn net.Conn) {
	remote := conn.RemoteAddr().String()
	s.metrics.ConnectionOpened()
	s.logger.Debug().Str("remote", remote).Msg("connection opened")

	defer func() {
		conn.Close()
		s.connections.Delete(conn)
		s.connCount.Add(-1)
		s.metrics.ConnectionClosed()
		s.wg.Done()
	}()

	err := s.ServeConn(s.ctx, conn, remote)
	switch {
	case err == nil:
		s.logger.Debug().Str("remote", remote).Msg("connection closed")
	case s.stopped():
		s.logger.Debug().Str("remote", remote).Msg("connection closed on shutdown")
	default:
		s.logger.Info().Err(err).Str("remote", remote).Msg("connection closed")
	}
}

type deadliner interface {
	SetReadDeadline(t time.Time) error
}

// ServeConn runs the request loop on one connection: read a frame, decode
// its header, dispatch, write the response, repeat. Requests are answered
// strictly in order. It returns nil when the peer closes cleanly between
// frames and the fatal error otherwise; the caller owns closing rw.
//
// A bad frame length or header ends the loop without writing anything,
// since no correlation id can be trusted. Every other failure is answered
// with an error response and the loop continues.
func (s *KafkaServer) ServeConn(ctx context.Context, rw io.ReadWriter, remote string) error {
	r := bufio.NewReader(rw)
	w := bufio.NewWriter(rw)

	for {
		if s.stopped() {
			return nil
		}
		if err := s.setIdleDeadline(rw); err != nil {
			return err
		}

		frame, err := protocol.ReadFrame(r, s.config.Limits.MaxFrameSize)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				return nil
			case errors.Is(err, protocol.ErrMalformedLength):
				s.metrics.FrameRejected(observability.RejectMalformedLength)
				s.logger.Warn().Err(err).Str("remote", remote).Msg("rejecting frame")
			}
			return err
		}
		start := time.Now()

		header, dec, err := protocol.ParseHeader(frame)
		if err != nil {
			s.metrics.FrameRejected(observability.RejectBadHeader)
			s.logger.Warn().Err(err).Str("remote", remote).
				Str("frame_size", humanize.Bytes(uint64(len(frame)))).
				Msg("undecodable request header")
			return fmt.Errorf("decode header: %w", err)
		}

		resp, dispatchErr := s.engine.Dispatch(ctx, header, dec)
		payload, encodeErr := protocol.EncodeResponse(resp)
		code := responseCode(dispatchErr, encodeErr)

		if dispatchErr != nil {
			s.logger.Debug().Err(dispatchErr).Str("remote", remote).
				Int16("api_key", header.APIKey).Int16("api_version", header.APIVersion).
				Int32("correlation_id", header.CorrelationID).Int16("error_code", code).
				Msg("request failed")
		}
		if encodeErr != nil {
			s.logger.Error().Err(encodeErr).Str("remote", remote).
				Int16("api_key", header.APIKey).Int32("correlation_id", header.CorrelationID).
				Msg("response not encodable")
		}

		if err := protocol.WriteFrame(w, payload); err != nil {
			return fmt.Errorf("write response: %w", err)
		}

		duration := time.Since(start)
		s.engine.AddTraffic(len(frame)+4, len(payload)+4)
		s.engine.Record(store.Entry{
			Time:          start,
			RemoteAddr:    remote,
			APIKey:        header.APIKey,
			APIVersion:    header.APIVersion,
			CorrelationID: header.CorrelationID,
			ClientID:      header.ClientName(),
			ErrorCode:     code,
			Duration:      duration,
		})

		s.logger.Debug().Str("remote", remote).
			Str("api", s.engine.APILabel(header.APIKey)).
			Int16("api_version", header.APIVersion).
			Int32("correlation_id", header.CorrelationID).
			Str("client_id", header.ClientName()).
			Int16("error_code", code).
			Dur("duration", duration).
			Msg("request")
	}
}

func (s *KafkaServer) setIdleDeadline(rw io.ReadWriter) error {
	timeout := s.config.Limits.IdleTimeout.Std()
	if timeout <= 0 {
		return nil
	}
	d, ok := rw.(deadliner)
	if !ok {
		return nil
	}
	if err := d.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return fmt.Errorf("set read deadline: %w", err)
	}
	return nil
}

// responseCode is the error code the client was sent.
func responseCode(dispatchErr, encodeErr error) int16 {
	if encodeErr != nil {
		return protocol.CodeUnknownServerError
	}
	return protocol.ErrorCode(dispatchErr)
}
