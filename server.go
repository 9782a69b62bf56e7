package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// StreamServer upgrades every request on its listener to a websocket and
// forwards each new snapshot as one text message. Inbound messages are read
// and dropped so that close frames are noticed.
type StreamServer struct {
	bc           *Broadcaster
	writeTimeout time.Duration
	log          zerolog.Logger
	upgrader     websocket.Upgrader
}

func newStreamServer(bc *Broadcaster, writeTimeout time.Duration, log zerolog.Logger) *StreamServer {
	return &StreamServer{
		bc:           bc,
		writeTimeout: writeTimeout,
		log:          log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *StreamServer) Handler() http.Handler {
	return http.HandlerFunc(s.handleWebSocket)
}

// Serve runs until ctx is done or the listener fails.
func (s *StreamServer) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:     s.Handler(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	s.log.Info().Str("addr", listener.Addr().String()).Msg("stream server listening")
	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *StreamServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	log := s.log.With().
		Str("conn", uuid.NewString()).
		Str("remote", r.RemoteAddr).
		Logger()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade")
		return
	}
	defer conn.Close()

	sub := s.bc.Subscribe()
	defer sub.Close()

	log.Info().Int("subscribers", s.bc.Subscribers()).Msg("viewer connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go s.discardInbound(conn, cancel)

	sent, err := s.forward(ctx, conn, sub)
	sub.Close()
	log.Info().
		Err(err).
		Str("sent", humanize.Bytes(sent)).
		Int("subscribers", s.bc.Subscribers()).
		Msg("viewer disconnected")
}

// forward sends every change to conn until the context ends or a write
// fails. It returns the number of payload bytes delivered.
func (s *StreamServer) forward(ctx context.Context, conn *websocket.Conn, sub *Subscription) (uint64, error) {
	var sent uint64
	for {
		snapshot, err := sub.WaitForChange(ctx)
		if err != nil {
			return sent, err
		}

		conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, []byte(snapshot)); err != nil {
			return sent, err
		}
		sent += uint64(len(snapshot))
	}
}

func (s *StreamServer) discardInbound(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}
