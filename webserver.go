package main

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

const (
	lingerTimeout  = 500 * time.Millisecond
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

//go:embed web/index.html
var indexTemplate string

// PageServer answers every connection with the same dashboard page. The
// request is never parsed; whatever the client sent is drained after the
// response so that closing does not reset the connection.
type PageServer struct {
	response     []byte
	writeTimeout time.Duration
	log          zerolog.Logger
}

func newPageServer(streamAddr string, writeTimeout time.Duration, log zerolog.Logger) (*PageServer, error) {
	response, err := renderPage(streamAddr)
	if err != nil {
		return nil, err
	}
	return &PageServer{
		response:     response,
		writeTimeout: writeTimeout,
		log:          log,
	}, nil
}

// renderPage builds the complete HTTP response, headers included.
func renderPage(streamAddr string) ([]byte, error) {
	_, port, err := net.SplitHostPort(streamAddr)
	if err != nil {
		return nil, fmt.Errorf("stream address %q: %w", streamAddr, err)
	}
	if _, err := strconv.Atoi(port); err != nil {
		return nil, fmt.Errorf("stream port %q: %w", port, err)
	}

	tmpl, err := template.New("index").Parse(indexTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, struct{ StreamPort string }{port}); err != nil {
		return nil, fmt.Errorf("rendering page: %w", err)
	}

	var resp bytes.Buffer
	resp.WriteString("HTTP/1.1 200 OK\r\n")
	resp.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	fmt.Fprintf(&resp, "Content-Length: %d\r\n", body.Len())
	resp.WriteString("Connection: close\r\n\r\n")
	resp.Write(body.Bytes())
	return resp.Bytes(), nil
}

// Serve accepts connections until ctx is done or the listener is closed.
// Other accept errors, such as running out of file descriptors, are retried
// with a capped backoff.
func (s *PageServer) Serve(ctx context.Context, listener net.Listener) error {
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.log.Info().
		Str("addr", listener.Addr().String()).
		Str("page", humanize.Bytes(uint64(len(s.response)))).
		Msgf("dashboard at http://%s", listener.Addr())

	var delay time.Duration
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}

			if delay == 0 {
				delay = minAcceptDelay
			} else {
				delay *= 2
			}
			if delay > maxAcceptDelay {
				delay = maxAcceptDelay
			}
			s.log.Warn().Err(err).Dur("retry_in", delay).Msg("accept")

			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return nil
			}
		}
		delay = 0
		go s.servePage(conn)
	}
}

func (s *PageServer) servePage(conn net.Conn) {
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	if _, err := conn.Write(s.response); err != nil {
		s.log.Warn().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("write page")
		return
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		tc.CloseWrite()
	}
	conn.SetReadDeadline(time.Now().Add(lingerTimeout))
	io.Copy(io.Discard, conn)
}
