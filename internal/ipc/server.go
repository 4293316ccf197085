package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

const (
	// maxRequestBytes bounds one request line. Requests carry a command and
	// at most a setting key and value.
	maxRequestBytes = 4 << 10
	// requestDeadline bounds how long one client may hold a connection.
	requestDeadline = 10 * time.Second
)

// Handler processes one button command.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Serve answers one request per connection until ctx is cancelled or the
// listener closes. In-flight requests finish before Serve returns.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	var wg sync.WaitGroup

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				wg.Wait()
				return nil
			}
			return fmt.Errorf("accept IPC connection: %w", err)
		}

		wg.Add(1)
		go func(c net.Conn) {
			defer wg.Done()
			defer c.Close()
			serveConn(ctx, c, handler)
		}(conn)
	}
}

func serveConn(ctx context.Context, c net.Conn, handler Handler) {
	_ = c.SetDeadline(time.Now().Add(requestDeadline))
	enc := json.NewEncoder(c)

	req, err := readRequest(c)
	if err != nil {
		_ = enc.Encode(Response{OK: false, Error: err.Error()})
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestDeadline)
	defer cancel()
	_ = enc.Encode(handler.Handle(reqCtx, req))
}

func readRequest(r io.Reader) (Request, error) {
	reader := bufio.NewReader(io.LimitReader(r, maxRequestBytes+1))
	line, err := reader.ReadBytes('\n')
	if err != nil {
		if len(line) > maxRequestBytes {
			return Request{}, fmt.Errorf("read request: exceeds %d bytes", maxRequestBytes)
		}
		return Request{}, fmt.Errorf("read request: %w", err)
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}
	req.Command = strings.ToLower(strings.TrimSpace(req.Command))
	if req.Command == "" {
		return Request{}, errors.New("decode request: command is empty")
	}
	return req, nil
}
