package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"time"
)

// ErrServerBusy is returned to clients when the window manager does not
// pick up a request in time.
var ErrServerBusy = errors.New("window manager did not answer in time")

// Call is a request waiting for the window manager loop to answer it.
type Call struct {
	Request *Request
	reply   chan *Response
}

// Reply answers the call. It never blocks.
func (c *Call) Reply(resp *Response) {
	select {
	case c.reply <- resp:
	default:
	}
}

// Server accepts line-delimited JSON requests on a unix socket and hands
// them to a single consumer through Calls.
type Server struct {
	socketPath string
	timeout    time.Duration
	calls      chan *Call
	logger     *slog.Logger
}

// NewServer creates a new IPC server bound to socketPath once served.
func NewServer(socketPath string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		socketPath: socketPath,
		timeout:    5 * time.Second,
		calls:      make(chan *Call),
		logger:     logger.With("component", "ipc"),
	}
}

// Calls delivers requests to the consumer. Every call must be answered
// with Reply.
func (s *Server) Calls() <-chan *Call {
	return s.calls
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

func (s *Server) String() string {
	return "ipc"
}

// Serve listens until ctx is cancelled. A stale socket file from a previous
// run is replaced.
func (s *Server) Serve(ctx context.Context) error {
	_ = os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	defer os.Remove(s.socketPath)

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}
		go s.handleConnection(ctx, conn)
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(2 * s.timeout))

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Debug("IPC read error", "error", err)
		return
	}

	var resp *Response
	req, err := ParseRequest(data)
	if err != nil {
		resp = NewErrorResponse(fmt.Sprintf("Invalid request: %v", err))
	} else {
		s.logger.Debug("IPC request", "command", req.Command)
		resp = s.dispatch(ctx, req)
	}

	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Warn("Failed to marshal response", "error", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Debug("Failed to send response", "error", err)
	}
}

func (s *Server) dispatch(ctx context.Context, req *Request) *Response {
	call := &Call{Request: req, reply: make(chan *Response, 1)}
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case s.calls <- call:
	case <-ctx.Done():
		return NewErrorResponse("daemon is shutting down")
	case <-timer.C:
		return NewErrorResponse(ErrServerBusy.Error())
	}

	select {
	case resp := <-call.reply:
		if resp == nil {
			resp, _ = NewOKResponse(nil)
		}
		return resp
	case <-ctx.Done():
		return NewErrorResponse("daemon is shutting down")
	case <-timer.C:
		return NewErrorResponse(ErrServerBusy.Error())
	}
}
