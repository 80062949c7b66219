package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/mcp/jsonrpc"
	"github.com/aussiebroadwan/gatehouse/internal/mcp/server"
	"github.com/aussiebroadwan/gatehouse/internal/mcp/session"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

// Stdio reads newline-delimited messages from in and writes responses to
// out. It has a single implicit session without a bearer.
type Stdio struct {
	server *server.Server
	logger *slog.Logger

	mu  sync.Mutex
	out io.Writer
}

func NewStdio(srv *server.Server, out io.Writer, logger *slog.Logger) *Stdio {
	return &Stdio{server: srv, out: out, logger: logger}
}

// Serve runs until in reaches EOF or ctx is cancelled.
func (s *Stdio) Serve(ctx context.Context, in io.Reader) error {
	sess := session.New("", time.Now())
	ctx = slogx.With(slogx.WithContext(ctx, s.logger), "transport", "stdio", "session_id", sess.ID)

	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 64*1024), maxMessageBytes)
		for sc.Scan() {
			line := append([]byte(nil), sc.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("read stdin: %w", err)
					}
				default:
				}
				return nil
			}
			if err := s.handleLine(ctx, sess, line); err != nil {
				return err
			}
		}
	}
}

func (s *Stdio) handleLine(ctx context.Context, sess *session.Session, line []byte) error {
	if len(line) == 0 {
		return nil
	}

	req, err := jsonrpc.Parse(line)
	if err != nil {
		slogx.FromContext(ctx).WarnContext(ctx, "stdio_invalid_message", "err", err)
		code, msg := jsonrpc.CodeParseError, "parse error"
		if errors.Is(err, jsonrpc.ErrBatch) {
			code, msg = jsonrpc.CodeInvalidRequest, "batch requests are not supported"
		}
		return s.write(jsonrpc.NewError(nil, code, msg))
	}

	resp := s.server.Handle(ctx, sess, req)
	if resp == nil {
		return nil
	}
	return s.write(resp)
}

func (s *Stdio) write(resp *jsonrpc.Response) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.out.Write(append(raw, '\n')); err != nil {
		return fmt.Errorf("write stdout: %w", err)
	}
	return nil
}
