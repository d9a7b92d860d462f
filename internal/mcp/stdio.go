package mcp

import (
	"bufio"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

const maxLineBytes = 4 << 20

// Stdio serves newline-framed JSON-RPC. Up to workers requests run at once;
// initialize is handled inline so nothing races ahead of it.
type Stdio struct {
	srv     *Server
	sem     *semaphore.Weighted
	session string

	mu    sync.Mutex
	ready chan struct{}
	once  sync.Once
}

func NewStdio(srv *Server, workers int, sessionID string) *Stdio {
	if workers <= 0 {
		workers = 1
	}
	return &Stdio{
		srv:     srv,
		sem:     semaphore.NewWeighted(int64(workers)),
		session: sessionID,
		ready:   make(chan struct{}),
	}
}

// Ready is closed once the initialize response has been written.
func (s *Stdio) Ready() <-chan struct{} { return s.ready }

// Serve reads until EOF or ctx is done, then waits for in-flight requests.
func (s *Stdio) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	var wg sync.WaitGroup
	defer wg.Wait()

	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		raw := append([]byte(nil), line...)

		req, rejected := ParseRequest(raw)
		if rejected != nil {
			s.write(out, rejected)
			continue
		}
		if req.Method == MethodInitialize {
			s.write(out, s.srv.Handle(ctx, s.session, req))
			s.once.Do(func() { close(s.ready) })
			log.Info().Str("session", s.session).Msg("stdio session initialized")
			continue
		}

		if err := s.sem.Acquire(ctx, 1); err != nil {
			return err
		}
		wg.Add(1)
		go func(req Request) {
			defer wg.Done()
			defer s.sem.Release(1)
			s.write(out, s.srv.Handle(ctx, s.session, req))
		}(req)
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (s *Stdio) write(out io.Writer, resp *Response) {
	if resp == nil {
		return
	}
	b := append(EncodeResponse(resp), '\n')
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := out.Write(b); err != nil {
		log.Error().Err(err).Msg("write response")
	}
}
