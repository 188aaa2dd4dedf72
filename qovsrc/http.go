package qovsrc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"qov/qoverr"
)

// HTTPSource is a DataSource backed by a single progressive GET against
// url, started at construction and run to completion (or cancellation)
// in a background goroutine. Read blocks on a condition variable until
// enough bytes have arrived, mirroring the blocking-channel model the
// spec assigns to NotYetAvailable suspension (§5).
type HTTPSource struct {
	mu        sync.Mutex
	cond      *sync.Cond
	buf       []byte
	done      bool
	err       error
	totalSize int64 // -1 until Content-Length is known

	cancel context.CancelFunc
}

// OpenHTTPSource issues a GET against url and begins streaming its body
// into an internal buffer. The request and download continue until the
// body is fully read, an error occurs, or the returned source is
// closed.
func OpenHTTPSource(ctx context.Context, url string) (*HTTPSource, error) {
	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}

	s := &HTTPSource{totalSize: -1, cancel: cancel}
	s.cond = sync.NewCond(&s.mu)
	if resp.ContentLength >= 0 {
		s.totalSize = resp.ContentLength
	}

	go s.pump(resp.Body)
	return s, nil
}

func (s *HTTPSource) pump(body io.ReadCloser) {
	defer body.Close()
	chunk := make([]byte, 64*1024)
	for {
		n, err := body.Read(chunk)
		if n > 0 {
			s.mu.Lock()
			s.buf = append(s.buf, chunk[:n]...)
			s.cond.Broadcast()
			s.mu.Unlock()
		}
		if err != nil {
			s.mu.Lock()
			s.done = true
			if err != io.EOF {
				s.err = fmt.Errorf("qovsrc: http download: %w", err)
			}
			s.cond.Broadcast()
			s.mu.Unlock()
			return
		}
	}
}

// Close cancels the in-flight download. Subsequent Read calls against
// bytes that never arrived return the download's cancellation error, or
// qoverr.ErrNotYetAvailable if the body had already been read in full.
func (s *HTTPSource) Close() {
	s.cancel()
}

func (s *HTTPSource) TotalSize() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalSize
}

func (s *HTTPSource) IsAvailable(offset int64, length int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return offset+int64(length) <= int64(len(s.buf))
}

// Read blocks until offset+length bytes have been downloaded, the
// download finishes short of that range (ErrNotYetAvailable), or the
// download fails.
func (s *HTTPSource) Read(offset int64, length int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for int64(len(s.buf)) < offset+int64(length) {
		if s.done {
			if s.err != nil {
				return nil, s.err
			}
			return nil, qoverr.ErrNotYetAvailable
		}
		s.cond.Wait()
	}
	out := make([]byte, length)
	copy(out, s.buf[offset:offset+int64(length)])
	return out, nil
}
