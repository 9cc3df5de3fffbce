package file

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
	"sync"
)

const defaultBufSize = 16 * 1024

// Handle is an open channel log.
type Handle interface {
	WriteString(s string) error
	Flush() error
	Close() error
	Path() string
}

// fileHandle appends to a log file through a buffered writer.
type fileHandle struct {
	mu     sync.Mutex
	f      *os.File
	w      *bufio.Writer
	path   string
	closed bool
}

func openHandle(path string, bufSize int) (*fileHandle, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, &FilesystemError{Op: "open", Path: path, Err: err}
	}
	return &fileHandle{f: f, w: bufio.NewWriterSize(f, bufSize), path: path}, nil
}

func (h *fileHandle) Path() string { return h.path }

func (h *fileHandle) WriteString(s string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return os.ErrClosed
	}
	if _, err := h.w.WriteString(s); err != nil {
		return &FilesystemError{Op: "write", Path: h.path, Err: err}
	}
	return nil
}

func (h *fileHandle) Flush() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return os.ErrClosed
	}
	if err := h.w.Flush(); err != nil {
		return &FilesystemError{Op: "write", Path: h.path, Err: err}
	}
	return nil
}

// Close flushes and closes the file. Closing twice is a no-op.
func (h *fileHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	if err := h.w.Flush(); err != nil {
		h.f.Close()
		return &FilesystemError{Op: "write", Path: h.path, Err: err}
	}
	return h.f.Close()
}

// discardHandle stands in for a log that could not be opened.
type discardHandle struct {
	path string
}

func (d discardHandle) WriteString(string) error { return nil }
func (d discardHandle) Flush() error             { return nil }
func (d discardHandle) Close() error             { return nil }
func (d discardHandle) Path() string             { return d.path }

var (
	_ Handle = (*fileHandle)(nil)
	_ Handle = discardHandle{}
)

// containsMarker reports whether the file at path contains marker. A missing
// file does not contain it.
func containsMarker(path string, marker []byte) (bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, &FilesystemError{Op: "inspect", Path: path, Err: err}
	}
	defer f.Close()

	found, err := scanFor(f, marker)
	if err != nil {
		return false, &FilesystemError{Op: "inspect", Path: path, Err: err}
	}
	return found, nil
}

// scanFor searches r for marker in fixed-size chunks, carrying over enough
// bytes between chunks to catch a marker split across a boundary.
func scanFor(r io.Reader, marker []byte) (bool, error) {
	if len(marker) == 0 {
		return true, nil
	}
	buf := make([]byte, 32*1024)
	var carry []byte
	for {
		n, err := r.Read(buf)
		if n > 0 {
			window := append(carry, buf[:n]...)
			if bytes.Contains(window, marker) {
				return true, nil
			}
			keep := len(marker) - 1
			if len(window) < keep {
				keep = len(window)
			}
			carry = append(carry[:0:0], window[len(window)-keep:]...)
		}
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, err
		}
	}
}
