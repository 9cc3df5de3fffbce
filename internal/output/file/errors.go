package file

import "fmt"

// FilesystemError reports a directory or file operation that failed while
// preparing or writing a channel log.
type FilesystemError struct {
	Op   string // "mkdir", "open", "inspect", "write"
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("channel log: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }
