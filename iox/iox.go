// Package iox provides I/O helpers for append-only output and resource cleanup.
package iox

import (
	"errors"
	"io"
	"os"
)

// AppendFlags opens a file for appending, creating it if missing.
const AppendFlags = os.O_APPEND | os.O_CREATE | os.O_WRONLY

// AppendFile appends data to the file at path, creating it if needed.
// The file is closed before returning, so a nil error means the write
// reached the file and the close succeeded.
func AppendFile(path string, data []byte, perm os.FileMode) (err error) {
	f, err := os.OpenFile(path, AppendFlags, perm)
	if err != nil {
		return err
	}
	defer CloseInto(f, &err)

	_, err = f.Write(data)
	return err
}

// CloseInto closes c and joins a close failure into *errp.
// Use in defer statements on writable resources where a failed close
// means lost data:
//
//	defer iox.CloseInto(f, &err)
func CloseInto(c io.Closer, errp *error) {
	if cerr := c.Close(); cerr != nil {
		*errp = errors.Join(*errp, cerr)
	}
}

// DiscardClose closes c and discards the error.
// Use in defer statements where close errors are unactionable:
//
//	defer iox.DiscardClose(f)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc returns a cleanup function that closes c.
// Designed for t.Cleanup registration:
//
//	t.Cleanup(iox.CloseFunc(src))
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}
