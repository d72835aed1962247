//go:build unix

package diag

import (
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// isTerminal reports whether out is an interactive terminal, so color
// escapes are only emitted where they will be interpreted.
func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	_, err := unix.IoctlGetTermios(int(f.Fd()), ioctlReadTermios)
	return err == nil
}
