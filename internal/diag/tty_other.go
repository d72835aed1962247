//go:build !unix

package diag

import "io"

func isTerminal(io.Writer) bool { return false }
