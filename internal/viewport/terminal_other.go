//go:build !unix

package viewport

import "os"

// Terminals without SIGWINCH never notify; their size is still read on
// demand.
func notifyResize(chan<- os.Signal) {}

func stopResize(chan<- os.Signal) {}
