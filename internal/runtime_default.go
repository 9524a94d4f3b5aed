//go:build !wasm

package internal

import (
	"github.com/petermattis/goid"
)

// GoroutineID identifies the calling goroutine.
func GoroutineID() int64 {
	return goid.Get()
}
