//go:build wasm

package internal

// GoroutineID identifies the calling goroutine.
// wasm runs a single thread so every caller shares one id.
func GoroutineID() int64 {
	return 1
}
