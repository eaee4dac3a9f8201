//go:build windows

package marshal

// default nesting limit, lower where the main thread stack is small
const defaultMaxDepth = 1000
