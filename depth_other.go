//go:build !windows

package marshal

const defaultMaxDepth = 2000
