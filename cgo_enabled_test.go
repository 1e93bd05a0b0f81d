//go:build cgo

package netresolv

const cgoStatus = "enabled"
