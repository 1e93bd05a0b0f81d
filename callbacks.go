// Copyright 2025 Bruno Schaatsbergen. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netresolv

import "sync/atomic"

// Callbacks are the host policy hooks interposed on every query. Each hook
// is independently optional; a nil hook falls back to the default behavior
// documented on its field. The one exception is GetNetworkContext, which has
// no safe default: paths that need it fail with ErrMissingCallback when it
// is unset.
//
// Install with Resolver.SetCallbacks, clear with Resolver.ResetCallbacks.
type Callbacks struct {
	// CheckPermission decides whether the given identity may resolve at
	// all. Unset means allow.
	CheckPermission func(uid uint32) bool

	// GetNetworkContext maps a network and calling identity to the full
	// per-query context (marks, app network). Required by LookupIPs;
	// unset surfaces ErrMissingCallback there.
	GetNetworkContext func(network NetworkID, uid uint32) (NetContext, error)

	// Log receives one-line messages about policy-relevant events, such
	// as socket tagging failures. Unset means discard.
	Log func(msg string)

	// TagSocket attributes the query's transport socket to the given
	// identity. It runs once per successfully resolved query, on the
	// socket that carried the winning attempt. Unset falls through to
	// the SocketTagger the Resolver was built with, if any.
	TagSocket func(fd int, network NetworkID, uid uint32, pid int32) error

	// EvaluateDomain decides whether the given name may be resolved in
	// the given context. Unset means allow.
	EvaluateDomain func(nc NetContext, name string) bool
}

// callbackRegistry holds the installed hook set behind a single atomic
// pointer. Install and reset swap the whole set at once; a reader loads the
// pointer once per query and works off that snapshot, so it can never see a
// mix of two installations.
type callbackRegistry struct {
	hooks atomic.Pointer[Callbacks]
}

// install replaces the current set wholesale. The set is copied, so later
// mutation of the caller's struct does not leak into the registry.
func (cr *callbackRegistry) install(cb Callbacks) {
	cr.hooks.Store(&cb)
}

// reset clears every hook back to its default behavior.
func (cr *callbackRegistry) reset() {
	cr.hooks.Store(&Callbacks{})
}

// snapshot returns the current set. Never nil.
func (cr *callbackRegistry) snapshot() *Callbacks {
	if cb := cr.hooks.Load(); cb != nil {
		return cb
	}
	return &Callbacks{}
}

// checkPermission applies the default-allow rule for an unset hook.
func (cb *Callbacks) checkPermission(uid uint32) bool {
	if cb.CheckPermission == nil {
		return true
	}
	return cb.CheckPermission(uid)
}

// evaluateDomain applies the default-allow rule for an unset hook.
func (cb *Callbacks) evaluateDomain(nc NetContext, name string) bool {
	if cb.EvaluateDomain == nil {
		return true
	}
	return cb.EvaluateDomain(nc, name)
}

// log discards when unset.
func (cb *Callbacks) log(msg string) {
	if cb.Log != nil {
		cb.Log(msg)
	}
}

// networkContext reports ErrMissingCallback when the hook is unset, since
// there is no sensible context to invent.
func (cb *Callbacks) networkContext(network NetworkID, uid uint32) (NetContext, error) {
	if cb.GetNetworkContext == nil {
		return NetContext{}, ErrMissingCallback
	}
	return cb.GetNetworkContext(network, uid)
}
