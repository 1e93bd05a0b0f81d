// Copyright 2025 Bruno Schaatsbergen. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netresolv

// DNSServiceUID is the conventional identity of a dedicated DNS service
// account. It is the default owner in legacy attribution mode, where sockets
// are accounted to the resolving service instead of the querying caller.
const DNSServiceUID uint32 = 1051

// SocketTagger transfers ownership and quota attribution of a query socket
// to a requesting identity. The production implementation performs the OS
// call; test implementations record the invocation instead. The engine never
// branches on platform specifics itself - it just calls whatever tagger it
// was built with.
type SocketTagger interface {
	TagSocket(fd int, network NetworkID, uid uint32, pid int32) error
}

// TaggerFunc adapts a plain function to the SocketTagger interface.
type TaggerFunc func(fd int, network NetworkID, uid uint32, pid int32) error

// TagSocket calls f.
func (f TaggerFunc) TagSocket(fd int, network NetworkID, uid uint32, pid int32) error {
	return f(fd, network, uid, pid)
}

// ChownTagger attributes socket ownership by changing the owner of the
// socket file descriptor. In the default mode the owner becomes the query's
// uid; in legacy mode every socket goes to one fixed service identity. The
// mode is decided once at construction, never per call.
//
// Changing ownership to another uid requires the appropriate privilege
// (CAP_CHOWN on Linux).
type ChownTagger struct {
	legacy bool
	owner  uint32
}

// NewChownTagger attributes sockets to the per-query identity.
func NewChownTagger() *ChownTagger {
	return &ChownTagger{}
}

// NewLegacyChownTagger attributes every socket to the given fixed identity,
// typically DNSServiceUID. For hosts whose accounting predates per-caller
// attribution.
func NewLegacyChownTagger(owner uint32) *ChownTagger {
	return &ChownTagger{legacy: true, owner: owner}
}

// TagSocket implements SocketTagger.
func (t *ChownTagger) TagSocket(fd int, network NetworkID, uid uint32, pid int32) error {
	owner := uid
	if t.legacy {
		owner = t.owner
	}
	return fchownSocket(fd, owner)
}
