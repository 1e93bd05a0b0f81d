package netresolv

import "errors"

// Errors returned by the resolver. Compare with errors.Is, as most of them
// travel wrapped with additional detail.
var (
	// ErrPermissionDenied means the installed permission hook vetoed the
	// calling identity before any network activity took place.
	ErrPermissionDenied = errors.New("permission denied by policy")

	// ErrDomainVetoed means the installed domain evaluator rejected the
	// queried name.
	ErrDomainVetoed = errors.New("domain vetoed by policy")

	// ErrNetworkNotFound means the network identity has no live resolver
	// context, either because it was never created or because it was torn
	// down while the query was in flight.
	ErrNetworkNotFound = errors.New("network not found")

	// ErrNetworkExists is returned by CreateNetwork for an identity that
	// already has a context.
	ErrNetworkExists = errors.New("network already exists")

	// ErrNoServersConfigured means the network exists but its nameserver
	// list is empty.
	ErrNoServersConfigured = errors.New("no nameservers configured")

	// ErrAllServersUnreachable means every configured nameserver was
	// attempted, retries included, without a single usable response.
	ErrAllServersUnreachable = errors.New("all nameservers unreachable")

	// ErrMissingCallback means a code path required the network-context
	// hook and none was installed. This is a configuration error and is
	// never retried.
	ErrMissingCallback = errors.New("required callback not installed")

	// ErrNoAnswer means a nameserver answered authoritatively that the
	// name does not exist or holds no records of the requested type. It is
	// terminal for the query: the server is healthy, retrying others would
	// not change the answer.
	ErrNoAnswer = errors.New("no answer")

	// ErrTransport wraps non-timeout I/O failures from a query attempt.
	// Attempts failing this way are retried like timeouts but show up
	// separately in telemetry.
	ErrTransport = errors.New("transport failure")

	// ErrUnsupported is returned by capabilities that cannot work on the
	// current platform, such as socket ownership changes off unix.
	ErrUnsupported = errors.New("not supported on this platform")

	// ErrClosed is returned once Close has been called on the Resolver.
	ErrClosed = errors.New("resolver closed")
)
