package web2rpc

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"net/url"
	"strings"
)

var (
	ErrNoAddresses = errors.New("web2rpc: host has no addresses")
	ErrNoHost      = errors.New("web2rpc: url has no host")
)

// Family identifies which set of paths an [Endpoint] uses.
type Family int

const (
	// FamilyPublic is selected for hosts that resolve to routable addresses.
	FamilyPublic Family = iota
	// FamilyLocal is selected for loopback and unspecified addresses, such as a self-hosted
	// instance of a service whose paths are not versioned.
	FamilyLocal
)

func (f Family) String() string {
	if f == FamilyLocal {
		return "local"
	}

	return "public"
}

// LookupFunc resolves a host name to its addresses.
type LookupFunc func(ctx context.Context, host string) ([]netip.Addr, error)

// DefaultLookup resolves with [net.DefaultResolver].
func DefaultLookup(ctx context.Context, host string) ([]netip.Addr, error) {
	return net.DefaultResolver.LookupNetIP(ctx, "ip", host)
}

// Endpoint is a base URL together with the path set chosen for it by [ResolveEndpoint].
// It is immutable.
type Endpoint[P any] struct {
	base   *url.URL
	Paths  P
	Addr   netip.Addr
	Family Family
}

// URL joins path onto the base URL, keeping any base path prefix.
func (e *Endpoint[P]) URL(path string) string {
	u := *e.base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	u.RawPath = ""

	return u.String()
}

// Base returns the base URL.
func (e *Endpoint[P]) Base() string {
	return e.base.String()
}

// ResolveEndpoint resolves the host of rawURL once and picks local when the first
// address is a loopback or unspecified address, public otherwise. IP literals are
// classified without a lookup. A nil lookup uses [DefaultLookup].
//
// Any failure is returned as a [*HostResolutionError]. The result should be kept for
// the lifetime of the client that needed it.
//
// Example:
//
//	ep, err := web2rpc.ResolveEndpoint(ctx, "http://127.0.0.1:8080", localPaths, publicPaths, nil)
//	// ep.Family == web2rpc.FamilyLocal, ep.Paths == localPaths
func ResolveEndpoint[P any](ctx context.Context, rawURL string, local, public P, lookup LookupFunc) (*Endpoint[P], error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &HostResolutionError{Host: rawURL, Err: err}
	}

	host := u.Hostname()
	if host == "" {
		return nil, &HostResolutionError{Host: rawURL, Err: ErrNoHost}
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		if lookup == nil {
			lookup = DefaultLookup
		}

		addrs, lerr := lookup(ctx, host)

		switch {
		case lerr != nil:
			return nil, &HostResolutionError{Host: host, Err: lerr}
		case len(addrs) == 0:
			return nil, &HostResolutionError{Host: host, Err: ErrNoAddresses}
		}

		addr = addrs[0]
	}

	addr = addr.Unmap()
	ep := &Endpoint[P]{base: u, Addr: addr, Family: FamilyPublic, Paths: public}

	if addr.IsLoopback() || addr.IsUnspecified() {
		ep.Family, ep.Paths = FamilyLocal, local
	}

	return ep, nil
}
