package device

import (
	"context"
	"fmt"
	"net"

	"github.com/newtron-network/newtboot/pkg/util"
)

// HostResolver resolves names through the system resolver.
type HostResolver struct {
	Resolver *net.Resolver // nil = net.DefaultResolver
}

// Resolve returns the first address the name resolves to.
func (h HostResolver) Resolve(ctx context.Context, name string) (string, error) {
	r := h.Resolver
	if r == nil {
		r = net.DefaultResolver
	}
	addrs, err := r.LookupHost(ctx, name)
	if err != nil {
		return "", err
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("no addresses for %s", name)
	}
	return addrs[0], nil
}

// FallbackResolver tries Primary first and, on failure, Fallback. A
// failure of the last resolver tried is an ErrAddressResolution.
type FallbackResolver struct {
	Primary  Resolver
	Fallback Resolver
}

// Resolve implements Resolver.
func (f FallbackResolver) Resolve(ctx context.Context, name string) (string, error) {
	addr, err := f.Primary.Resolve(ctx, name)
	if err == nil {
		return addr, nil
	}
	if f.Fallback == nil {
		return "", fmt.Errorf("%w: %s: %w", util.ErrAddressResolution, name, err)
	}

	util.WithRouter(name).Debugf("name lookup failed (%v), trying fallback", err)
	addr, ferr := f.Fallback.Resolve(ctx, name)
	if ferr != nil {
		return "", fmt.Errorf("%w: %s: lookup: %v; fallback: %w", util.ErrAddressResolution, name, err, ferr)
	}
	return addr, nil
}
