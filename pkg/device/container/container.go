// Package container resolves a router's address by inspecting the
// container of the same name, for labs where routers run in containers
// whose names are not in DNS.
package container

import (
	"context"
	"fmt"
	"sort"

	"github.com/containerd/errdefs"
	ctypes "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// Inspector is the subset of the Docker API the resolver uses.
type Inspector interface {
	ContainerInspect(ctx context.Context, container string) (ctypes.InspectResponse, error)
}

// Resolver looks up container addresses through the Docker API.
type Resolver struct {
	docker Inspector

	// Network restricts the lookup to one container network. Empty means
	// the first network (by name) with an address.
	Network string
}

// NewResolver wraps an existing Docker client.
func NewResolver(docker Inspector) *Resolver {
	return &Resolver{docker: docker}
}

// NewFromEnv creates a resolver using DOCKER_HOST and friends. The
// returned client must be closed by the caller.
func NewFromEnv() (*Resolver, *client.Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, nil, fmt.Errorf("docker client: %w", err)
	}
	return NewResolver(cli), cli, nil
}

// Resolve returns the IP address of the named container.
func (r *Resolver) Resolve(ctx context.Context, name string) (string, error) {
	info, err := r.docker.ContainerInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return "", fmt.Errorf("container %s not found: %w", name, err)
		}
		return "", fmt.Errorf("inspect container %s: %w", name, err)
	}
	if info.NetworkSettings == nil || len(info.NetworkSettings.Networks) == 0 {
		return "", fmt.Errorf("container %s has no networks", name)
	}

	nets := info.NetworkSettings.Networks
	if r.Network != "" {
		ep, ok := nets[r.Network]
		if !ok || ep == nil || ep.IPAddress == "" {
			return "", fmt.Errorf("container %s has no address on network %s", name, r.Network)
		}
		return ep.IPAddress, nil
	}

	names := make([]string, 0, len(nets))
	for n := range nets {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if ep := nets[n]; ep != nil && ep.IPAddress != "" {
			return ep.IPAddress, nil
		}
	}
	for _, n := range names {
		if ep := nets[n]; ep != nil && ep.GlobalIPv6Address != "" {
			return ep.GlobalIPv6Address, nil
		}
	}
	return "", fmt.Errorf("container %s has no address", name)
}
