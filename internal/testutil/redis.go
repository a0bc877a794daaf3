//go:build integration

package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/newtron-network/newtboot/pkg/device/container"
)

// redisContainer is the integration test Redis container.
const redisContainer = "newtboot-test-redis"

// RedisAddr returns the test Redis address. It checks
// NEWTBOOT_TEST_REDIS_ADDR, then the test container's IP. The test is
// skipped when neither is available.
func RedisAddr(t *testing.T) string {
	t.Helper()
	if addr := os.Getenv("NEWTBOOT_TEST_REDIS_ADDR"); addr != "" {
		return addr
	}

	resolver, cli, err := container.NewFromEnv()
	if err != nil {
		t.Skipf("no NEWTBOOT_TEST_REDIS_ADDR and no docker: %v", err)
	}
	defer cli.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ip, err := resolver.Resolve(ctx, redisContainer)
	if err != nil {
		t.Skipf("no NEWTBOOT_TEST_REDIS_ADDR and %s not running: %v", redisContainer, err)
	}
	return ip + ":6379"
}
