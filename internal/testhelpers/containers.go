// Package testhelpers starts the backing services used by integration tests.
//
// Redis and MongoDB run in throwaway containers via testcontainers-go, so the
// tests only need a reachable Docker daemon. Setting FOLIO_TEST_REDIS_ADDR or
// FOLIO_TEST_MONGO_URI points the tests at an existing server instead.
//
// Typical usage, guarded by the integration build tag:
//
//	func TestRedisStore(t *testing.T) {
//	    addr := testhelpers.Redis(t)
//	    client := redis.NewClient(&redis.Options{Addr: addr})
//	    // ...
//	}
package testhelpers

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Redis returns the address of a Redis server for the test.
// The container, if one is started, is terminated on test cleanup.
func Redis(t *testing.T) string {
	t.Helper()
	if addr := os.Getenv("FOLIO_TEST_REDIS_ADDR"); addr != "" {
		return addr
	}
	host, port := start(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
	}, "6379")
	return fmt.Sprintf("%s:%s", host, port)
}

// Mongo returns a connection URI for a MongoDB server for the test.
func Mongo(t *testing.T) string {
	t.Helper()
	if uri := os.Getenv("FOLIO_TEST_MONGO_URI"); uri != "" {
		return uri
	}
	host, port := start(t, testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(90 * time.Second),
	}, "27017")
	return fmt.Sprintf("mongodb://%s:%s", host, port)
}

func start(t *testing.T, req testcontainers.ContainerRequest, port string) (string, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping container-based test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start %s: %v", req.Image, err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate %s: %v", req.Image, err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get %s host: %v", req.Image, err)
	}
	mapped, err := container.MappedPort(ctx, nat.Port(port))
	if err != nil {
		t.Fatalf("Failed to get %s port: %v", req.Image, err)
	}
	return host, mapped.Port()
}
