package worker

import (
	"context"
	"fmt"
	"log/slog"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const (
	// WorkerRegistryPrefix defines the etcd prefix where worker instances
	// register themselves for operator visibility.
	WorkerRegistryPrefix = "/tasks/workers/"
)

// Registry announces a worker instance in etcd under a TTL lease. If the
// process dies without deregistering, the lease expires and the entry
// disappears on its own.
type Registry struct {
	client  *clientv3.Client
	logger  *slog.Logger
	leaseID clientv3.LeaseID
	key     string
}

// NewRegistry creates a new worker registry.
func NewRegistry(client *clientv3.Client, logger *slog.Logger) *Registry {
	return &Registry{
		client: client,
		logger: logger.With("component", "worker-registry"),
	}
}

// Register writes the worker's key under a lease and starts a keep-alive
// goroutine to refresh it.
func (r *Registry) Register(ctx context.Context, workerID string, ttl int64) error {
	r.key = WorkerRegistryPrefix + workerID

	leaseResp, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return fmt.Errorf("failed to grant lease: %w", err)
	}
	r.leaseID = leaseResp.ID

	if _, err := r.client.Put(ctx, r.key, workerID, clientv3.WithLease(r.leaseID)); err != nil {
		return fmt.Errorf("failed to put worker registration key: %w", err)
	}

	keepAliveCh, err := r.client.KeepAlive(context.Background(), r.leaseID)
	if err != nil {
		return fmt.Errorf("failed to start keep-alive: %w", err)
	}

	go func() {
		for {
			// Consume keep-alive responses. A closed channel means the lease
			// was revoked or has expired.
			ka, ok := <-keepAliveCh
			if !ok {
				r.logger.Warn("keep-alive channel closed, worker registration may have expired")
				return
			}
			r.logger.Debug("lease keep-alive refreshed", "lease_id", ka.ID, "ttl", ka.TTL)
		}
	}()

	r.logger.Info("worker registered", "key", r.key)
	return nil
}

// Deregister revokes the lease, removing the worker's key.
func (r *Registry) Deregister(ctx context.Context) error {
	r.logger.Info("deregistering worker", "key", r.key)

	if _, err := r.client.Revoke(ctx, r.leaseID); err != nil {
		return fmt.Errorf("failed to revoke lease: %w", err)
	}
	return nil
}
