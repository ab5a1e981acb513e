// cmd/worker/main.go
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"task-service/internal/config"
	"task-service/internal/infra/etcd"
	"task-service/internal/infra/redisq"
	"task-service/internal/metrics"
	"task-service/internal/tracing"
	"task-service/internal/worker"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// 1. Init logger, tracer, config
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	tracerShutdown, err := tracing.InitTracer("task-service-worker")
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tracerShutdown(context.Background()); err != nil {
			log.Printf("failed to shutdown tracer: %v", err)
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	workerID := uuid.New().String()
	log.Printf("Starting worker node %s", workerID)

	// 2. Create root context for lifecycle management
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Setup graceful shutdown
	setupGracefulShutdown(cancel)

	// 4. Init etcd client and register this worker under a lease
	etcdClient, err := etcd.NewClient(cfg.EtcdEndpoints, cfg.EtcdTimeout)
	if err != nil {
		log.Fatalf("Failed to create etcd client: %v", err)
	}
	defer etcdClient.Close()
	log.Println("Connected to etcd.")

	registry := worker.NewRegistry(etcdClient, logger)
	regCtx, regCancel := context.WithTimeout(rootCtx, 5*time.Second)
	defer regCancel()
	if err := registry.Register(regCtx, workerID, int64(cfg.WorkerTTL.Seconds())); err != nil {
		log.Fatalf("Failed to register worker: %v", err)
	}

	defer func() {
		deregCtx, deregCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer deregCancel()
		if err := registry.Deregister(deregCtx); err != nil {
			logger.Error("failed to deregister worker", "error", err)
		}
	}()

	// 5. Init queue, task API client and processor
	queue := redisq.New(cfg.RedisAddr, cfg.QueueName, logger)
	defer queue.Close()

	apiClient := worker.NewAPIClient(cfg.ApiBaseURL, cfg.ApiTimeout)
	processor := worker.NewSimulatedProcessor(2*time.Second, logger)

	// 6. Expose worker metrics
	metrics.Register()
	go func() {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		log.Printf("Metrics server listening on %s", cfg.MetricsListenAddr)
		if err := http.ListenAndServe(cfg.MetricsListenAddr, metricsMux); err != nil {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	// 7. Sample queue depth periodically
	go collectQueueMetrics(rootCtx, queue)

	// 8. Run the worker loop until shutdown
	w := worker.New(queue, apiClient, processor, cfg.PollTimeout, cfg.RetryBackoff, logger)
	w.Run(rootCtx)

	log.Println("Worker node shut down.")
}

// collectQueueMetrics periodically samples the queue depth gauge.
func collectQueueMetrics(ctx context.Context, queue *redisq.Queue) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if depth, err := queue.Depth(ctx); err == nil {
				metrics.QueueDepth.Set(float64(depth))
			}
		}
	}
}

func setupGracefulShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("Received signal %v. Initiating graceful shutdown...", sig)
		cancel()
	}()
}
