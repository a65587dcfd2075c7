// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ledger-assistant/internal/assistant/clarify"
	"ledger-assistant/internal/assistant/classifier"
	"ledger-assistant/internal/assistant/gate"
	"ledger-assistant/internal/assistant/resolver"
	awsclient "ledger-assistant/internal/common/aws"
	"ledger-assistant/internal/common/camunda"
	"ledger-assistant/internal/common/config"
	"ledger-assistant/internal/common/database"
	"ledger-assistant/internal/common/logger"
	"ledger-assistant/internal/common/metrics"
	"ledger-assistant/internal/common/observability"
	"ledger-assistant/internal/integrations/catalog"
	"ledger-assistant/internal/integrations/conversation"
	"ledger-assistant/internal/integrations/directory"
	"ledger-assistant/internal/integrations/notify"
	"ledger-assistant/internal/integrations/records"

	cu "ledger-assistant/internal/workers/assistant/classify-utterance"
	pu "ledger-assistant/internal/workers/assistant/process-utterance"
	rf "ledger-assistant/internal/workers/assistant/resolve-fixture"
	rlq "ledger-assistant/internal/workers/assistant/run-ledger-query"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.Build(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})
	log.Info("Starting worker manager", map[string]interface{}{"environment": cfg.App.Environment})

	obs := observability.New(cfg.App.Name, log)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Zeebe ---
	zeebe, err := connectZeebe(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebe.Close()

	// --- PostgreSQL ---
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres init failed", zap.Error(err))
	}
	if err := database.WaitReady(ctx, "postgres", pg, 15, 2*time.Second, log); err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()

	// --- Elasticsearch ---
	esClient, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		zapLog.Fatal("elasticsearch init failed", zap.Error(err))
	}
	if err := database.WaitReady(ctx, "elasticsearch", esClient, 15, 2*time.Second, log); err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}

	// --- Redis ---
	rdb, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		zapLog.Fatal("redis init failed", zap.Error(err))
	}
	if err := database.WaitReady(ctx, "redis", rdb, 10, 2*time.Second, log); err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()

	// --- Pipeline ---
	a := cfg.Assistant
	recorder := metrics.Assistant{}

	searcher := catalog.NewSearcher(esClient.Client, a.FixturesIndex, log)
	fixtures := resolver.NewFixtureResolver(searcher, log,
		resolver.WithMaxQueries(a.MaxCandidateQueries),
		resolver.WithLookupTimeout(config.GetDuration(a.SearchTimeout)),
		resolver.WithRecorder(recorder),
	)

	gateOpts := []gate.Option{gate.WithRecorder(recorder)}
	if sns := cfg.Notifications.SNS; sns.Enabled {
		client, err := awsclient.NewSNSClient(ctx, sns.Region)
		if err != nil {
			zapLog.Fatal("sns client init failed", zap.Error(err))
		}
		gateOpts = append(gateOpts, gate.WithNotifier(notify.NewSNSPublisher(client, sns.TopicARN, log)))
	}
	ledger := records.NewStore(pg.DB, log)
	executor := gate.New(ledger, log, gateOpts...)
	cls := classifier.New(classifier.WithThreshold(a.ConfidenceThreshold))

	machine := clarify.New(
		cls, fixtures, executor, log,
		clarify.WithAutoSelect(a.AutoSelect()),
		clarify.WithRecorder(recorder),
	)

	dirs := directory.NewCache(rdb.Client, directory.NewStore(pg.DB), config.GetDuration(a.DirectoryCacheTTL), log)
	states := conversation.NewStateStore(rdb.Client, config.GetDuration(a.StateTTL))
	transcript := conversation.NewTranscriptStore(rdb.Client, a.TranscriptLimit, config.GetDuration(a.StateTTL))

	// --- Workers ---
	var workers []worker.JobWorker

	puHandler, err := pu.NewHandler(pu.FromAppConfig(cfg), pu.Dependencies{
		Machine:     machine,
		States:      states,
		Transcript:  transcript,
		Directories: dirs,
		Observer:    obs,
	}, log)
	if err != nil {
		zapLog.Fatal("failed to create process-utterance handler", zap.Error(err))
	}
	if jw := camunda.StartWorker(zeebe.GetClient(), pu.TaskType, config.GetWorkerConfig(cfg, pu.TaskType), puHandler.Handle, log); jw != nil {
		workers = append(workers, jw)
	}

	rfHandler, err := rf.NewHandler(rf.FromAppConfig(cfg), fixtures, log)
	if err != nil {
		zapLog.Fatal("failed to create resolve-fixture handler", zap.Error(err))
	}
	if jw := camunda.StartWorker(zeebe.GetClient(), rf.TaskType, config.GetWorkerConfig(cfg, rf.TaskType), rfHandler.Handle, log); jw != nil {
		workers = append(workers, jw)
	}

	cuHandler := cu.NewHandler(cu.FromAppConfig(cfg), cls, log)
	if jw := camunda.StartWorker(zeebe.GetClient(), cu.TaskType, config.GetWorkerConfig(cfg, cu.TaskType), cuHandler.Handle, log); jw != nil {
		workers = append(workers, jw)
	}

	rlqHandler := rlq.NewHandler(rlq.FromAppConfig(cfg), ledger, log)
	if jw := camunda.StartWorker(zeebe.GetClient(), rlq.TaskType, config.GetWorkerConfig(cfg, rlq.TaskType), rlqHandler.Handle, log); jw != nil {
		workers = append(workers, jw)
	}

	log.Info("Workers registered", map[string]interface{}{"count": len(workers)})

	// --- Health & Metrics Server ---
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: healthMux(zeebe, pg, esClient, rdb),
	}
	go func() {
		log.Info("Health/Metrics server listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Health/Metrics server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	log.Info("Shutdown signal received, stopping workers", nil)

	for _, jw := range workers {
		jw.Close()
		jw.AwaitClose()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Health/Metrics server shutdown failed", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Worker manager stopped gracefully", nil)
}

// connectZeebe dials the gateway with doubling backoff.
func connectZeebe(ctx context.Context, cfg *config.Config, log logger.Logger) (*camunda.Client, error) {
	delay := 2 * time.Second
	var lastErr error
	for attempt := 1; attempt <= 10; attempt++ {
		client, err := camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		if err == nil {
			log.Info("Zeebe client connected", map[string]interface{}{"attempt": attempt})
			return client, nil
		}
		lastErr = err
		log.Warn("Zeebe client initialization failed, retrying", map[string]interface{}{
			"attempt":     attempt,
			"error":       err.Error(),
			"nextRetryIn": delay.String(),
		})
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, fmt.Errorf("zeebe client initialization failed after 10 attempts: %w", lastErr)
}

func healthMux(checks ...database.Pinger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy", "")
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		for _, c := range checks {
			if err := c.Ping(ctx); err != nil {
				writeStatus(w, http.StatusServiceUnavailable, "not_ready", err.Error())
				return
			}
		}
		writeStatus(w, http.StatusOK, "ready", "")
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/pprof/", http.DefaultServeMux)
	return mux
}

func writeStatus(w http.ResponseWriter, code int, status, detail string) {
	body := map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	}
	if detail != "" {
		body["error"] = detail
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
