package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"yard_parking/internal/api"
	"yard_parking/internal/api/handler"
	"yard_parking/internal/config"
	"yard_parking/internal/intake"
	"yard_parking/internal/notify"
	"yard_parking/internal/scheduler"
	"yard_parking/internal/service"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 10 * time.Second
	consumerWait    = 5 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the scheduled sweeps and the reservation intake",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg, log := a.cfg, a.log

	var awsCfg aws.Config
	var sqsClient *sqs.Client
	if usesAWS(cfg) {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return err
		}
		sqsClient = sqs.NewFromConfig(awsCfg)
		log.Info("aws config loaded", zap.String("region", cfg.AWSRegion))
	}

	notifier, err := buildNotifier(cfg, sqsClient, log)
	if err != nil {
		return err
	}
	yard := a.yard(notifier)

	wsCtx, stopWS := context.WithCancel(context.Background())
	defer stopWS()
	wsManager := handler.NewWebSocketManager(log)
	go wsManager.Start(wsCtx)
	yard.Registry.Observe(wsManager)

	if cfg.IoTEndpoint != "" {
		boards := notify.NewDisplayPublisher(notify.NewIoTDataClient(awsCfg, cfg.IoTEndpoint), cfg.DisplayTopicPrefix)
		yard.Registry.Observe(boards)
		log.Info("slot boards enabled", zap.String("topic_prefix", cfg.DisplayTopicPrefix))
	}

	sched := scheduler.New(cfg.Location(), yard.Calendar.Today, log)
	if err := sched.Register("reconcile", cfg.ReconcileSchedule, yard.Reconciler.ReconcileToday); err != nil {
		return err
	}
	if err := sched.Register("heal", cfg.HealSchedule, yard.Healer.Heal); err != nil {
		return err
	}
	sched.Start()

	var wg sync.WaitGroup
	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	defer cancelConsumer()
	if cfg.ReservationQueueURL == "" {
		log.Info("RESERVATION_QUEUE_URL not set, reservation intake disabled")
	} else {
		consumer := intake.NewSQSConsumer(sqsClient, cfg.ReservationQueueURL, yard.Reconciler, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			consumer.Start(consumerCtx)
		}()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           api.SetupRouter(yard, wsManager, a.registry, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sigCtx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()
	select {
	case <-sigCtx.Done():
		log.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			log.Error("http server failed", zap.Error(err))
		}
	}

	cancelConsumer()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server forced to stop", zap.Error(err))
	}
	sched.Stop(shutdownCtx)
	stopWS()

	done := make(chan struct{})
	go func() {
		defer close(done)
		wg.Wait()
	}()
	select {
	case <-done:
	case <-time.After(consumerWait):
		log.Warn("reservation intake did not stop in time")
	}

	yard.Coordinator.Wait()
	log.Info("server stopped")
	return nil
}

func usesAWS(cfg *config.Config) bool {
	return cfg.SMSQueueURL != "" || cfg.ReservationQueueURL != "" || cfg.IoTEndpoint != ""
}

// buildNotifier returns nil when no channel is configured.
func buildNotifier(cfg *config.Config, sqsClient *sqs.Client, log *zap.Logger) (service.Notifier, error) {
	dispatcher := &notify.Dispatcher{}
	if cfg.SMSQueueURL != "" {
		dispatcher.SMS = notify.NewSMSQueue(sqsClient, cfg.SMSQueueURL)
		log.Info("sms notices enabled")
	}
	if cfg.ReceiptEndpoint != "" {
		client, err := notify.NewMinioClient(cfg.ReceiptEndpoint, cfg.ReceiptAccessKey, cfg.ReceiptSecretKey, cfg.ReceiptUseSSL)
		if err != nil {
			return nil, err
		}
		dispatcher.Receipts = notify.NewReceiptStore(client, cfg.ReceiptBucket)
		log.Info("receipt storage enabled", zap.String("bucket", cfg.ReceiptBucket))
	}
	if dispatcher.SMS == nil && dispatcher.Receipts == nil {
		return nil, nil
	}
	return dispatcher, nil
}
