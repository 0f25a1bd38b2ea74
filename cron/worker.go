package cron

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"rideka/config"
	"rideka/services/payout"
	"rideka/services/reconcile"

	"github.com/hibiken/asynq"
)

// Task types handled by the background worker.
const (
	TypeReconcilePayments = "reconcile:payments"
	TypeReconcilePayouts  = "reconcile:payouts"
	TypeReconcileRefunds  = "reconcile:refunds"
	TypePayoutRetry       = "payout:retry"
)

type payoutRetryPayload struct {
	PayoutID string `json:"payout_id"`
}

func redisOpts() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// NewQueueClient returns the asynq client used to enqueue tasks.
func NewQueueClient() *asynq.Client {
	return asynq.NewClient(redisOpts())
}

// NewPayoutRetryEnqueuer adapts the queue client to the sweeper's injected
// enqueue function.
func NewPayoutRetryEnqueuer(client *asynq.Client) func(ctx context.Context, payoutID string) error {
	return func(ctx context.Context, payoutID string) error {
		payload, err := json.Marshal(payoutRetryPayload{PayoutID: payoutID})
		if err != nil {
			return err
		}
		// TaskID keyed on the payout dedupes a retry already waiting in the
		// queue.
		_, err = client.EnqueueContext(ctx, asynq.NewTask(TypePayoutRetry, payload),
			asynq.TaskID("payout-retry:"+payoutID),
			asynq.MaxRetry(0))
		if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
			return err
		}
		return nil
	}
}

// InitReconcileWorker starts the background worker and the periodic
// scheduler that drives the reconciliation sweeps.
func InitReconcileWorker(sweeper *reconcile.Sweeper, payoutSvc payout.PayoutService) {
	srv := asynq.NewServer(
		redisOpts(),
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeReconcilePayments, func(ctx context.Context, _ *asynq.Task) error {
		return sweeper.SweepPayments(ctx)
	})
	mux.HandleFunc(TypeReconcilePayouts, func(ctx context.Context, _ *asynq.Task) error {
		return sweeper.SweepPayouts(ctx)
	})
	mux.HandleFunc(TypeReconcileRefunds, func(ctx context.Context, _ *asynq.Task) error {
		return sweeper.SweepRefunds(ctx)
	})
	mux.HandleFunc(TypePayoutRetry, handlePayoutRetryTask(payoutSvc))

	go func() {
		log.Println("[ReconcileWorker] starting async worker...")
		const maxAttempts = 5
		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[ReconcileWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)
				if attempts == maxAttempts {
					log.Fatal("[ReconcileWorker] max retry attempts reached, exiting")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()

	go runScheduler()
}

func handlePayoutRetryTask(payoutSvc payout.PayoutService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p payoutRetryPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[PayoutRetry] invalid payload: %v", err)
			return err
		}
		return payoutSvc.ProcessRetry(ctx, p.PayoutID)
	}
}

// runScheduler registers the periodic sweep tasks.
func runScheduler() {
	scheduler := asynq.NewScheduler(redisOpts(), nil)

	every := fmt.Sprintf("@every %s", config.AppConfig.ReconcileInterval)
	for _, taskType := range []string{TypeReconcilePayments, TypeReconcilePayouts, TypeReconcileRefunds} {
		if _, err := scheduler.Register(every, asynq.NewTask(taskType, nil)); err != nil {
			log.Fatalf("[ReconcileWorker] failed to register %s: %v", taskType, err)
		}
	}

	if err := scheduler.Run(); err != nil {
		log.Fatalf("[ReconcileWorker] scheduler failed: %v", err)
	}
}
