package retention

import (
	"context"
	"time"

	"github.com/smallbiznis/botsense/internal/clock"
	"github.com/smallbiznis/botsense/internal/config"
	credentialdomain "github.com/smallbiznis/botsense/internal/credential/domain"
	verificationdomain "github.com/smallbiznis/botsense/internal/verification/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const pollInterval = time.Hour

type Params struct {
	fx.In

	Cfg           config.Config
	Log           *zap.Logger
	Clock         clock.Clock
	Verifications verificationdomain.Service
	Credentials   credentialdomain.Service
}

// Worker runs the periodic maintenance pass: retention purge of old
// verification records and the bulk expiry sweep over credentials.
type Worker struct {
	log           *zap.Logger
	clock         clock.Clock
	verifications verificationdomain.Service
	credentials   credentialdomain.Service
	retention     time.Duration
}

func NewWorker(p Params) *Worker {
	return &Worker{
		log:           p.Log.Named("retention"),
		clock:         p.Clock,
		verifications: p.Verifications,
		credentials:   p.Credentials,
		retention:     p.Cfg.Verify.RecordRetention,
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil {
			w.log.Warn("maintenance run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) RunOnce(ctx context.Context) error {
	swept, err := w.credentials.SweepExpired(ctx)
	if err != nil {
		w.log.Warn("credential expiry sweep failed", zap.Error(err))
	} else if swept > 0 {
		w.log.Info("credential expiry sweep", zap.Int("expired", swept))
	}

	if w.retention <= 0 {
		return nil
	}
	cutoff := w.clock.Now().Add(-w.retention)
	purged, err := w.verifications.PurgeRecords(ctx, cutoff)
	if err != nil {
		return err
	}
	if purged > 0 {
		w.log.Info("verification records purged",
			zap.Int64("count", purged),
			zap.Time("cutoff", cutoff),
		)
	}
	return nil
}
