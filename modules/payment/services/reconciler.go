package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

type ReconcilerOptions struct {
	Enabled  bool
	Interval time.Duration
	MaxAge   time.Duration
	Logger   *logrus.Logger
}

func (o *ReconcilerOptions) setDefaults() {
	if o.Interval <= 0 {
		o.Interval = time.Minute
	}
	if o.MaxAge <= 0 {
		o.MaxAge = 15 * time.Minute
	}
}

// Reconciler expires payments stuck in Processing past MaxAge. A
// provider that times out or never sends its webhook leaves the
// payment hanging; the reconciler fails it so the saga can compensate.
type Reconciler struct {
	payments *PaymentService
	opts     ReconcilerOptions
}

func NewReconciler(payments *PaymentService, opts ReconcilerOptions) *Reconciler {
	opts.setDefaults()
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	return &Reconciler{payments: payments, opts: opts}
}

func (r *Reconciler) Run(ctx context.Context) error {
	if !r.opts.Enabled {
		return nil
	}

	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		expired, err := r.payments.ExpireStale(ctx, r.opts.MaxAge)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			r.opts.Logger.WithError(err).Warn("payment reconciler tick failed")
			continue
		}
		if expired > 0 {
			r.opts.Logger.WithField("expired", expired).Info("expired stale payments")
		}
	}
}
