package internal

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dvvsdvc5-arch/chuangzuo/internal/domain"
	"github.com/dvvsdvc5-arch/chuangzuo/internal/services/emitter"
	"github.com/dvvsdvc5-arch/chuangzuo/internal/services/ledger"
)

const (
	minEmitDelay = 3 * time.Second
	maxEmitDelay = 7 * time.Second

	rolloverCheckInterval = time.Minute
)

// Runner drives a single user's earning run: it invests the capital, then
// emits profit orders on a randomized cadence until stopped. The emission
// timer is a single-shot timer re-armed after each emission, so cancelling
// the run reliably prevents any further emission; already-posted orders are
// never rolled back.
type Runner struct {
	userID    string
	sm        *ledger.StateMachine
	clock     domain.Clock
	logger    *zap.Logger
	platforms []string
	symbols   []string

	// delayFn returns the pause before the next emission; replaced in tests.
	delayFn       func() time.Duration
	rolloverEvery time.Duration

	mu      sync.Mutex
	emitter *emitter.Emitter
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewRunner wires a runner for one user.
func NewRunner(userID string, sm *ledger.StateMachine, clock domain.Clock, platforms, symbols []string, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = domain.SystemClock()
	}
	return &Runner{
		userID:        userID,
		sm:            sm,
		clock:         clock,
		logger:        logger,
		platforms:     platforms,
		symbols:       symbols,
		delayFn:       randomEmitDelay,
		rolloverEvery: rolloverCheckInterval,
	}
}

func randomEmitDelay() time.Duration {
	spread := maxEmitDelay - minEmitDelay
	return minEmitDelay + time.Duration(rand.Int63n(int64(spread)))
}

// Running reports whether an earning run is active.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

// Plan returns the active plan state, or a zero plan when not running.
func (r *Runner) Plan() domain.DailyPlan {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emitter == nil {
		return domain.DailyPlan{}
	}
	return r.emitter.Plan()
}

// RecentOrders returns the capped display list of emitted orders.
func (r *Runner) RecentOrders() []domain.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emitter == nil {
		return nil
	}
	return r.emitter.Recent()
}

// Start invests the amount and launches the emission loop.
func (r *Runner) Start(ctx context.Context, amountMinor int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return errors.Wrap(domain.ErrInvalidInput, "run already active")
	}

	if err := r.sm.Invest(ctx, r.userID, amountMinor); err != nil {
		return err
	}

	invested := decimal.NewFromInt(amountMinor).Div(decimal.NewFromInt(100))
	em := emitter.New(invested, r.platforms, r.symbols, r.clock, r.logger)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.emitter = em
	r.cancel = cancel
	r.done = done

	go r.loop(runCtx, em, done)

	r.logger.Info("run started",
		zap.String("user", r.userID),
		zap.Int64("amount_minor", amountMinor),
		zap.Int("orders_planned", em.Plan().OrdersPlanned),
		zap.Int64("target_sum_minor", em.Plan().TargetSumMinor))
	return nil
}

// Stop cancels the pending emission timer and waits for the loop to exit.
// The wallet and ledger stay in whatever state the last completed operation
// produced.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.cancel = nil
	r.done = nil
	r.emitter = nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	r.logger.Info("run stopped", zap.String("user", r.userID))
}

func (r *Runner) loop(ctx context.Context, em *emitter.Emitter, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(r.delayFn())
	defer timer.Stop()

	rollover := time.NewTicker(r.rolloverEvery)
	defer rollover.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-rollover.C:
			em.Rollover()
		case <-timer.C:
			if order, ok := em.Next(); ok {
				if err := r.sm.RecordEarn(ctx, r.userID, order); err != nil {
					r.logger.Error("failed to record earn", zap.Error(err))
				}
			}
			timer.Reset(r.delayFn())
		}
	}
}
