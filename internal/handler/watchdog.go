package handler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type callTimer struct {
	callID     string
	startTime  time.Time
	cancelFunc context.CancelFunc
	done       chan struct{}
}

// CallWatchdog finalizes voice calls that stop sending callbacks. Arming is
// idempotent per call; a later callback re-arms the timer.
type CallWatchdog struct {
	timers   sync.Map // key: callID, value: *callTimer
	logger   *zap.Logger
	timeout  time.Duration
	finalize func(ctx context.Context, callID string)
}

func NewCallWatchdog(logger *zap.Logger, timeout time.Duration, finalize func(ctx context.Context, callID string)) *CallWatchdog {
	return &CallWatchdog{
		logger:   logger,
		timeout:  timeout,
		finalize: finalize,
	}
}

// Arm starts (or restarts) the idle timer for a call.
func (w *CallWatchdog) Arm(callID string) {
	if callID == "" {
		return
	}
	w.Disarm(callID)

	ctx, cancel := context.WithCancel(context.Background())
	timer := &callTimer{
		callID:     callID,
		startTime:  time.Now(),
		cancelFunc: cancel,
		done:       make(chan struct{}),
	}
	w.timers.Store(callID, timer)

	go w.runTimer(ctx, timer)
}

// Disarm cancels the timer for a call if one exists.
func (w *CallWatchdog) Disarm(callID string) bool {
	if val, ok := w.timers.LoadAndDelete(callID); ok {
		if timer, ok := val.(*callTimer); ok {
			timer.cancelFunc()
			select {
			case <-timer.done:
				w.logger.Debug("Call watchdog disarmed", zap.String("callId", callID))
			case <-time.After(100 * time.Millisecond):
				w.logger.Warn("Call watchdog disarm timeout", zap.String("callId", callID))
			}
			return true
		}
	}
	return false
}

func (w *CallWatchdog) runTimer(ctx context.Context, timer *callTimer) {
	defer close(timer.done)

	select {
	case <-time.After(w.timeout):
		if _, exists := w.timers.Load(timer.callID); exists {
			w.logger.Info("Voice call went silent",
				zap.String("callId", timer.callID),
				zap.Duration("idle", time.Since(timer.startTime)))
			w.finalize(context.Background(), timer.callID)
			w.timers.Delete(timer.callID)
		}
	case <-ctx.Done():
		w.logger.Debug("Call watchdog cancelled", zap.String("callId", timer.callID))
	}
}

// Shutdown cancels all timers.
func (w *CallWatchdog) Shutdown() {
	w.logger.Info("Shutting down call watchdog")
	w.timers.Range(func(key, value interface{}) bool {
		if timer, ok := value.(*callTimer); ok {
			timer.cancelFunc()
		}
		return true
	})
}
