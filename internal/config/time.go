package config

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultRegistryCacheTTL = 12 * time.Hour
	defaultRiskWindow       = 24 * time.Hour
	defaultBlockWindow      = 24 * time.Hour
	// Matches the historical twice-weekly retention schedule.
	defaultCleanupInterval = 84 * time.Hour
)

type Timer struct {
	Days    uint32 `json:"days"`
	Hours   uint32 `json:"hours"`
	Minutes uint32 `json:"minutes"`
	Seconds uint32 `json:"seconds"`
}

func (t Timer) isZero() bool {
	return t.Days == 0 && t.Hours == 0 && t.Minutes == 0 && t.Seconds == 0
}

var (
	registryCacheTTL         atomic.Value
	riskWindow               atomic.Value
	blockWindow              atomic.Value
	cleanupInterval          atomic.Value
	cleanupIntervalListeners []chan time.Duration
	listenersMu              sync.Mutex
)

func init() {
	registryCacheTTL.Store(defaultRegistryCacheTTL)
	riskWindow.Store(defaultRiskWindow)
	blockWindow.Store(defaultBlockWindow)
	cleanupInterval.Store(defaultCleanupInterval)
}

// ApplyTimers recomputes the derived durations from the current Config.
func ApplyTimers() {
	cfg := GetConfig()
	registryCacheTTL.Store(timerOrDefault(cfg.Registry.CacheTimer, defaultRegistryCacheTTL))
	riskWindow.Store(timerOrDefault(cfg.Risk.Window, defaultRiskWindow))
	blockWindow.Store(timerOrDefault(cfg.Protection.BlockWindow, defaultBlockWindow))
	setCleanupInterval(timerOrDefault(cfg.Retention.CleanupTimer, defaultCleanupInterval))
}

// CalculateBetweenTime converts a Timer to a duration with a one second floor.
func CalculateBetweenTime(timer Timer) time.Duration {
	intervalMs := CalculateMillisecondsOfPeriod(timer)

	minInterval := uint64(1000)
	if intervalMs < minInterval {
		intervalMs = minInterval
	}

	return time.Duration(intervalMs) * time.Millisecond
}

func CalculateMillisecondsOfPeriod(timer Timer) uint64 {
	return uint64(timer.Days)*24*60*60*1000 +
		uint64(timer.Hours)*60*60*1000 +
		uint64(timer.Minutes)*60*1000 +
		uint64(timer.Seconds)*1000
}

func timerOrDefault(timer Timer, fallback time.Duration) time.Duration {
	if timer.isZero() {
		return fallback
	}
	return CalculateBetweenTime(timer)
}

// GetRegistryCacheTTL is how long the decoy registry may serve a cached
// field-id snapshot before reloading from storage.
func GetRegistryCacheTTL() time.Duration {
	return registryCacheTTL.Load().(time.Duration)
}

// GetRiskWindow is the lookback window for risk-score attempt counts.
func GetRiskWindow() time.Duration {
	return riskWindow.Load().(time.Duration)
}

// GetBlockWindow is the lookback window for the auto-block threshold.
func GetBlockWindow() time.Duration {
	return blockWindow.Load().(time.Duration)
}

func GetCleanupInterval() time.Duration {
	return cleanupInterval.Load().(time.Duration)
}

// CleanupIntervalUpdates notifies the maintenance loop when the retention
// schedule changes so it can reset its ticker.
func CleanupIntervalUpdates() <-chan time.Duration {
	ch := make(chan time.Duration, 1)
	listenersMu.Lock()
	cleanupIntervalListeners = append(cleanupIntervalListeners, ch)
	listenersMu.Unlock()

	ch <- GetCleanupInterval()
	return ch
}

func setCleanupInterval(interval time.Duration) {
	if interval <= 0 {
		interval = defaultCleanupInterval
	}

	current := GetCleanupInterval()
	if current == interval {
		return
	}

	cleanupInterval.Store(interval)

	listenersMu.Lock()
	defer listenersMu.Unlock()
	for _, ch := range cleanupIntervalListeners {
		select {
		case ch <- interval:
		default:
		}
	}
}
