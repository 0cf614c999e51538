package config

import (
	"testing"
	"time"
)

func TestCalculateMillisecondsOfPeriod(t *testing.T) {
	timer := Timer{Days: 1, Hours: 2, Minutes: 3, Seconds: 4}
	want := uint64((24*60*60 + 2*60*60 + 3*60 + 4) * 1000)

	if got := CalculateMillisecondsOfPeriod(timer); got != want {
		t.Fatalf("CalculateMillisecondsOfPeriod returned %d, want %d", got, want)
	}
}

func TestCalculateBetweenTime(t *testing.T) {
	t.Run("enforces minimum interval", func(t *testing.T) {
		if got := CalculateBetweenTime(Timer{}); got != time.Second {
			t.Fatalf("CalculateBetweenTime returned %s, want 1s", got)
		}
	})

	t.Run("returns configured duration", func(t *testing.T) {
		if got := CalculateBetweenTime(Timer{Minutes: 1, Seconds: 30}); got != 90*time.Second {
			t.Fatalf("CalculateBetweenTime returned %s, want 1m30s", got)
		}
	})
}

func TestApplyTimers(t *testing.T) {
	origCfg := GetConfig()
	origTTL := GetRegistryCacheTTL()
	origRisk := GetRiskWindow()
	origBlock := GetBlockWindow()
	origCleanup := GetCleanupInterval()
	origListeners := cleanupIntervalListeners

	t.Cleanup(func() {
		configValue.Store(origCfg)
		registryCacheTTL.Store(origTTL)
		riskWindow.Store(origRisk)
		blockWindow.Store(origBlock)
		cleanupInterval.Store(origCleanup)
		cleanupIntervalListeners = origListeners
	})

	testCfg := Config{}
	testCfg.Registry.CacheTimer = Timer{Hours: 6}
	testCfg.Risk.Window = Timer{Hours: 12}
	testCfg.Protection.BlockWindow = Timer{Hours: 48}
	testCfg.Retention.CleanupTimer = Timer{Days: 7}

	configValue.Store(testCfg)
	cleanupIntervalListeners = nil

	ApplyTimers()

	if got := GetRegistryCacheTTL(); got != 6*time.Hour {
		t.Fatalf("GetRegistryCacheTTL returned %s, want 6h", got)
	}
	if got := GetRiskWindow(); got != 12*time.Hour {
		t.Fatalf("GetRiskWindow returned %s, want 12h", got)
	}
	if got := GetBlockWindow(); got != 48*time.Hour {
		t.Fatalf("GetBlockWindow returned %s, want 48h", got)
	}
	if got := GetCleanupInterval(); got != 7*24*time.Hour {
		t.Fatalf("GetCleanupInterval returned %s, want 168h", got)
	}
}

func TestApplyTimersDefaults(t *testing.T) {
	origCfg := GetConfig()
	origTTL := GetRegistryCacheTTL()
	origRisk := GetRiskWindow()
	origBlock := GetBlockWindow()
	origCleanup := GetCleanupInterval()

	t.Cleanup(func() {
		configValue.Store(origCfg)
		registryCacheTTL.Store(origTTL)
		riskWindow.Store(origRisk)
		blockWindow.Store(origBlock)
		cleanupInterval.Store(origCleanup)
	})

	configValue.Store(Config{})
	ApplyTimers()

	if got := GetRegistryCacheTTL(); got != 12*time.Hour {
		t.Fatalf("default registry TTL = %s, want 12h", got)
	}
	if got := GetRiskWindow(); got != 24*time.Hour {
		t.Fatalf("default risk window = %s, want 24h", got)
	}
	if got := GetBlockWindow(); got != 24*time.Hour {
		t.Fatalf("default block window = %s, want 24h", got)
	}
	if got := GetCleanupInterval(); got != 84*time.Hour {
		t.Fatalf("default cleanup interval = %s, want 84h", got)
	}
}

func TestCleanupIntervalUpdates(t *testing.T) {
	origInterval := GetCleanupInterval()
	origListeners := cleanupIntervalListeners

	t.Cleanup(func() {
		cleanupInterval.Store(origInterval)
		cleanupIntervalListeners = origListeners
	})

	cleanupInterval.Store(time.Hour)
	cleanupIntervalListeners = nil

	ch := CleanupIntervalUpdates()
	first := <-ch
	if first != time.Hour {
		t.Fatalf("initial update = %s, want 1h", first)
	}

	setCleanupInterval(2 * time.Hour)

	select {
	case next := <-ch:
		if next != 2*time.Hour {
			t.Fatalf("next update = %s, want 2h", next)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for interval update")
	}

	// No duplicate notification when the interval is unchanged.
	setCleanupInterval(2 * time.Hour)
	select {
	case <-ch:
		t.Fatal("unexpected update when interval unchanged")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestIsCountryBlocked(t *testing.T) {
	origCfg := GetConfig()
	t.Cleanup(func() { configValue.Store(origCfg) })

	cfg := Config{}
	cfg.Protection.BlockedCountries = []string{"RU", "kp"}
	configValue.Store(cfg)

	cases := []struct {
		code    string
		blocked bool
	}{
		{"RU", true},
		{"ru", true},
		{"KP", true},
		{"IT", false},
		{"XX", false},
		{"", false},
	}

	for _, tc := range cases {
		if got := IsCountryBlocked(tc.code); got != tc.blocked {
			t.Errorf("IsCountryBlocked(%q) = %v, want %v", tc.code, got, tc.blocked)
		}
	}
}
