package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"hivetrap/internal/risk"
)

// Config is the operator-editable runtime configuration. It is persisted as
// JSON under data/settings.json and synchronized across instances via redis.
type Config struct {
	Protection struct {
		AutoBlock          bool     `json:"auto_block"`
		BlockThreshold     int      `json:"block_threshold"`
		BlockWindow        Timer    `json:"block_window"`
		BlockDurationHours int      `json:"block_duration_hours"`
		BlockedCountries   []string `json:"blocked_countries"`
	} `json:"protection"`

	Risk struct {
		Thresholds risk.Thresholds `json:"thresholds"`
		Window     Timer           `json:"window"`
	} `json:"risk"`

	Registry struct {
		CacheTimer Timer `json:"cache_timer"`
	} `json:"registry"`

	Retention struct {
		Days         int   `json:"days"`
		CleanupTimer Timer `json:"cleanup_timer"`
	} `json:"retention"`
}

const settingsFilePath = "data/settings.json"

var (
	//go:embed default_settings.json
	defaultConfig []byte

	configValue atomic.Value
	configMu    sync.Mutex

	InProductionMode bool
)

func init() {
	configValue.Store(Config{})
}

// ReadSettings loads data/settings.json, creating it from the embedded
// defaults when missing.
func ReadSettings() {
	data, err := os.ReadFile(settingsFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("Settings file not found, creating with default configuration")

			if err = os.MkdirAll("data", os.ModePerm); err != nil {
				log.Error("Error creating directory for settings file:", err)
				return
			}
			if err = os.WriteFile(settingsFilePath, defaultConfig, os.ModePerm); err != nil {
				log.Error("Error writing default settings file:", err)
				return
			}
			data = defaultConfig
		} else {
			log.Error("Error reading settings file:", err)
			return
		}
	}

	var newConfig Config
	if err = json.Unmarshal(data, &newConfig); err != nil {
		log.Error("Error unmarshalling settings file:", err)
		return
	}

	if err := applyConfigUpdate(newConfig, configUpdateOptions{source: "file"}); err != nil {
		log.Error("Error applying configuration from settings file:", err)
		return
	}

	log.Debug("Settings file loaded successfully")
}

// SetConfig applies an operator update, persists it, and broadcasts it to
// other instances.
func SetConfig(newConfig Config) {
	if err := applyConfigUpdate(newConfig, configUpdateOptions{persistToFile: true, broadcast: true, source: "local"}); err != nil {
		log.Error("Error applying configuration update:", err)
	}
}

func GetConfig() Config {
	return configValue.Load().(Config)
}

func SetProductionMode(productionMode bool) {
	InProductionMode = productionMode
}

// BlockDurationHours returns the configured block TTL, defaulting to 24.
func BlockDurationHours() int {
	hours := GetConfig().Protection.BlockDurationHours
	if hours <= 0 {
		hours = 24
	}
	return hours
}

// IsCountryBlocked reports whether submissions from the country are
// rejected. Unknown countries ("XX", empty) are never blocked.
func IsCountryBlocked(countryCode string) bool {
	code := strings.ToUpper(strings.TrimSpace(countryCode))
	if code == "" || code == "XX" {
		return false
	}
	for _, blocked := range GetConfig().Protection.BlockedCountries {
		if strings.EqualFold(blocked, code) {
			return true
		}
	}
	return false
}

type configUpdateOptions struct {
	persistToFile bool
	broadcast     bool
	source        string
}

func applyConfigUpdate(newConfig Config, opts configUpdateOptions) error {
	configMu.Lock()
	defer configMu.Unlock()

	configValue.Store(newConfig)
	ApplyTimers()
	notifyConfigListeners()

	var errs []error

	if opts.persistToFile {
		data, err := json.MarshalIndent(newConfig, "", "  ")
		if err != nil {
			log.Error("Error marshalling new configuration:", err)
			errs = append(errs, err)
		} else if err := os.WriteFile(settingsFilePath, data, os.ModePerm); err != nil {
			log.Error("Error writing new configuration to file:", err)
			errs = append(errs, err)
		}
	}

	if opts.broadcast {
		payload, err := json.Marshal(newConfig)
		if err != nil {
			log.Error("Error serializing configuration for broadcast:", err)
			errs = append(errs, err)
		} else if err := broadcastConfigUpdate(payload); err != nil {
			log.Error("Error broadcasting configuration update:", err)
			errs = append(errs, err)
		}
	}

	if opts.source != "" {
		log.Debug("Configuration applied", "source", opts.source)
	} else {
		log.Debug("Configuration applied")
	}

	return errors.Join(errs...)
}

var (
	configListenersMu sync.Mutex
	configListeners   []chan struct{}
)

// ConfigUpdates returns a channel that receives a signal after every applied
// configuration update. The registry subscribes to it so a question or TTL
// change takes effect without waiting out the cache.
func ConfigUpdates() <-chan struct{} {
	ch := make(chan struct{}, 1)
	configListenersMu.Lock()
	configListeners = append(configListeners, ch)
	configListenersMu.Unlock()
	return ch
}

func notifyConfigListeners() {
	configListenersMu.Lock()
	defer configListenersMu.Unlock()
	for _, ch := range configListeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
