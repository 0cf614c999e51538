// Package geo resolves client IPs to ISO country codes using a local
// GeoLite2 country database. Resolution is best effort: any failure
// (missing database, unparsable IP, lookup error) yields UnknownCountry,
// which the block rules treat as never blocked.
package geo

import (
	"net"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/oschwald/geoip2-golang"
)

// UnknownCountry is returned whenever a country cannot be determined.
const UnknownCountry = "XX"

const (
	databasePathEnv     = "GEOIP_DB_PATH"
	defaultDatabasePath = "data/geolite/GeoLite2-Country.mmdb"
)

var (
	countryDB *geoip2.Reader
	geoLiteMu sync.RWMutex
	loadOnce  sync.Once
)

func DatabasePath() string {
	if path := os.Getenv(databasePathEnv); path != "" {
		return path
	}
	return defaultDatabasePath
}

// ReloadFromDisk swaps in a freshly read copy of the database. The file
// is read into memory so the old reader can be closed under lookups
// without invalidating in-flight ones.
func ReloadFromDisk() error {
	data, err := os.ReadFile(DatabasePath())
	if err != nil {
		return err
	}

	reader, err := geoip2.FromBytes(data)
	if err != nil {
		return err
	}

	geoLiteMu.Lock()
	old := countryDB
	countryDB = reader
	geoLiteMu.Unlock()

	if old != nil {
		_ = old.Close()
	}

	return nil
}

func Available() bool {
	ensureLoaded()
	geoLiteMu.RLock()
	defer geoLiteMu.RUnlock()
	return countryDB != nil
}

func ensureLoaded() {
	loadOnce.Do(func() {
		if err := ReloadFromDisk(); err != nil {
			log.Warn("GeoLite2 database unavailable, country lookups disabled", "path", DatabasePath(), "error", err)
		}
	})
}

// ResolveCountry returns the ISO 3166-1 alpha-2 country code for the
// given IP address, or UnknownCountry if it cannot be determined.
func ResolveCountry(ipAddress string) string {
	ensureLoaded()

	geoLiteMu.RLock()
	defer geoLiteMu.RUnlock()

	if countryDB == nil {
		return UnknownCountry
	}

	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return UnknownCountry
	}

	record, err := countryDB.Country(ip)
	if err != nil {
		return UnknownCountry
	}

	if record.Country.IsoCode == "" {
		return UnknownCountry
	}
	return record.Country.IsoCode
}
