package geo

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"
)

const (
	maxMindDownloadURL = "https://download.maxmind.com/app/geoip_download"
	geoLiteEditionID   = "GeoLite2-Country"
	userAgent          = "hivetrap-geolite-updater/1.0"

	apiKeyEnv      = "GEOLITE_API_KEY"
	updateInterval = 7 * 24 * time.Hour
)

var (
	updateGroup singleflight.Group
	httpClient  = &http.Client{Timeout: 2 * time.Minute}

	// ErrNoAPIKey indicates that the GeoLite API key has not been configured.
	ErrNoAPIKey = errors.New("geo: api key is not configured")
)

// UpdateDatabase downloads the GeoLite2 country dataset and swaps it in.
// Concurrent calls are collapsed into one download. Returns ErrNoAPIKey
// when no key is configured, in which case whatever database is on disk
// stays in use.
func UpdateDatabase(ctx context.Context) error {
	_, err, _ := updateGroup.Do("update", func() (interface{}, error) {
		apiKey := strings.TrimSpace(os.Getenv(apiKeyEnv))
		if apiKey == "" {
			return nil, ErrNoAPIKey
		}

		if err := downloadEdition(ctx, apiKey); err != nil {
			return nil, err
		}

		if err := ReloadFromDisk(); err != nil {
			return nil, fmt.Errorf("reload geolite: %w", err)
		}

		log.Info("GeoLite2 country database updated", "path", DatabasePath())
		return nil, nil
	})
	return err
}

// StartUpdateRoutine refreshes the database weekly. Without an API key
// the routine exits immediately.
func StartUpdateRoutine(ctx context.Context) {
	if strings.TrimSpace(os.Getenv(apiKeyEnv)) == "" {
		log.Debug("GeoLite updates disabled, no API key configured")
		return
	}

	if err := UpdateDatabase(ctx); err != nil {
		log.Warn("GeoLite update failed", "error", err)
	}

	ticker := time.NewTicker(updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := UpdateDatabase(ctx); err != nil {
				log.Warn("GeoLite update failed", "error", err)
			}
		}
	}
}

func downloadEdition(ctx context.Context, apiKey string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, buildDownloadURL(apiKey), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", geoLiteEditionID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("download %s: unexpected status %d: %s", geoLiteEditionID, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	gzipReader, err := gzip.NewReader(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: open gzip: %w", geoLiteEditionID, err)
	}
	defer gzipReader.Close()

	tarReader := tar.NewReader(gzipReader)
	targetBase := filepath.Base(DatabasePath())
	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("%s: read tar: %w", geoLiteEditionID, err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		if filepath.Base(header.Name) != targetBase {
			continue
		}

		if err := writeToFile(DatabasePath(), tarReader); err != nil {
			return fmt.Errorf("%s: write file: %w", geoLiteEditionID, err)
		}
		return nil
	}

	return fmt.Errorf("%s: mmdb file not found in archive", geoLiteEditionID)
}

func writeToFile(destPath string, data io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), "geolite-*.mmdb")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmpFile.Name())
	}()

	if _, err := io.Copy(tmpFile, data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("copy data: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), destPath); err != nil {
		return fmt.Errorf("replace file: %w", err)
	}

	return nil
}

func buildDownloadURL(apiKey string) string {
	return fmt.Sprintf("%s?edition_id=%s&license_key=%s&suffix=tar.gz", maxMindDownloadURL, geoLiteEditionID, apiKey)
}
