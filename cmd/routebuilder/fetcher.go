package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/transitmaps/routebuilder/config"
)

// fetcher handles downloading GTFS zip archives to their configured paths.
// This is CLI-specific logic and is not part of the core library.
type fetcher struct {
	httpClient *http.Client
}

func newFetcher() *fetcher {
	return &fetcher{
		httpClient: &http.Client{},
	}
}

// ensureArchive downloads a feed's GTFS zip when refresh is requested or the
// archive is missing. A feed without a URL must already have its archive on
// disk.
func (f *fetcher) ensureArchive(feed config.Feed, refresh bool, logger *slog.Logger) error {
	if !refresh {
		if _, err := os.Stat(feed.ArchivePath); err == nil {
			return nil
		}
	}
	if feed.GTFSURL == "" {
		if _, err := os.Stat(feed.ArchivePath); err != nil {
			return fmt.Errorf("feed %s: archive %s missing and no gtfsUrl configured", feed.ID, feed.ArchivePath)
		}
		return nil
	}

	logger.Info("downloading feed",
		slog.String("agency", feed.ID),
		slog.String("url", feed.GTFSURL),
		slog.String("dest", feed.ArchivePath))
	return f.download(feed.GTFSURL, feed.ArchivePath)
}

func (f *fetcher) download(url, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	resp, err := f.httpClient.Get(url)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
