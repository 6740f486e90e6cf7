package shares

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"mpv-remote/internal/cache"
	"mpv-remote/internal/fileid"
	"mpv-remote/internal/logging"
	"mpv-remote/internal/scanner"
	"mpv-remote/internal/thumbnails"
	"mpv-remote/internal/workers"
)

// ErrShareNotFound mirrors the scanner's sentinel so callers can match
// either layer with errors.Is.
var ErrShareNotFound = scanner.ErrShareNotFound

// ErrTrackNotFound is returned when no share indexes the requested id.
var ErrTrackNotFound = errors.New("track not found")

// ErrThumbnailNotFound is returned when the thumbnail file for an id
// has not been generated.
var ErrThumbnailNotFound = errors.New("thumbnail not found")

const saveDebounce = 2 * time.Second

// Listing is one directory level of a share.
type Listing struct {
	Files       []cache.Track `json:"files"`
	Directories []string      `json:"directories"`
	IsScanning  bool          `json:"isScanning"`
}

// Stats summarizes the library for the status endpoint.
type Stats struct {
	Shares         map[string]cache.ShareStats `json:"shares"`
	PendingThumbs  int                         `json:"pendingThumbnails"`
	ThumbnailsOn   bool                        `json:"thumbnailsEnabled"`
	ConfiguredDirs []string                    `json:"configuredShares"`
}

// Options configure the media library service.
type Options struct {
	Shares            map[string]string
	CacheFile         string
	ThumbnailDir      string
	ThumbnailsEnabled bool
	FFmpegPath        string
	FFprobePath       string
}

// MediaShare composes the scanner, the index, and the thumbnail
// pipeline behind one API.
type MediaShare struct {
	opts     Options
	cache    *cache.Cache
	scanner  *scanner.Scanner
	pipeline *thumbnails.Pipeline

	saveMu    sync.Mutex
	saveTimer *time.Timer
}

// New builds the service. Call Init before use.
func New(opts Options) *MediaShare {
	m := &MediaShare{
		opts:  opts,
		cache: cache.New(opts.Shares, opts.CacheFile),
	}
	m.scanner = scanner.New(opts.Shares, scanner.Callbacks{
		OnFileFound:      m.handleFileFound,
		OnFileRemoved:    m.handleFileRemoved,
		OnDirectoryFound: m.handleDirectoryFound,
	})
	if opts.ThumbnailsEnabled {
		m.pipeline = thumbnails.New(opts.ThumbnailDir, thumbnails.Options{
			FFmpegPath:  opts.FFmpegPath,
			FFprobePath: opts.FFprobePath,
			Workers:     workers.ForExternalTools(1),
		})
	}
	return m
}

// Init loads the snapshot, starts the filesystem watcher, and kicks
// off one background scan per configured share. Watcher failure only
// costs live updates.
func (m *MediaShare) Init() error {
	if err := m.cache.Load(); err != nil {
		return fmt.Errorf("loading media cache: %w", err)
	}
	if err := m.scanner.StartWatching(); err != nil {
		logging.Warn("Shares: live updates disabled: %v", err)
	}
	for name := range m.opts.Shares {
		m.backgroundScan(name)
	}
	return nil
}

// GetShareFiles lists one directory level of a share. An empty result
// on an idle share triggers a background rescan, and the listing
// reports scanning so clients know to poll again.
func (m *MediaShare) GetShareFiles(shareName, subPath string) (Listing, error) {
	files, directories, err := m.cache.GetShareFiles(shareName, subPath)
	if err != nil {
		return Listing{}, err
	}

	scanning := m.cache.IsScanning(shareName)
	if len(files) == 0 && len(directories) == 0 && !scanning && m.cache.IsEmpty(shareName) {
		m.backgroundScan(shareName)
		scanning = true
	}

	return Listing{Files: files, Directories: directories, IsScanning: scanning}, nil
}

// ShareNames lists the configured shares.
func (m *MediaShare) ShareNames() []string {
	names := make([]string, 0, len(m.opts.Shares))
	for name := range m.opts.Shares {
		names = append(names, name)
	}
	return names
}

// FindTrackByID resolves an id to its track across all shares.
func (m *MediaShare) FindTrackByID(id string) (cache.Track, error) {
	track, _, ok := m.cache.FindTrackByID(id)
	if !ok {
		return cache.Track{}, fmt.Errorf("%w: %q", ErrTrackNotFound, id)
	}
	return track, nil
}

// GetThumbnailPath returns the on-disk path of a generated thumbnail.
func (m *MediaShare) GetThumbnailPath(id string) (string, error) {
	if m.pipeline == nil {
		return "", fmt.Errorf("%w: thumbnails disabled", ErrThumbnailNotFound)
	}
	path := m.pipeline.Path(id)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %q", ErrThumbnailNotFound, id)
	}
	return path, nil
}

// GetStats reports per-share index sizes and pipeline backlog.
func (m *MediaShare) GetStats() Stats {
	pending := 0
	if m.pipeline != nil {
		pending = m.pipeline.QueueDepth()
	}
	return Stats{
		Shares:         m.cache.Stats(),
		PendingThumbs:  pending,
		ThumbnailsOn:   m.pipeline != nil,
		ConfiguredDirs: m.ShareNames(),
	}
}

// backgroundScan starts a full scan unless one is already in flight.
func (m *MediaShare) backgroundScan(shareName string) {
	if !m.cache.TryStartScan(shareName) {
		return
	}
	go func() {
		defer func() {
			m.cache.EndScan(shareName)
			if err := m.cache.Save(); err != nil {
				logging.Warn("Shares: saving cache after scan: %v", err)
			}
		}()
		if _, err := m.scanner.ScanShare(shareName); err != nil {
			logging.Warn("Shares: scan of %q failed: %v", shareName, err)
		}
	}()
}

// handleFileFound indexes the file immediately with placeholder
// metadata, then queues enrichment. The enrichment callback re-upserts
// with the real thumbnail and duration.
func (m *MediaShare) handleFileFound(file scanner.MediaFile) {
	if track, _, ok := m.cache.FindTrackByID(file.ID); ok && track.Thumbnail != cache.DefaultThumbnail {
		// Already enriched; refresh the base fields only.
		m.cache.AddOrUpdateTrack(file, track.Thumbnail, track.Duration)
		m.saveSoon()
		return
	}

	m.cache.AddOrUpdateTrack(file, "", 0)
	m.saveSoon()

	if m.pipeline == nil {
		return
	}
	m.pipeline.Queue(file.ID, file.Path, func(r thumbnails.Result) {
		if !r.Success {
			return
		}
		m.cache.AddOrUpdateTrack(file, r.URL, r.Duration)
		m.saveSoon()
	})
}

func (m *MediaShare) handleFileRemoved(path string) {
	id := fileid.Generate(path)
	_, shareName, ok := m.cache.FindTrackByID(id)
	if !ok {
		return
	}
	if m.cache.RemoveTrack(id, shareName) {
		logging.Info("Shares: removed track %s (%s)", id, path)
		m.saveSoon()
	}
}

func (m *MediaShare) handleDirectoryFound(dirPath, shareName string) {
	m.cache.AddDirectory(dirPath, shareName)
	m.saveSoon()
}

// saveSoon schedules a snapshot save, coalescing event bursts into one
// write.
func (m *MediaShare) saveSoon() {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()
	if m.saveTimer != nil {
		m.saveTimer.Reset(saveDebounce)
		return
	}
	m.saveTimer = time.AfterFunc(saveDebounce, func() {
		m.saveMu.Lock()
		m.saveTimer = nil
		m.saveMu.Unlock()
		if err := m.cache.Save(); err != nil {
			logging.Warn("Shares: saving cache: %v", err)
		}
	})
}

// Shutdown stops the watcher and the pipeline, then writes a final
// snapshot.
func (m *MediaShare) Shutdown() {
	m.scanner.Stop()
	if m.pipeline != nil {
		m.pipeline.Shutdown()
	}

	m.saveMu.Lock()
	if m.saveTimer != nil {
		m.saveTimer.Stop()
		m.saveTimer = nil
	}
	m.saveMu.Unlock()

	if err := m.cache.Save(); err != nil {
		logging.Warn("Shares: final cache save: %v", err)
	}
	logging.Info("Shares: media library stopped")
}
