package scanner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"mpv-remote/internal/fileid"
	"mpv-remote/internal/logging"
	"mpv-remote/internal/mediatypes"
	"mpv-remote/internal/metrics"

	"github.com/fsnotify/fsnotify"
)

// ErrShareNotFound is returned when a scan is requested for a share
// that is not configured or whose root is missing on disk.
var ErrShareNotFound = errors.New("share not found")

// MediaFile describes a discovered media file.
type MediaFile struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	Filename   string    `json:"filename"`
	ShareName  string    `json:"shareName"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// ScanResult is the outcome of a full share scan.
type ScanResult struct {
	Files       []MediaFile `json:"files"`
	Directories []string    `json:"directories"`
	IsScanning  bool        `json:"isScanning"`
}

// Callbacks receive scanner events. All three are invoked synchronously
// from the walk or the watch loop; handlers must be safe to call from
// either.
type Callbacks struct {
	OnFileFound      func(file MediaFile)
	OnFileRemoved    func(path string)
	OnDirectoryFound func(dirPath, shareName string)
}

// Scanner walks and watches the configured share roots.
type Scanner struct {
	shares map[string]string
	cb     Callbacks

	mu       sync.Mutex
	scanning map[string]bool
	watcher  *fsnotify.Watcher

	stopChan chan struct{}
	stopOnce sync.Once
}

// New creates a Scanner over the given share name -> root mapping.
func New(shares map[string]string, cb Callbacks) *Scanner {
	return &Scanner{
		shares:   shares,
		cb:       cb,
		scanning: make(map[string]bool),
		stopChan: make(chan struct{}),
	}
}

// StartWatching establishes a recursive change subscription for every
// share root that exists on disk. Missing roots are logged and skipped;
// they still benefit from full rescans. A watcher setup failure is
// fatal only for live updates, never for the process.
func (s *Scanner) StartWatching() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating filesystem watcher: %w", err)
	}

	s.mu.Lock()
	s.watcher = watcher
	s.mu.Unlock()

	for shareName, root := range s.shares {
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			logging.Warn("Scanner: share %q root does not exist: %s", shareName, root)
			continue
		}
		if err := s.watchRecursive(root); err != nil {
			logging.Warn("Scanner: failed watching %s: %v", root, err)
			continue
		}
		logging.Info("Scanner: watching share %q at %s", shareName, root)
	}

	go s.watchLoop()
	return nil
}

// watchRecursive adds watches for dir and every subdirectory, since
// fsnotify watches are not recursive. Unreadable subdirectories are
// skipped.
func (s *Scanner) watchRecursive(dir string) error {
	if err := s.watcher.Add(dir); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		logging.Warn("Scanner: cannot read %s: %v", dir, err)
		return nil
	}
	for _, entry := range entries {
		if entry.IsDir() {
			if err := s.watchRecursive(filepath.Join(dir, entry.Name())); err != nil {
				logging.Warn("Scanner: cannot watch %s: %v", filepath.Join(dir, entry.Name()), err)
			}
		}
	}
	return nil
}

func (s *Scanner) watchLoop() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(event)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn("Scanner: watch error: %v", err)
		case <-s.stopChan:
			return
		}
	}
}

// handleEvent classifies a raw watch event by freshly statting the
// path: now a media file, now a directory, or gone. Exactly one of
// file-found, directory-found, file-removed is emitted per event.
func (s *Scanner) handleEvent(event fsnotify.Event) {
	const relevant = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename
	if event.Op&relevant == 0 {
		return
	}

	path := event.Name
	shareName := s.shareFor(path)
	if shareName == "" {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		// Path is gone. Only media files are tracked, so only those
		// produce removal events.
		if mediatypes.IsMediaFile(path) {
			logging.Debug("Scanner: file removed: %s", path)
			metrics.ScannerWatchEventsTotal.WithLabelValues("file_removed").Inc()
			if s.cb.OnFileRemoved != nil {
				s.cb.OnFileRemoved(path)
			}
		}
		return
	}

	switch {
	case info.IsDir():
		// New directories need their own watch to keep coverage recursive.
		if event.Op&fsnotify.Create != 0 {
			if err := s.watchRecursive(path); err != nil {
				logging.Warn("Scanner: cannot watch new directory %s: %v", path, err)
			}
		}
		logging.Debug("Scanner: directory found: %s", path)
		metrics.ScannerWatchEventsTotal.WithLabelValues("directory_found").Inc()
		if s.cb.OnDirectoryFound != nil {
			s.cb.OnDirectoryFound(path, shareName)
		}

	case info.Mode().IsRegular() && mediatypes.IsMediaFile(path):
		logging.Debug("Scanner: file found: %s", path)
		metrics.ScannerWatchEventsTotal.WithLabelValues("file_found").Inc()
		if s.cb.OnFileFound != nil {
			s.cb.OnFileFound(mediaFileFor(path, shareName, info))
		}
	}
}

// shareFor resolves which share a path belongs to by longest matching
// root prefix.
func (s *Scanner) shareFor(path string) string {
	var bestName string
	var bestLen int
	for name, root := range s.shares {
		prefix := strings.TrimSuffix(root, string(filepath.Separator)) + string(filepath.Separator)
		if (path == root || strings.HasPrefix(path, prefix)) && len(root) > bestLen {
			bestName = name
			bestLen = len(root)
		}
	}
	return bestName
}

func mediaFileFor(path, shareName string, info os.FileInfo) MediaFile {
	return MediaFile{
		ID:         fileid.Generate(path),
		Path:       path,
		Filename:   filepath.Base(path),
		ShareName:  shareName,
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
	}
}

// ScanShare performs a full recursive walk of the share root. If a scan
// for the share is already in flight, it returns immediately with
// IsScanning set and does no filesystem work.
func (s *Scanner) ScanShare(shareName string) (ScanResult, error) {
	root, ok := s.shares[shareName]
	if !ok {
		return ScanResult{}, fmt.Errorf("%w: %q", ErrShareNotFound, shareName)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return ScanResult{}, fmt.Errorf("%w: %q root missing: %s", ErrShareNotFound, shareName, root)
	}

	s.mu.Lock()
	if s.scanning[shareName] {
		s.mu.Unlock()
		metrics.ScannerRunsTotal.WithLabelValues("already_scanning").Inc()
		return ScanResult{Files: []MediaFile{}, Directories: []string{}, IsScanning: true}, nil
	}
	s.scanning[shareName] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.scanning, shareName)
		s.mu.Unlock()
	}()

	start := time.Now()
	result := ScanResult{Files: []MediaFile{}, Directories: []string{}}
	s.recursiveScan(root, shareName, "", &result)

	metrics.ScannerRunsTotal.WithLabelValues("completed").Inc()
	metrics.ScannerRunDuration.Observe(time.Since(start).Seconds())
	logging.Info("Scanner: share %q scan found %d files, %d directories in %v",
		shareName, len(result.Files), len(result.Directories), time.Since(start))

	return result, nil
}

// recursiveScan walks one directory level. Directories are reported
// eagerly before descending; unreadable ones are logged and skipped so
// a partial walk still surfaces results.
func (s *Scanner) recursiveScan(root, shareName, relativePath string, result *ScanResult) {
	fullPath := filepath.Join(root, relativePath)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		logging.Warn("Scanner: error scanning %s: %v", fullPath, err)
		return
	}

	for _, entry := range entries {
		entryRel := filepath.Join(relativePath, entry.Name())
		entryPath := filepath.Join(fullPath, entry.Name())

		if entry.IsDir() {
			result.Directories = append(result.Directories, filepath.ToSlash(entryRel))
			if s.cb.OnDirectoryFound != nil {
				s.cb.OnDirectoryFound(entryPath, shareName)
			}
			s.recursiveScan(root, shareName, entryRel, result)
			continue
		}

		if !entry.Type().IsRegular() || !mediatypes.IsMediaFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			logging.Warn("Scanner: cannot stat %s: %v", entryPath, err)
			continue
		}
		file := mediaFileFor(entryPath, shareName, info)
		result.Files = append(result.Files, file)
		if s.cb.OnFileFound != nil {
			s.cb.OnFileFound(file)
		}
	}
}

// IsScanning reports whether a full scan of the share is in flight.
func (s *Scanner) IsScanning(shareName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanning[shareName]
}

// Stop closes the filesystem watcher and stops the watch loop.
func (s *Scanner) Stop() {
	s.stopOnce.Do(func() {
		logging.Info("Scanner: stopping filesystem watcher")
		close(s.stopChan)
		s.mu.Lock()
		if s.watcher != nil {
			s.watcher.Close()
		}
		s.mu.Unlock()
	})
}
