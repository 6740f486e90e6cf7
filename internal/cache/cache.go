package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"mpv-remote/internal/logging"
	"mpv-remote/internal/metrics"
	"mpv-remote/internal/scanner"
)

// DefaultThumbnail is the placeholder reference given to every track
// until the enrichment pipeline produces a real one.
const DefaultThumbnail = "/api/thumbnails/default.jpg"

// ErrInvalidPath is returned for listing paths that escape their share
// root.
var ErrInvalidPath = errors.New("invalid path")

// Track is the indexed metadata record for one media file. The id is a
// pure function of Src, so re-indexing the same path always lands on
// the same record.
type Track struct {
	ID        string `json:"id"`
	Src       string `json:"src"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	Duration  int    `json:"duration"`
	Playlist  string `json:"playlist"`
}

// ShareStats summarizes one share's index.
type ShareStats struct {
	Tracks      int       `json:"tracks"`
	Directories int       `json:"directories"`
	LastScan    time.Time `json:"lastScan"`
	Scanning    bool      `json:"scanning"`
}

type shareIndex struct {
	files       map[string]Track
	directories map[string]struct{}
	lastScan    time.Time
	scanning    bool
}

func newShareIndex() *shareIndex {
	return &shareIndex{
		files:       make(map[string]Track),
		directories: make(map[string]struct{}),
	}
}

// Cache is the in-memory media index, one shareIndex per configured
// share. A single mutex serializes every reader and writer; callers
// from the watch loop, scan walks, and HTTP handlers all funnel
// through it.
type Cache struct {
	mu           sync.Mutex
	roots        map[string]string
	snapshotPath string
	shares       map[string]*shareIndex
}

// New creates an empty cache for the given share name -> root mapping,
// persisted at snapshotPath.
func New(roots map[string]string, snapshotPath string) *Cache {
	c := &Cache{
		roots:        roots,
		snapshotPath: snapshotPath,
		shares:       make(map[string]*shareIndex),
	}
	for name := range roots {
		c.shares[name] = newShareIndex()
	}
	return c
}

// Snapshot serialization. The files map is stored as an ordered list
// of [id, track] pairs and the directory set as a sorted list.

type filePair struct {
	ID    string
	Track Track
}

func (p filePair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{p.ID, p.Track})
}

func (p *filePair) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("expected [id, track] pair, got %d elements", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.ID); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &p.Track)
}

type shareSnapshot struct {
	Files       []filePair `json:"files"`
	Directories []string   `json:"directories"`
	LastScan    string     `json:"lastScan"`
}

// Load reads the snapshot file. A missing or corrupt snapshot is not
// an error; the cache simply starts empty and the next scan rebuilds
// it.
func (c *Cache) Load() error {
	data, err := os.ReadFile(c.snapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Info("Cache: no snapshot at %s, starting empty", c.snapshotPath)
			return nil
		}
		logging.Warn("Cache: cannot read snapshot %s: %v, starting empty", c.snapshotPath, err)
		return nil
	}

	var snapshot map[string]shareSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		logging.Warn("Cache: corrupt snapshot %s: %v, starting empty", c.snapshotPath, err)
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	loaded := 0
	for name, entry := range snapshot {
		if _, configured := c.roots[name]; !configured {
			logging.Warn("Cache: snapshot share %q is not configured, dropping", name)
			continue
		}
		idx := newShareIndex()
		for _, pair := range entry.Files {
			idx.files[pair.ID] = pair.Track
		}
		for _, dir := range entry.Directories {
			idx.directories[dir] = struct{}{}
		}
		if entry.LastScan != "" {
			if t, err := time.Parse(time.RFC3339, entry.LastScan); err == nil {
				idx.lastScan = t
			}
		}
		c.shares[name] = idx
		loaded += len(idx.files)
		c.updateGaugesLocked(name)
	}
	logging.Info("Cache: loaded %d tracks across %d shares from %s", loaded, len(snapshot), c.snapshotPath)
	return nil
}

// Save writes the snapshot atomically via a temp file rename so a
// crash mid-write never loses the previous snapshot.
func (c *Cache) Save() error {
	c.mu.Lock()
	snapshot := make(map[string]shareSnapshot, len(c.shares))
	for name, idx := range c.shares {
		entry := shareSnapshot{
			Files:       make([]filePair, 0, len(idx.files)),
			Directories: make([]string, 0, len(idx.directories)),
		}
		for id, track := range idx.files {
			entry.Files = append(entry.Files, filePair{ID: id, Track: track})
		}
		sort.Slice(entry.Files, func(i, j int) bool { return entry.Files[i].ID < entry.Files[j].ID })
		for dir := range idx.directories {
			entry.Directories = append(entry.Directories, dir)
		}
		sort.Strings(entry.Directories)
		if !idx.lastScan.IsZero() {
			entry.LastScan = idx.lastScan.UTC().Format(time.RFC3339)
		}
		snapshot[name] = entry
	}
	c.mu.Unlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		metrics.CacheSavesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("marshaling cache snapshot: %w", err)
	}

	tmp := c.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		metrics.CacheSavesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("writing cache snapshot: %w", err)
	}
	if err := os.Rename(tmp, c.snapshotPath); err != nil {
		metrics.CacheSavesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("replacing cache snapshot: %w", err)
	}
	metrics.CacheSavesTotal.WithLabelValues("ok").Inc()
	return nil
}

// AddOrUpdateTrack inserts or overwrites the track for a discovered
// media file. Empty thumbnail and zero duration get placeholder
// values; indexing never waits on enrichment.
func (c *Cache) AddOrUpdateTrack(file scanner.MediaFile, thumbnail string, duration int) {
	if thumbnail == "" {
		thumbnail = DefaultThumbnail
	}
	if duration < 0 {
		duration = 0
	}
	track := Track{
		ID:        file.ID,
		Src:       file.Path,
		Title:     strings.TrimSuffix(file.Filename, filepath.Ext(file.Filename)),
		Thumbnail: thumbnail,
		Duration:  duration,
		Playlist:  filepath.Base(filepath.Dir(file.Path)),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	idx, ok := c.shares[file.ShareName]
	if !ok {
		logging.Warn("Cache: track for unknown share %q: %s", file.ShareName, file.Path)
		return
	}
	idx.files[file.ID] = track
	c.updateGaugesLocked(file.ShareName)
}

// AddDirectory records a directory as a share-relative path. The share
// root itself and paths outside the root are ignored.
func (c *Cache) AddDirectory(dirPath, shareName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx, ok := c.shares[shareName]
	if !ok {
		return
	}
	root, ok := c.roots[shareName]
	if !ok {
		return
	}
	rel, err := filepath.Rel(root, dirPath)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return
	}
	idx.directories[filepath.ToSlash(rel)] = struct{}{}
	c.updateGaugesLocked(shareName)
}

// RemoveTrack deletes the track if present and reports whether it was.
func (c *Cache) RemoveTrack(fileID, shareName string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx, ok := c.shares[shareName]
	if !ok {
		return false
	}
	if _, ok := idx.files[fileID]; !ok {
		return false
	}
	delete(idx.files, fileID)
	c.updateGaugesLocked(shareName)
	return true
}

// resolveSubPath normalizes a share-relative listing path to slash
// form, rejecting anything that escapes the root.
func resolveSubPath(subPath string) (string, error) {
	cleaned := path.Clean(filepath.ToSlash(subPath))
	if cleaned == "." || cleaned == "/" {
		return "", nil
	}
	if path.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, subPath)
	}
	return cleaned, nil
}

// GetShareFiles lists the tracks directly inside subPath (sorted by
// title) and the immediate child directory names (deduplicated,
// sorted). Nothing deeper or shallower is included.
func (c *Cache) GetShareFiles(shareName, subPath string) ([]Track, []string, error) {
	target, err := resolveSubPath(subPath)
	if err != nil {
		return nil, nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.shares[shareName]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", scanner.ErrShareNotFound, shareName)
	}
	root := c.roots[shareName]

	files := make([]Track, 0)
	for _, track := range idx.files {
		rel, err := filepath.Rel(root, track.Src)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		parent := path.Dir(filepath.ToSlash(rel))
		if parent == "." {
			parent = ""
		}
		if parent == target {
			files = append(files, track)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Title < files[j].Title })

	childSet := make(map[string]struct{})
	for dir := range idx.directories {
		var remainder string
		if target == "" {
			remainder = dir
		} else if strings.HasPrefix(dir, target+"/") {
			remainder = dir[len(target)+1:]
		} else {
			continue
		}
		if remainder == "" || strings.Contains(remainder, "/") {
			continue
		}
		childSet[remainder] = struct{}{}
	}
	directories := make([]string, 0, len(childSet))
	for name := range childSet {
		directories = append(directories, name)
	}
	sort.Strings(directories)

	return files, directories, nil
}

// FindTrackByID searches every share for the track.
func (c *Cache) FindTrackByID(id string) (Track, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name, idx := range c.shares {
		if track, ok := idx.files[id]; ok {
			return track, name, true
		}
	}
	return Track{}, "", false
}

// TryStartScan atomically sets the share's scanning flag. It returns
// false if a scan is already in flight or the share is unknown.
func (c *Cache) TryStartScan(shareName string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx, ok := c.shares[shareName]
	if !ok || idx.scanning {
		return false
	}
	idx.scanning = true
	return true
}

// EndScan clears the scanning flag and stamps lastScan.
func (c *Cache) EndScan(shareName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx, ok := c.shares[shareName]; ok {
		idx.scanning = false
		idx.lastScan = time.Now()
	}
}

// IsScanning reports whether a full scan of the share is in flight.
func (c *Cache) IsScanning(shareName string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx, ok := c.shares[shareName]
	return ok && idx.scanning
}

// IsEmpty reports whether the share has no indexed tracks.
func (c *Cache) IsEmpty(shareName string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx, ok := c.shares[shareName]
	return ok && len(idx.files) == 0
}

// Stats returns per-share index summaries.
func (c *Cache) Stats() map[string]ShareStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := make(map[string]ShareStats, len(c.shares))
	for name, idx := range c.shares {
		stats[name] = ShareStats{
			Tracks:      len(idx.files),
			Directories: len(idx.directories),
			LastScan:    idx.lastScan,
			Scanning:    idx.scanning,
		}
	}
	return stats
}

func (c *Cache) updateGaugesLocked(shareName string) {
	idx := c.shares[shareName]
	metrics.CacheTracks.WithLabelValues(shareName).Set(float64(len(idx.files)))
	metrics.CacheDirectories.WithLabelValues(shareName).Set(float64(len(idx.directories)))
}
