package thumbnails

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"mpv-remote/internal/logging"
	"mpv-remote/internal/metrics"
)

const (
	// DefaultJobTimeout bounds one extraction end to end, both probes
	// included.
	DefaultJobTimeout = 30 * time.Second

	// URLPrefix is where the HTTP layer serves generated thumbnails.
	URLPrefix = "/api/thumbnails/"

	thumbWidth  = 480
	thumbHeight = 270

	queueCapacity = 512
)

// ErrShutdown is reported to callbacks for jobs cleared by Shutdown.
var ErrShutdown = errors.New("thumbnail pipeline shut down")

// Result is the outcome of one enrichment job.
type Result struct {
	Success  bool
	Path     string
	URL      string
	Duration int
	Err      error
}

type job struct {
	id  string
	src string
}

// Pipeline is the bounded single-flight thumbnail and duration
// extractor.
type Pipeline struct {
	dir         string
	ffmpegPath  string
	ffprobePath string
	jobTimeout  time.Duration

	mu      sync.Mutex
	pending map[string][]func(Result)
	closed  bool

	jobs chan job
	wg   sync.WaitGroup
}

// Options tune the pipeline; zero values take defaults.
type Options struct {
	FFmpegPath  string
	FFprobePath string
	JobTimeout  time.Duration
	Workers     int
}

func (o Options) withDefaults() Options {
	if o.FFmpegPath == "" {
		o.FFmpegPath = "ffmpeg"
	}
	if o.FFprobePath == "" {
		o.FFprobePath = "ffprobe"
	}
	if o.JobTimeout <= 0 {
		o.JobTimeout = DefaultJobTimeout
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	return o
}

// New starts a pipeline writing thumbnails into dir.
func New(dir string, opts Options) *Pipeline {
	opts = opts.withDefaults()
	p := &Pipeline{
		dir:         dir,
		ffmpegPath:  opts.FFmpegPath,
		ffprobePath: opts.FFprobePath,
		jobTimeout:  opts.JobTimeout,
		pending:     make(map[string][]func(Result)),
		jobs:        make(chan job, queueCapacity),
	}
	for i := 0; i < opts.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	logging.Info("Thumbnails: pipeline started with %d worker(s) writing to %s", opts.Workers, dir)
	return p
}

// Queue schedules enrichment of the file; done is invoked exactly once
// from a worker goroutine. Queueing an id already in flight attaches
// done to the running job. Queue never blocks.
func (p *Pipeline) Queue(id, srcPath string, done func(Result)) {
	if done == nil {
		done = func(Result) {}
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		done(Result{Err: ErrShutdown})
		return
	}
	if callbacks, inFlight := p.pending[id]; inFlight {
		p.pending[id] = append(callbacks, done)
		p.mu.Unlock()
		metrics.ThumbnailJobsTotal.WithLabelValues("deduplicated").Inc()
		logging.Debug("Thumbnails: %s already in flight, attaching", id)
		return
	}
	p.pending[id] = []func(Result){done}

	// The send must stay under the lock: Shutdown closes the channel
	// under the same lock, after which p.closed is already set.
	select {
	case p.jobs <- job{id: id, src: srcPath}:
		p.mu.Unlock()
		metrics.ThumbnailQueueSize.Inc()
	default:
		p.mu.Unlock()
		p.finish(id, Result{Err: fmt.Errorf("thumbnail queue full, dropping %s", id)}, "failed")
	}
}

func (p *Pipeline) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		metrics.ThumbnailQueueSize.Dec()

		p.mu.Lock()
		closed := p.closed
		p.mu.Unlock()
		if closed {
			p.finish(j.id, Result{Err: ErrShutdown}, "failed")
			continue
		}

		start := time.Now()
		result, outcome := p.process(j)
		metrics.ThumbnailJobDuration.Observe(time.Since(start).Seconds())
		p.finish(j.id, result, outcome)
	}
}

// finish delivers the result to every attached callback and releases
// the single-flight slot.
func (p *Pipeline) finish(id string, result Result, outcome string) {
	p.mu.Lock()
	callbacks := p.pending[id]
	delete(p.pending, id)
	p.mu.Unlock()

	metrics.ThumbnailJobsTotal.WithLabelValues(outcome).Inc()
	if result.Err != nil {
		logging.Warn("Thumbnails: %s failed: %v", id, result.Err)
	}
	for _, cb := range callbacks {
		cb(result)
	}
}

func (p *Pipeline) process(j job) (Result, string) {
	ctx, cancel := context.WithTimeout(context.Background(), p.jobTimeout)
	defer cancel()

	outputPath := filepath.Join(p.dir, j.id+".jpg")
	url := URLPrefix + j.id + ".jpg"

	// An existing thumbnail only needs its duration re-probed, which
	// restores durations after a restart without re-running ffmpeg.
	if _, err := os.Stat(outputPath); err == nil {
		duration := p.probeDuration(ctx, j.src)
		logging.Debug("Thumbnails: %s already exists, skipping extraction", j.id)
		return Result{Success: true, Path: outputPath, URL: url, Duration: duration}, "cached"
	}

	duration := p.probeDuration(ctx, j.src)

	seek := 10
	if scaled := int(math.Floor(float64(duration) * 0.1)); scaled > seek {
		seek = scaled
	}

	cmd := exec.CommandContext(ctx, p.ffmpegPath,
		"-ss", strconv.Itoa(seek),
		"-i", j.src,
		"-vframes", "1",
		"-q:v", "2",
		"-y", outputPath)
	if output, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return Result{Err: fmt.Errorf("thumbnail extraction timed out for %s", j.src)}, "timeout"
		}
		return Result{Err: fmt.Errorf("ffmpeg failed for %s: %w: %s", j.src, err, strings.TrimSpace(string(output)))}, "failed"
	}

	p.downscale(outputPath)

	return Result{Success: true, Path: outputPath, URL: url, Duration: duration}, "success"
}

// durationLine matches the Duration header ffmpeg prints on stderr.
var durationLine = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+(?:\.\d+)?)`)

// probeDuration asks ffprobe for the container duration, falling back
// to parsing ffmpeg's banner output. Returns 0 when neither works.
func (p *Pipeline) probeDuration(ctx context.Context, src string) int {
	out, err := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "quiet",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		src).Output()
	if err == nil {
		if seconds, perr := strconv.ParseFloat(strings.TrimSpace(string(out)), 64); perr == nil && seconds > 0 {
			return int(seconds)
		}
	}

	// ffmpeg with no output exits nonzero but still prints the banner.
	banner, _ := exec.CommandContext(ctx, p.ffmpegPath, "-i", src).CombinedOutput()
	if m := durationLine.FindStringSubmatch(string(banner)); m != nil {
		hours, _ := strconv.Atoi(m[1])
		minutes, _ := strconv.Atoi(m[2])
		seconds, _ := strconv.ParseFloat(m[3], 64)
		return hours*3600 + minutes*60 + int(seconds)
	}

	logging.Debug("Thumbnails: could not determine duration of %s", src)
	return 0
}

// downscale re-encodes the extracted frame to a bounded size. Failures
// leave the full-size frame in place, which is still a valid result.
func (p *Pipeline) downscale(path string) {
	img, err := imaging.Open(path)
	if err != nil {
		logging.Debug("Thumbnails: cannot reopen %s for downscaling: %v", path, err)
		return
	}
	bounds := img.Bounds()
	if bounds.Dx() <= thumbWidth && bounds.Dy() <= thumbHeight {
		return
	}
	resized := imaging.Fit(img, thumbWidth, thumbHeight, imaging.Lanczos)
	if err := imaging.Save(resized, path, imaging.JPEGQuality(85)); err != nil {
		logging.Debug("Thumbnails: cannot save downscaled %s: %v", path, err)
	}
}

// Path returns where the thumbnail for id lives, whether or not it has
// been generated yet.
func (p *Pipeline) Path(id string) string {
	return filepath.Join(p.dir, id+".jpg")
}

// QueueDepth reports how many distinct file ids are queued or running.
func (p *Pipeline) QueueDepth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Shutdown stops accepting work, fails queued jobs, and waits for the
// in-flight ones to finish.
func (p *Pipeline) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	logging.Info("Thumbnails: pipeline stopped")
}
