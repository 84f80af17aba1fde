package media

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/streamtube/backend/internal/logging"
)

// VideoPublisher records the durable asset location once an upload succeeds.
type VideoPublisher interface {
	MarkPublished(ctx context.Context, videoID, fileURL string) error
}

// IngestorConfig controls the concurrency characteristics of the ingestor.
type IngestorConfig struct {
	QueueSize     int
	Workers       int
	UploadTimeout time.Duration
}

// Ingestor asynchronously persists staged video files to the media store. A
// video stays unpublished until its upload succeeds; failures leave it that
// way and are only logged.
type Ingestor struct {
	store  Store
	videos VideoPublisher
	logger *slog.Logger

	uploadTimeout time.Duration

	jobs   chan ingestJob
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

type ingestJob struct {
	videoID   string
	localPath string
}

var errIngestorClosed = errors.New("media ingestor closed")

// NewIngestor constructs a background worker pool that persists video assets.
func NewIngestor(store Store, videos VideoPublisher, cfg IngestorConfig, logger *slog.Logger) *Ingestor {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	ing := &Ingestor{
		store:         store,
		videos:        videos,
		logger:        logger,
		uploadTimeout: cfg.UploadTimeout,
		jobs:          make(chan ingestJob, cfg.QueueSize),
		ctx:           ctx,
		cancel:        cancel,
	}

	ing.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go ing.worker()
	}

	return ing
}

// Enqueue schedules asset persistence for the supplied video.
func (i *Ingestor) Enqueue(ctx context.Context, videoID, localPath string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-i.ctx.Done():
		return errIngestorClosed
	default:
	}

	job := ingestJob{videoID: videoID, localPath: localPath}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-i.ctx.Done():
		return errIngestorClosed
	case i.jobs <- job:
		return nil
	}
}

// Shutdown waits for the worker pool to drain outstanding jobs.
func (i *Ingestor) Shutdown(ctx context.Context) error {
	i.once.Do(func() {
		i.cancel()
		close(i.jobs)
	})

	done := make(chan struct{})
	go func() {
		i.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (i *Ingestor) worker() {
	defer i.wg.Done()

	for {
		select {
		case <-i.ctx.Done():
			return
		case job, ok := <-i.jobs:
			if !ok {
				return
			}
			i.handleJob(job)
		}
	}
}

func (i *Ingestor) handleJob(job ingestJob) {
	if i.store == nil || i.videos == nil {
		i.logger.Error("media ingestor missing dependencies", "hasStore", i.store != nil, "hasVideos", i.videos != nil)
		return
	}

	uploadCtx, cancel := context.WithTimeout(context.Background(), i.uploadTimeout)
	defer cancel()

	uploadCtx, span := logging.StartSpan(logging.WithLogger(uploadCtx, i.logger), "video_asset_upload")
	defer span.End()

	location, err := i.store.Upload(uploadCtx, job.localPath)
	if err != nil {
		i.logger.Error("video asset upload failed", "videoId", job.videoID, "path", job.localPath, "error", err)
		return
	}

	recordCtx, recordCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer recordCancel()

	if err := i.videos.MarkPublished(recordCtx, job.videoID, location); err != nil {
		i.logger.Error("mark video published", "videoId", job.videoID, "error", err)
	}
}
