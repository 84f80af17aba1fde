package media

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeStore struct {
	mu      sync.Mutex
	fail    bool
	uploads []string
	done    chan string
}

func newFakeStore() *fakeStore {
	return &fakeStore{done: make(chan string, 8)}
}

func (s *fakeStore) Upload(_ context.Context, localPath string) (string, error) {
	s.mu.Lock()
	s.uploads = append(s.uploads, localPath)
	s.mu.Unlock()

	if s.fail {
		s.done <- localPath
		return "", errors.New("upload failed")
	}

	url := "https://cdn.test/" + localPath
	s.done <- localPath
	return url, nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published map[string]string
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{published: make(map[string]string)}
}

func (p *fakePublisher) MarkPublished(_ context.Context, videoID, fileURL string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published[videoID] = fileURL
	return nil
}

func (p *fakePublisher) get(videoID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	url, ok := p.published[videoID]
	return url, ok
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestIngestorPublishesOnSuccessfulUpload(t *testing.T) {
	store := newFakeStore()
	publisher := newFakePublisher()
	ing := NewIngestor(store, publisher, IngestorConfig{Workers: 2}, nil)

	if err := ing.Enqueue(context.Background(), "vid-1", "staging/video.mp4"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitFor(t, func() bool {
		_, ok := publisher.get("vid-1")
		return ok
	})

	url, _ := publisher.get("vid-1")
	if url != "https://cdn.test/staging/video.mp4" {
		t.Fatalf("unexpected published url %q", url)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ing.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestIngestorLeavesVideoUnpublishedOnFailure(t *testing.T) {
	store := newFakeStore()
	store.fail = true
	publisher := newFakePublisher()
	ing := NewIngestor(store, publisher, IngestorConfig{}, nil)

	if err := ing.Enqueue(context.Background(), "vid-1", "staging/video.mp4"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case <-store.done:
	case <-time.After(2 * time.Second):
		t.Fatal("upload attempt never happened")
	}

	// Give the worker a moment to (incorrectly) publish.
	time.Sleep(50 * time.Millisecond)

	if _, ok := publisher.get("vid-1"); ok {
		t.Fatal("failed upload must not publish the video")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ing.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestIngestorRejectsEnqueueAfterShutdown(t *testing.T) {
	ing := NewIngestor(newFakeStore(), newFakePublisher(), IngestorConfig{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ing.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if err := ing.Enqueue(context.Background(), "vid-1", "staging/video.mp4"); !errors.Is(err, errIngestorClosed) {
		t.Fatalf("expected errIngestorClosed, got %v", err)
	}
}
