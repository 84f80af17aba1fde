package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/streamtube/backend/internal/models"
	"github.com/streamtube/backend/internal/repositories"
)

type fakeVideoStore struct {
	videos map[string]models.Video
}

func newFakeVideoStore(videos ...models.Video) *fakeVideoStore {
	s := &fakeVideoStore{videos: make(map[string]models.Video)}
	for _, v := range videos {
		s.videos[v.ID] = v
	}
	return s
}

func (s *fakeVideoStore) Create(_ context.Context, video models.Video) error {
	s.videos[video.ID] = video
	return nil
}

func (s *fakeVideoStore) FindByID(_ context.Context, id string) (models.Video, error) {
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return video, nil
}

type fakeHistoryStore struct {
	videos  *fakeVideoStore
	owners  map[string]models.VideoOwner
	entries map[string]map[string]models.WatchEntry
}

func newFakeHistoryStore(videos *fakeVideoStore) *fakeHistoryStore {
	return &fakeHistoryStore{
		videos:  videos,
		owners:  make(map[string]models.VideoOwner),
		entries: make(map[string]map[string]models.WatchEntry),
	}
}

func (s *fakeHistoryStore) Add(_ context.Context, entry models.WatchEntry) error {
	if _, ok := s.videos.videos[entry.VideoID]; !ok {
		return repositories.ErrNotFound
	}
	if s.entries[entry.UserID] == nil {
		s.entries[entry.UserID] = make(map[string]models.WatchEntry)
	}
	s.entries[entry.UserID][entry.VideoID] = entry
	return nil
}

func (s *fakeHistoryStore) List(_ context.Context, userID string) ([]models.HistoryEntry, error) {
	var result []models.HistoryEntry
	for videoID, entry := range s.entries[userID] {
		video := s.videos.videos[videoID]
		item := models.HistoryEntry{
			ID:           video.ID,
			FileURL:      video.FileURL,
			ThumbnailURL: video.ThumbnailURL,
			Title:        video.Title,
			Duration:     video.Duration,
			Views:        video.Views,
			WatchedAt:    entry.WatchedAt,
		}
		if owner, ok := s.owners[video.OwnerID]; ok {
			ownerCopy := owner
			item.Owner = &ownerCopy
		}
		result = append(result, item)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].WatchedAt.After(result[j].WatchedAt)
	})
	return result, nil
}

func TestHistoryHandlerRecordAndList(t *testing.T) {
	store := newFakeUserStore()
	seedUser(t, store, "user-1", "alice", "password123")
	svc := newTestTokenService(store)

	videos := newFakeVideoStore(
		models.Video{ID: "vid-1", OwnerID: "owner-1", Title: "First"},
		models.Video{ID: "vid-2", OwnerID: "owner-2", Title: "Second"},
	)
	history := newFakeHistoryStore(videos)
	history.owners["owner-1"] = models.VideoOwner{Username: "bob", FullName: "Bob Broadcasts"}
	history.owners["owner-2"] = models.VideoOwner{Username: "carol", FullName: "Carol Casts"}

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := base
	handler := HistoryHandler{History: history, Videos: videos, NowFunc: func() time.Time { return now }}

	for _, videoID := range []string{"vid-1", "vid-2"} {
		body := []byte(`{"videoId":"` + videoID + `"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/history", bytes.NewReader(body))
		rec := doAuthed(t, svc, store, "user-1", handler.Handle, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("record %s: expected status %d got %d: %s", videoID, http.StatusOK, rec.Code, rec.Body.String())
		}
		now = now.Add(time.Minute)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	rec := doAuthed(t, svc, store, "user-1", handler.Handle, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	entries := decodeEnvelope[[]models.HistoryEntry](t, rec)
	if len(entries) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(entries))
	}
	if entries[0].ID != "vid-2" || entries[1].ID != "vid-1" {
		t.Fatalf("expected newest-first ordering, got %s then %s", entries[0].ID, entries[1].ID)
	}
	if entries[0].Owner == nil || entries[0].Owner.Username != "carol" {
		t.Fatalf("expected collapsed owner on entry, got %+v", entries[0].Owner)
	}
}

func TestHistoryHandlerRewatchBumpsRecency(t *testing.T) {
	store := newFakeUserStore()
	seedUser(t, store, "user-1", "alice", "password123")
	svc := newTestTokenService(store)

	videos := newFakeVideoStore(
		models.Video{ID: "vid-1", OwnerID: "owner-1"},
		models.Video{ID: "vid-2", OwnerID: "owner-1"},
	)
	history := newFakeHistoryStore(videos)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := base
	handler := HistoryHandler{History: history, Videos: videos, NowFunc: func() time.Time { return now }}

	record := func(videoID string) {
		body := []byte(`{"videoId":"` + videoID + `"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/history", bytes.NewReader(body))
		rec := doAuthed(t, svc, store, "user-1", handler.Handle, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("record %s: expected status %d got %d", videoID, http.StatusOK, rec.Code)
		}
		now = now.Add(time.Minute)
	}

	record("vid-1")
	record("vid-2")
	record("vid-1")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	rec := doAuthed(t, svc, store, "user-1", handler.Handle, req)

	entries := decodeEnvelope[[]models.HistoryEntry](t, rec)
	if len(entries) != 2 {
		t.Fatalf("expected rewatch to keep a single entry per video, got %d", len(entries))
	}
	if entries[0].ID != "vid-1" {
		t.Fatalf("expected rewatched video first, got %s", entries[0].ID)
	}
}

func TestHistoryHandlerEmptyList(t *testing.T) {
	store := newFakeUserStore()
	seedUser(t, store, "user-1", "alice", "password123")
	svc := newTestTokenService(store)

	videos := newFakeVideoStore()
	handler := HistoryHandler{History: newFakeHistoryStore(videos), Videos: videos}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	rec := doAuthed(t, svc, store, "user-1", handler.Handle, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"data":[]`)) {
		t.Fatalf("expected empty array data, got %s", rec.Body.String())
	}
}

func TestHistoryHandlerUnknownVideo(t *testing.T) {
	store := newFakeUserStore()
	seedUser(t, store, "user-1", "alice", "password123")
	svc := newTestTokenService(store)

	videos := newFakeVideoStore()
	handler := HistoryHandler{History: newFakeHistoryStore(videos), Videos: videos}

	body := []byte(`{"videoId":"ghost"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/history", bytes.NewReader(body))
	rec := doAuthed(t, svc, store, "user-1", handler.Handle, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d got %d", http.StatusNotFound, rec.Code)
	}
}
