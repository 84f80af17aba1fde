package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/streamtube/backend/internal/models"
	"github.com/streamtube/backend/internal/repositories"
)

type fakeSubscriptionStore struct {
	edges map[[2]string]bool
}

func newFakeSubscriptionStore() *fakeSubscriptionStore {
	return &fakeSubscriptionStore{edges: make(map[[2]string]bool)}
}

func (s *fakeSubscriptionStore) Create(_ context.Context, sub models.Subscription) error {
	s.edges[[2]string{sub.SubscriberID, sub.ChannelID}] = true
	return nil
}

func (s *fakeSubscriptionStore) Delete(_ context.Context, subscriberID, channelID string) error {
	key := [2]string{subscriberID, channelID}
	if !s.edges[key] {
		return repositories.ErrNotFound
	}
	delete(s.edges, key)
	return nil
}

type fakeChannelReader struct {
	profiles map[string]models.ChannelProfile
	// subscribers maps channel username to the set of subscribed viewer IDs.
	subscribers map[string]map[string]bool
}

func (r *fakeChannelReader) ChannelProfile(_ context.Context, username, viewerID string) (models.ChannelProfile, error) {
	profile, ok := r.profiles[username]
	if !ok {
		return models.ChannelProfile{}, repositories.ErrNotFound
	}
	profile.IsSubscribed = viewerID != "" && r.subscribers[username][viewerID]
	return profile, nil
}

func TestChannelHandlerProfile(t *testing.T) {
	reader := &fakeChannelReader{
		profiles: map[string]models.ChannelProfile{
			"bob": {Username: "bob", FullName: "Bob Broadcasts", SubscribersCount: 2, ChannelsSubscribedCount: 1},
		},
		subscribers: map[string]map[string]bool{"bob": {"user-1": true}},
	}
	handler := ChannelHandler{Channels: reader}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/channels/bob", nil)
	req.SetPathValue("username", "bob")
	rec := httptest.NewRecorder()

	handler.Profile(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	profile := decodeEnvelope[models.ChannelProfile](t, rec)
	if profile.SubscribersCount != 2 || profile.ChannelsSubscribedCount != 1 {
		t.Fatalf("unexpected counts: %+v", profile)
	}
	if profile.IsSubscribed {
		t.Fatal("anonymous viewer must not appear subscribed")
	}
}

func TestChannelHandlerProfilePersonalized(t *testing.T) {
	store := newFakeUserStore()
	seedUser(t, store, "user-1", "alice", "password123")
	svc := newTestTokenService(store)

	reader := &fakeChannelReader{
		profiles:    map[string]models.ChannelProfile{"bob": {Username: "bob"}},
		subscribers: map[string]map[string]bool{"bob": {"user-1": true}},
	}
	handler := ChannelHandler{Channels: reader}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/channels/bob", nil)
	req.SetPathValue("username", "bob")
	rec := doAuthed(t, svc, store, "user-1", handler.Profile, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	profile := decodeEnvelope[models.ChannelProfile](t, rec)
	if !profile.IsSubscribed {
		t.Fatal("expected subscribed viewer to see isSubscribed=true")
	}
}

func TestChannelHandlerProfileMissingUsername(t *testing.T) {
	handler := ChannelHandler{Channels: &fakeChannelReader{}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/channels/", nil)
	rec := httptest.NewRecorder()

	handler.Profile(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestChannelHandlerProfileUnknownChannel(t *testing.T) {
	handler := ChannelHandler{Channels: &fakeChannelReader{profiles: map[string]models.ChannelProfile{}}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/channels/ghost", nil)
	req.SetPathValue("username", "ghost")
	rec := httptest.NewRecorder()

	handler.Profile(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d got %d", http.StatusNotFound, rec.Code)
	}
}

func TestChannelHandlerSubscribe(t *testing.T) {
	store := newFakeUserStore()
	seedUser(t, store, "user-1", "alice", "password123")
	seedUser(t, store, "user-2", "bob", "password123")
	svc := newTestTokenService(store)

	subs := newFakeSubscriptionStore()
	handler := ChannelHandler{Users: store, Subscriptions: subs}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/channels/bob/subscribe", nil)
	req.SetPathValue("username", "bob")
	rec := doAuthed(t, svc, store, "user-1", handler.Subscribe, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	if !subs.edges[[2]string{"user-1", "user-2"}] {
		t.Fatal("expected subscription edge to be recorded")
	}
}

func TestChannelHandlerSubscribeSelf(t *testing.T) {
	store := newFakeUserStore()
	seedUser(t, store, "user-1", "alice", "password123")
	svc := newTestTokenService(store)

	handler := ChannelHandler{Users: store, Subscriptions: newFakeSubscriptionStore()}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/channels/alice/subscribe", nil)
	req.SetPathValue("username", "alice")
	rec := doAuthed(t, svc, store, "user-1", handler.Subscribe, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestChannelHandlerSubscribeUnknownChannel(t *testing.T) {
	store := newFakeUserStore()
	seedUser(t, store, "user-1", "alice", "password123")
	svc := newTestTokenService(store)

	handler := ChannelHandler{Users: store, Subscriptions: newFakeSubscriptionStore()}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/channels/ghost/subscribe", nil)
	req.SetPathValue("username", "ghost")
	rec := doAuthed(t, svc, store, "user-1", handler.Subscribe, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d got %d", http.StatusNotFound, rec.Code)
	}
}

func TestChannelHandlerUnsubscribe(t *testing.T) {
	store := newFakeUserStore()
	seedUser(t, store, "user-1", "alice", "password123")
	seedUser(t, store, "user-2", "bob", "password123")
	svc := newTestTokenService(store)

	subs := newFakeSubscriptionStore()
	subs.edges[[2]string{"user-1", "user-2"}] = true
	handler := ChannelHandler{Users: store, Subscriptions: subs}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/channels/bob/subscribe", nil)
	req.SetPathValue("username", "bob")
	rec := doAuthed(t, svc, store, "user-1", handler.Subscribe, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if subs.edges[[2]string{"user-1", "user-2"}] {
		t.Fatal("expected subscription edge to be removed")
	}
}

func TestChannelHandlerUnsubscribeWithoutSubscription(t *testing.T) {
	store := newFakeUserStore()
	seedUser(t, store, "user-1", "alice", "password123")
	seedUser(t, store, "user-2", "bob", "password123")
	svc := newTestTokenService(store)

	handler := ChannelHandler{Users: store, Subscriptions: newFakeSubscriptionStore()}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/channels/bob/subscribe", nil)
	req.SetPathValue("username", "bob")
	rec := doAuthed(t, svc, store, "user-1", handler.Subscribe, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d got %d", http.StatusNotFound, rec.Code)
	}
}
