package routes

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"gorm.io/gorm"

	"eventhub-api/config"
	"eventhub-api/database/dbtest"
	"eventhub-api/models"
	"eventhub-api/services"
	"eventhub-api/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubGeocoder struct{}

func (stubGeocoder) Geocode(ctx context.Context, address string) (*services.GeocodeResult, error) {
	if address == "nowhere" {
		return nil, utils.NewValidationError("Address could not be located.")
	}
	return &services.GeocodeResult{Address: "Moscow, " + address, Longitude: 37.62, Latitude: 55.75}, nil
}

func (stubGeocoder) Reverse(ctx context.Context, lon, lat float64) (*services.GeocodeResult, error) {
	return &services.GeocodeResult{Address: "Moscow", Longitude: lon, Latitude: lat}, nil
}

type captureMailer struct {
	uid   uint
	token string
}

func (m *captureMailer) SendActivationEmail(ctx context.Context, to, username string, uid uint, token string) error {
	m.uid, m.token = uid, token
	return nil
}

type testAPI struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	mailer *captureMailer
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db := dbtest.Open(t)

	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:          "test-secret",
			TokenTTL:           time.Hour,
			ActivationRequired: true,
			ActivationTTL:      time.Hour,
		},
		Pagination: config.PaginationConfig{PageSize: 2},
	}
	mailer := &captureMailer{}
	s, err := NewServices(db, cfg, stubGeocoder{}, mailer)
	if err != nil {
		t.Fatalf("NewServices: %v", err)
	}

	done := make(chan struct{})
	t.Cleanup(func() { close(done) })
	return &testAPI{t: t, db: db, router: NewRouter(cfg, s, done), mailer: mailer}
}

func (a *testAPI) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) expect(w *httptest.ResponseRecorder, status int, out interface{}) {
	a.t.Helper()
	if w.Code != status {
		a.t.Fatalf("status = %d, want %d: %s", w.Code, status, w.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			a.t.Fatalf("decode %s: %v", w.Body.String(), err)
		}
	}
}

// signup registers, activates and logs in a user, returning its token.
func (a *testAPI) signup(username string) (uint, string) {
	a.t.Helper()
	var user models.UserResponse
	a.expect(a.do(http.MethodPost, "/api/v1/users/", "", map[string]interface{}{
		"username":     username,
		"email":        username + "@example.com",
		"password":     "long enough password",
		"first_name":   "First",
		"last_name":    "Last",
		"phone_number": "+7" + username,
	}), http.StatusCreated, &user)

	a.expect(a.do(http.MethodPost, "/api/v1/users/activation/", "", map[string]interface{}{
		"uid": a.mailer.uid, "token": a.mailer.token,
	}), http.StatusNoContent, nil)

	var tok models.TokenResponse
	a.expect(a.do(http.MethodPost, "/api/v1/auth/token/login/", "", map[string]string{
		"email": username + "@example.com", "password": "long enough password",
	}), http.StatusOK, &tok)
	return user.ID, tok.AuthToken
}

func (a *testAPI) createEvent(token, name string, activityID uint) models.EventResponse {
	a.t.Helper()
	var ev models.EventResponse
	a.expect(a.do(http.MethodPost, "/api/v1/events/", token, map[string]interface{}{
		"name":        name,
		"description": "Walk in the park",
		"activity":    []uint{activityID},
		"datetime":    "2030-01-02T10:00:00Z",
		"duration":    60,
		"location":    map[string]string{"address": "Red Square"},
	}), http.StatusCreated, &ev)
	return ev
}

func TestPing(t *testing.T) {
	api := newTestAPI(t)
	api.expect(api.do(http.MethodGet, "/ping", "", nil), http.StatusOK, nil)
	api.expect(api.do(http.MethodGet, "/metrics", "", nil), http.StatusOK, nil)
}

func TestSignupFlow(t *testing.T) {
	api := newTestAPI(t)
	id, token := api.signup("alice")

	var me models.UserResponse
	api.expect(api.do(http.MethodGet, "/api/v1/users/me/", token, nil), http.StatusOK, &me)
	if me.ID != id || me.Username != "alice" {
		t.Errorf("me = %+v", me)
	}

	api.expect(api.do(http.MethodGet, "/api/v1/users/me/", "", nil), http.StatusUnauthorized, nil)
	api.expect(api.do(http.MethodGet, "/api/v1/users/me/", "garbage", nil), http.StatusUnauthorized, nil)
	api.expect(api.do(http.MethodPost, "/api/v1/auth/token/logout/", token, nil), http.StatusNoContent, nil)
}

func TestRegisterValidation(t *testing.T) {
	api := newTestAPI(t)

	var resp utils.ErrorResponse
	api.expect(api.do(http.MethodPost, "/api/v1/users/", "", map[string]interface{}{
		"username":     "bad name!",
		"email":        "not-an-email",
		"password":     "short",
		"first_name":   "F",
		"last_name":    "L",
		"phone_number": "+7000",
	}), http.StatusBadRequest, &resp)

	for _, field := range []string{"username", "email", "password"} {
		if len(resp.Fields[field]) == 0 {
			t.Errorf("missing error for %s: %+v", field, resp.Fields)
		}
	}
}

func TestEventPermissions(t *testing.T) {
	api := newTestAPI(t)
	acts := dbtest.CreateActivities(t, api.db, "Hiking")
	_, alice := api.signup("alice")
	_, bob := api.signup("bob")

	api.expect(api.do(http.MethodPost, "/api/v1/events/", "", map[string]interface{}{"name": "x"}), http.StatusUnauthorized, nil)

	ev := api.createEvent(alice, "Walk", acts[0].ID)
	path := fmt.Sprintf("/api/v1/events/%d/", ev.ID)

	api.expect(api.do(http.MethodGet, path, "", nil), http.StatusOK, nil)
	api.expect(api.do(http.MethodPatch, path, bob, map[string]int{"duration": 5}), http.StatusForbidden, nil)
	api.expect(api.do(http.MethodDelete, path, "", nil), http.StatusUnauthorized, nil)

	var patched models.EventResponse
	api.expect(api.do(http.MethodPatch, path, alice, map[string]int{"duration": 5}), http.StatusOK, &patched)
	if patched.Duration != 5 {
		t.Errorf("duration = %d", patched.Duration)
	}

	api.expect(api.do(http.MethodDelete, path, bob, nil), http.StatusForbidden, nil)
	api.expect(api.do(http.MethodDelete, path, alice, nil), http.StatusNoContent, nil)
	api.expect(api.do(http.MethodGet, path, "", nil), http.StatusNotFound, nil)
	api.expect(api.do(http.MethodGet, "/api/v1/events/abc/", "", nil), http.StatusNotFound, nil)
}

func TestEventCreateUnknownAddress(t *testing.T) {
	api := newTestAPI(t)
	acts := dbtest.CreateActivities(t, api.db, "Hiking")
	_, alice := api.signup("alice")

	api.expect(api.do(http.MethodPost, "/api/v1/events/", alice, map[string]interface{}{
		"name":        "Walk",
		"description": "d",
		"activity":    []uint{acts[0].ID},
		"datetime":    "2030-01-02T10:00:00Z",
		"duration":    60,
		"location":    map[string]string{"address": "nowhere"},
	}), http.StatusBadRequest, nil)

	var n int64
	api.db.Model(&models.Event{}).Count(&n)
	if n != 0 {
		t.Errorf("events = %d, want 0", n)
	}
}

func TestEventListFiltersAndPagination(t *testing.T) {
	api := newTestAPI(t)
	acts := dbtest.CreateActivities(t, api.db, "Hiking", "Chess")
	_, alice := api.signup("alice")
	_, bob := api.signup("bob")

	api.createEvent(alice, "One", acts[0].ID)
	api.createEvent(alice, "Two", acts[0].ID)
	api.createEvent(bob, "Three", acts[1].ID)

	var page utils.PaginatedResponse
	api.expect(api.do(http.MethodGet, "/api/v1/events/", "", nil), http.StatusOK, &page)
	if page.Count != 3 || page.Next == nil || page.Previous != nil {
		t.Errorf("first page = %+v", page)
	}

	api.expect(api.do(http.MethodGet, "/api/v1/events/?page=2", "", nil), http.StatusOK, &page)
	if page.Next != nil || page.Previous == nil {
		t.Errorf("second page = %+v", page)
	}
	api.expect(api.do(http.MethodGet, "/api/v1/events/?page=9", "", nil), http.StatusNotFound, nil)

	api.expect(api.do(http.MethodGet, "/api/v1/events/?author=bob", "", nil), http.StatusOK, &page)
	if page.Count != 1 {
		t.Errorf("author filter count = %d", page.Count)
	}
	api.expect(api.do(http.MethodGet, "/api/v1/events/?activities=Hiking&activities=Chess", "", nil), http.StatusOK, &page)
	if page.Count != 3 {
		t.Errorf("activities filter count = %d", page.Count)
	}

	api.expect(api.do(http.MethodGet, "/api/v1/events/?in_my_participation_list=true", bob, nil), http.StatusOK, &page)
	if page.Count != 1 {
		t.Errorf("participation filter count = %d", page.Count)
	}
	api.expect(api.do(http.MethodGet, "/api/v1/events/?in_my_participation_list=false", bob, nil), http.StatusOK, &page)
	if page.Count != 1 {
		t.Errorf("participation filter with false count = %d, want 1", page.Count)
	}
	api.expect(api.do(http.MethodGet, "/api/v1/events/?is_past_participation=0", bob, nil), http.StatusOK, &page)
	if page.Count != 0 {
		t.Errorf("past participation filter with 0 count = %d, want 0", page.Count)
	}
	api.expect(api.do(http.MethodGet, "/api/v1/events/?in_my_participation_list=true", "", nil), http.StatusOK, &page)
	if page.Count != 3 {
		t.Errorf("anonymous participation filter count = %d, want unfiltered", page.Count)
	}

	api.expect(api.do(http.MethodGet, "/api/v1/events/?is_actual_event=1", "", nil), http.StatusOK, &page)
	if page.Count != 3 {
		t.Errorf("actual count = %d", page.Count)
	}
	api.expect(api.do(http.MethodGet, "/api/v1/events/?is_past_event=1", "", nil), http.StatusOK, &page)
	if page.Count != 0 {
		t.Errorf("past count = %d", page.Count)
	}

	api.expect(api.do(http.MethodGet, "/api/v1/events/?in_my_participation_list=maybe", bob, nil), http.StatusBadRequest, nil)
	api.expect(api.do(http.MethodGet, "/api/v1/events/?is_actual_event=soon", "", nil), http.StatusBadRequest, nil)
}

func TestRelationsOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	acts := dbtest.CreateActivities(t, api.db, "Hiking")
	aliceID, alice := api.signup("alice")
	bobID, bob := api.signup("bob")
	ev := api.createEvent(alice, "Walk", acts[0].ID)

	fav := fmt.Sprintf("/api/v1/events/%d/favorite/", ev.ID)
	api.expect(api.do(http.MethodPost, fav, "", nil), http.StatusUnauthorized, nil)
	api.expect(api.do(http.MethodPost, fav, bob, nil), http.StatusCreated, nil)
	api.expect(api.do(http.MethodPost, fav, bob, nil), http.StatusBadRequest, nil)
	api.expect(api.do(http.MethodDelete, fav, bob, nil), http.StatusNoContent, nil)
	api.expect(api.do(http.MethodDelete, fav, bob, nil), http.StatusNotFound, nil)

	part := fmt.Sprintf("/api/v1/events/%d/participate/", ev.ID)
	api.expect(api.do(http.MethodPost, part, alice, nil), http.StatusBadRequest, nil)
	var joined models.EventResponse
	api.expect(api.do(http.MethodPost, part, bob, nil), http.StatusCreated, &joined)
	if joined.ParticipantsCount != 2 {
		t.Errorf("participants = %d", joined.ParticipantsCount)
	}

	var comment models.CommentResponse
	api.expect(api.do(http.MethodPost, fmt.Sprintf("/api/v1/events/%d/comments/", ev.ID), bob,
		map[string]string{"text": "count me in"}), http.StatusCreated, &comment)

	like := fmt.Sprintf("/api/v1/events/%d/comments/%d/like/", ev.ID, comment.ID)
	alias := fmt.Sprintf("/api/v1/comments/%d/%d/like/", ev.ID, comment.ID)
	api.expect(api.do(http.MethodPost, like, alice, nil), http.StatusCreated, nil)
	api.expect(api.do(http.MethodPost, alias, alice, nil), http.StatusBadRequest, nil)
	api.expect(api.do(http.MethodDelete, alias, alice, nil), http.StatusNoContent, nil)
	api.expect(api.do(http.MethodDelete, like, alice, nil), http.StatusBadRequest, nil)

	commentPath := fmt.Sprintf("/api/v1/events/%d/comments/%d/", ev.ID, comment.ID)
	api.expect(api.do(http.MethodPatch, commentPath, alice, map[string]string{"text": "x"}), http.StatusForbidden, nil)
	api.expect(api.do(http.MethodPatch, commentPath, bob, map[string]string{"text": "edited"}), http.StatusOK, &comment)
	if comment.Text != "edited" {
		t.Errorf("text = %q", comment.Text)
	}

	api.expect(api.do(http.MethodPost, fmt.Sprintf("/api/v1/users/%d/subscribe/", aliceID), alice, nil), http.StatusBadRequest, nil)
	api.expect(api.do(http.MethodPost, fmt.Sprintf("/api/v1/users/%d/subscribe/", aliceID), bob, nil), http.StatusCreated, nil)

	var subs utils.PaginatedResponse
	api.expect(api.do(http.MethodGet, "/api/v1/users/subscriptions/", bob, nil), http.StatusOK, &subs)
	if subs.Count != 1 {
		t.Errorf("subscriptions = %d", subs.Count)
	}

	api.expect(api.do(http.MethodPost, fmt.Sprintf("/api/v1/activities/%d/favorite/", acts[0].ID), bob, nil), http.StatusCreated, nil)
	var recs []models.EventResponse
	api.expect(api.do(http.MethodGet, "/api/v1/users/recommendations/", bob, nil), http.StatusOK, &recs)
	if len(recs) != 1 || recs[0].ID != ev.ID {
		t.Errorf("recommendations = %+v", recs)
	}

	api.expect(api.do(http.MethodDelete, fmt.Sprintf("/api/v1/users/%d/", bobID), alice, nil), http.StatusForbidden, nil)
	api.expect(api.do(http.MethodDelete, fmt.Sprintf("/api/v1/users/%d/", bobID), bob, nil), http.StatusNoContent, nil)
	api.expect(api.do(http.MethodGet, "/api/v1/users/me/", bob, nil), http.StatusUnauthorized, nil)
}

func TestActivities(t *testing.T) {
	api := newTestAPI(t)
	dbtest.CreateActivities(t, api.db, "Hiking", "Hockey", "Chess")

	var list []models.Activity
	api.expect(api.do(http.MethodGet, "/api/v1/activities/?name=H", "", nil), http.StatusOK, &list)
	if len(list) != 2 || list[0].Name != "Hiking" {
		t.Errorf("activities = %+v", list)
	}
	api.expect(api.do(http.MethodGet, "/api/v1/activities/999/", "", nil), http.StatusNotFound, nil)
}

func TestCORSPreflight(t *testing.T) {
	handler := SetupCORS(config.CORSConfig{AllowedOrigins: []string{"https://app.example.com"}})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) }))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/events/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("allow origin = %q", got)
	}
	if w.Code == http.StatusTeapot {
		t.Error("preflight reached the router")
	}
}

func TestCommentsOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	acts := dbtest.CreateActivities(t, api.db, "Hiking")
	_, alice := api.signup("alice")
	_, bob := api.signup("bob")
	ev := api.createEvent(alice, "Walk", acts[0].ID)
	other := api.createEvent(alice, "Run", acts[0].ID)

	list := fmt.Sprintf("/api/v1/events/%d/comments/", ev.ID)
	api.expect(api.do(http.MethodPost, list, "", map[string]string{"text": "hi"}), http.StatusUnauthorized, nil)
	api.expect(api.do(http.MethodPost, list, bob, map[string]string{"text": "   "}), http.StatusBadRequest, nil)
	api.expect(api.do(http.MethodPost, "/api/v1/events/999/comments/", bob, map[string]string{"text": "hi"}), http.StatusNotFound, nil)

	var last models.CommentResponse
	for _, text := range []string{"one", "two", "three", "four"} {
		api.expect(api.do(http.MethodPost, list, bob, map[string]string{"text": text}), http.StatusCreated, &last)
	}
	if last.Event != ev.ID || last.Author.Username != "bob" {
		t.Errorf("comment = %+v", last)
	}

	var page utils.PaginatedResponse
	api.expect(api.do(http.MethodGet, list, "", nil), http.StatusOK, &page)
	if results, _ := page.Results.([]interface{}); page.Count != 4 || len(results) != 2 {
		t.Errorf("comment page = %+v", page)
	}

	var got models.EventResponse
	api.expect(api.do(http.MethodGet, fmt.Sprintf("/api/v1/events/%d/", ev.ID), "", nil), http.StatusOK, &got)
	if len(got.Comments) != 3 || got.Comments[0].Text != "four" {
		t.Errorf("embedded comments = %+v", got.Comments)
	}

	path := fmt.Sprintf("/api/v1/events/%d/comments/%d/", ev.ID, last.ID)
	api.expect(api.do(http.MethodGet, path, "", nil), http.StatusOK, nil)
	api.expect(api.do(http.MethodGet, fmt.Sprintf("/api/v1/events/%d/comments/%d/", other.ID, last.ID), "", nil), http.StatusNotFound, nil)
	api.expect(api.do(http.MethodPut, path, bob, map[string]string{"text": "rewritten"}), http.StatusOK, &last)
	if last.Text != "rewritten" {
		t.Errorf("text = %q", last.Text)
	}
	api.expect(api.do(http.MethodDelete, path, alice, nil), http.StatusForbidden, nil)
	api.expect(api.do(http.MethodDelete, path, bob, nil), http.StatusNoContent, nil)
	api.expect(api.do(http.MethodGet, path, "", nil), http.StatusNotFound, nil)
}

func TestUserProfileOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	acts := dbtest.CreateActivities(t, api.db, "Hiking")
	aliceID, alice := api.signup("alice")
	_, bob := api.signup("bob")

	api.expect(api.do(http.MethodGet, "/api/v1/users/", "", nil), http.StatusUnauthorized, nil)
	var page utils.PaginatedResponse
	api.expect(api.do(http.MethodGet, "/api/v1/users/", bob, nil), http.StatusOK, &page)
	if page.Count != 2 {
		t.Errorf("users = %d", page.Count)
	}

	var me models.UserResponse
	api.expect(api.do(http.MethodPatch, "/api/v1/users/me/", alice, map[string]interface{}{
		"bio":        "Likes long walks",
		"activities": []uint{acts[0].ID},
	}), http.StatusOK, &me)
	if me.Bio == nil || *me.Bio != "Likes long walks" || len(me.Activities) != 1 || me.Username != "alice" {
		t.Errorf("patched profile = %+v", me)
	}

	var resp utils.ErrorResponse
	api.expect(api.do(http.MethodPut, "/api/v1/users/me/", alice, map[string]string{"bio": "x"}), http.StatusBadRequest, &resp)
	if len(resp.Fields["username"]) == 0 || len(resp.Fields["phone_number"]) == 0 {
		t.Errorf("PUT without identity fields = %+v", resp)
	}
	api.expect(api.do(http.MethodPatch, "/api/v1/users/me/", alice, map[string]string{
		"username": "", "phone_number": "",
	}), http.StatusBadRequest, &resp)
	if len(resp.Fields["username"]) == 0 || len(resp.Fields["phone_number"]) == 0 {
		t.Errorf("PATCH with blank identity fields = %+v", resp)
	}
	api.expect(api.do(http.MethodGet, "/api/v1/users/me/", alice, nil), http.StatusOK, &me)
	if me.Username != "alice" || me.PhoneNumber != "+7alice" {
		t.Errorf("identity after rejected PATCH = %q %q", me.Username, me.PhoneNumber)
	}

	alicePath := fmt.Sprintf("/api/v1/users/%d/", aliceID)
	api.expect(api.do(http.MethodPatch, alicePath, bob, map[string]string{"bio": "hacked"}), http.StatusForbidden, nil)
	api.expect(api.do(http.MethodPost, fmt.Sprintf("/api/v1/users/%d/subscribe/", aliceID), bob, nil), http.StatusCreated, nil)

	var seen models.UserResponse
	api.expect(api.do(http.MethodGet, alicePath, bob, nil), http.StatusOK, &seen)
	if !seen.IsSubscribed || seen.SubscribersCount != 1 {
		t.Errorf("alice as seen by bob = %+v", seen)
	}
	api.expect(api.do(http.MethodGet, "/api/v1/users/999/", bob, nil), http.StatusNotFound, nil)
}

func TestConcurrentFavoriteKeepsOneRow(t *testing.T) {
	api := newTestAPI(t)
	acts := dbtest.CreateActivities(t, api.db, "Hiking")
	_, alice := api.signup("alice")
	_, bob := api.signup("bob")
	ev := api.createEvent(alice, "Walk", acts[0].ID)
	path := fmt.Sprintf("/api/v1/events/%d/favorite/", ev.ID)

	const requests = 8
	codes := make([]int, requests)
	var wg sync.WaitGroup
	wg.Add(requests)
	for i := 0; i < requests; i++ {
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, path, nil)
			req.Header.Set("Authorization", "Bearer "+bob)
			w := httptest.NewRecorder()
			api.router.ServeHTTP(w, req)
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	created, rejected := 0, 0
	for _, code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusBadRequest:
			rejected++
		}
	}
	if created != 1 || rejected != requests-1 {
		t.Errorf("codes = %v, want one 201 and %d 400", codes, requests-1)
	}

	var n int64
	api.db.Model(&models.FavoriteEvent{}).Where("event_id = ?", ev.ID).Count(&n)
	if n != 1 {
		t.Errorf("favorite rows = %d, want 1", n)
	}
}
