package repositories

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"

	"eventhub-api/database/dbtest"
	"eventhub-api/models"
	"eventhub-api/utils"
)

func createEvent(t *testing.T, db *gorm.DB, author *models.User, name string, at time.Time, activityIDs ...uint) *models.Event {
	t.Helper()
	ev := &models.Event{Name: name, Description: "desc", Datetime: at.UTC(), Duration: 60, AuthorID: author.ID}
	if err := NewEventRepository(db).Create(context.Background(), ev, &models.Location{}, activityIDs); err != nil {
		t.Fatalf("create event %s: %v", name, err)
	}
	return ev
}

func TestRelationCreateTwiceConflicts(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	alice := dbtest.CreateUser(t, db, "alice")
	bob := dbtest.CreateUser(t, db, "bob")
	acts := dbtest.CreateActivities(t, db, "Hiking")
	ev := createEvent(t, db, bob, "Walk", time.Now().Add(time.Hour), acts[0].ID)

	comment := &models.Comment{EventID: ev.ID, AuthorID: bob.ID, Text: "hi"}
	if err := NewCommentRepository(db).Create(ctx, comment); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		create func() error
		count  func() int64
	}{
		{"favorite", func() error { return NewRelationRepository(db, FavoriteEventKind).Create(ctx, alice.ID, ev.ID) },
			func() int64 { return countRows(db, &models.FavoriteEvent{}) }},
		{"like", func() error { return NewRelationRepository(db, LikeKind).Create(ctx, alice.ID, comment.ID) },
			func() int64 { return countRows(db, &models.Like{}) }},
		{"subscribe", func() error { return NewRelationRepository(db, SubscribeKind).Create(ctx, alice.ID, bob.ID) },
			func() int64 { return countRows(db, &models.Subscribe{}) }},
		{"favorite_activity", func() error {
			return NewRelationRepository(db, FavoriteActivityKind).Create(ctx, alice.ID, acts[0].ID)
		}, func() int64 { return countRows(db, &models.FavoriteActivity{}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.create(); err != nil {
				t.Fatalf("first create: %v", err)
			}
			err := tt.create()
			if !errors.Is(err, utils.ErrConflict) {
				t.Fatalf("second create err = %v, want conflict", err)
			}
			if n := tt.count(); n != 1 {
				t.Errorf("rows = %d, want 1", n)
			}
		})
	}
}

func TestRelationParticipationForAuthorAlreadyExists(t *testing.T) {
	db := dbtest.Open(t)
	bob := dbtest.CreateUser(t, db, "bob")
	acts := dbtest.CreateActivities(t, db, "Hiking")
	ev := createEvent(t, db, bob, "Walk", time.Now(), acts[0].ID)

	repo := NewRelationRepository(db, ParticipationKind)
	if err := repo.Create(context.Background(), bob.ID, ev.ID); !errors.Is(err, utils.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
	if n := countRows(db, &models.Participation{}); n != 1 {
		t.Errorf("participations = %d, want 1", n)
	}
}

func TestRelationDeleteMissing(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	alice := dbtest.CreateUser(t, db, "alice")
	bob := dbtest.CreateUser(t, db, "bob")
	acts := dbtest.CreateActivities(t, db, "Hiking")
	ev := createEvent(t, db, bob, "Walk", time.Now().Add(time.Hour), acts[0].ID)

	comment := &models.Comment{EventID: ev.ID, AuthorID: bob.ID, Text: "hi"}
	if err := NewCommentRepository(db).Create(ctx, comment); err != nil {
		t.Fatal(err)
	}

	type ops struct {
		create, delete func() error
		count          func() int64
	}
	relation := func(create, delete func(ctx context.Context, userID, targetID uint) error, targetID uint, model interface{}) ops {
		return ops{
			create: func() error { return create(ctx, alice.ID, targetID) },
			delete: func() error { return delete(ctx, alice.ID, targetID) },
			count: func() int64 {
				var n int64
				db.Model(model).Where("user_id = ?", alice.ID).Count(&n)
				return n
			},
		}
	}
	favorite := NewRelationRepository(db, FavoriteEventKind)
	participation := NewRelationRepository(db, ParticipationKind)
	like := NewRelationRepository(db, LikeKind)
	subscribe := NewRelationRepository(db, SubscribeKind)
	favoriteActivity := NewRelationRepository(db, FavoriteActivityKind)

	tests := []struct {
		name string
		ops  ops
	}{
		{"favorite", relation(favorite.Create, favorite.Delete, ev.ID, &models.FavoriteEvent{})},
		{"participation", relation(participation.Create, participation.Delete, ev.ID, &models.Participation{})},
		{"like", relation(like.Create, like.Delete, comment.ID, &models.Like{})},
		{"subscribe", relation(subscribe.Create, subscribe.Delete, bob.ID, &models.Subscribe{})},
		{"favorite_activity", relation(favoriteActivity.Create, favoriteActivity.Delete, acts[0].ID, &models.FavoriteActivity{})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.ops.delete(); !errors.Is(err, utils.ErrNotFound) {
				t.Fatalf("delete missing err = %v, want not found", err)
			}
			if n := tt.ops.count(); n != 0 {
				t.Fatalf("rows after failed delete = %d, want 0", n)
			}
			if err := tt.ops.create(); err != nil {
				t.Fatal(err)
			}
			if err := tt.ops.delete(); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if n := tt.ops.count(); n != 0 {
				t.Errorf("rows = %d, want 0", n)
			}
		})
	}
}

func TestRelationCreateConcurrent(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	alice := dbtest.CreateUser(t, db, "alice")
	bob := dbtest.CreateUser(t, db, "bob")
	acts := dbtest.CreateActivities(t, db, "Hiking")
	ev := createEvent(t, db, bob, "Walk", time.Now().Add(time.Hour), acts[0].ID)
	repo := NewRelationRepository(db, FavoriteEventKind)

	const workers = 10
	var created, conflicts, failures int32
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			err := repo.Create(ctx, alice.ID, ev.ID)
			switch {
			case err == nil:
				atomic.AddInt32(&created, 1)
			case errors.Is(err, utils.ErrConflict):
				atomic.AddInt32(&conflicts, 1)
			default:
				t.Logf("unexpected error: %v", err)
				atomic.AddInt32(&failures, 1)
			}
		}()
	}
	wg.Wait()

	if created != 1 || conflicts != workers-1 || failures != 0 {
		t.Errorf("created=%d conflicts=%d failures=%d", created, conflicts, failures)
	}
	if n := countRows(db, &models.FavoriteEvent{}); n != 1 {
		t.Errorf("favorite rows = %d, want 1", n)
	}
}

// A row inserted between the existence check and the insert is caught by the
// unique index and still reported as a conflict.
func TestRelationCreateDuplicateKeyIsConflict(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	alice := dbtest.CreateUser(t, db, "alice")
	bob := dbtest.CreateUser(t, db, "bob")
	acts := dbtest.CreateActivities(t, db, "Hiking")
	ev := createEvent(t, db, bob, "Walk", time.Now().Add(time.Hour), acts[0].ID)

	var once sync.Once
	err := db.Callback().Create().Before("gorm:begin_transaction").Register("test:concurrent_insert", func(tx *gorm.DB) {
		once.Do(func() {
			if err := db.Exec("INSERT INTO favorite_events (user_id, event_id) VALUES (?, ?)", alice.ID, ev.ID).Error; err != nil {
				t.Errorf("concurrent insert: %v", err)
			}
		})
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := NewRelationRepository(db, FavoriteEventKind).Create(ctx, alice.ID, ev.ID); !errors.Is(err, utils.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
	if n := countRows(db, &models.FavoriteEvent{}); n != 1 {
		t.Errorf("favorite rows = %d, want 1", n)
	}
}

func TestRelationCountsAndHeld(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	alice := dbtest.CreateUser(t, db, "alice")
	bob := dbtest.CreateUser(t, db, "bob")
	acts := dbtest.CreateActivities(t, db, "Hiking")
	e1 := createEvent(t, db, bob, "One", time.Now(), acts[0].ID)
	e2 := createEvent(t, db, bob, "Two", time.Now(), acts[0].ID)

	repo := NewRelationRepository(db, ParticipationKind)
	if err := repo.Create(ctx, alice.ID, e1.ID); err != nil {
		t.Fatal(err)
	}

	counts, err := repo.CountByTarget(ctx, []uint{e1.ID, e2.ID})
	if err != nil {
		t.Fatal(err)
	}
	if counts[e1.ID] != 2 || counts[e2.ID] != 1 {
		t.Errorf("counts = %v", counts)
	}

	held, err := repo.Held(ctx, alice.ID, []uint{e1.ID, e2.ID})
	if err != nil {
		t.Fatal(err)
	}
	if !held[e1.ID] || held[e2.ID] {
		t.Errorf("held = %v", held)
	}
	if held, _ := repo.Held(ctx, 0, []uint{e1.ID}); len(held) != 0 {
		t.Errorf("anonymous held = %v", held)
	}
}

func TestEventCreateAddsAuthorParticipation(t *testing.T) {
	db := dbtest.Open(t)
	bob := dbtest.CreateUser(t, db, "bob")
	acts := dbtest.CreateActivities(t, db, "Hiking", "Chess")
	ev := createEvent(t, db, bob, "Walk", time.Now(), acts[0].ID, acts[1].ID, acts[0].ID)

	var parts []models.Participation
	db.Where("event_id = ?", ev.ID).Find(&parts)
	if len(parts) != 1 || parts[0].UserID != bob.ID {
		t.Fatalf("participations = %+v", parts)
	}
	if n := countRows(db, &models.ActivityForEvent{}); n != 2 {
		t.Errorf("activity links = %d, want 2", n)
	}
}

func TestEventCreateUnknownActivityRollsBack(t *testing.T) {
	db := dbtest.Open(t)
	bob := dbtest.CreateUser(t, db, "bob")
	acts := dbtest.CreateActivities(t, db, "Hiking")

	ev := &models.Event{Name: "Walk", Description: "d", Datetime: time.Now().UTC(), Duration: 30, AuthorID: bob.ID}
	err := NewEventRepository(db).Create(context.Background(), ev, &models.Location{Address: "x"}, []uint{acts[0].ID, 999})
	if !errors.Is(err, utils.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
	for _, m := range []interface{}{&models.Event{}, &models.Location{}, &models.Participation{}, &models.ActivityForEvent{}} {
		if n := countRows(db, m); n != 0 {
			t.Errorf("%T rows = %d, want 0", m, n)
		}
	}
}

func TestEventCreateDuplicateNameAuthorDatetime(t *testing.T) {
	db := dbtest.Open(t)
	bob := dbtest.CreateUser(t, db, "bob")
	acts := dbtest.CreateActivities(t, db, "Hiking")
	at := time.Date(2030, 1, 2, 10, 0, 0, 0, time.UTC)
	createEvent(t, db, bob, "Walk", at, acts[0].ID)

	ev := &models.Event{Name: "Walk", Description: "d", Datetime: at, Duration: 30, AuthorID: bob.ID}
	err := NewEventRepository(db).Create(context.Background(), ev, &models.Location{}, []uint{acts[0].ID})
	if !errors.Is(err, utils.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestEventFilters(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	alice := dbtest.CreateUser(t, db, "alice")
	bob := dbtest.CreateUser(t, db, "bob")
	acts := dbtest.CreateActivities(t, db, "Hiking", "Chess")
	now := time.Now().UTC()

	future := createEvent(t, db, bob, "Future hike", now.Add(24*time.Hour), acts[0].ID)
	past := createEvent(t, db, bob, "Past chess", now.Add(-24*time.Hour), acts[1].ID)
	own := createEvent(t, db, alice, "Alice chess", now.Add(48*time.Hour), acts[1].ID)

	if err := NewRelationRepository(db, ParticipationKind).Create(ctx, alice.ID, past.ID); err != nil {
		t.Fatal(err)
	}

	repo := NewEventRepository(db)
	tests := []struct {
		name   string
		filter EventFilter
		want   []uint
	}{
		{"all in datetime desc", EventFilter{}, []uint{own.ID, future.ID, past.ID}},
		{"author", EventFilter{Authors: []string{"bob"}}, []uint{future.ID, past.ID}},
		{"unknown author", EventFilter{Authors: []string{"nobody"}}, nil},
		{"activities", EventFilter{Activities: []string{"Chess"}}, []uint{own.ID, past.ID}},
		{"actual", EventFilter{ActualEvent: true, Now: now}, []uint{own.ID, future.ID}},
		{"past", EventFilter{PastEvent: true, Now: now}, []uint{past.ID}},
		{"my participation", EventFilter{ViewerID: alice.ID, InMyParticipationList: true}, []uint{own.ID, past.ID}},
		{"actual participation", EventFilter{ViewerID: alice.ID, ActualParticipation: true, Now: now}, []uint{own.ID}},
		{"past participation", EventFilter{ViewerID: alice.ID, PastParticipation: true, Now: now}, []uint{past.ID}},
		{"anonymous participation is a no-op", EventFilter{InMyParticipationList: true}, []uint{own.ID, future.ID, past.ID}},
		{"combined", EventFilter{Authors: []string{"bob"}, Activities: []string{"Chess"}}, []uint{past.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, total, err := repo.List(ctx, tt.filter, 0, 10)
			if err != nil {
				t.Fatal(err)
			}
			if total != int64(len(tt.want)) {
				t.Errorf("total = %d, want %d", total, len(tt.want))
			}
			got := make([]uint, 0, len(events))
			for _, e := range events {
				got = append(got, e.ID)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ids = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("ids = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestEventListPagination(t *testing.T) {
	db := dbtest.Open(t)
	bob := dbtest.CreateUser(t, db, "bob")
	acts := dbtest.CreateActivities(t, db, "Hiking")
	base := time.Now().UTC()
	for i := 0; i < 12; i++ {
		createEvent(t, db, bob, "Event", base.Add(time.Duration(i)*time.Minute), acts[0].ID)
	}

	events, total, err := NewEventRepository(db).List(context.Background(), EventFilter{}, 10, 10)
	if err != nil {
		t.Fatal(err)
	}
	if total != 12 || len(events) != 2 {
		t.Fatalf("total=%d len=%d", total, len(events))
	}
	if len(events[0].Activities) != 1 || events[0].Author.Username != "bob" {
		t.Errorf("associations not preloaded: %+v", events[0])
	}
}

func TestEventUpdateReplacesActivitiesAndLocation(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	bob := dbtest.CreateUser(t, db, "bob")
	acts := dbtest.CreateActivities(t, db, "Hiking", "Chess")
	ev := createEvent(t, db, bob, "Walk", time.Now(), acts[0].ID)
	oldLocation := ev.LocationID

	name := "Renamed"
	repo := NewEventRepository(db)
	err := repo.Update(ctx, ev, EventUpdate{
		Name:        &name,
		ActivityIDs: []uint{acts[1].ID},
		Location:    &models.Location{Address: "Moscow", Point: "POINT(37.6 55.7)"},
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := repo.Get(ctx, ev.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != name || got.Location.Address != "Moscow" {
		t.Errorf("event = %+v", got)
	}
	if ids := got.ActivityIDs(); len(ids) != 1 || ids[0] != acts[1].ID {
		t.Errorf("activities = %v", ids)
	}
	if err := db.First(&models.Location{}, oldLocation).Error; !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("old location still present: %v", err)
	}
}

func TestEventDeleteCascades(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	alice := dbtest.CreateUser(t, db, "alice")
	bob := dbtest.CreateUser(t, db, "bob")
	acts := dbtest.CreateActivities(t, db, "Hiking")
	ev := createEvent(t, db, bob, "Walk", time.Now(), acts[0].ID)
	keep := createEvent(t, db, alice, "Other", time.Now(), acts[0].ID)

	comment := &models.Comment{EventID: ev.ID, AuthorID: alice.ID, Text: "hi"}
	NewCommentRepository(db).Create(ctx, comment)
	NewRelationRepository(db, LikeKind).Create(ctx, alice.ID, comment.ID)
	NewRelationRepository(db, FavoriteEventKind).Create(ctx, alice.ID, ev.ID)

	if err := NewEventRepository(db).Delete(ctx, ev); err != nil {
		t.Fatal(err)
	}
	for _, m := range []interface{}{&models.Comment{}, &models.Like{}, &models.FavoriteEvent{}} {
		if n := countRows(db, m); n != 0 {
			t.Errorf("%T rows = %d, want 0", m, n)
		}
	}
	if n := countRows(db, &models.Event{}); n != 1 {
		t.Errorf("events = %d, want 1", n)
	}
	if n := countRows(db, &models.Participation{}); n != 1 {
		t.Errorf("participations = %d, want 1 (other event's author)", n)
	}
	if n := countRows(db, &models.Location{}); n != 1 {
		t.Errorf("locations = %d, want 1", n)
	}
	_ = keep
}

func TestUserDeleteCascades(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	alice := dbtest.CreateUser(t, db, "alice")
	bob := dbtest.CreateUser(t, db, "bob")
	acts := dbtest.CreateActivities(t, db, "Hiking")
	bobsEvent := createEvent(t, db, bob, "Walk", time.Now(), acts[0].ID)

	NewRelationRepository(db, SubscribeKind).Create(ctx, alice.ID, bob.ID)
	NewRelationRepository(db, SubscribeKind).Create(ctx, bob.ID, alice.ID)
	NewRelationRepository(db, FavoriteActivityKind).Create(ctx, bob.ID, acts[0].ID)
	NewRelationRepository(db, ParticipationKind).Create(ctx, alice.ID, bobsEvent.ID)

	users := NewUserRepository(db)
	if err := users.Delete(ctx, bob); err != nil {
		t.Fatal(err)
	}
	for _, m := range []interface{}{&models.Event{}, &models.Subscribe{}, &models.FavoriteActivity{}, &models.Participation{}} {
		if n := countRows(db, m); n != 0 {
			t.Errorf("%T rows = %d, want 0", m, n)
		}
	}
	if _, err := users.Get(ctx, alice.ID); err != nil {
		t.Errorf("alice was removed: %v", err)
	}
}

func TestUserUpdateProfileReplacesActivities(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	alice := dbtest.CreateUser(t, db, "alice")
	acts := dbtest.CreateActivities(t, db, "Hiking", "Chess", "Yoga")
	users := NewUserRepository(db)

	bio := "hello"
	if err := users.UpdateProfile(ctx, alice, ProfileUpdate{Bio: &bio, ActivityIDs: []uint{acts[0].ID, acts[1].ID}, ReplaceActivities: true}); err != nil {
		t.Fatal(err)
	}
	if err := users.UpdateProfile(ctx, alice, ProfileUpdate{ActivityIDs: []uint{acts[2].ID}, ReplaceActivities: true}); err != nil {
		t.Fatal(err)
	}
	got, err := users.Get(ctx, alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Bio == nil || *got.Bio != bio {
		t.Errorf("bio = %v", got.Bio)
	}
	if len(got.Activities) != 1 || got.Activities[0].ID != acts[2].ID {
		t.Errorf("activities = %+v", got.Activities)
	}
}

func TestUserCreateDuplicate(t *testing.T) {
	db := dbtest.Open(t)
	dbtest.CreateUser(t, db, "alice")
	dup := &models.User{Username: "alice", Email: "other@example.com", PhoneNumber: "+700", Password: "x"}
	if err := NewUserRepository(db).Create(context.Background(), dup); !errors.Is(err, utils.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestDeleteExpiredInactive(t *testing.T) {
	db := dbtest.Open(t)
	now := time.Now().UTC()
	expired := now.Add(-time.Hour)
	pending := now.Add(time.Hour)
	db.Create(&models.User{Username: "old", Email: "old@x.io", PhoneNumber: "1", Password: "x", ActivationExpires: &expired})
	db.Create(&models.User{Username: "new", Email: "new@x.io", PhoneNumber: "2", Password: "x", ActivationExpires: &pending})
	dbtest.CreateUser(t, db, "active")

	n, err := NewUserRepository(db).DeleteExpiredInactive(context.Background(), now)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("removed = %d, want 1", n)
	}
	if c := countRows(db, &models.User{}); c != 2 {
		t.Errorf("users = %d, want 2", c)
	}
}

func TestActivityPrefixFilter(t *testing.T) {
	db := dbtest.Open(t)
	dbtest.CreateActivities(t, db, "Hiking", "Hockey", "Chess", "100% fun", "100 metres")
	repo := NewActivityRepository(db)

	tests := []struct {
		prefix string
		want   []string
	}{
		{"", []string{"100 metres", "100% fun", "Chess", "Hiking", "Hockey"}},
		{"H", []string{"Hiking", "Hockey"}},
		{"Hi", []string{"Hiking"}},
		{"100%", []string{"100% fun"}},
		{"_", nil},
	}
	for _, tt := range tests {
		got, err := repo.List(context.Background(), tt.prefix)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("prefix %q: got %+v, want %v", tt.prefix, got, tt.want)
		}
		for i := range got {
			if got[i].Name != tt.want[i] {
				t.Errorf("prefix %q: got %+v, want %v", tt.prefix, got, tt.want)
			}
		}
	}
}

func countRows(db *gorm.DB, model interface{}) int64 {
	var n int64
	db.Model(model).Count(&n)
	return n
}

func TestCommentLatestPerEvent(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	bob := dbtest.CreateUser(t, db, "bob")
	acts := dbtest.CreateActivities(t, db, "Hiking")
	busy := createEvent(t, db, bob, "Busy", time.Now().Add(time.Hour), acts[0].ID)
	quiet := createEvent(t, db, bob, "Quiet", time.Now().Add(time.Hour), acts[0].ID)
	empty := createEvent(t, db, bob, "Empty", time.Now().Add(time.Hour), acts[0].ID)

	repo := NewCommentRepository(db)
	var busyIDs []uint
	for _, text := range []string{"a", "b", "c", "d", "e"} {
		c := &models.Comment{EventID: busy.ID, AuthorID: bob.ID, Text: text}
		if err := repo.Create(ctx, c); err != nil {
			t.Fatal(err)
		}
		busyIDs = append(busyIDs, c.ID)
	}
	if err := repo.Create(ctx, &models.Comment{EventID: quiet.ID, AuthorID: bob.ID, Text: "only"}); err != nil {
		t.Fatal(err)
	}

	latest, err := repo.Latest(ctx, []uint{busy.ID, quiet.ID, empty.ID}, 3)
	if err != nil {
		t.Fatal(err)
	}

	got := latest[busy.ID]
	if len(got) != 3 {
		t.Fatalf("busy comments = %d, want 3", len(got))
	}
	for i, want := range []uint{busyIDs[4], busyIDs[3], busyIDs[2]} {
		if got[i].ID != want {
			t.Errorf("busy[%d] = %d, want %d", i, got[i].ID, want)
		}
	}
	if got[0].Author.Username != "bob" {
		t.Errorf("author not preloaded: %+v", got[0].Author)
	}
	if len(latest[quiet.ID]) != 1 || latest[quiet.ID][0].Text != "only" {
		t.Errorf("quiet comments = %+v", latest[quiet.ID])
	}
	if len(latest[empty.ID]) != 0 {
		t.Errorf("empty comments = %+v", latest[empty.ID])
	}
}
