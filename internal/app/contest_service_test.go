package app_test

import (
	"context"
	"testing"
	"time"

	"quizhub/internal/app"
	"quizhub/internal/domain"
	"quizhub/internal/infra/memory"
)

func newContestService(t *testing.T) (*app.ContestService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return app.NewContestService(store), store
}

func seedContest(t *testing.T, store *memory.Store, id string, start, end time.Time) domain.Contest {
	t.Helper()
	contest := domain.Contest{
		ID:          id,
		Title:       "Weekly Challenge",
		Description: "compete",
		StartTime:   start,
		EndTime:     end,
		Difficulty:  domain.DifficultyIntermediate,
		Prize:       750,
		CreatedBy:   "creator-1",
		CreatedAt:   time.Now(),
	}
	if _, err := store.CreateContest(context.Background(), contest); err != nil {
		t.Fatalf("seed contest: %v", err)
	}
	return contest
}

func TestRegisterForContest(t *testing.T) {
	ctx := context.Background()
	service, store := newContestService(t)
	contest := seedContest(t, store, "con-1", time.Now().Add(time.Hour), time.Now().Add(2*time.Hour))

	reg, err := service.Register(ctx, contest.ID, "u1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.ContestID != contest.ID || reg.UserID != "u1" {
		t.Fatalf("unexpected registration: %+v", reg)
	}

	_, err = service.Register(ctx, contest.ID, "u1")
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict on duplicate registration, got %v", err)
	}

	got, err := service.GetContest(ctx, contest.ID)
	if err != nil {
		t.Fatalf("get contest: %v", err)
	}
	if got.Registered != 1 {
		t.Fatalf("expected 1 registration counted, got %d", got.Registered)
	}
}

func TestRegisterClosedAfterStart(t *testing.T) {
	ctx := context.Background()
	service, store := newContestService(t)
	contest := seedContest(t, store, "con-2", time.Now().Add(-time.Hour), time.Now().Add(time.Hour))

	_, err := service.Register(ctx, contest.ID, "u1")
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error for started contest, got %v", err)
	}
}

func TestRegisterUnknownContest(t *testing.T) {
	service, _ := newContestService(t)

	_, err := service.Register(context.Background(), "missing", "u1")
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestContestBookmarkToggle(t *testing.T) {
	ctx := context.Background()
	service, store := newContestService(t)
	contest := seedContest(t, store, "con-bm", time.Now().Add(time.Hour), time.Now().Add(2*time.Hour))

	// Bookmarking requires a registration to hang the flag on.
	_, err := service.ToggleBookmark(ctx, contest.ID, "u1")
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error for unregistered user, got %v", err)
	}

	if _, err := service.Register(ctx, contest.ID, "u1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	reg, err := service.ToggleBookmark(ctx, contest.ID, "u1")
	if err != nil || !reg.IsBookmarked {
		t.Fatalf("first toggle: bookmarked=%v err=%v", reg.IsBookmarked, err)
	}
	reg, err = service.ToggleBookmark(ctx, contest.ID, "u1")
	if err != nil || reg.IsBookmarked {
		t.Fatalf("second toggle: bookmarked=%v err=%v", reg.IsBookmarked, err)
	}
}

func TestContestMutationAuthz(t *testing.T) {
	ctx := context.Background()
	service, store := newContestService(t)
	contest := seedContest(t, store, "con-3", time.Now().Add(time.Hour), time.Now().Add(2*time.Hour))

	in := app.ContestInput{
		Title: "Renamed", Description: "still competing",
		StartTime: contest.StartTime, EndTime: contest.EndTime,
		Difficulty: contest.Difficulty, Prize: contest.Prize,
	}

	_, err := service.UpdateContest(ctx, domain.Identity{UserID: "stranger"}, contest.ID, in)
	if domain.KindOf(err) != domain.KindAuthorization {
		t.Fatalf("expected authorization error for stranger, got %v", err)
	}

	updated, err := service.UpdateContest(ctx, domain.Identity{UserID: "creator-1"}, contest.ID, in)
	if err != nil {
		t.Fatalf("creator update: %v", err)
	}
	if updated.Title != "Renamed" {
		t.Fatalf("title not updated: %q", updated.Title)
	}

	if err := service.DeleteContest(ctx, domain.Identity{UserID: "stranger"}, contest.ID); domain.KindOf(err) != domain.KindAuthorization {
		t.Fatalf("expected authorization error for stranger delete, got %v", err)
	}
	if err := service.DeleteContest(ctx, domain.Identity{UserID: "someone", IsAdmin: true}, contest.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if _, err := service.GetContest(ctx, contest.ID); !domain.IsNotFound(err) {
		t.Fatalf("expected contest gone, got %v", err)
	}
}

func TestCreateContestValidation(t *testing.T) {
	ctx := context.Background()
	service, _ := newContestService(t)
	start := time.Now().Add(time.Hour)

	cases := []struct {
		name string
		in   app.ContestInput
	}{
		{"missing title", app.ContestInput{Description: "d", StartTime: start, EndTime: start.Add(time.Hour), Difficulty: domain.DifficultyBeginner}},
		{"missing times", app.ContestInput{Title: "t", Description: "d", Difficulty: domain.DifficultyBeginner}},
		{"end before start", app.ContestInput{Title: "t", Description: "d", StartTime: start, EndTime: start.Add(-time.Hour), Difficulty: domain.DifficultyBeginner}},
		{"bad difficulty", app.ContestInput{Title: "t", Description: "d", StartTime: start, EndTime: start.Add(time.Hour), Difficulty: "Legendary"}},
		{"negative prize", app.ContestInput{Title: "t", Description: "d", StartTime: start, EndTime: start.Add(time.Hour), Difficulty: domain.DifficultyExpert, Prize: -1}},
	}
	for _, tc := range cases {
		if _, err := service.CreateContest(ctx, "admin", tc.in); !domain.IsValidation(err) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestListContestsStatusFilter(t *testing.T) {
	ctx := context.Background()
	service, store := newContestService(t)
	now := time.Now()

	seedContest(t, store, "past", now.Add(-3*time.Hour), now.Add(-2*time.Hour))
	seedContest(t, store, "ongoing", now.Add(-time.Hour), now.Add(time.Hour))
	seedContest(t, store, "upcoming", now.Add(time.Hour), now.Add(2*time.Hour))

	for _, status := range []string{"past", "ongoing", "upcoming"} {
		contests, err := service.ListContests(ctx, app.ContestFilter{Status: status})
		if err != nil {
			t.Fatalf("list %s: %v", status, err)
		}
		if len(contests) != 1 || contests[0].ID != status {
			t.Fatalf("status %q: expected only %q, got %+v", status, status, contests)
		}
	}

	all, err := service.ListContests(ctx, app.ContestFilter{})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 contests, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].StartTime.After(all[i].StartTime) {
			t.Fatalf("default sort must be start time ascending: %+v", all)
		}
	}
}

func TestListContestsPrizeFilter(t *testing.T) {
	ctx := context.Background()
	service, store := newContestService(t)
	now := time.Now()

	small := seedContest(t, store, "small", now.Add(time.Hour), now.Add(2*time.Hour))
	small.Prize = 100
	if _, err := store.UpdateContest(ctx, small); err != nil {
		t.Fatalf("update: %v", err)
	}
	big := seedContest(t, store, "big", now.Add(time.Hour), now.Add(2*time.Hour))
	big.Prize = 5000
	if _, err := store.UpdateContest(ctx, big); err != nil {
		t.Fatalf("update: %v", err)
	}

	contests, err := service.ListContests(ctx, app.ContestFilter{Prize: app.PrizeUnder500})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(contests) != 1 || contests[0].ID != "small" {
		t.Fatalf("prize filter lt500: %+v", contests)
	}

	contests, err = service.ListContests(ctx, app.ContestFilter{Prize: app.PrizeOver1K})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(contests) != 1 || contests[0].ID != "big" {
		t.Fatalf("prize filter gt1000: %+v", contests)
	}
}
