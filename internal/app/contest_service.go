package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"quizhub/internal/domain"
)

// Contest prize filter bands, mirroring the catalog's query parameters.
const (
	PrizeUnder500 = "lt500"
	Prize500To1K  = "500-1000"
	PrizeOver1K   = "gt1000"
)

// ContestFilter narrows and orders the contest listing. Status is one of
// "upcoming", "ongoing" or "past" relative to Now; Sort is "prize",
// "popularity" (registration count) or default start-time ascending.
type ContestFilter struct {
	Status     string
	Search     string
	Difficulty string
	Prize      string
	Sort       string
	Now        time.Time
}

// ContestStore abstracts contest and registration persistence.
type ContestStore interface {
	GetContest(ctx context.Context, contestID string) (domain.Contest, error)
	ListContests(ctx context.Context, f ContestFilter) ([]domain.Contest, error)
	CreateContest(ctx context.Context, c domain.Contest) (domain.Contest, error)
	UpdateContest(ctx context.Context, c domain.Contest) (domain.Contest, error)
	// DeleteContest removes the contest and its registrations in one
	// transaction.
	DeleteContest(ctx context.Context, contestID string) error
	// CreateRegistration relies on the store-level unique (contest, user)
	// index and returns a conflict error on a duplicate.
	CreateRegistration(ctx context.Context, r domain.Registration) (domain.Registration, error)
	FindRegistration(ctx context.Context, contestID, userID string) (domain.Registration, bool, error)
	UpdateRegistration(ctx context.Context, r domain.Registration) (domain.Registration, error)
}

// ContestService contains contest catalog, lifecycle and registration
// use cases.
type ContestService struct {
	store ContestStore
	now   func() time.Time
}

func NewContestService(store ContestStore) *ContestService {
	return &ContestService{store: store, now: time.Now}
}

// ContestInput is the authoring form of a contest.
type ContestInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	Difficulty  string    `json:"difficulty"`
	Prize       int       `json:"prize"`
	Rules       []string  `json:"rules"`
	Tags        []string  `json:"tags"`
	IsFeatured  bool      `json:"isFeatured"`
}

func (s *ContestService) ListContests(ctx context.Context, f ContestFilter) ([]domain.Contest, error) {
	if f.Now.IsZero() {
		f.Now = s.now()
	}
	return s.store.ListContests(ctx, f)
}

func (s *ContestService) GetContest(ctx context.Context, contestID string) (domain.Contest, error) {
	return s.store.GetContest(ctx, contestID)
}

func (s *ContestService) CreateContest(ctx context.Context, creatorID string, in ContestInput) (domain.Contest, error) {
	if err := validateContestInput(in); err != nil {
		return domain.Contest{}, err
	}
	return s.store.CreateContest(ctx, domain.Contest{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		Difficulty:  in.Difficulty,
		Prize:       in.Prize,
		Rules:       in.Rules,
		Tags:        in.Tags,
		IsFeatured:  in.IsFeatured,
		CreatedBy:   creatorID,
		CreatedAt:   s.now(),
	})
}

// UpdateContest replaces contest content. Only the creator or an admin may
// mutate a contest.
func (s *ContestService) UpdateContest(ctx context.Context, caller domain.Identity, contestID string, in ContestInput) (domain.Contest, error) {
	contest, err := s.store.GetContest(ctx, contestID)
	if err != nil {
		return domain.Contest{}, err
	}
	if contest.CreatedBy != caller.UserID && !caller.IsAdmin {
		return domain.Contest{}, domain.Unauthorized("not allowed to update this contest")
	}
	if err := validateContestInput(in); err != nil {
		return domain.Contest{}, err
	}

	contest.Title = in.Title
	contest.Description = in.Description
	contest.StartTime = in.StartTime
	contest.EndTime = in.EndTime
	contest.Difficulty = in.Difficulty
	contest.Prize = in.Prize
	contest.Rules = in.Rules
	contest.Tags = in.Tags
	contest.IsFeatured = in.IsFeatured
	return s.store.UpdateContest(ctx, contest)
}

func (s *ContestService) DeleteContest(ctx context.Context, caller domain.Identity, contestID string) error {
	contest, err := s.store.GetContest(ctx, contestID)
	if err != nil {
		return err
	}
	if contest.CreatedBy != caller.UserID && !caller.IsAdmin {
		return domain.Unauthorized("not allowed to delete this contest")
	}
	return s.store.DeleteContest(ctx, contestID)
}

// Register enters a user into a contest. Registration closes once the
// contest has started; a duplicate registration is a conflict.
func (s *ContestService) Register(ctx context.Context, contestID, userID string) (domain.Registration, error) {
	contest, err := s.store.GetContest(ctx, contestID)
	if err != nil {
		return domain.Registration{}, err
	}
	if !contest.StartTime.After(s.now()) {
		return domain.Registration{}, domain.Validation("contest has already started")
	}
	return s.store.CreateRegistration(ctx, domain.Registration{
		ID:           uuid.NewString(),
		ContestID:    contestID,
		UserID:       userID,
		RegisteredAt: s.now(),
	})
}

// ToggleBookmark flips the bookmark flag on the caller's own registration.
// Only registered users can bookmark a contest.
func (s *ContestService) ToggleBookmark(ctx context.Context, contestID, userID string) (domain.Registration, error) {
	reg, found, err := s.store.FindRegistration(ctx, contestID, userID)
	if err != nil {
		return domain.Registration{}, err
	}
	if !found {
		return domain.Registration{}, domain.Validation("not registered for contest %s", contestID)
	}
	reg.IsBookmarked = !reg.IsBookmarked
	return s.store.UpdateRegistration(ctx, reg)
}

func validateContestInput(in ContestInput) error {
	if in.Title == "" || in.Description == "" {
		return domain.Validation("title and description are required")
	}
	if in.StartTime.IsZero() || in.EndTime.IsZero() {
		return domain.Validation("startTime and endTime are required")
	}
	if !in.EndTime.After(in.StartTime) {
		return domain.Validation("endTime must be after startTime")
	}
	if !domain.ValidContestDifficulty(in.Difficulty) {
		return domain.Validation("difficulty must be one of Beginner, Intermediate, Advanced, Expert")
	}
	if in.Prize < 0 {
		return domain.Validation("prize must not be negative")
	}
	return nil
}
