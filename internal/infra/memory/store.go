// Package memory holds in-process store implementations used by tests and by
// the server when no Postgres URL is configured.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"quizhub/internal/app"
	"quizhub/internal/domain"
)

// Store implements app.QuizStore, app.UserStore and app.ContestStore with
// plain maps behind one mutex. Insertion order stands in for the document
// store's natural order when no sort key applies.
type Store struct {
	mu sync.RWMutex

	quizzes   map[string]domain.Quiz
	quizOrder []string
	results   map[string]domain.QuizResult
	bookmarks map[string]domain.Bookmark
	users     map[string]domain.User

	contests      map[string]domain.Contest
	contestOrder  []string
	registrations map[string]domain.Registration
}

func NewStore() *Store {
	return &Store{
		quizzes:       make(map[string]domain.Quiz),
		results:       make(map[string]domain.QuizResult),
		bookmarks:     make(map[string]domain.Bookmark),
		users:         make(map[string]domain.User),
		contests:      make(map[string]domain.Contest),
		registrations: make(map[string]domain.Registration),
	}
}

func (s *Store) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.NotFound("quiz %s not found", quizID)
	}
	return copyQuiz(quiz), nil
}

func (s *Store) ListQuizzes(_ context.Context, f app.QuizFilter) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Quiz, 0, len(s.quizOrder))
	for _, id := range s.quizOrder {
		quiz := s.quizzes[id]
		if !matchesFilter(quiz, f) {
			continue
		}
		out = append(out, copyQuiz(quiz))
	}

	switch f.Sort {
	case "rating":
		sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	case "newest":
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	default: // popular
		sort.SliceStable(out, func(i, j int) bool { return out[i].Enrolled > out[j].Enrolled })
	}
	return out, nil
}

func matchesFilter(quiz domain.Quiz, f app.QuizFilter) bool {
	if f.Difficulty != "" && quiz.Difficulty != f.Difficulty {
		return false
	}
	if f.Category != "" && quiz.Category != f.Category {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(quiz.Title), needle) &&
			!strings.Contains(strings.ToLower(quiz.Description), needle) {
			return false
		}
	}
	return true
}

func (s *Store) FeaturedQuizzes(_ context.Context, limit int) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Quiz, 0, limit)
	for _, id := range s.quizOrder {
		quiz := s.quizzes[id]
		if quiz.IsFeatured {
			out = append(out, copyQuiz(quiz))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Enrolled > out[j].Enrolled })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) AdminListQuizzes(_ context.Context) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Quiz, 0, len(s.quizOrder))
	for _, id := range s.quizOrder {
		quiz := copyQuiz(s.quizzes[id])
		if creator, ok := s.users[quiz.CreatedBy]; ok {
			c := creator
			quiz.Creator = &c
		}
		out = append(out, quiz)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CreateQuiz(_ context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[quiz.ID] = copyQuiz(quiz)
	s.quizOrder = append(s.quizOrder, quiz.ID)
	return quiz, nil
}

func (s *Store) UpdateQuiz(_ context.Context, quiz domain.Quiz, replaceQuestions bool) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.quizzes[quiz.ID]
	if !ok {
		return domain.Quiz{}, domain.NotFound("quiz %s not found", quiz.ID)
	}
	if !replaceQuestions {
		quiz.Questions = stored.Questions
	}
	quiz.Enrolled = stored.Enrolled
	s.quizzes[quiz.ID] = copyQuiz(quiz)
	return quiz, nil
}

func (s *Store) DeleteQuiz(_ context.Context, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return domain.NotFound("quiz %s not found", quizID)
	}
	for id, b := range s.bookmarks {
		if b.QuizID == quizID {
			delete(s.bookmarks, id)
		}
	}
	for id, r := range s.results {
		if r.QuizID == quizID {
			delete(s.results, id)
		}
	}
	delete(s.quizzes, quizID)
	for i, id := range s.quizOrder {
		if id == quizID {
			s.quizOrder = append(s.quizOrder[:i], s.quizOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) SetFeatured(_ context.Context, quizID string, featured bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.NotFound("quiz %s not found", quizID)
	}
	quiz.IsFeatured = featured
	s.quizzes[quizID] = quiz
	return nil
}

func (s *Store) CreateResult(_ context.Context, result domain.QuizResult) (domain.QuizResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[result.QuizID]
	if !ok {
		return domain.QuizResult{}, domain.NotFound("quiz %s not found", result.QuizID)
	}
	quiz.Enrolled++
	s.quizzes[result.QuizID] = quiz
	s.results[result.ID] = result
	return result, nil
}

func (s *Store) HasResult(_ context.Context, userID, quizID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.results {
		if r.UserID == userID && r.QuizID == quizID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ResultsForUser(_ context.Context, userID string) ([]domain.QuizResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.QuizResult, 0)
	for _, r := range s.results {
		if r.UserID != userID {
			continue
		}
		if quiz, ok := s.quizzes[r.QuizID]; ok {
			q := copyQuiz(quiz)
			r.Quiz = &q
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) FindBookmark(_ context.Context, userID, quizID string) (domain.Bookmark, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.bookmarks {
		if b.UserID == userID && b.QuizID == quizID {
			return b, true, nil
		}
	}
	return domain.Bookmark{}, false, nil
}

func (s *Store) CreateBookmark(_ context.Context, bookmark domain.Bookmark) (domain.Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookmarks {
		if b.UserID == bookmark.UserID && b.QuizID == bookmark.QuizID {
			return domain.Bookmark{}, domain.Conflict("quiz %s already bookmarked", bookmark.QuizID)
		}
	}
	s.bookmarks[bookmark.ID] = bookmark
	return bookmark, nil
}

func (s *Store) DeleteBookmark(_ context.Context, bookmarkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookmarks[bookmarkID]; !ok {
		return domain.NotFound("bookmark %s not found", bookmarkID)
	}
	delete(s.bookmarks, bookmarkID)
	return nil
}

func (s *Store) BookmarksForUser(_ context.Context, userID string) ([]domain.Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Bookmark, 0)
	for _, b := range s.bookmarks {
		if b.UserID != userID {
			continue
		}
		if quiz, ok := s.quizzes[b.QuizID]; ok {
			q := copyQuiz(quiz)
			b.Quiz = &q
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.User) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return domain.User{}, domain.Conflict("user with email %s already exists", user.Email)
		}
	}
	s.users[user.ID] = user
	return user, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, domain.NotFound("user with email %s not found", email)
}

func (s *Store) UserByID(_ context.Context, userID string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.NotFound("user %s not found", userID)
	}
	return u, nil
}

func (s *Store) GetContest(_ context.Context, contestID string) (domain.Contest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	contest, ok := s.contests[contestID]
	if !ok {
		return domain.Contest{}, domain.NotFound("contest %s not found", contestID)
	}
	contest.Registered = s.registrationCountLocked(contestID)
	return contest, nil
}

func (s *Store) ListContests(_ context.Context, f app.ContestFilter) ([]domain.Contest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Contest, 0, len(s.contestOrder))
	for _, id := range s.contestOrder {
		contest := s.contests[id]
		if !matchesContestFilter(contest, f) {
			continue
		}
		contest.Registered = s.registrationCountLocked(id)
		out = append(out, contest)
	}

	switch f.Sort {
	case "prize":
		sort.SliceStable(out, func(i, j int) bool { return out[i].Prize > out[j].Prize })
	case "popularity":
		sort.SliceStable(out, func(i, j int) bool { return out[i].Registered > out[j].Registered })
	default:
		sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	}
	return out, nil
}

func matchesContestFilter(contest domain.Contest, f app.ContestFilter) bool {
	switch f.Status {
	case "upcoming":
		if !contest.StartTime.After(f.Now) {
			return false
		}
	case "ongoing":
		if contest.StartTime.After(f.Now) || contest.EndTime.Before(f.Now) {
			return false
		}
	case "past":
		if !contest.EndTime.Before(f.Now) {
			return false
		}
	}
	if f.Difficulty != "" && contest.Difficulty != f.Difficulty {
		return false
	}
	switch f.Prize {
	case app.PrizeUnder500:
		if contest.Prize >= 500 {
			return false
		}
	case app.Prize500To1K:
		if contest.Prize < 500 || contest.Prize > 1000 {
			return false
		}
	case app.PrizeOver1K:
		if contest.Prize <= 1000 {
			return false
		}
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(contest.Title), needle) &&
			!strings.Contains(strings.ToLower(contest.Description), needle) {
			return false
		}
	}
	return true
}

func (s *Store) CreateContest(_ context.Context, contest domain.Contest) (domain.Contest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contests[contest.ID] = contest
	s.contestOrder = append(s.contestOrder, contest.ID)
	return contest, nil
}

func (s *Store) UpdateContest(_ context.Context, contest domain.Contest) (domain.Contest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contests[contest.ID]; !ok {
		return domain.Contest{}, domain.NotFound("contest %s not found", contest.ID)
	}
	s.contests[contest.ID] = contest
	return contest, nil
}

func (s *Store) DeleteContest(_ context.Context, contestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contests[contestID]; !ok {
		return domain.NotFound("contest %s not found", contestID)
	}
	for id, r := range s.registrations {
		if r.ContestID == contestID {
			delete(s.registrations, id)
		}
	}
	delete(s.contests, contestID)
	for i, id := range s.contestOrder {
		if id == contestID {
			s.contestOrder = append(s.contestOrder[:i], s.contestOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) CreateRegistration(_ context.Context, reg domain.Registration) (domain.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contests[reg.ContestID]; !ok {
		return domain.Registration{}, domain.NotFound("contest %s not found", reg.ContestID)
	}
	for _, r := range s.registrations {
		if r.ContestID == reg.ContestID && r.UserID == reg.UserID {
			return domain.Registration{}, domain.Conflict("already registered for contest %s", reg.ContestID)
		}
	}
	s.registrations[reg.ID] = reg
	return reg, nil
}

func (s *Store) FindRegistration(_ context.Context, contestID, userID string) (domain.Registration, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.registrations {
		if r.ContestID == contestID && r.UserID == userID {
			return r, true, nil
		}
	}
	return domain.Registration{}, false, nil
}

func (s *Store) UpdateRegistration(_ context.Context, reg domain.Registration) (domain.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.registrations[reg.ID]; !ok {
		return domain.Registration{}, domain.NotFound("registration %s not found", reg.ID)
	}
	s.registrations[reg.ID] = reg
	return reg, nil
}

func (s *Store) registrationCountLocked(contestID string) int {
	n := 0
	for _, r := range s.registrations {
		if r.ContestID == contestID {
			n++
		}
	}
	return n
}

// copyQuiz detaches the questions slice so callers cannot mutate stored data.
func copyQuiz(quiz domain.Quiz) domain.Quiz {
	questions := make([]domain.Question, len(quiz.Questions))
	copy(questions, quiz.Questions)
	quiz.Questions = questions
	quiz.Creator = nil
	return quiz
}

// Denylist is an in-memory TokenDenylist for tests and redis-less runs.
type Denylist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	clock   func() time.Time
}

func NewDenylist() *Denylist {
	return &Denylist{revoked: make(map[string]time.Time), clock: time.Now}
}

func (d *Denylist) Revoke(_ context.Context, token string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.revoked[token] = d.clock().Add(ttl)
	return nil
}

func (d *Denylist) IsRevoked(_ context.Context, token string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	until, ok := d.revoked[token]
	if !ok {
		return false, nil
	}
	if d.clock().After(until) {
		delete(d.revoked, token)
		return false, nil
	}
	return true, nil
}
