package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"quizhub/internal/domain"
)

// FeaturedLimit caps the featured quiz listing.
const FeaturedLimit = 3

// QuizFilter narrows and orders the quiz catalog. Search matches title OR
// description, case-insensitive substring. Difficulty and category are exact
// matches, AND-combined with search. Sort is one of "rating", "newest" or
// "popular" (default). Ties beyond the sort key keep the store's natural
// order, which is not a defined total order.
type QuizFilter struct {
	Search     string
	Difficulty string
	Category   string
	Sort       string
}

// QuizStore abstracts how quizzes, results and bookmarks are persisted
// (Postgres in production, in-memory for tests).
type QuizStore interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	ListQuizzes(ctx context.Context, f QuizFilter) ([]domain.Quiz, error)
	FeaturedQuizzes(ctx context.Context, limit int) ([]domain.Quiz, error)
	AdminListQuizzes(ctx context.Context) ([]domain.Quiz, error)
	// CreateQuiz persists the quiz and its inline questions in one
	// transaction; a failure leaves no orphaned questions behind.
	CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error)
	// UpdateQuiz persists quiz metadata and, when replaceQuestions is set,
	// swaps the whole question set (delete-all-then-recreate) in the same
	// transaction.
	UpdateQuiz(ctx context.Context, quiz domain.Quiz, replaceQuestions bool) (domain.Quiz, error)
	// DeleteQuiz removes bookmarks, results, questions and finally the quiz
	// itself in one transaction, least-authoritative first.
	DeleteQuiz(ctx context.Context, quizID string) error
	SetFeatured(ctx context.Context, quizID string, featured bool) error

	// CreateResult persists the result and increments the quiz enrolled
	// counter with an atomic field-level increment in the same transaction.
	CreateResult(ctx context.Context, result domain.QuizResult) (domain.QuizResult, error)
	HasResult(ctx context.Context, userID, quizID string) (bool, error)
	ResultsForUser(ctx context.Context, userID string) ([]domain.QuizResult, error)

	FindBookmark(ctx context.Context, userID, quizID string) (domain.Bookmark, bool, error)
	// CreateBookmark relies on the store-level unique (user, quiz) index and
	// returns a conflict error when a concurrent create wins the race.
	CreateBookmark(ctx context.Context, b domain.Bookmark) (domain.Bookmark, error)
	DeleteBookmark(ctx context.Context, bookmarkID string) error
	BookmarksForUser(ctx context.Context, userID string) ([]domain.Bookmark, error)
}

// QuizService contains the quiz catalog, lifecycle, bookmark and scoring
// use cases.
type QuizService struct {
	store       QuizStore
	allowRetake bool
	now         func() time.Time
}

func NewQuizService(store QuizStore, allowRetake bool) *QuizService {
	return &QuizService{store: store, allowRetake: allowRetake, now: time.Now}
}

// QuestionInput is the authoring form of a question.
type QuestionInput struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// QuizInput is the authoring form of a quiz.
type QuizInput struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Difficulty  string          `json:"difficulty"`
	TimeLimit   int             `json:"timeLimit"`
	IsFeatured  bool            `json:"isFeatured"`
	Questions   []QuestionInput `json:"questions"`
}

// QuizUpdate carries optional quiz edits. Zero-valued fields keep the stored
// value; a non-empty Questions slice replaces the whole question set.
type QuizUpdate struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Difficulty  string          `json:"difficulty"`
	TimeLimit   int             `json:"timeLimit"`
	IsFeatured  *bool           `json:"isFeatured"`
	Questions   []QuestionInput `json:"questions"`
}

func (s *QuizService) ListQuizzes(ctx context.Context, f QuizFilter) ([]domain.Quiz, error) {
	return s.store.ListQuizzes(ctx, f)
}

func (s *QuizService) FeaturedQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	return s.store.FeaturedQuizzes(ctx, FeaturedLimit)
}

func (s *QuizService) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return s.store.GetQuiz(ctx, quizID)
}

func (s *QuizService) AdminListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	return s.store.AdminListQuizzes(ctx)
}

// CreateQuiz validates the authoring input and persists the quiz together
// with its questions.
func (s *QuizService) CreateQuiz(ctx context.Context, creatorID string, in QuizInput) (domain.Quiz, error) {
	if in.Title == "" || in.Description == "" || in.Category == "" || in.Difficulty == "" {
		return domain.Quiz{}, domain.Validation("title, description, category and difficulty are required")
	}
	if !domain.ValidQuizDifficulty(in.Difficulty) {
		return domain.Quiz{}, domain.Validation("difficulty must be one of Beginner, Intermediate, Advanced")
	}
	if len(in.Questions) == 0 {
		return domain.Quiz{}, domain.Validation("a quiz needs at least one question")
	}

	quizID := uuid.NewString()
	questions, err := buildQuestions(quizID, in.Questions)
	if err != nil {
		return domain.Quiz{}, err
	}

	timeLimit := in.TimeLimit
	if timeLimit <= 0 {
		timeLimit = domain.DefaultTimeLimit
	}
	quiz := domain.Quiz{
		ID:          quizID,
		Title:       in.Title,
		Description: in.Description,
		Difficulty:  in.Difficulty,
		Category:    in.Category,
		TimeLimit:   timeLimit,
		IsFeatured:  in.IsFeatured,
		CreatedBy:   creatorID,
		CreatedAt:   s.now(),
		Questions:   questions,
	}
	return s.store.CreateQuiz(ctx, quiz)
}

// UpdateQuiz applies partial edits; a provided question set replaces the
// stored one wholesale.
func (s *QuizService) UpdateQuiz(ctx context.Context, quizID string, up QuizUpdate) (domain.Quiz, error) {
	quiz, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}

	if up.Title != "" {
		quiz.Title = up.Title
	}
	if up.Description != "" {
		quiz.Description = up.Description
	}
	if up.Category != "" {
		quiz.Category = up.Category
	}
	if up.Difficulty != "" {
		if !domain.ValidQuizDifficulty(up.Difficulty) {
			return domain.Quiz{}, domain.Validation("difficulty must be one of Beginner, Intermediate, Advanced")
		}
		quiz.Difficulty = up.Difficulty
	}
	if up.TimeLimit > 0 {
		quiz.TimeLimit = up.TimeLimit
	}
	if up.IsFeatured != nil {
		quiz.IsFeatured = *up.IsFeatured
	}

	replace := len(up.Questions) > 0
	if replace {
		questions, err := buildQuestions(quiz.ID, up.Questions)
		if err != nil {
			return domain.Quiz{}, err
		}
		quiz.Questions = questions
	}
	return s.store.UpdateQuiz(ctx, quiz, replace)
}

func (s *QuizService) DeleteQuiz(ctx context.Context, quizID string) error {
	return s.store.DeleteQuiz(ctx, quizID)
}

// ToggleFeatured flips the featured flag and returns the new state.
func (s *QuizService) ToggleFeatured(ctx context.Context, quizID string) (bool, error) {
	quiz, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return false, err
	}
	featured := !quiz.IsFeatured
	if err := s.store.SetFeatured(ctx, quizID, featured); err != nil {
		return false, err
	}
	return featured, nil
}

// ToggleBookmark flips bookmark presence for (user, quiz) and reports the
// resulting state. A concurrent duplicate create is translated to
// "already bookmarked" rather than surfaced as a conflict.
func (s *QuizService) ToggleBookmark(ctx context.Context, quizID, userID string) (bool, error) {
	if _, err := s.store.GetQuiz(ctx, quizID); err != nil {
		return false, err
	}

	existing, found, err := s.store.FindBookmark(ctx, userID, quizID)
	if err != nil {
		return false, err
	}
	if found {
		err := s.store.DeleteBookmark(ctx, existing.ID)
		if err != nil && !domain.IsNotFound(err) {
			return false, err
		}
		// A missing row means a concurrent toggle already removed it; the
		// bookmark is gone either way.
		return false, nil
	}

	_, err = s.store.CreateBookmark(ctx, domain.Bookmark{
		ID:        uuid.NewString(),
		UserID:    userID,
		QuizID:    quizID,
		CreatedAt: s.now(),
	})
	if err != nil {
		if domain.IsConflict(err) {
			// Lost the race against another toggle; the bookmark exists.
			return true, nil
		}
		return false, err
	}
	return true, nil
}

// SubmitResult grades a submitted answer set against the quiz's question set,
// persists an immutable result and bumps the quiz enrolled counter.
//
// Grading is lenient about the selected option: any value that does not equal
// the question's correct index - including negative or out-of-range ones -
// grades as incorrect. A question id that does not belong to the quiz, or one
// submitted more than once, fails the whole submission and persists nothing.
func (s *QuizService) SubmitResult(ctx context.Context, quizID, userID string, answers []domain.Answer, timeTaken int) (domain.QuizResult, error) {
	if timeTaken < 0 {
		return domain.QuizResult{}, domain.Validation("timeTaken must not be negative")
	}

	quiz, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizResult{}, err
	}

	if !s.allowRetake {
		taken, err := s.store.HasResult(ctx, userID, quizID)
		if err != nil {
			return domain.QuizResult{}, err
		}
		if taken {
			return domain.QuizResult{}, domain.Conflict("quiz %s already submitted", quizID)
		}
	}

	byID := make(map[string]domain.Question, len(quiz.Questions))
	for _, q := range quiz.Questions {
		byID[q.ID] = q
	}

	score := 0
	records := make([]domain.AnswerRecord, 0, len(answers))
	graded := make(map[string]bool, len(answers))
	for _, a := range answers {
		question, ok := byID[a.QuestionID]
		if !ok {
			return domain.QuizResult{}, domain.Validation("question %s is not part of quiz %s", a.QuestionID, quizID)
		}
		// Each question scores at most once; repeats would let score exceed
		// totalQuestions.
		if graded[a.QuestionID] {
			return domain.QuizResult{}, domain.Validation("question %s submitted more than once", a.QuestionID)
		}
		graded[a.QuestionID] = true
		correct := a.SelectedOption == question.CorrectAnswer
		if correct {
			score++
		}
		records = append(records, domain.AnswerRecord{
			QuestionID:     a.QuestionID,
			SelectedOption: a.SelectedOption,
			IsCorrect:      correct,
		})
	}

	result := domain.QuizResult{
		ID:             uuid.NewString(),
		UserID:         userID,
		QuizID:         quizID,
		Score:          score,
		TotalQuestions: len(quiz.Questions),
		TimeTaken:      timeTaken,
		Answers:        records,
		CreatedAt:      s.now(),
	}
	return s.store.CreateResult(ctx, result)
}

func (s *QuizService) ResultsForUser(ctx context.Context, userID string) ([]domain.QuizResult, error) {
	return s.store.ResultsForUser(ctx, userID)
}

func (s *QuizService) BookmarksForUser(ctx context.Context, userID string) ([]domain.Bookmark, error) {
	return s.store.BookmarksForUser(ctx, userID)
}

func buildQuestions(quizID string, inputs []QuestionInput) ([]domain.Question, error) {
	questions := make([]domain.Question, 0, len(inputs))
	for i, in := range inputs {
		if in.Text == "" {
			return nil, domain.Validation("question %d needs text", i+1)
		}
		if len(in.Options) < 2 {
			return nil, domain.Validation("question %d needs at least two options", i+1)
		}
		if in.CorrectAnswer < 0 || in.CorrectAnswer >= len(in.Options) {
			return nil, domain.Validation("question %d: correctAnswer %d is not a valid option index", i+1, in.CorrectAnswer)
		}
		questions = append(questions, domain.Question{
			ID:            uuid.NewString(),
			QuizID:        quizID,
			Text:          in.Text,
			Options:       in.Options,
			CorrectAnswer: in.CorrectAnswer,
			Explanation:   in.Explanation,
			Position:      i,
		})
	}
	return questions, nil
}
