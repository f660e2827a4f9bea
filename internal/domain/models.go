package domain

import "time"

// Quiz difficulty levels accepted at creation time.
const (
	DifficultyBeginner     = "Beginner"
	DifficultyIntermediate = "Intermediate"
	DifficultyAdvanced     = "Advanced"
	DifficultyExpert       = "Expert" // contests only
)

// DefaultTimeLimit is applied when a quiz is created without one (minutes).
const DefaultTimeLimit = 15

// ValidQuizDifficulty reports whether s is an allowed quiz difficulty.
func ValidQuizDifficulty(s string) bool {
	return s == DifficultyBeginner || s == DifficultyIntermediate || s == DifficultyAdvanced
}

// ValidContestDifficulty reports whether s is an allowed contest difficulty.
func ValidContestDifficulty(s string) bool {
	return ValidQuizDifficulty(s) || s == DifficultyExpert
}

// Identity is the authenticated caller, trusted as-is by the core.
type Identity struct {
	UserID  string
	IsAdmin bool
}

// User is a platform account. PasswordHash never leaves the backend.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"isAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Question is a single multiple-choice item. CorrectAnswer is a zero-based
// index into Options.
type Question struct {
	ID            string   `json:"id"`
	QuizID        string   `json:"quizId"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
	Position      int      `json:"position"`
}

// Quiz is a named, timed collection of questions with catalog metadata.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Difficulty  string     `json:"difficulty"`
	Category    string     `json:"category"`
	TimeLimit   int        `json:"timeLimit"` // minutes
	IsFeatured  bool       `json:"isFeatured"`
	Enrolled    int        `json:"enrolled"`
	Rating      float64    `json:"rating"`
	CreatedBy   string     `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	Questions   []Question `json:"questions"`
	Creator     *User      `json:"creator,omitempty"` // admin listing only
}

// Answer is one entry of a submitted answer set.
type Answer struct {
	QuestionID     string `json:"questionId"`
	SelectedOption int    `json:"selectedOption"`
}

// AnswerRecord is the graded form of an Answer, frozen into a QuizResult.
type AnswerRecord struct {
	QuestionID     string `json:"questionId"`
	SelectedOption int    `json:"selectedOption"`
	IsCorrect      bool   `json:"isCorrect"`
}

// QuizResult is the immutable record of one submission's grading outcome.
type QuizResult struct {
	ID             string         `json:"id"`
	UserID         string         `json:"userId"`
	QuizID         string         `json:"quizId"`
	Score          int            `json:"score"`
	TotalQuestions int            `json:"totalQuestions"`
	TimeTaken      int            `json:"timeTaken"` // seconds
	Answers        []AnswerRecord `json:"answers"`
	CreatedAt      time.Time      `json:"createdAt"`
	Quiz           *Quiz          `json:"quiz,omitempty"` // user history only
}

// Bookmark is a user's saved-for-later marker on a quiz, unique per
// (user, quiz) pair.
type Bookmark struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	QuizID    string    `json:"quizId"`
	CreatedAt time.Time `json:"createdAt"`
	Quiz      *Quiz     `json:"quiz,omitempty"`
}

// Contest is a timed competition users register for before it starts.
type Contest struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	Difficulty  string    `json:"difficulty"`
	Prize       int       `json:"prize"`
	Rules       []string  `json:"rules"`
	Tags        []string  `json:"tags"`
	IsFeatured  bool      `json:"isFeatured"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	Registered  int       `json:"registered"`
}

// Registration records one user's entry into a contest, unique per
// (contest, user) pair. IsBookmarked is the user's saved-for-later flag on
// their own registration.
type Registration struct {
	ID           string    `json:"id"`
	ContestID    string    `json:"contestId"`
	UserID       string    `json:"userId"`
	RegisteredAt time.Time `json:"registeredAt"`
	IsBookmarked bool      `json:"isBookmarked"`
	Submission   string    `json:"submission"`
	Score        int       `json:"score"`
}
