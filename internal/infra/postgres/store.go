// Package postgres persists the platform's entities with bun. Every store
// round-trip is bounded by a timeout; deadline and connection failures
// surface as unavailable errors, unique-index violations as conflicts.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"quizhub/internal/domain"
)

// Store implements app.QuizStore, app.UserStore and app.ContestStore on top
// of a bun-managed Postgres connection.
type Store struct {
	db      *bun.DB
	timeout time.Duration
}

func NewStore(db *bun.DB, timeout time.Duration) *Store {
	return &Store{db: db, timeout: timeout}
}

// Connect opens a bun DB over the pgdriver connector.
func Connect(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// opCtx bounds a single store round-trip.
func (s *Store) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// wrapErr maps driver failures onto the domain error taxonomy. Errors that
// already carry a kind pass through untouched.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.Unavailable("%s: store timed out, retry later", op)
	}
	return domain.Unavailable("%s: %v", op, err)
}

// isUniqueViolation reports a Postgres unique_violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	return false
}

type userRow struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           string    `bun:"id,pk"`
	Name         string    `bun:"name"`
	Email        string    `bun:"email"`
	PasswordHash string    `bun:"password_hash"`
	IsAdmin      bool      `bun:"is_admin"`
	CreatedAt    time.Time `bun:"created_at"`
}

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes,alias:q"`

	ID          string    `bun:"id,pk"`
	Title       string    `bun:"title"`
	Description string    `bun:"description"`
	Difficulty  string    `bun:"difficulty"`
	Category    string    `bun:"category"`
	TimeLimit   int       `bun:"time_limit"`
	IsFeatured  bool      `bun:"is_featured"`
	Enrolled    int       `bun:"enrolled"`
	Rating      float64   `bun:"rating"`
	CreatedBy   string    `bun:"created_by"`
	CreatedAt   time.Time `bun:"created_at"`

	Questions []*questionRow `bun:"rel:has-many,join:id=quiz_id"`
	Creator   *userRow       `bun:"rel:belongs-to,join:created_by=id"`
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions,alias:qq"`

	ID            string   `bun:"id,pk"`
	QuizID        string   `bun:"quiz_id"`
	Text          string   `bun:"text"`
	Options       []string `bun:"options,type:jsonb"`
	CorrectAnswer int      `bun:"correct_answer"`
	Explanation   string   `bun:"explanation"`
	Position      int      `bun:"position"`
}

type resultRow struct {
	bun.BaseModel `bun:"table:quiz_results,alias:r"`

	ID             string                `bun:"id,pk"`
	UserID         string                `bun:"user_id"`
	QuizID         string                `bun:"quiz_id"`
	Score          int                   `bun:"score"`
	TotalQuestions int                   `bun:"total_questions"`
	TimeTaken      int                   `bun:"time_taken"`
	Answers        []domain.AnswerRecord `bun:"answers,type:jsonb"`
	CreatedAt      time.Time             `bun:"created_at"`

	Quiz *quizRow `bun:"rel:belongs-to,join:quiz_id=id"`
}

type bookmarkRow struct {
	bun.BaseModel `bun:"table:bookmarks,alias:b"`

	ID        string    `bun:"id,pk"`
	UserID    string    `bun:"user_id"`
	QuizID    string    `bun:"quiz_id"`
	CreatedAt time.Time `bun:"created_at"`

	Quiz *quizRow `bun:"rel:belongs-to,join:quiz_id=id"`
}

type contestRow struct {
	bun.BaseModel `bun:"table:contests,alias:c"`

	ID          string    `bun:"id,pk"`
	Title       string    `bun:"title"`
	Description string    `bun:"description"`
	StartTime   time.Time `bun:"start_time"`
	EndTime     time.Time `bun:"end_time"`
	Difficulty  string    `bun:"difficulty"`
	Prize       int       `bun:"prize"`
	Rules       []string  `bun:"rules,type:jsonb"`
	Tags        []string  `bun:"tags,type:jsonb"`
	IsFeatured  bool      `bun:"is_featured"`
	CreatedBy   string    `bun:"created_by"`
	CreatedAt   time.Time `bun:"created_at"`
	Registered  int       `bun:"registered,scanonly"`
}

type registrationRow struct {
	bun.BaseModel `bun:"table:registrations,alias:reg"`

	ID           string    `bun:"id,pk"`
	ContestID    string    `bun:"contest_id"`
	UserID       string    `bun:"user_id"`
	RegisteredAt time.Time `bun:"registered_at"`
	IsBookmarked bool      `bun:"is_bookmarked"`
	Submission   string    `bun:"submission"`
	Score        int       `bun:"score"`
}

func quizFromRow(row *quizRow) domain.Quiz {
	quiz := domain.Quiz{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Difficulty:  row.Difficulty,
		Category:    row.Category,
		TimeLimit:   row.TimeLimit,
		IsFeatured:  row.IsFeatured,
		Enrolled:    row.Enrolled,
		Rating:      row.Rating,
		CreatedBy:   row.CreatedBy,
		CreatedAt:   row.CreatedAt,
		Questions:   make([]domain.Question, 0, len(row.Questions)),
	}
	for _, q := range row.Questions {
		quiz.Questions = append(quiz.Questions, questionFromRow(q))
	}
	if row.Creator != nil {
		creator := userFromRow(row.Creator)
		quiz.Creator = &creator
	}
	return quiz
}

func questionFromRow(row *questionRow) domain.Question {
	return domain.Question{
		ID:            row.ID,
		QuizID:        row.QuizID,
		Text:          row.Text,
		Options:       row.Options,
		CorrectAnswer: row.CorrectAnswer,
		Explanation:   row.Explanation,
		Position:      row.Position,
	}
}

func questionToRow(q domain.Question) *questionRow {
	return &questionRow{
		ID:            q.ID,
		QuizID:        q.QuizID,
		Text:          q.Text,
		Options:       q.Options,
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
		Position:      q.Position,
	}
}

func userFromRow(row *userRow) domain.User {
	return domain.User{
		ID:           row.ID,
		Name:         row.Name,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		IsAdmin:      row.IsAdmin,
		CreatedAt:    row.CreatedAt,
	}
}

func contestFromRow(row *contestRow) domain.Contest {
	return domain.Contest{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		StartTime:   row.StartTime,
		EndTime:     row.EndTime,
		Difficulty:  row.Difficulty,
		Prize:       row.Prize,
		Rules:       row.Rules,
		Tags:        row.Tags,
		IsFeatured:  row.IsFeatured,
		CreatedBy:   row.CreatedBy,
		CreatedAt:   row.CreatedAt,
		Registered:  row.Registered,
	}
}
