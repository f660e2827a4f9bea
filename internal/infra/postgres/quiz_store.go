package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"quizhub/internal/app"
	"quizhub/internal/domain"
)

func (s *Store) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	row := new(quizRow)
	err := s.db.NewSelect().Model(row).
		Relation("Questions", orderByPosition).
		Where("q.id = ?", quizID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quiz{}, domain.NotFound("quiz %s not found", quizID)
	}
	if err != nil {
		return domain.Quiz{}, wrapErr("get quiz", err)
	}
	return quizFromRow(row), nil
}

func (s *Store) ListQuizzes(ctx context.Context, f app.QuizFilter) ([]domain.Quiz, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var rows []*quizRow
	q := s.db.NewSelect().Model(&rows).Relation("Questions", orderByPosition)

	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		q = q.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.WhereOr("q.title ILIKE ?", pattern).
				WhereOr("q.description ILIKE ?", pattern)
		})
	}
	if f.Difficulty != "" {
		q = q.Where("q.difficulty = ?", f.Difficulty)
	}
	if f.Category != "" {
		q = q.Where("q.category = ?", f.Category)
	}

	// Rows tied on the sort key come back in whatever order Postgres picks;
	// callers get no ordering promise beyond the key itself.
	switch f.Sort {
	case "rating":
		q = q.OrderExpr("q.rating DESC")
	case "newest":
		q = q.OrderExpr("q.created_at DESC")
	default: // popular
		q = q.OrderExpr("q.enrolled DESC")
	}

	if err := q.Scan(ctx); err != nil {
		return nil, wrapErr("list quizzes", err)
	}
	return quizzesFromRows(rows), nil
}

func (s *Store) FeaturedQuizzes(ctx context.Context, limit int) ([]domain.Quiz, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var rows []*quizRow
	err := s.db.NewSelect().Model(&rows).
		Relation("Questions", orderByPosition).
		Where("q.is_featured").
		OrderExpr("q.enrolled DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, wrapErr("featured quizzes", err)
	}
	return quizzesFromRows(rows), nil
}

func (s *Store) AdminListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var rows []*quizRow
	err := s.db.NewSelect().Model(&rows).
		Relation("Questions", orderByPosition).
		Relation("Creator").
		OrderExpr("q.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, wrapErr("admin list quizzes", err)
	}
	return quizzesFromRows(rows), nil
}

// CreateQuiz writes the quiz and its questions in one transaction so a
// failure never leaves orphaned questions behind.
func (s *Store) CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(quizToRow(quiz)).Exec(ctx); err != nil {
			return err
		}
		return insertQuestions(ctx, tx, quiz.Questions)
	})
	if err != nil {
		return domain.Quiz{}, wrapErr("create quiz", err)
	}
	return quiz, nil
}

func (s *Store) UpdateQuiz(ctx context.Context, quiz domain.Quiz, replaceQuestions bool) (domain.Quiz, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model(quizToRow(quiz)).
			Column("title", "description", "difficulty", "category", "time_limit", "is_featured", "rating").
			WherePK().
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.NotFound("quiz %s not found", quiz.ID)
		}
		if !replaceQuestions {
			return nil
		}
		if _, err := tx.NewDelete().Model((*questionRow)(nil)).
			Where("quiz_id = ?", quiz.ID).
			Exec(ctx); err != nil {
			return err
		}
		return insertQuestions(ctx, tx, quiz.Questions)
	})
	if err != nil {
		return domain.Quiz{}, wrapErr("update quiz", err)
	}
	return s.GetQuiz(ctx, quiz.ID)
}

// DeleteQuiz cascades inside one transaction, least-authoritative entities
// first: bookmarks, results, questions, then the quiz itself.
func (s *Store) DeleteQuiz(ctx context.Context, quizID string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*bookmarkRow)(nil)).
			Where("quiz_id = ?", quizID).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*resultRow)(nil)).
			Where("quiz_id = ?", quizID).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*questionRow)(nil)).
			Where("quiz_id = ?", quizID).Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewDelete().Model((*quizRow)(nil)).
			Where("id = ?", quizID).Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.NotFound("quiz %s not found", quizID)
		}
		return nil
	})
	return wrapErr("delete quiz", err)
}

func (s *Store) SetFeatured(ctx context.Context, quizID string, featured bool) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.db.NewUpdate().Model((*quizRow)(nil)).
		Set("is_featured = ?", featured).
		Where("id = ?", quizID).
		Exec(ctx)
	if err != nil {
		return wrapErr("set featured", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("quiz %s not found", quizID)
	}
	return nil
}

// CreateResult writes the result and bumps the quiz enrolled counter with a
// field-level atomic increment, both inside one transaction. Concurrent
// submissions never lose counter updates.
func (s *Store) CreateResult(ctx context.Context, result domain.QuizResult) (domain.QuizResult, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model((*quizRow)(nil)).
			Set("enrolled = enrolled + 1").
			Where("id = ?", result.QuizID).
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.NotFound("quiz %s not found", result.QuizID)
		}
		_, err = tx.NewInsert().Model(resultToRow(result)).Exec(ctx)
		return err
	})
	if err != nil {
		return domain.QuizResult{}, wrapErr("create result", err)
	}
	return result, nil
}

func (s *Store) HasResult(ctx context.Context, userID, quizID string) (bool, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	exists, err := s.db.NewSelect().Model((*resultRow)(nil)).
		Where("user_id = ?", userID).
		Where("quiz_id = ?", quizID).
		Exists(ctx)
	if err != nil {
		return false, wrapErr("has result", err)
	}
	return exists, nil
}

func (s *Store) ResultsForUser(ctx context.Context, userID string) ([]domain.QuizResult, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var rows []*resultRow
	err := s.db.NewSelect().Model(&rows).
		Relation("Quiz").
		Where("r.user_id = ?", userID).
		OrderExpr("r.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, wrapErr("results for user", err)
	}

	out := make([]domain.QuizResult, 0, len(rows))
	for _, row := range rows {
		result := domain.QuizResult{
			ID:             row.ID,
			UserID:         row.UserID,
			QuizID:         row.QuizID,
			Score:          row.Score,
			TotalQuestions: row.TotalQuestions,
			TimeTaken:      row.TimeTaken,
			Answers:        row.Answers,
			CreatedAt:      row.CreatedAt,
		}
		if row.Quiz != nil {
			quiz := quizFromRow(row.Quiz)
			result.Quiz = &quiz
		}
		out = append(out, result)
	}
	return out, nil
}

func (s *Store) FindBookmark(ctx context.Context, userID, quizID string) (domain.Bookmark, bool, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	row := new(bookmarkRow)
	err := s.db.NewSelect().Model(row).
		Where("b.user_id = ?", userID).
		Where("b.quiz_id = ?", quizID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Bookmark{}, false, nil
	}
	if err != nil {
		return domain.Bookmark{}, false, wrapErr("find bookmark", err)
	}
	return bookmarkFromRow(row), true, nil
}

func (s *Store) CreateBookmark(ctx context.Context, bookmark domain.Bookmark) (domain.Bookmark, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	_, err := s.db.NewInsert().Model(&bookmarkRow{
		ID:        bookmark.ID,
		UserID:    bookmark.UserID,
		QuizID:    bookmark.QuizID,
		CreatedAt: bookmark.CreatedAt,
	}).Exec(ctx)
	if isUniqueViolation(err) {
		return domain.Bookmark{}, domain.Conflict("quiz %s already bookmarked", bookmark.QuizID)
	}
	if err != nil {
		return domain.Bookmark{}, wrapErr("create bookmark", err)
	}
	return bookmark, nil
}

func (s *Store) DeleteBookmark(ctx context.Context, bookmarkID string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.db.NewDelete().Model((*bookmarkRow)(nil)).
		Where("id = ?", bookmarkID).
		Exec(ctx)
	if err != nil {
		return wrapErr("delete bookmark", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("bookmark %s not found", bookmarkID)
	}
	return nil
}

func (s *Store) BookmarksForUser(ctx context.Context, userID string) ([]domain.Bookmark, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var rows []*bookmarkRow
	err := s.db.NewSelect().Model(&rows).
		Relation("Quiz").
		Where("b.user_id = ?", userID).
		OrderExpr("b.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, wrapErr("bookmarks for user", err)
	}

	out := make([]domain.Bookmark, 0, len(rows))
	for _, row := range rows {
		out = append(out, bookmarkFromRow(row))
	}
	return out, nil
}

func orderByPosition(q *bun.SelectQuery) *bun.SelectQuery {
	return q.OrderExpr("position ASC")
}

func quizzesFromRows(rows []*quizRow) []domain.Quiz {
	out := make([]domain.Quiz, 0, len(rows))
	for _, row := range rows {
		out = append(out, quizFromRow(row))
	}
	return out
}

func quizToRow(quiz domain.Quiz) *quizRow {
	return &quizRow{
		ID:          quiz.ID,
		Title:       quiz.Title,
		Description: quiz.Description,
		Difficulty:  quiz.Difficulty,
		Category:    quiz.Category,
		TimeLimit:   quiz.TimeLimit,
		IsFeatured:  quiz.IsFeatured,
		Enrolled:    quiz.Enrolled,
		Rating:      quiz.Rating,
		CreatedBy:   quiz.CreatedBy,
		CreatedAt:   quiz.CreatedAt,
	}
}

func resultToRow(result domain.QuizResult) *resultRow {
	return &resultRow{
		ID:             result.ID,
		UserID:         result.UserID,
		QuizID:         result.QuizID,
		Score:          result.Score,
		TotalQuestions: result.TotalQuestions,
		TimeTaken:      result.TimeTaken,
		Answers:        result.Answers,
		CreatedAt:      result.CreatedAt,
	}
}

func bookmarkFromRow(row *bookmarkRow) domain.Bookmark {
	bookmark := domain.Bookmark{
		ID:        row.ID,
		UserID:    row.UserID,
		QuizID:    row.QuizID,
		CreatedAt: row.CreatedAt,
	}
	if row.Quiz != nil {
		quiz := quizFromRow(row.Quiz)
		bookmark.Quiz = &quiz
	}
	return bookmark
}

func insertQuestions(ctx context.Context, tx bun.Tx, questions []domain.Question) error {
	if len(questions) == 0 {
		return nil
	}
	rows := make([]*questionRow, 0, len(questions))
	for _, q := range questions {
		rows = append(rows, questionToRow(q))
	}
	_, err := tx.NewInsert().Model(&rows).Exec(ctx)
	return err
}
