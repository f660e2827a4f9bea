package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"quizhub/internal/app"
	"quizhub/internal/domain"
)

const registeredCountExpr = "(SELECT count(*) FROM registrations reg WHERE reg.contest_id = c.id)"

func (s *Store) GetContest(ctx context.Context, contestID string) (domain.Contest, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	row := new(contestRow)
	err := s.db.NewSelect().Model(row).
		ColumnExpr("c.*").
		ColumnExpr(registeredCountExpr+" AS registered").
		Where("c.id = ?", contestID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Contest{}, domain.NotFound("contest %s not found", contestID)
	}
	if err != nil {
		return domain.Contest{}, wrapErr("get contest", err)
	}
	return contestFromRow(row), nil
}

func (s *Store) ListContests(ctx context.Context, f app.ContestFilter) ([]domain.Contest, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var rows []*contestRow
	q := s.db.NewSelect().Model(&rows).
		ColumnExpr("c.*").
		ColumnExpr(registeredCountExpr + " AS registered")

	switch f.Status {
	case "upcoming":
		q = q.Where("c.start_time > ?", f.Now)
	case "ongoing":
		q = q.Where("c.start_time <= ?", f.Now).Where("c.end_time >= ?", f.Now)
	case "past":
		q = q.Where("c.end_time < ?", f.Now)
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		q = q.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.WhereOr("c.title ILIKE ?", pattern).
				WhereOr("c.description ILIKE ?", pattern)
		})
	}
	if f.Difficulty != "" {
		q = q.Where("c.difficulty = ?", f.Difficulty)
	}
	switch f.Prize {
	case app.PrizeUnder500:
		q = q.Where("c.prize < 500")
	case app.Prize500To1K:
		q = q.Where("c.prize BETWEEN 500 AND 1000")
	case app.PrizeOver1K:
		q = q.Where("c.prize > 1000")
	}

	switch f.Sort {
	case "prize":
		q = q.OrderExpr("c.prize DESC")
	case "popularity":
		q = q.OrderExpr("registered DESC")
	default:
		q = q.OrderExpr("c.start_time ASC")
	}

	if err := q.Scan(ctx); err != nil {
		return nil, wrapErr("list contests", err)
	}

	out := make([]domain.Contest, 0, len(rows))
	for _, row := range rows {
		out = append(out, contestFromRow(row))
	}
	return out, nil
}

func (s *Store) CreateContest(ctx context.Context, contest domain.Contest) (domain.Contest, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if _, err := s.db.NewInsert().Model(contestToRow(contest)).Exec(ctx); err != nil {
		return domain.Contest{}, wrapErr("create contest", err)
	}
	return contest, nil
}

func (s *Store) UpdateContest(ctx context.Context, contest domain.Contest) (domain.Contest, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.db.NewUpdate().Model(contestToRow(contest)).
		Column("title", "description", "start_time", "end_time", "difficulty", "prize", "rules", "tags", "is_featured").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.Contest{}, wrapErr("update contest", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Contest{}, domain.NotFound("contest %s not found", contest.ID)
	}
	return contest, nil
}

// DeleteContest removes registrations and the contest in one transaction.
func (s *Store) DeleteContest(ctx context.Context, contestID string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*registrationRow)(nil)).
			Where("contest_id = ?", contestID).Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewDelete().Model((*contestRow)(nil)).
			Where("id = ?", contestID).Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.NotFound("contest %s not found", contestID)
		}
		return nil
	})
	return wrapErr("delete contest", err)
}

func (s *Store) CreateRegistration(ctx context.Context, reg domain.Registration) (domain.Registration, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	_, err := s.db.NewInsert().Model(registrationToRow(reg)).Exec(ctx)
	if isUniqueViolation(err) {
		return domain.Registration{}, domain.Conflict("already registered for contest %s", reg.ContestID)
	}
	if err != nil {
		return domain.Registration{}, wrapErr("create registration", err)
	}
	return reg, nil
}

func (s *Store) FindRegistration(ctx context.Context, contestID, userID string) (domain.Registration, bool, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	row := new(registrationRow)
	err := s.db.NewSelect().Model(row).
		Where("reg.contest_id = ?", contestID).
		Where("reg.user_id = ?", userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Registration{}, false, nil
	}
	if err != nil {
		return domain.Registration{}, false, wrapErr("find registration", err)
	}
	return registrationFromRow(row), true, nil
}

func (s *Store) UpdateRegistration(ctx context.Context, reg domain.Registration) (domain.Registration, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.db.NewUpdate().Model(registrationToRow(reg)).
		Column("is_bookmarked", "submission", "score").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.Registration{}, wrapErr("update registration", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Registration{}, domain.NotFound("registration %s not found", reg.ID)
	}
	return reg, nil
}

func registrationToRow(reg domain.Registration) *registrationRow {
	return &registrationRow{
		ID:           reg.ID,
		ContestID:    reg.ContestID,
		UserID:       reg.UserID,
		RegisteredAt: reg.RegisteredAt,
		IsBookmarked: reg.IsBookmarked,
		Submission:   reg.Submission,
		Score:        reg.Score,
	}
}

func registrationFromRow(row *registrationRow) domain.Registration {
	return domain.Registration{
		ID:           row.ID,
		ContestID:    row.ContestID,
		UserID:       row.UserID,
		RegisteredAt: row.RegisteredAt,
		IsBookmarked: row.IsBookmarked,
		Submission:   row.Submission,
		Score:        row.Score,
	}
}

func contestToRow(contest domain.Contest) *contestRow {
	return &contestRow{
		ID:          contest.ID,
		Title:       contest.Title,
		Description: contest.Description,
		StartTime:   contest.StartTime,
		EndTime:     contest.EndTime,
		Difficulty:  contest.Difficulty,
		Prize:       contest.Prize,
		Rules:       contest.Rules,
		Tags:        contest.Tags,
		IsFeatured:  contest.IsFeatured,
		CreatedBy:   contest.CreatedBy,
		CreatedAt:   contest.CreatedAt,
	}
}
