package postgres

import (
	"context"
	"database/sql"
	"errors"

	"quizhub/internal/domain"
)

func (s *Store) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	_, err := s.db.NewInsert().Model(&userRow{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		IsAdmin:      user.IsAdmin,
		CreatedAt:    user.CreatedAt,
	}).Exec(ctx)
	if isUniqueViolation(err) {
		return domain.User{}, domain.Conflict("user with email %s already exists", user.Email)
	}
	if err != nil {
		return domain.User{}, wrapErr("create user", err)
	}
	return user, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (domain.User, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	row := new(userRow)
	err := s.db.NewSelect().Model(row).Where("u.email = ?", email).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.NotFound("user with email %s not found", email)
	}
	if err != nil {
		return domain.User{}, wrapErr("user by email", err)
	}
	return userFromRow(row), nil
}

func (s *Store) UserByID(ctx context.Context, userID string) (domain.User, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	row := new(userRow)
	err := s.db.NewSelect().Model(row).Where("u.id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.NotFound("user %s not found", userID)
	}
	if err != nil {
		return domain.User{}, wrapErr("user by id", err)
	}
	return userFromRow(row), nil
}
