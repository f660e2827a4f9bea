package integration

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun/migrate"
	"golang.org/x/crypto/bcrypt"

	"quizhub/internal/app"
	"quizhub/internal/domain"
	"quizhub/internal/infra/postgres"
	"quizhub/internal/infra/postgres/migrations"
	infraredis "quizhub/internal/infra/redis"
)

func TestQuizFlowEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()

	db := postgres.Connect(pgURL)
	defer db.Close()

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := postgres.NewStore(db, 5*time.Second)
	service := app.NewQuizService(store, true)

	admin := seedUser(t, ctx, store, "admin@example.com", true)
	player := seedUser(t, ctx, store, "player@example.com", false)

	quiz, err := service.CreateQuiz(ctx, admin.ID, app.QuizInput{
		Title:       "Integration Quiz",
		Description: "exercises the full stack",
		Category:    "go",
		Difficulty:  domain.DifficultyBeginner,
		Questions: []app.QuestionInput{
			{Text: "first", Options: []string{"a", "b", "c"}, CorrectAnswer: 0},
			{Text: "second", Options: []string{"a", "b", "c"}, CorrectAnswer: 2},
		},
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	loaded, err := service.GetQuiz(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if len(loaded.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(loaded.Questions))
	}

	result, err := service.SubmitResult(ctx, quiz.ID, player.ID, []domain.Answer{
		{QuestionID: loaded.Questions[0].ID, SelectedOption: 0},
		{QuestionID: loaded.Questions[1].ID, SelectedOption: 1},
	}, 42)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 1 || result.TotalQuestions != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}

	after, err := service.GetQuiz(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if after.Enrolled != loaded.Enrolled+1 {
		t.Fatalf("expected enrolled bump, got %d -> %d", loaded.Enrolled, after.Enrolled)
	}

	// The unique index keeps concurrent bookmark toggles to a single row.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := service.ToggleBookmark(ctx, quiz.ID, player.ID); err != nil {
				t.Errorf("toggle: %v", err)
			}
		}()
	}
	wg.Wait()
	bookmarks, err := service.BookmarksForUser(ctx, player.ID)
	if err != nil {
		t.Fatalf("bookmarks: %v", err)
	}
	if len(bookmarks) > 1 {
		t.Fatalf("expected at most one bookmark, got %d", len(bookmarks))
	}

	// Cascade delete clears every dependent row.
	if err := service.DeleteQuiz(ctx, quiz.ID); err != nil {
		t.Fatalf("delete quiz: %v", err)
	}
	if _, err := service.GetQuiz(ctx, quiz.ID); !domain.IsNotFound(err) {
		t.Fatalf("expected quiz gone, got %v", err)
	}
	results, err := service.ResultsForUser(ctx, player.ID)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected results cascade-deleted, got %d", len(results))
	}
}

func TestContestRegistrationEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()

	db := postgres.Connect(pgURL)
	defer db.Close()

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := postgres.NewStore(db, 5*time.Second)
	service := app.NewContestService(store)

	admin := seedUser(t, ctx, store, "admin@example.com", true)
	player := seedUser(t, ctx, store, "player@example.com", false)

	start := time.Now().Add(time.Hour).UTC()
	contest, err := service.CreateContest(ctx, admin.ID, app.ContestInput{
		Title:       "Weekly Challenge",
		Description: "compete",
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
		Difficulty:  domain.DifficultyExpert,
		Prize:       2000,
		Rules:       []string{"no cheating"},
		Tags:        []string{"weekly"},
	})
	if err != nil {
		t.Fatalf("create contest: %v", err)
	}

	if _, err := service.Register(ctx, contest.ID, player.ID); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := service.Register(ctx, contest.ID, player.ID); !domain.IsConflict(err) {
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

func TestAuthFlowEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := postgres.Connect(pgURL)
	defer db.Close()

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	store := postgres.NewStore(db, 5*time.Second)
	service := app.NewAuthService(store, infraredis.NewTokenDenylist(redisClient), "integration-secret", time.Hour)

	user, token, err := service.SignUp(ctx, "Alice", "alice@example.com", "s3cret")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	identity, err := service.Authenticate(ctx, token)
	if err != nil || identity.UserID != user.ID {
		t.Fatalf("authenticate: identity=%+v err=%v", identity, err)
	}

	if _, _, err := service.SignUp(ctx, "Mallory", "alice@example.com", "other"); !domain.IsConflict(err) {
		t.Fatalf("expected conflict on duplicate email, got %v", err)
	}

	if err := service.LogOut(ctx, token); err != nil {
		t.Fatalf("log out: %v", err)
	}
	if _, err := service.Authenticate(ctx, token); domain.KindOf(err) != domain.KindAuthorization {
		t.Fatalf("expected revoked token rejection, got %v", err)
	}
}

func seedUser(t *testing.T, ctx context.Context, store *postgres.Store, email string, admin bool) domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user, err := store.CreateUser(ctx, domain.User{
		ID:           strings.ReplaceAll(email, "@", "-"),
		Name:         email,
		Email:        email,
		PasswordHash: string(hash),
		IsAdmin:      admin,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return user
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
