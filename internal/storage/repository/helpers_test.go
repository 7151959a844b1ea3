package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/harvest-tracker/internal/lib/day"
	"github.com/magabrotheeeer/harvest-tracker/internal/migrations"
	"github.com/magabrotheeeer/harvest-tracker/internal/models"
)

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции.
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test requires docker")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start container")

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(connStr)
	require.NoError(t, err, "failed to create storage")

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath))

	cleanup := func() {
		_ = storage.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	return storage, cleanup
}

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser создает тестового пользователя и возвращает его ID
func (f *TestDataFactory) CreateUser(t *testing.T, lineID, name string, role models.Role) int64 {
	t.Helper()
	var id int64
	err := f.storage.DB.QueryRow(`INSERT INTO users (line_id, display_name, role)
		VALUES ($1, $2, $3) RETURNING id`, lineID, name, string(role)).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreateHarvest создает заявку на сбор урожая с заданным статусом
func (f *TestDataFactory) CreateHarvest(t *testing.T, userID int64, item string, date day.Date, qty int, status models.Status) int64 {
	t.Helper()
	var id int64
	err := f.storage.DB.QueryRow(`INSERT INTO harvest_requests (user_id, vegetable_item, delivery_date, quantity, status)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`, userID, item, date, qty, string(status)).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreateRental создает заявку на аренду с заданным статусом
func (f *TestDataFactory) CreateRental(t *testing.T, userID int64, pickup, ret day.Date, qty int, status models.Status) int64 {
	t.Helper()
	var id int64
	err := f.storage.DB.QueryRow(`INSERT INTO oricon_rentals (user_id, pickup_date, return_date, quantity, status)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`, userID, pickup, ret, qty, string(status)).Scan(&id)
	require.NoError(t, err)
	return id
}

// TestVerification содержит общие функции для проверки результатов тестов
type TestVerification struct {
	storage *Storage
}

// NewTestVerification создает новый объект для проверки результатов
func NewTestVerification(storage *Storage) *TestVerification {
	return &TestVerification{storage: storage}
}

// VerifyHarvestStatus проверяет статус заявки напрямую в БД, включая удалённые
func (v *TestVerification) VerifyHarvestStatus(t *testing.T, id int64, expected models.Status) {
	t.Helper()
	var status string
	err := v.storage.DB.QueryRow("SELECT status FROM harvest_requests WHERE id = $1", id).Scan(&status)
	require.NoError(t, err)
	require.Equal(t, string(expected), status)
}

// VerifyRowCount проверяет количество строк в таблице
func (v *TestVerification) VerifyRowCount(t *testing.T, table string, expected int) {
	t.Helper()
	var count int
	err := v.storage.DB.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, expected, count)
}

func mustDate(t *testing.T, s string) day.Date {
	t.Helper()
	d, err := day.Parse(s)
	require.NoError(t, err)
	return d
}
