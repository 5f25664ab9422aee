package store

import (
	"context"
	"errors"
	"testing"

	"food-order-service/apperrors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockedPostgres(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewGormStore(db), mock
}

func TestGormStoreMapsDriverErrorsToUpstream(t *testing.T) {
	s, mock := newMockedPostgres(t)
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnError(errors.New("dial tcp 10.0.0.5:5432: connection refused"))

	_, err := s.GetUserByEmail(context.Background(), "alice@example.com")
	assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStoreListOrdersUpstream(t *testing.T) {
	s, mock := newMockedPostgres(t)
	mock.ExpectQuery(`SELECT \* FROM "orders"`).WillReturnError(errors.New("server closed the connection unexpectedly"))

	_, err := s.ListOrders(context.Background(), OrderFilter{UserID: 1})
	assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStoreNotFound(t *testing.T) {
	s, mock := newMockedPostgres(t)
	mock.ExpectQuery(`SELECT \* FROM "orders"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.GetOrder(context.Background(), 42)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
