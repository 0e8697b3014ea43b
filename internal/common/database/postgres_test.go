package database

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/common/config"
)

func TestConfigure_CapsIdleAtMaxConns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	Configure(db, &config.DatabaseConfig{MaxConns: 4, MaxIdle: 10})
	assert.Equal(t, 4, db.Stats().MaxOpenConnections)

	mock.ExpectClose()
	require.NoError(t, Close(db))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClose_Nil(t *testing.T) {
	assert.NoError(t, Close(nil))
}
