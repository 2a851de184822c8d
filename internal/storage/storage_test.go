package storage_test

import (
	"context"
	"supportdesk/backend/internal/storage"
	"supportdesk/backend/internal/storage/storagetest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPing(t *testing.T) {
	s := storagetest.Open(t)
	require.NoError(t, s.Ping(context.Background()))

	sqlDB, err := s.DB.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	err = s.Ping(context.Background())
	assert.ErrorIs(t, err, storage.ErrStorageUnavailable)
	assert.True(t, storage.Retryable(err))
}

func TestClose(t *testing.T) {
	s := storagetest.Open(t)
	require.NoError(t, s.Close())

	err := s.Ping(context.Background())
	assert.True(t, storage.Retryable(err), "a closed pool reports storage unavailable")
}
