package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	redis2 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pharmacy/internal/model"
	mocks "pharmacy/internal/tests/mock"
)

func TestLoad(t *testing.T) {
	client := mocks.NewMockRedis()
	client.On("Get", mock.Anything, "pharmacy:access_token").
		Return(redis2.NewStringResult("acc", nil)).Once()
	client.On("Get", mock.Anything, "pharmacy:refresh_token").
		Return(redis2.NewStringResult("", redis2.Nil)).Once()

	repo := NewRepositoryRedis(client, "pharmacy", time.Hour)
	pair, err := repo.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, model.TokenPair{Access: "acc"}, pair)
	client.AssertExpectations(t)
}

func TestLoad_Error(t *testing.T) {
	client := mocks.NewMockRedis()
	client.On("Get", mock.Anything, "ns:access_token").
		Return(redis2.NewStringResult("", errors.New("connection reset"))).Once()

	_, err := NewRepositoryRedis(client, "ns", 0).Load(context.Background())
	require.Error(t, err)
	client.AssertExpectations(t)
}

func TestSave(t *testing.T) {
	client := mocks.NewMockRedis()
	client.On("Set", mock.Anything, "pharmacy:access_token", "acc", time.Duration(0)).
		Return(redis2.NewStatusResult("OK", nil)).Once()
	client.On("Set", mock.Anything, "pharmacy:refresh_token", "ref", 24*time.Hour).
		Return(redis2.NewStatusResult("OK", nil)).Once()

	repo := NewRepositoryRedis(client, "pharmacy", 24*time.Hour)
	require.NoError(t, repo.SaveAccess(context.Background(), "acc"))
	require.NoError(t, repo.SaveRefresh(context.Background(), "ref"))
	client.AssertExpectations(t)
}

func TestSave_EmptyValueDeletes(t *testing.T) {
	client := mocks.NewMockRedis()
	client.On("Del", mock.Anything, []string{"pharmacy:access_token"}).
		Return(redis2.NewIntResult(1, nil)).Once()

	repo := NewRepositoryRedis(client, "pharmacy", time.Hour)
	require.NoError(t, repo.SaveAccess(context.Background(), ""))
	client.AssertExpectations(t)
	client.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestClear(t *testing.T) {
	client := mocks.NewMockRedis()
	client.On("Del", mock.Anything, []string{"pharmacy:access_token", "pharmacy:refresh_token"}).
		Return(redis2.NewIntResult(0, nil)).Once()

	require.NoError(t, NewRepositoryRedis(client, "pharmacy", time.Hour).Clear(context.Background()))
	client.AssertExpectations(t)
}

func TestClear_Error(t *testing.T) {
	client := mocks.NewMockRedis()
	client.On("Del", mock.Anything, mock.Anything).
		Return(redis2.NewIntResult(0, errors.New("READONLY"))).Once()

	require.Error(t, NewRepositoryRedis(client, "pharmacy", time.Hour).Clear(context.Background()))
}
