package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/knowledge-hub/internal/config"
)

func TestNoop_NeverHits(t *testing.T) {
	var s Store = Noop{}
	require.NoError(t, s.Set(context.Background(), "k", []byte("v"), time.Minute))
	v, ok, err := s.Get(context.Background(), "k")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestNewRedis_Errors(t *testing.T) {
	_, err := NewRedis(context.Background(), config.RedisConfig{})
	assert.Error(t, err)

	// nothing listens on port 1
	_, err = NewRedis(context.Background(), config.RedisConfig{Addr: "127.0.0.1:1", DialTimeout: 1})
	assert.ErrorContains(t, err, "redis connect error")
}
