package app

import (
	"context"
	"testing"

	"github.com/popolling/server/internal/config"
	"github.com/popolling/server/internal/modules/storage/file"
	"github.com/popolling/server/internal/pkg/jwt"
	"github.com/popolling/server/internal/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAccessValidatorAcceptsOnlyAccessTokens(t *testing.T) {
	cfg := config.Default()
	cfg.Session.Store = config.SessionStoreMemory
	mgr, err := newSessionManager(&cfg, nil, nil, zap.NewNop())
	require.NoError(t, err)

	pair, err := mgr.Issue(context.Background(), jwt.Identity{UserID: "u-9", Username: "zoe"}, session.Provenance{})
	require.NoError(t, err)

	validate := accessValidator(mgr)
	uid, ok := validate(pair.AccessToken)
	assert.True(t, ok)
	assert.Equal(t, "u-9", uid)

	_, ok = validate(pair.RefreshToken)
	assert.False(t, ok)
	_, ok = validate("")
	assert.False(t, ok)
}

func TestRedisStoreNeedsClient(t *testing.T) {
	cfg := config.Default()
	cfg.Session.Store = config.SessionStoreRedis
	_, err := newSessionManager(&cfg, nil, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestNewStorageLocal(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.Uploads = t.TempDir()
	cfg.Storage.PublicBaseURL = "https://api.popolling.dev"

	s, err := newStorage(&cfg)
	require.NoError(t, err)
	local, ok := s.(*file.LocalStorage)
	require.True(t, ok)
	assert.Equal(t, "https://api.popolling.dev/uploads", local.BaseURL)
}
