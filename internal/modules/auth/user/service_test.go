package user

import (
	"context"
	"testing"

	"github.com/popolling/server/internal/models"
	"github.com/popolling/server/internal/pkg/apperr"
	"github.com/popolling/server/internal/pkg/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestCreateAndAuthenticate(t *testing.T) {
	svc := NewService(testdb.New(t), bcrypt.MinCost)
	ctx := context.Background()

	u, err := svc.Create(ctx, " dave ", "Dave@Example.com", "swordfish-42")
	require.NoError(t, err)
	assert.Equal(t, "dave", u.Username)
	assert.Equal(t, "dave@example.com", u.Email)
	assert.NotEqual(t, "swordfish-42", u.Password)

	_, err = svc.Create(ctx, "dave", "other@example.com", "swordfish-42")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	_, err = svc.Create(ctx, "other", "dave@example.com", "swordfish-42")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	got, err := svc.Authenticate(ctx, "DAVE@example.com", "swordfish-42")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Authenticate(ctx, "dave@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "ghost@example.com", "swordfish-42")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestProfileAndUpdate(t *testing.T) {
	db := testdb.New(t)
	svc := NewService(db, bcrypt.MinCost)
	ctx := context.Background()

	a, err := svc.Create(ctx, "alice", "alice@example.com", "password-1")
	require.NoError(t, err)
	b, err := svc.Create(ctx, "bob", "bob@example.com", "password-2")
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.FollowModel{FollowerID: b.ID, FollowingID: a.ID}).Error)
	require.NoError(t, db.Create(&models.PortfolioModel{UserID: a.ID, Title: "Site"}).Error)

	p, err := svc.Profile(ctx, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, p.FollowerCount)
	assert.EqualValues(t, 0, p.FollowingCount)
	assert.EqualValues(t, 1, p.PortfolioCount)

	bio := "  builds things  "
	updated, err := svc.UpdateProfile(ctx, a.ID, &UpdateProfileDTO{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "builds things", updated.Bio)

	_, err = svc.Profile(ctx, "missing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
