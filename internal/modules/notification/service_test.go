package notification

import (
	"context"
	"sync"
	"testing"

	"github.com/popolling/server/internal/models"
	"github.com/popolling/server/internal/pkg/apperr"
	"github.com/popolling/server/internal/pkg/pagination"
	"github.com/popolling/server/internal/pkg/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	pushes []string
}

func (r *recorder) Push(userID, event string, _ interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = append(r.pushes, userID+":"+event)
}

func TestNotifyPersistsAndPushes(t *testing.T) {
	db := testdb.New(t)
	pub := &recorder{}
	svc := NewService(db, pub, nil)
	ctx := context.Background()

	svc.Notify(ctx, "owner", "actor", models.NotificationLike, "actor liked your portfolio")
	svc.Notify(ctx, "owner", "owner", models.NotificationLike, "self likes are not news")

	items, meta, err := svc.List(ctx, "owner", pagination.Normalize(1, 20))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), meta.Total)
	assert.Equal(t, models.NotificationLike, items[0].Type)
	assert.Equal(t, []string{"owner:notification"}, pub.pushes)
}

func TestNotifySwallowsFailures(t *testing.T) {
	db := testdb.New(t)
	svc := NewService(db, nil, nil)
	require.NoError(t, db.Migrator().DropTable(&models.NotificationModel{}))

	assert.NotPanics(t, func() {
		svc.Notify(context.Background(), "owner", "actor", models.NotificationFollow, "x")
	})
}

func TestMarkReadIsRecipientOnly(t *testing.T) {
	db := testdb.New(t)
	svc := NewService(db, nil, nil)
	ctx := context.Background()
	svc.Notify(ctx, "owner", "actor", models.NotificationComment, "new comment")

	items, _, err := svc.List(ctx, "owner", pagination.Normalize(1, 20))
	require.NoError(t, err)
	require.Len(t, items, 1)
	id := items[0].ID

	_, err = svc.MarkRead(ctx, "intruder", id)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	_, err = svc.MarkRead(ctx, "owner", "missing")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	n, err := svc.UnreadCount(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := svc.MarkRead(ctx, "owner", id)
	require.NoError(t, err)
	assert.True(t, got.Read)

	n, err = svc.UnreadCount(ctx, "owner")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMarkAllRead(t *testing.T) {
	db := testdb.New(t)
	svc := NewService(db, nil, nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		svc.Notify(ctx, "owner", "actor", models.NotificationVote, "vote")
	}
	svc.Notify(ctx, "other", "actor", models.NotificationVote, "vote")

	updated, err := svc.MarkAllRead(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated)

	n, err := svc.UnreadCount(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
