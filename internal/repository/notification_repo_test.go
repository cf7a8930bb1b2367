package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-chat-service/internal/models"
)

func TestNotificationRepositoryListIncludesBroadcastScope(t *testing.T) {
	db := setupChatTestDB(t, &models.Notification{})
	repo := NewNotificationRepository(db)

	now := time.Now()
	mine := models.Notification{UserID: "user-1", Type: models.NotificationGeneric, Message: "just for you", CreatedAt: now.Add(-2 * time.Minute)}
	broadcast := models.Notification{UserID: "", Type: models.NotificationMessagePosted, Message: "New message from alice in math101", CreatedAt: now.Add(-time.Minute)}
	theirs := models.Notification{UserID: "user-2", Type: models.NotificationGeneric, Message: "not yours", CreatedAt: now}

	require.NoError(t, repo.Create(context.Background(), &mine))
	require.NoError(t, repo.Create(context.Background(), &broadcast))
	require.NoError(t, repo.Create(context.Background(), &theirs))

	listed, err := repo.ListByUser(context.Background(), "user-1", 50, 0)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	require.Equal(t, "New message from alice in math101", listed[0].Message, "newest first")
	require.Equal(t, "just for you", listed[1].Message)
}

func TestNotificationRepositoryListPaginates(t *testing.T) {
	db := setupChatTestDB(t, &models.Notification{})
	repo := NewNotificationRepository(db)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		notification := models.Notification{
			UserID:    "user-1",
			Type:      models.NotificationGeneric,
			Message:   "n",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(context.Background(), &notification))
	}

	page, err := repo.ListByUser(context.Background(), "user-1", 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, uint(3), page[0].ID)
	require.Equal(t, uint(2), page[1].ID)
}

func TestNotificationRepositoryMarkRead(t *testing.T) {
	db := setupChatTestDB(t, &models.Notification{})
	repo := NewNotificationRepository(db)

	notification := models.Notification{UserID: "user-1", Type: models.NotificationGeneric, Message: "mark me"}
	require.NoError(t, repo.Create(context.Background(), &notification))

	updated, err := repo.MarkRead(context.Background(), notification.ID, "user-1")
	require.NoError(t, err)
	require.True(t, updated.Read)

	// Marking an already-read notification stays read and does not error.
	again, err := repo.MarkRead(context.Background(), notification.ID, "user-1")
	require.NoError(t, err)
	require.True(t, again.Read)

	_, err = repo.MarkRead(context.Background(), notification.ID, "user-2")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound, "another user's notification must stay invisible")
}

func TestNotificationRepositoryMarkReadAllowsBroadcastScope(t *testing.T) {
	db := setupChatTestDB(t, &models.Notification{})
	repo := NewNotificationRepository(db)

	broadcast := models.Notification{UserID: "", Type: models.NotificationMessagePosted, Message: "for everyone"}
	require.NoError(t, repo.Create(context.Background(), &broadcast))

	updated, err := repo.MarkRead(context.Background(), broadcast.ID, "user-1")
	require.NoError(t, err)
	require.True(t, updated.Read)
}
