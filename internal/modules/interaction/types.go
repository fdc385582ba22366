package interaction

import (
	"context"

	"github.com/popolling/server/internal/models"
)

// Notifier delivers best-effort notifications to a portfolio owner.
type Notifier interface {
	Notify(ctx context.Context, recipientID, actorID string, typ models.NotificationType, message string)
}

type CommentDTO struct {
	Content string `json:"content" binding:"required,max=2000"`
}

// VoteDTO carries per-category scores. Pointers let 0 pass the required check.
type VoteDTO struct {
	Design *int `json:"design" binding:"required,min=0,max=10"`
	Tech   *int `json:"tech"   binding:"required,min=0,max=10"`
	Impact *int `json:"impact" binding:"required,min=0,max=10"`
}
