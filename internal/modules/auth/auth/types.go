package auth

import (
	"time"

	"github.com/popolling/server/internal/models"
)

type RegisterDTO struct {
	Username string `json:"username" binding:"required,min=3,max=30"`
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type LoginDTO struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	User   *models.UserModel `json:"user"`
	Access string            `json:"access"`
}

type refreshResponse struct {
	Access string `json:"access"`
}

type sessionView struct {
	ID        string    `json:"id"`
	UserAgent string    `json:"user_agent"`
	IP        string    `json:"ip"`
	Created   time.Time `json:"created"`
	ExpiresAt time.Time `json:"expires_at"`
	Current   bool      `json:"current"`
}

func toSessionViews(sessions []models.RefreshSession, currentID string) []sessionView {
	out := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionView{
			ID:        s.ID,
			UserAgent: s.UserAgent,
			IP:        s.IP,
			Created:   s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
			Current:   s.ID == currentID,
		})
	}
	return out
}
