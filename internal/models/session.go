package models

import "time"

// RefreshSession is one refresh token lineage link. Only the SHA-256 digest of
// the token is stored. Revoked never flips back to false.
type RefreshSession struct {
	ID         string     `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID     string     `json:"user_id"     gorm:"type:char(36);index;not null"`
	TokenHash  string     `json:"-"           gorm:"type:char(64);not null"`
	CreatedAt  time.Time  `json:"created"`
	ExpiresAt  time.Time  `json:"expires_at"  gorm:"index;not null"`
	Revoked    bool       `json:"revoked"     gorm:"not null;default:false;index"`
	RevokedAt  *time.Time `json:"revoked_at"`
	ReplacedBy string     `json:"replaced_by" gorm:"type:varchar(36)"`
	UserAgent  string     `json:"user_agent"  gorm:"type:text"`
	IP         string     `json:"ip"          gorm:"size:64"`
}

func (RefreshSession) TableName() string { return "refresh_sessions" }

// Active reports whether the session can still be rotated at now.
func (s *RefreshSession) Active(now time.Time) bool {
	return !s.Revoked && now.Before(s.ExpiresAt)
}
