package models

// FollowModel is a directed follower -> following edge.
type FollowModel struct {
	Base
	FollowerID  string     `json:"follower_id"         gorm:"type:char(36);uniqueIndex:idx_follows_pair;not null"`
	FollowingID string     `json:"following_id"        gorm:"type:char(36);uniqueIndex:idx_follows_pair;index;not null"`
	Follower    *UserModel `json:"follower,omitempty"  gorm:"foreignKey:FollowerID"`
	Following   *UserModel `json:"following,omitempty" gorm:"foreignKey:FollowingID"`
}

func (FollowModel) TableName() string { return "follows" }
