package models

// UserModel is a registered account. Username and email are both unique.
type UserModel struct {
	Base
	Username string `json:"username" gorm:"size:30;uniqueIndex;not null"`
	Email    string `json:"email"    gorm:"size:191;uniqueIndex;not null"`
	Password string `json:"-"        gorm:"not null"`
	Bio      string `json:"bio"      gorm:"type:text"`
	Avatar   string `json:"avatar"`
}

func (UserModel) TableName() string { return "users" }

// UserBrief is the public projection embedded in other resources.
type UserBrief struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

func (u *UserModel) Brief() UserBrief {
	return UserBrief{ID: u.ID, Username: u.Username, Avatar: u.Avatar}
}
