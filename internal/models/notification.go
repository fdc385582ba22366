package models

type NotificationType string

const (
	NotificationLike        NotificationType = "like"
	NotificationComment     NotificationType = "comment"
	NotificationVote        NotificationType = "vote"
	NotificationBookmark    NotificationType = "bookmark"
	NotificationFollow      NotificationType = "follow"
	NotificationCollaborate NotificationType = "collaborate"
)

type NotificationModel struct {
	Base
	UserID  string           `json:"user_id" gorm:"type:char(36);index;not null"`
	Type    NotificationType `json:"type"    gorm:"size:32;not null"`
	Message string           `json:"message" gorm:"size:512;not null"`
	Read    bool             `json:"read"    gorm:"column:is_read;not null;default:false;index"`
}

func (NotificationModel) TableName() string { return "notifications" }
