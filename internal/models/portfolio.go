package models

// PortfolioModel is a piece of work a user shares for feedback.
type PortfolioModel struct {
	Base
	UserID        string           `json:"user_id"        gorm:"type:char(36);index;not null"`
	User          *UserModel       `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Title         string           `json:"title"          gorm:"size:200;not null"`
	Description   string           `json:"description"    gorm:"type:text"`
	TechStack     []string         `json:"tech_stack"     gorm:"type:text;serializer:json"`
	Link          string           `json:"link"`
	FeedbackFocus string           `json:"feedback_focus"`
	ViewCount     int64            `json:"view_count"     gorm:"not null;default:0;index"`
	Images        []PortfolioImage `json:"images"         gorm:"foreignKey:PortfolioID"`
	Tags          []TagModel       `json:"tags"           gorm:"many2many:portfolio_tags;joinForeignKey:PortfolioID;joinReferences:TagID"`

	LikeCount    int64 `json:"like_count"    gorm:"->;-:migration"`
	CommentCount int64 `json:"comment_count" gorm:"->;-:migration"`
}

func (PortfolioModel) TableName() string { return "portfolios" }

type PortfolioImage struct {
	Base
	PortfolioID string `json:"portfolio_id" gorm:"type:char(36);index;not null"`
	URL         string `json:"url"          gorm:"size:512;not null"`
	Sort        int    `json:"sort"         gorm:"not null;default:0"`
}

func (PortfolioImage) TableName() string { return "portfolio_images" }

// TagModel is a free-form label. Names are unique.
type TagModel struct {
	Base
	Name string `json:"name" gorm:"size:50;uniqueIndex;not null"`
}

func (TagModel) TableName() string { return "tags" }
