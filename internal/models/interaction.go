package models

// LikeModel is present while a user likes a portfolio.
type LikeModel struct {
	Base
	PortfolioID string `json:"portfolio_id" gorm:"type:char(36);uniqueIndex:idx_likes_pair;not null"`
	UserID      string `json:"user_id"      gorm:"type:char(36);uniqueIndex:idx_likes_pair;index;not null"`
}

func (LikeModel) TableName() string { return "likes" }

type CommentModel struct {
	Base
	PortfolioID string     `json:"portfolio_id"   gorm:"type:char(36);index;not null"`
	UserID      string     `json:"user_id"        gorm:"type:char(36);index;not null"`
	User        *UserModel `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Content     string     `json:"content"        gorm:"type:text;not null"`
}

func (CommentModel) TableName() string { return "comments" }

// VoteModel holds one user's 0-10 ratings of a portfolio.
type VoteModel struct {
	Base
	PortfolioID string `json:"portfolio_id" gorm:"type:char(36);uniqueIndex:idx_votes_pair;not null"`
	UserID      string `json:"user_id"      gorm:"type:char(36);uniqueIndex:idx_votes_pair;not null"`
	Design      int    `json:"design"       gorm:"not null"`
	Tech        int    `json:"tech"         gorm:"not null"`
	Impact      int    `json:"impact"       gorm:"not null"`
}

func (VoteModel) TableName() string { return "votes" }

type BookmarkModel struct {
	Base
	PortfolioID string          `json:"portfolio_id"        gorm:"type:char(36);uniqueIndex:idx_bookmarks_pair;not null"`
	UserID      string          `json:"user_id"             gorm:"type:char(36);uniqueIndex:idx_bookmarks_pair;index;not null"`
	Portfolio   *PortfolioModel `json:"portfolio,omitempty" gorm:"foreignKey:PortfolioID"`
}

func (BookmarkModel) TableName() string { return "bookmarks" }

// CollaborationRequestModel records interest in working on a portfolio.
type CollaborationRequestModel struct {
	Base
	PortfolioID string `json:"portfolio_id" gorm:"type:char(36);uniqueIndex:idx_collab_pair;not null"`
	UserID      string `json:"user_id"      gorm:"type:char(36);uniqueIndex:idx_collab_pair;not null"`
}

func (CollaborationRequestModel) TableName() string { return "collaboration_requests" }
