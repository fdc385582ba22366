package portfolio

import (
	"time"

	"github.com/popolling/server/internal/models"
)

const (
	SortLatest  = "latest"
	SortPopular = "popular"

	MaxImages = 8
	MaxTags   = 20
)

type CreatePortfolioDTO struct {
	Title         string   `json:"title"         binding:"required,max=200"`
	Description   string   `json:"description"   binding:"max=20000"`
	TechStack     []string `json:"techStack"     binding:"max=30,dive,required,max=50"`
	Link          string   `json:"link"          binding:"omitempty,url,max=255"`
	FeedbackFocus string   `json:"feedbackFocus" binding:"max=255"`
	Images        []string `json:"images"        binding:"max=8,dive,required,max=512"`
	Tags          []string `json:"tags"          binding:"max=20,dive,required,max=50"`
}

// UpdatePortfolioDTO replaces only the fields that are present. Non-nil
// slices replace the whole set.
type UpdatePortfolioDTO struct {
	Title         *string  `json:"title"         binding:"omitempty,min=1,max=200"`
	Description   *string  `json:"description"   binding:"omitempty,max=20000"`
	TechStack     []string `json:"techStack"     binding:"omitempty,max=30,dive,required,max=50"`
	Link          *string  `json:"link"          binding:"omitempty,max=255"`
	FeedbackFocus *string  `json:"feedbackFocus" binding:"omitempty,max=255"`
	Images        []string `json:"images"        binding:"omitempty,max=8,dive,required,max=512"`
	Tags          []string `json:"tags"          binding:"omitempty,max=20,dive,required,max=50"`
}

type SetTagsDTO struct {
	Tags []string `json:"tags" binding:"max=20,dive,required,max=50"`
}

type ListQuery struct {
	Tag  string `form:"tag"`
	Sort string `form:"sort" binding:"omitempty,oneof=popular latest"`
}

// VoteAverages summarizes every vote on a portfolio.
type VoteAverages struct {
	Design float64 `json:"design"`
	Tech   float64 `json:"tech"`
	Impact float64 `json:"impact"`
	Count  int64   `json:"count"`
}

// Detail is a portfolio with everything the detail page shows.
type Detail struct {
	Portfolio       *models.PortfolioModel
	DescriptionHTML string
	Likes           []models.LikeModel
	Comments        []models.CommentModel
	Votes           []models.VoteModel
	Averages        VoteAverages
}

type portfolioResponse struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	TechStack     []string          `json:"techStack"`
	Link          string            `json:"link"`
	FeedbackFocus string            `json:"feedbackFocus"`
	ViewCount     int64             `json:"viewCount"`
	Author        *models.UserBrief `json:"author"`
	Images        []string          `json:"images"`
	Tags          []string          `json:"tags"`
	LikeCount     int64             `json:"likeCount"`
	CommentCount  int64             `json:"commentCount"`
	Created       time.Time         `json:"created"`
	Modified      time.Time         `json:"modified"`
}

type likeResponse struct {
	UserID  string    `json:"userId"`
	Created time.Time `json:"created"`
}

type CommentView struct {
	ID      string            `json:"id"`
	Content string            `json:"content"`
	Author  *models.UserBrief `json:"author"`
	Created time.Time         `json:"created"`
}

type voteResponse struct {
	UserID string `json:"userId"`
	Design int    `json:"design"`
	Tech   int    `json:"tech"`
	Impact int    `json:"impact"`
}

type detailResponse struct {
	portfolioResponse
	DescriptionHTML string         `json:"descriptionHtml"`
	Likes           []likeResponse `json:"likes"`
	Comments        []CommentView  `json:"comments"`
	Votes           []voteResponse `json:"votes"`
	VoteAverages    VoteAverages   `json:"voteAverages"`
}

func toResponse(p *models.PortfolioModel) portfolioResponse {
	resp := portfolioResponse{
		ID:            p.ID,
		Title:         p.Title,
		Description:   p.Description,
		TechStack:     p.TechStack,
		Link:          p.Link,
		FeedbackFocus: p.FeedbackFocus,
		ViewCount:     p.ViewCount,
		Images:        make([]string, 0, len(p.Images)),
		Tags:          make([]string, 0, len(p.Tags)),
		LikeCount:     p.LikeCount,
		CommentCount:  p.CommentCount,
		Created:       p.CreatedAt,
		Modified:      p.UpdatedAt,
	}
	if resp.TechStack == nil {
		resp.TechStack = []string{}
	}
	if p.User != nil {
		b := p.User.Brief()
		resp.Author = &b
	}
	for _, img := range p.Images {
		resp.Images = append(resp.Images, img.URL)
	}
	for _, t := range p.Tags {
		resp.Tags = append(resp.Tags, t.Name)
	}
	return resp
}

// ToCommentView is the public shape of a comment.
func ToCommentView(c *models.CommentModel) CommentView {
	resp := CommentView{ID: c.ID, Content: c.Content, Created: c.CreatedAt}
	if c.User != nil {
		b := c.User.Brief()
		resp.Author = &b
	}
	return resp
}

func toDetailResponse(d *Detail) detailResponse {
	resp := detailResponse{
		portfolioResponse: toResponse(d.Portfolio),
		DescriptionHTML:   d.DescriptionHTML,
		Likes:             make([]likeResponse, 0, len(d.Likes)),
		Comments:          make([]CommentView, 0, len(d.Comments)),
		Votes:             make([]voteResponse, 0, len(d.Votes)),
		VoteAverages:      d.Averages,
	}
	resp.LikeCount = int64(len(d.Likes))
	resp.CommentCount = int64(len(d.Comments))
	for _, l := range d.Likes {
		resp.Likes = append(resp.Likes, likeResponse{UserID: l.UserID, Created: l.CreatedAt})
	}
	for i := range d.Comments {
		resp.Comments = append(resp.Comments, ToCommentView(&d.Comments[i]))
	}
	for _, v := range d.Votes {
		resp.Votes = append(resp.Votes, voteResponse{UserID: v.UserID, Design: v.Design, Tech: v.Tech, Impact: v.Impact})
	}
	return resp
}
