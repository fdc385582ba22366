package portfolio

import (
	"context"
	"testing"

	"github.com/popolling/server/internal/models"
	"github.com/popolling/server/internal/pkg/apperr"
	"github.com/popolling/server/internal/pkg/pagination"
	"github.com/popolling/server/internal/pkg/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedUser(t *testing.T, db *gorm.DB, name string) *models.UserModel {
	t.Helper()
	u := &models.UserModel{Username: name, Email: name + "@example.com", Password: "x"}
	require.NoError(t, db.Create(u).Error)
	return u
}

func newService(t *testing.T) (*Service, *gorm.DB) {
	db := testdb.New(t)
	return NewService(db, nil), db
}

func TestCreateAndGet(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	owner := seedUser(t, db, "erin")
	fan := seedUser(t, db, "frank")

	p, err := svc.Create(ctx, owner.ID, &CreatePortfolioDTO{
		Title:       " Weather app ",
		Description: "# Forecasts\n\n**fast**",
		TechStack:   []string{"go", " ", "react"},
		Images:      []string{"/uploads/a.png", "/uploads/b.png"},
		Tags:        []string{"Web", "web", "mobile"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Weather app", p.Title)
	assert.Equal(t, []string{"go", "react"}, p.TechStack)
	require.Len(t, p.Images, 2)
	assert.Equal(t, "/uploads/a.png", p.Images[0].URL)
	require.Len(t, p.Tags, 2)
	assert.Equal(t, "erin", p.User.Username)

	require.NoError(t, db.Create(&models.LikeModel{PortfolioID: p.ID, UserID: fan.ID}).Error)
	require.NoError(t, db.Create(&models.CommentModel{PortfolioID: p.ID, UserID: fan.ID, Content: "nice"}).Error)
	require.NoError(t, db.Create(&models.VoteModel{PortfolioID: p.ID, UserID: fan.ID, Design: 8, Tech: 6, Impact: 4}).Error)
	require.NoError(t, db.Create(&models.VoteModel{PortfolioID: p.ID, UserID: owner.ID, Design: 6, Tech: 6, Impact: 10}).Error)

	d, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, d.Portfolio.ViewCount)
	assert.EqualValues(t, 1, d.Portfolio.LikeCount)
	assert.EqualValues(t, 1, d.Portfolio.CommentCount)
	assert.Contains(t, d.DescriptionHTML, "<h1>Forecasts</h1>")
	assert.Contains(t, d.DescriptionHTML, "<strong>fast</strong>")
	require.Len(t, d.Comments, 1)
	assert.Equal(t, "frank", d.Comments[0].User.Username)
	assert.Len(t, d.Votes, 2)
	assert.EqualValues(t, 2, d.Averages.Count)
	assert.InDelta(t, 7.0, d.Averages.Design, 0.001)
	assert.InDelta(t, 7.0, d.Averages.Impact, 0.001)

	d, err = svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, d.Portfolio.ViewCount)

	_, err = svc.Get(ctx, "missing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestListFiltersAndSorts(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	owner := seedUser(t, db, "gina")

	first, err := svc.Create(ctx, owner.ID, &CreatePortfolioDTO{Title: "first", Tags: []string{"web"}})
	require.NoError(t, err)
	second, err := svc.Create(ctx, owner.ID, &CreatePortfolioDTO{Title: "second", Tags: []string{"game"}})
	require.NoError(t, err)
	third, err := svc.Create(ctx, owner.ID, &CreatePortfolioDTO{Title: "third", Tags: []string{"web", "game"}})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.PortfolioModel{}).Where("id = ?", second.ID).Update("view_count", 50).Error)
	require.NoError(t, db.Model(&models.PortfolioModel{}).Where("id = ?", first.ID).Update("view_count", 10).Error)

	items, pag, err := svc.List(ctx, pagination.Normalize(1, 20), ListQuery{Tag: "WEB"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, pag.Total)
	ids := []string{items[0].ID, items[1].ID}
	assert.ElementsMatch(t, []string{first.ID, third.ID}, ids)

	items, _, err = svc.List(ctx, pagination.Normalize(1, 20), ListQuery{Sort: SortPopular})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, second.ID, items[0].ID)
	assert.Equal(t, first.ID, items[1].ID)

	items, pag, err = svc.List(ctx, pagination.Normalize(2, 2), ListQuery{})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.EqualValues(t, 3, pag.Total)
	assert.False(t, pag.HasNextPage)
}

func TestOwnershipIsEnforced(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	owner := seedUser(t, db, "hank")
	other := seedUser(t, db, "iris")

	p, err := svc.Create(ctx, owner.ID, &CreatePortfolioDTO{Title: "mine", Images: []string{"/uploads/x.png"}})
	require.NoError(t, err)

	title := "stolen"
	_, err = svc.Update(ctx, other.ID, p.ID, &UpdatePortfolioDTO{Title: &title})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(svc.Delete(ctx, other.ID, p.ID)))
	// Missing resources are Forbidden too.
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(svc.Delete(ctx, other.ID, "missing")))
	_, err = svc.SetTags(ctx, other.ID, p.ID, []string{"x"})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	title = "renamed"
	updated, err := svc.Update(ctx, owner.ID, p.ID, &UpdatePortfolioDTO{
		Title:     &title,
		TechStack: []string{"rust"},
		Images:    []string{"/uploads/y.png", "/uploads/z.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	assert.Equal(t, []string{"rust"}, updated.TechStack)
	require.Len(t, updated.Images, 2)
	assert.Equal(t, "/uploads/y.png", updated.Images[0].URL)
}

func TestBlankTitleRejected(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	owner := seedUser(t, db, "kate")

	_, err := svc.Create(ctx, owner.ID, &CreatePortfolioDTO{Title: "   "})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	p, err := svc.Create(ctx, owner.ID, &CreatePortfolioDTO{Title: "keep me"})
	require.NoError(t, err)

	blank := " \t "
	_, err = svc.Update(ctx, owner.ID, p.ID, &UpdatePortfolioDTO{Title: &blank})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	var stored models.PortfolioModel
	require.NoError(t, db.First(&stored, "id = ?", p.ID).Error)
	assert.Equal(t, "keep me", stored.Title)
}

func TestSetTagsReplacesSet(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	owner := seedUser(t, db, "jack")

	p, err := svc.Create(ctx, owner.ID, &CreatePortfolioDTO{Title: "tags", Tags: []string{"a", "b"}})
	require.NoError(t, err)

	names, err := svc.SetTags(ctx, owner.ID, p.ID, []string{"b", "c", " C "})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, names)

	loaded, err := svc.load(ctx, p.ID)
	require.NoError(t, err)
	got := []string{}
	for _, tag := range loaded.Tags {
		got = append(got, tag.Name)
	}
	assert.Equal(t, []string{"b", "c"}, got)

	names, err = svc.SetTags(ctx, owner.ID, p.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, names)

	var tagCount int64
	require.NoError(t, db.Model(&models.TagModel{}).Count(&tagCount).Error)
	assert.EqualValues(t, 3, tagCount)
}

func TestDeleteRemovesChildren(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	owner := seedUser(t, db, "kate")

	p, err := svc.Create(ctx, owner.ID, &CreatePortfolioDTO{Title: "bye", Images: []string{"/uploads/q.png"}, Tags: []string{"t"}})
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.LikeModel{PortfolioID: p.ID, UserID: owner.ID}).Error)
	require.NoError(t, db.Create(&models.BookmarkModel{PortfolioID: p.ID, UserID: owner.ID}).Error)

	require.NoError(t, svc.Delete(ctx, owner.ID, p.ID))

	for _, m := range []interface{}{&models.PortfolioModel{}, &models.PortfolioImage{}, &models.LikeModel{}, &models.BookmarkModel{}} {
		var n int64
		require.NoError(t, db.Model(m).Count(&n).Error)
		assert.Zero(t, n)
	}
	var joins int64
	require.NoError(t, db.Table("portfolio_tags").Count(&joins).Error)
	assert.Zero(t, joins)
}
