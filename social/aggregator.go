package social

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fitlife/fitlife/models"
	"github.com/fitlife/fitlife/repository"
)

const (
	SortNewest = "created_at"
	SortTitle  = "title"
	// SortLikes is accepted but ordered like SortNewest until like counts are aggregated.
	SortLikes = "likes"

	CategoryAll = "all"
	// LatestLimit is the size of the landing page feed.
	LatestLimit = 6
)

// PostQuery selects posts for a feed.
type PostQuery struct {
	Category string
	Sort     string
	Search   string
	AuthorID string
	Limit    int
}

// PostCard is a post joined with its author. The counters are placeholders.
type PostCard struct {
	models.Post
	Author        ProfileSummary `json:"author"`
	LikesCount    int64          `json:"likes_count"`
	CommentsCount int64          `json:"comments_count"`
}

type PostAggregator struct {
	posts     repository.PostRepository
	directory *ProfileDirectory
	logger    *zap.Logger
}

func NewPostAggregator(posts repository.PostRepository, directory *ProfileDirectory, logger *zap.Logger) *PostAggregator {
	return &PostAggregator{posts: posts, directory: directory, logger: orNop(logger)}
}

// Fetch lists posts for q. Search is applied after the fetch, to the returned page only.
func (a *PostAggregator) Fetch(ctx context.Context, q PostQuery) ([]PostCard, error) {
	f := repository.PostFilter{AuthorID: q.AuthorID, Limit: q.Limit}
	if q.Category != "" && q.Category != CategoryAll {
		f.Category = q.Category
	}
	if q.Sort == SortTitle {
		f.OrderBy, f.Ascending = "title", true
	}
	rows, err := a.posts.List(ctx, f)
	if err != nil {
		a.logger.Warn("fetch posts failed", zap.String("category", f.Category), zap.Error(err))
		return nil, fmt.Errorf("%w: fetch posts: %v", ErrRemote, err)
	}
	if q.Sort == SortTitle {
		// byte-wise order regardless of the database collation
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Title < rows[j].Title })
	}
	return FilterBySearch(a.cards(ctx, rows), q.Search), nil
}

// Get returns one post with its author.
func (a *PostAggregator) Get(ctx context.Context, id string) (PostCard, error) {
	p, err := findPost(ctx, a.posts, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			a.logger.Warn("get post failed", zap.String("post_id", id), zap.Error(err))
		}
		return PostCard{}, err
	}
	return a.cards(ctx, []models.Post{*p})[0], nil
}

// findPost loads one post, mapping a missing row to ErrNotFound and other failures to ErrRemote.
func findPost(ctx context.Context, posts repository.PostRepository, id string) (*models.Post, error) {
	p, err := posts.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: post %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get post: %v", ErrRemote, err)
	}
	return p, nil
}

func (a *PostAggregator) cards(ctx context.Context, rows []models.Post) []PostCard {
	return joinAuthors(ctx, a.directory, rows)
}

func joinAuthors(ctx context.Context, dir *ProfileDirectory, rows []models.Post) []PostCard {
	ids := make([]string, 0, len(rows))
	for _, p := range rows {
		ids = append(ids, p.UserID)
	}
	authors := dir.Lookup(ctx, ids)
	cards := make([]PostCard, 0, len(rows))
	for _, p := range rows {
		cards = append(cards, PostCard{Post: p, Author: Resolve(authors, p.UserID)})
	}
	return cards
}

// FilterBySearch keeps cards whose title, content or author username contains term, ignoring case.
func FilterBySearch(cards []PostCard, term string) []PostCard {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return cards
	}
	out := make([]PostCard, 0, len(cards))
	for _, c := range cards {
		if strings.Contains(strings.ToLower(c.Title), term) ||
			strings.Contains(strings.ToLower(c.Content), term) ||
			strings.Contains(strings.ToLower(deref(c.Author.Username)), term) {
			out = append(out, c)
		}
	}
	return out
}
