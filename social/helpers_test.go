package social

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fitlife/fitlife/internal/testdb"
	"github.com/fitlife/fitlife/models"
	"github.com/fitlife/fitlife/repository"
)

var errBackend = errors.New("backend unavailable")

type fixture struct {
	db       *gorm.DB
	posts    repository.PostRepository
	likes    repository.LikeRepository
	comments repository.CommentRepository
	profiles repository.ProfileRepository
	dir      *ProfileDirectory
}

func newFixture(t *testing.T) *fixture {
	db := testdb.Open(t)
	profiles := repository.NewProfileRepository(db)
	return &fixture{
		db:       db,
		posts:    repository.NewPostRepository(db),
		likes:    repository.NewLikeRepository(db),
		comments: repository.NewCommentRepository(db),
		profiles: profiles,
		dir:      NewProfileDirectory(profiles, nil),
	}
}

func (f *fixture) profile(t *testing.T, userID, username, fullName string) {
	t.Helper()
	p := models.Profile{UserID: userID}
	if username != "" {
		p.Username = &username
	}
	if fullName != "" {
		p.FullName = &fullName
	}
	require.NoError(t, f.db.Create(&p).Error)
}

func (f *fixture) post(t *testing.T, id, owner, title, category string, at time.Time) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.Post{ID: id, UserID: owner, Title: title, Content: "About " + title, Category: category, CreatedAt: at}).Error)
}

func (f *fixture) countRows(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

// likeFaults overrides single LikeRepository methods.
type likeFaults struct {
	repository.LikeRepository
	createErr error
	deleteErr error
	countErr  error
	existsErr error
}

func (l *likeFaults) Create(ctx context.Context, postID, userID string) error {
	if l.createErr != nil {
		return l.createErr
	}
	return l.LikeRepository.Create(ctx, postID, userID)
}

func (l *likeFaults) Delete(ctx context.Context, postID, userID string) error {
	if l.deleteErr != nil {
		return l.deleteErr
	}
	return l.LikeRepository.Delete(ctx, postID, userID)
}

func (l *likeFaults) CountByPost(ctx context.Context, postID string) (int64, error) {
	if l.countErr != nil {
		return 0, l.countErr
	}
	return l.LikeRepository.CountByPost(ctx, postID)
}

func (l *likeFaults) Exists(ctx context.Context, postID, userID string) (bool, error) {
	if l.existsErr != nil {
		return false, l.existsErr
	}
	return l.LikeRepository.Exists(ctx, postID, userID)
}

func (l *likeFaults) ListByUser(ctx context.Context, userID string) ([]models.Like, error) {
	if l.countErr != nil {
		return nil, l.countErr
	}
	return l.LikeRepository.ListByUser(ctx, userID)
}

// gate blocks the first call that passes through it until release is closed.
type gate struct {
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gate) pass() {
	first := false
	g.once.Do(func() { first = true })
	if !first {
		return
	}
	close(g.entered)
	<-g.release
}

type gatedLikes struct {
	repository.LikeRepository
	create *gate
	count  *gate
}

func (g *gatedLikes) Create(ctx context.Context, postID, userID string) error {
	if g.create != nil {
		g.create.pass()
	}
	return g.LikeRepository.Create(ctx, postID, userID)
}

func (g *gatedLikes) CountByPost(ctx context.Context, postID string) (int64, error) {
	if g.count != nil {
		g.count.pass()
	}
	return g.LikeRepository.CountByPost(ctx, postID)
}

type profileFaults struct {
	repository.ProfileRepository
	err   error
	calls int
}

func (p *profileFaults) FindByUserIDs(ctx context.Context, ids []string) ([]models.Profile, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.ProfileRepository.FindByUserIDs(ctx, ids)
}

type postFaults struct {
	repository.PostRepository
	listErr   error
	deleteErr error
	// failIDs fails only lists filtered by ids
	failIDs bool
}

func (p *postFaults) List(ctx context.Context, f repository.PostFilter) ([]models.Post, error) {
	if p.listErr != nil && (!p.failIDs || f.IDs != nil) {
		return nil, p.listErr
	}
	return p.PostRepository.List(ctx, f)
}

func (p *postFaults) DeleteOwned(ctx context.Context, id, owner string) (int64, error) {
	if p.deleteErr != nil {
		return 0, p.deleteErr
	}
	return p.PostRepository.DeleteOwned(ctx, id, owner)
}
