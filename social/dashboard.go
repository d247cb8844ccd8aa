package social

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/fitlife/fitlife/repository"
)

// Dashboard holds the viewer's three collections.
type Dashboard struct {
	MyPosts    []PostCard `json:"my_posts"`
	LikedPosts []PostCard `json:"liked_posts"`
	// SavedPosts is always empty; bookmarking is not surfaced yet.
	SavedPosts []PostCard `json:"saved_posts"`
}

func emptyDashboard() Dashboard {
	return Dashboard{MyPosts: []PostCard{}, LikedPosts: []PostCard{}, SavedPosts: []PostCard{}}
}

// Confirmer asks the viewer to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

// AlwaysConfirm approves every prompt.
var AlwaysConfirm Confirmer = ConfirmFunc(func(context.Context, string) bool { return true })

// DashboardReconciler builds the signed-in viewer's dashboard and applies deletions to it.
type DashboardReconciler struct {
	posts     repository.PostRepository
	likes     repository.LikeRepository
	directory *ProfileDirectory
	session   Session
	notifier  Notifier
	confirmer Confirmer
	logger    *zap.Logger

	mu    sync.Mutex
	state Dashboard
}

func NewDashboardReconciler(posts repository.PostRepository, likes repository.LikeRepository, directory *ProfileDirectory,
	session Session, notifier Notifier, confirmer Confirmer, logger *zap.Logger) *DashboardReconciler {
	return &DashboardReconciler{
		posts:     posts,
		likes:     likes,
		directory: directory,
		session:   session,
		notifier:  notifier,
		confirmer: confirmer,
		logger:    orNop(logger),
		state:     emptyDashboard(),
	}
}

// Load fetches every collection. A failing collection is logged and left empty.
func (r *DashboardReconciler) Load(ctx context.Context) (Dashboard, error) {
	viewer, ok := viewerOf(r.session)
	if !ok {
		return emptyDashboard(), ErrNotAuthenticated
	}
	d := emptyDashboard()
	d.MyPosts = r.myPosts(ctx, viewer)
	d.LikedPosts = r.likedPosts(ctx, viewer)

	r.mu.Lock()
	r.state = d
	r.mu.Unlock()
	return r.Snapshot(), nil
}

func (r *DashboardReconciler) myPosts(ctx context.Context, viewer string) []PostCard {
	rows, err := r.posts.List(ctx, repository.PostFilter{AuthorID: viewer})
	if err != nil {
		r.logger.Warn("dashboard: my posts failed", zap.String("user_id", viewer), zap.Error(err))
		return []PostCard{}
	}
	return joinAuthors(ctx, r.directory, rows)
}

func (r *DashboardReconciler) likedPosts(ctx context.Context, viewer string) []PostCard {
	likes, err := r.likes.ListByUser(ctx, viewer)
	if err != nil {
		r.logger.Warn("dashboard: liked ids failed", zap.String("user_id", viewer), zap.Error(err))
		return []PostCard{}
	}
	if len(likes) == 0 {
		return []PostCard{}
	}
	ids := make([]string, 0, len(likes))
	for _, l := range likes {
		ids = append(ids, l.PostID)
	}
	rows, err := r.posts.List(ctx, repository.PostFilter{IDs: ids})
	if err != nil {
		r.logger.Warn("dashboard: liked posts failed", zap.String("user_id", viewer), zap.Error(err))
		return []PostCard{}
	}
	return joinAuthors(ctx, r.directory, rows)
}

// Snapshot returns a copy of the current collections.
func (r *DashboardReconciler) Snapshot() Dashboard {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Dashboard{
		MyPosts:    append([]PostCard{}, r.state.MyPosts...),
		LikedPosts: append([]PostCard{}, r.state.LikedPosts...),
		SavedPosts: append([]PostCard{}, r.state.SavedPosts...),
	}
}

// DeletePost deletes one of the viewer's posts after confirmation.
// Deleting a post owned by someone else matches no row, leaves local state alone and is reported as success.
func (r *DashboardReconciler) DeletePost(ctx context.Context, postID string) error {
	viewer, ok := viewerOf(r.session)
	if !ok {
		signInRequired(r.notifier, "Please sign in to manage your posts")
		return ErrNotAuthenticated
	}
	if r.confirmer == nil || !r.confirmer.Confirm(ctx, "Are you sure you want to delete this post?") {
		return ErrNotConfirmed
	}
	n, err := r.posts.DeleteOwned(ctx, postID, viewer)
	if err != nil {
		r.logger.Warn("delete post failed", zap.String("post_id", postID), zap.Error(err))
		notify(r.notifier, "Error", "Failed to delete post", SeverityError)
		return fmt.Errorf("%w: delete post: %v", ErrRemote, err)
	}
	if n == 0 {
		r.logger.Info("delete matched no owned post", zap.String("post_id", postID), zap.String("user_id", viewer))
		return nil
	}
	notify(r.notifier, "Post deleted", "Your post has been deleted", SeverityInfo)

	r.mu.Lock()
	r.state.MyPosts = withoutPost(r.state.MyPosts, postID)
	r.state.LikedPosts = withoutPost(r.state.LikedPosts, postID)
	r.mu.Unlock()
	return nil
}

func withoutPost(cards []PostCard, id string) []PostCard {
	out := cards[:0:0]
	for _, c := range cards {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}
