package social

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fitlife/fitlife/models"
	"github.com/fitlife/fitlife/repository"
	"github.com/fitlife/fitlife/utils"
)

// CommentView is a comment joined with its author.
type CommentView struct {
	ID        string         `json:"id"`
	PostID    string         `json:"post_id"`
	UserID    string         `json:"user_id"`
	Content   string         `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
	Author    ProfileSummary `json:"author"`
}

// CommentThread holds the ordered comments of one post.
type CommentThread struct {
	posts     repository.PostRepository
	comments  repository.CommentRepository
	directory *ProfileDirectory
	session   Session
	notifier  Notifier
	logger    *zap.Logger

	mu         sync.Mutex
	postID     string
	items      []CommentView
	loading    bool
	submitting bool
	gen        uint64
	closed     bool
}

func NewCommentThread(postID string, posts repository.PostRepository, comments repository.CommentRepository, directory *ProfileDirectory,
	session Session, notifier Notifier, logger *zap.Logger) *CommentThread {
	return &CommentThread{
		posts:     posts,
		comments:  comments,
		directory: directory,
		session:   session,
		notifier:  notifier,
		logger:    orNop(logger),
		postID:    postID,
		items:     []CommentView{},
	}
}

func (t *CommentThread) SetPost(postID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if postID == t.postID {
		return
	}
	t.gen++
	t.postID = postID
	t.items = []CommentView{}
	t.loading = false
}

func (t *CommentThread) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

// Comments returns the loaded comments, oldest first.
func (t *CommentThread) Comments() []CommentView {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]CommentView, len(t.items))
	copy(out, t.items)
	return out
}

func (t *CommentThread) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}

func (t *CommentThread) Loading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loading
}

// Load replaces the list with the post's comments and their authors.
func (t *CommentThread) Load(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.gen++
	gen, postID := t.gen, t.postID
	t.loading = true
	t.mu.Unlock()

	rows, err := t.comments.ListByPost(ctx, postID)
	var views []CommentView
	if err == nil {
		views = t.join(ctx, rows)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || gen != t.gen {
		return nil
	}
	t.loading = false
	if err != nil {
		t.logger.Warn("load comments failed", zap.String("post_id", postID), zap.Error(err))
		return fmt.Errorf("%w: load comments: %v", ErrRemote, err)
	}
	t.items = views
	return nil
}

func (t *CommentThread) join(ctx context.Context, rows []models.Comment) []CommentView {
	ids := make([]string, 0, len(rows))
	for _, c := range rows {
		ids = append(ids, c.UserID)
	}
	authors := t.directory.Lookup(ctx, ids)
	views := make([]CommentView, 0, len(rows))
	for _, c := range rows {
		views = append(views, CommentView{
			ID:        c.ID,
			PostID:    c.PostID,
			UserID:    c.UserID,
			Content:   c.Content,
			CreatedAt: c.CreatedAt,
			Author:    Resolve(authors, c.UserID),
		})
	}
	return views
}

// Add posts a comment as the viewer and reloads the thread.
func (t *CommentThread) Add(ctx context.Context, content string) error {
	viewer, ok := viewerOf(t.session)
	if !ok {
		signInRequired(t.notifier, "Please sign in to comment")
		return ErrNotAuthenticated
	}
	body := strings.TrimSpace(utils.Sanitize(content))
	if body == "" {
		notify(t.notifier, "Empty comment", "Write something before posting", SeverityError)
		return fmt.Errorf("%w: comment content is empty", ErrValidation)
	}

	t.mu.Lock()
	if t.submitting {
		t.mu.Unlock()
		return ErrBusy
	}
	t.submitting = true
	postID := t.postID
	t.mu.Unlock()

	_, err := findPost(ctx, t.posts, postID)
	if err == nil {
		if cerr := t.comments.Create(ctx, &models.Comment{PostID: postID, UserID: viewer, Content: body}); cerr != nil {
			err = fmt.Errorf("%w: add comment: %v", ErrRemote, cerr)
		}
	}

	t.mu.Lock()
	t.submitting = false
	t.mu.Unlock()

	switch {
	case errors.Is(err, ErrNotFound):
		notify(t.notifier, "Post not found", "This post no longer exists", SeverityError)
		return err
	case err != nil:
		t.logger.Warn("add comment failed", zap.String("post_id", postID), zap.Error(err))
		notify(t.notifier, "Error", "Failed to post comment", SeverityError)
		return err
	}
	notify(t.notifier, "Comment posted", "Your comment has been added", SeverityInfo)
	if err := t.Load(ctx); err != nil {
		t.logger.Warn("reload comments after add failed", zap.String("post_id", postID), zap.Error(err))
	}
	return nil
}
