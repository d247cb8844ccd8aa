package social

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fitlife/fitlife/repository"
)

type LikeStatus string

const (
	LikeIdle    LikeStatus = "idle"
	LikeLoading LikeStatus = "loading"
	LikeLiked   LikeStatus = "liked"
	LikeUnliked LikeStatus = "unliked"
)

// LikeSnapshot is a consistent copy of a LikeState.
type LikeSnapshot struct {
	PostID  string     `json:"post_id"`
	Count   int64      `json:"count"`
	IsLiked bool       `json:"is_liked"`
	Status  LikeStatus `json:"status"`
}

type LikeOption func(*LikeState)

// WithLikeChange registers fn to run after every attempted toggle, successful or not.
func WithLikeChange(fn func(LikeSnapshot)) LikeOption {
	return func(s *LikeState) { s.onChange = fn }
}

// LikeState tracks the like count of one post and whether the viewer liked it.
// Local state only changes after the backend confirms a mutation.
type LikeState struct {
	posts    repository.PostRepository
	likes    repository.LikeRepository
	session  Session
	notifier Notifier
	logger   *zap.Logger
	onChange func(LikeSnapshot)

	mu       sync.Mutex
	postID   string
	count    int64
	liked    bool
	status   LikeStatus
	gen      uint64
	closed   bool
	toggling bool
}

func NewLikeState(postID string, posts repository.PostRepository, likes repository.LikeRepository, session Session, notifier Notifier, logger *zap.Logger, opts ...LikeOption) *LikeState {
	s := &LikeState{
		posts:    posts,
		likes:    likes,
		session:  session,
		notifier: notifier,
		logger:   orNop(logger),
		postID:   postID,
		status:   LikeIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetPost points the state at another post. Loads still in flight for the old post are discarded.
func (s *LikeState) SetPost(postID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if postID == s.postID {
		return
	}
	s.gen++
	s.postID = postID
	s.count = 0
	s.liked = false
	s.status = LikeIdle
}

// Close discards every response that arrives afterwards.
func (s *LikeState) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *LikeState) Snapshot() LikeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *LikeState) snapshotLocked() LikeSnapshot {
	return LikeSnapshot{PostID: s.postID, Count: s.count, IsLiked: s.liked, Status: s.status}
}

func (s *LikeState) settledStatus() LikeStatus {
	if s.liked {
		return LikeLiked
	}
	return LikeUnliked
}

// Load fetches the count and, for a signed-in viewer, the viewer's like concurrently.
func (s *LikeState) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.gen++
	gen, postID := s.gen, s.postID
	s.status = LikeLoading
	s.mu.Unlock()

	viewer, signedIn := viewerOf(s.session)
	var (
		count int64
		liked bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.likes.CountByPost(gctx, postID)
		count = n
		return err
	})
	if signedIn {
		g.Go(func() error {
			ok, err := s.likes.Exists(gctx, postID, viewer)
			liked = ok
			return err
		})
	}
	err := g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.gen {
		return nil
	}
	if err != nil {
		if s.status == LikeLoading {
			s.status = LikeIdle
		}
		s.logger.Warn("load likes failed", zap.String("post_id", postID), zap.Error(err))
		return fmt.Errorf("%w: load likes: %v", ErrRemote, err)
	}
	s.count = count
	s.liked = liked
	s.status = s.settledStatus()
	return nil
}

// Toggle likes or unlikes the post for the viewer.
func (s *LikeState) Toggle(ctx context.Context) (LikeSnapshot, error) {
	viewer, ok := viewerOf(s.session)
	if !ok {
		signInRequired(s.notifier, "Please sign in to like posts")
		return s.Snapshot(), ErrNotAuthenticated
	}

	s.mu.Lock()
	if s.toggling {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, ErrBusy
	}
	s.toggling = true
	wasLiked, postID, prevStatus := s.liked, s.postID, s.status
	s.status = LikeLoading
	s.mu.Unlock()

	_, err := findPost(ctx, s.posts, postID)
	if err == nil {
		if wasLiked {
			err = s.likes.Delete(ctx, postID, viewer)
		} else {
			err = s.likes.Create(ctx, postID, viewer)
		}
		if err != nil {
			err = fmt.Errorf("%w: toggle like: %v", ErrRemote, err)
		}
	}

	s.mu.Lock()
	s.toggling = false
	if !s.closed && postID == s.postID {
		switch {
		case err == nil:
			// supersede any load started before the mutation
			s.gen++
			if wasLiked {
				s.liked = false
				if s.count > 0 {
					s.count--
				}
			} else {
				s.liked = true
				s.count++
			}
			s.status = s.settledStatus()
		case s.status == LikeLoading:
			s.status = prevStatus
		}
	}
	snap := s.snapshotLocked()
	onChange := s.onChange
	s.mu.Unlock()

	if onChange != nil {
		onChange(snap)
	}
	switch {
	case errors.Is(err, ErrNotFound):
		notify(s.notifier, "Post not found", "This post no longer exists", SeverityError)
		return snap, err
	case err != nil:
		s.logger.Warn("toggle like failed", zap.String("post_id", postID), zap.Bool("was_liked", wasLiked), zap.Error(err))
		notify(s.notifier, "Error", "Failed to update like", SeverityError)
		return snap, err
	}
	return snap, nil
}
