package social

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fitlife/fitlife/models"
	"github.com/fitlife/fitlife/repository"
)

// ProfileInput is a partial profile update; nil fields are left unchanged.
type ProfileInput struct {
	Username  *string `json:"username" binding:"omitempty,max=64"`
	FullName  *string `json:"full_name" binding:"omitempty,max=128"`
	Bio       *string `json:"bio" binding:"omitempty,max=2000"`
	AvatarURL *string `json:"avatar_url" binding:"omitempty,max=1024"`
}

// ProfileEditor manages the viewer's own profile row.
type ProfileEditor struct {
	profiles repository.ProfileRepository
	session  Session
	notifier Notifier
	logger   *zap.Logger
}

func NewProfileEditor(profiles repository.ProfileRepository, session Session, notifier Notifier, logger *zap.Logger) *ProfileEditor {
	return &ProfileEditor{profiles: profiles, session: session, notifier: notifier, logger: orNop(logger)}
}

// Ensure creates the profile for userID unless one exists.
func (e *ProfileEditor) Ensure(ctx context.Context, userID, username, fullName string) error {
	p := &models.Profile{UserID: userID, Username: optional(username), FullName: optional(fullName)}
	if err := e.profiles.Create(ctx, p); err != nil {
		return fmt.Errorf("%w: create profile: %v", ErrRemote, err)
	}
	return nil
}

func (e *ProfileEditor) Get(ctx context.Context) (*models.Profile, error) {
	viewer, ok := viewerOf(e.session)
	if !ok {
		return nil, ErrNotAuthenticated
	}
	p, err := e.profiles.FindByUserID(ctx, viewer)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: profile %s", ErrNotFound, viewer)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get profile: %v", ErrRemote, err)
	}
	return p, nil
}

func (e *ProfileEditor) Update(ctx context.Context, in ProfileInput) (*models.Profile, error) {
	viewer, ok := viewerOf(e.session)
	if !ok {
		signInRequired(e.notifier, "Please sign in to edit your profile")
		return nil, ErrNotAuthenticated
	}
	fields := map[string]interface{}{}
	set := func(col string, v *string) {
		if v != nil {
			fields[col] = optional(*v)
		}
	}
	set("username", in.Username)
	set("full_name", in.FullName)
	set("bio", in.Bio)
	set("avatar_url", in.AvatarURL)
	if len(fields) == 0 {
		return e.Get(ctx)
	}
	n, err := e.profiles.Update(ctx, viewer, fields)
	if err != nil {
		e.logger.Warn("update profile failed", zap.String("user_id", viewer), zap.Error(err))
		notify(e.notifier, "Error", "Failed to update profile", SeverityError)
		return nil, fmt.Errorf("%w: update profile: %v", ErrRemote, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: profile %s", ErrNotFound, viewer)
	}
	notify(e.notifier, "Profile updated", "Your profile has been saved", SeverityInfo)
	return e.Get(ctx)
}

// optional maps blank strings to NULL.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
