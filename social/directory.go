package social

import (
	"context"
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/fitlife/fitlife/models"
	"github.com/fitlife/fitlife/repository"
	"github.com/fitlife/fitlife/utils"
)

const anonymousName = "Anonymous"

// ProfileSummary is the part of a profile shown next to posts and comments.
type ProfileSummary struct {
	UserID    string  `json:"user_id"`
	Username  *string `json:"username"`
	FullName  *string `json:"full_name"`
	AvatarURL *string `json:"avatar_url"`
}

func summaryOf(p models.Profile) ProfileSummary {
	return ProfileSummary{UserID: p.UserID, Username: p.Username, FullName: p.FullName, AvatarURL: p.AvatarURL}
}

// Placeholder is the summary rendered for a user without a profile row.
func Placeholder(userID string) ProfileSummary { return ProfileSummary{UserID: userID} }

// DisplayName prefers the full name, then the username, then "Anonymous".
func (p ProfileSummary) DisplayName() string {
	if s := deref(p.FullName); s != "" {
		return s
	}
	if s := deref(p.Username); s != "" {
		return s
	}
	return anonymousName
}

// Initial is the upper-cased first letter of the username or full name, "U" when both are empty.
func (p ProfileSummary) Initial() string {
	for _, s := range []string{deref(p.Username), deref(p.FullName)} {
		if s == "" {
			continue
		}
		r, _ := utf8.DecodeRuneInString(s)
		return string(unicode.ToUpper(r))
	}
	return "U"
}

func (p ProfileSummary) MarshalJSON() ([]byte, error) {
	type plain ProfileSummary
	return json.Marshal(struct {
		plain
		DisplayName string `json:"display_name"`
		Initial     string `json:"initial"`
	}{plain(p), p.DisplayName(), p.Initial()})
}

// ProfileDirectory resolves user ids to summaries with one batched query.
type ProfileDirectory struct {
	profiles repository.ProfileRepository
	logger   *zap.Logger
}

func NewProfileDirectory(profiles repository.ProfileRepository, logger *zap.Logger) *ProfileDirectory {
	return &ProfileDirectory{profiles: profiles, logger: orNop(logger)}
}

// Lookup never fails: a storage error is logged and yields an empty map.
func (d *ProfileDirectory) Lookup(ctx context.Context, userIDs []string) map[string]ProfileSummary {
	ids := utils.UniqueStrings(userIDs)
	res := make(map[string]ProfileSummary, len(ids))
	if len(ids) == 0 {
		return res
	}
	rows, err := d.profiles.FindByUserIDs(ctx, ids)
	if err != nil {
		d.logger.Warn("profile lookup failed", zap.Int("ids", len(ids)), zap.Error(err))
		return res
	}
	for _, p := range rows {
		res[p.UserID] = summaryOf(p)
	}
	return res
}

// Resolve returns the summary for userID or its placeholder.
func Resolve(m map[string]ProfileSummary, userID string) ProfileSummary {
	if p, ok := m[userID]; ok {
		return p
	}
	return Placeholder(userID)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
