package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fitlife/fitlife/middleware"
	"github.com/fitlife/fitlife/social"
	"github.com/fitlife/fitlife/utils"
)

const maxListLimit = 100

// getUserID returns the authenticated viewer id set by the auth middleware.
func getUserID(ctx *gin.Context) (string, bool) {
	id := middleware.ViewerID(ctx)
	return id, id != ""
}

// sessionOf adapts the request identity to social.Session.
func sessionOf(ctx *gin.Context) social.Session {
	return social.StaticSession(middleware.ViewerID(ctx))
}

// requestNotices collects notices for the response and mirrors them to the log.
type requestNotices struct {
	rec social.NoticeRecorder
	log social.Notifier
}

func newRequestNotices(logger *zap.Logger) *requestNotices {
	return &requestNotices{log: social.LogNotifier(logger)}
}

func (n *requestNotices) Notify(notice social.Notice) {
	n.rec.Notify(notice)
	n.log.Notify(notice)
}

func (n *requestNotices) list() []social.Notice { return n.rec.Notices() }

// withNotices adds the collected notices to data under "notices".
func withNotices(data gin.H, n *requestNotices) gin.H {
	if data == nil {
		data = gin.H{}
	}
	data["notices"] = n.list()
	return data
}

// respondError maps component errors onto HTTP status and error code.
func respondError(ctx *gin.Context, err error, n *requestNotices) {
	status, code, msg := http.StatusBadGateway, 50201, "backend request failed"
	switch {
	case errors.Is(err, social.ErrNotAuthenticated):
		status, code, msg = http.StatusUnauthorized, 40110, "authentication required"
	case errors.Is(err, social.ErrValidation):
		status, code, msg = http.StatusBadRequest, 40020, err.Error()
	case errors.Is(err, social.ErrNotFound):
		status, code, msg = http.StatusNotFound, 40410, "not found"
	case errors.Is(err, social.ErrBusy):
		status, code, msg = http.StatusConflict, 40910, "operation already in progress"
	case errors.Is(err, social.ErrNotConfirmed):
		status, code, msg = http.StatusPreconditionRequired, 42810, "confirmation required"
	}
	var data interface{}
	if n != nil {
		data = withNotices(nil, n)
	}
	utils.ErrorWithData(ctx, status, code, msg, data)
}

func parseLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}
