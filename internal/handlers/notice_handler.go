package handlers

import (
	"net/http"

	"github.com/smmwallet/backend/internal/models"
	"github.com/smmwallet/backend/internal/services"
)

type NoticeHandler struct {
	notices *services.NoticeService
}

func NewNoticeHandler(notices *services.NoticeService) *NoticeHandler {
	return &NoticeHandler{notices: notices}
}

// List returns the caller's notices created after since
// @Summary List my notices
// @Tags Notices
// @Produce json
// @Security BearerAuth
// @Param audience query string false "Only user is accepted here"
// @Param since query string false "RFC 3339 timestamp"
// @Param limit query int false "Maximum entries (default 100)"
// @Success 200 {array} models.Notice
// @Failure 400 {object} services.ErrorResponse
// @Router /notices [get]
func (h *NoticeHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUID(w, r)
	if !ok {
		return
	}
	if a := r.URL.Query().Get("audience"); a != "" && models.Audience(a) != models.AudienceUser {
		services.SendErrorResponse(w, "Only the user audience is available", http.StatusForbidden, nil)
		return
	}
	h.list(w, r, models.AudienceUser, uid)
}

// ListOwner returns the operator feed
// @Summary List operator notices
// @Tags Admin
// @Produce json
// @Security AdminSecret
// @Param since query string false "RFC 3339 timestamp"
// @Param limit query int false "Maximum entries (default 100)"
// @Success 200 {array} models.Notice
// @Router /admin/notices [get]
func (h *NoticeHandler) ListOwner(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, models.AudienceOwner, "")
}

func (h *NoticeHandler) list(w http.ResponseWriter, r *http.Request, audience models.Audience, uid string) {
	since, err := querySince(r)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	notices, err := h.notices.List(r.Context(), audience, uid, since, queryLimit(r))
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notices)
}
