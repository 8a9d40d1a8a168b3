package server

import (
	"encoding/json"
	"strconv"

	"github.com/Azure/go-autorest/autorest/to"
	"github.com/labstack/echo/v4"

	"github.com/signet-id/signet/internal/helpers"
	"github.com/signet-id/signet/models"
)

type eventView struct {
	Seq       uint64          `json:"seq"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt int64           `json:"createdAt"`
}

const defaultEventPage = 100

// handleEventsList pages through recorded events in seq order. The
// cursor is exclusive; pass the last seq seen to continue.
func (s *Server) handleEventsList(e echo.Context) error {
	cursor := uint64(0)
	if raw := e.QueryParam("cursor"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return helpers.InputError(e, to.StringPtr("InvalidCursor"))
		}
		cursor = parsed
	}

	limit := defaultEventPage
	if raw := e.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 1000 {
			return helpers.InputError(e, to.StringPtr("InvalidLimit"))
		}
		limit = parsed
	}

	query := s.db.WithContext(e.Request().Context()).Where("seq > ?", cursor)
	if kind := e.QueryParam("kind"); kind != "" {
		query = query.Where("kind = ?", kind)
	}

	var evts []models.Event
	if err := query.Order("seq asc").Limit(limit).Find(&evts).Error; err != nil {
		s.logger.Error("error listing events", "error", err)
		return helpers.ServerError(e, nil)
	}

	views := make([]eventView, 0, len(evts))
	for _, evt := range evts {
		views = append(views, eventView{
			Seq:       evt.Seq,
			Kind:      evt.Kind,
			Payload:   json.RawMessage(evt.Payload),
			CreatedAt: evt.CreatedAt.Unix(),
		})
	}

	resp := map[string]any{
		"events": views,
	}
	if len(evts) > 0 {
		resp["cursor"] = evts[len(evts)-1].Seq
	}

	return e.JSON(200, resp)
}
