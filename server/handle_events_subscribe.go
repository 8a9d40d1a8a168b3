package server

import (
	"encoding/json"
	"strconv"

	"github.com/Azure/go-autorest/autorest/to"
	"github.com/btcsuite/websocket"
	"github.com/labstack/echo/v4"

	"github.com/signet-id/signet/internal/helpers"
	"github.com/signet-id/signet/models"
)

// handleEventsSubscribe streams events over a websocket. With a cursor
// the stored backlog is replayed first, then live events follow. The
// subscription is registered before the backfill so nothing recorded
// in between is lost.
func (s *Server) handleEventsSubscribe(e echo.Context) error {
	cursor := uint64(0)
	backfill := false
	if raw := e.QueryParam("cursor"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return helpers.InputError(e, to.StringPtr("InvalidCursor"))
		}
		cursor = parsed
		backfill = true
	}

	conn, err := websocket.Upgrade(e.Response().Writer, e.Request(), e.Response().Header(), 1<<10, 1<<10)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.logger.Info("new event subscriber", "ua", e.Request().UserAgent())

	id, evts := s.evtman.Subscribe()
	defer s.evtman.Unsubscribe(id)

	lastSeq := cursor
	if backfill {
		var stored []models.Event
		if err := s.db.WithContext(e.Request().Context()).Where("seq > ?", cursor).Order("seq asc").Find(&stored).Error; err != nil {
			return err
		}
		for i := range stored {
			if err := writeEvent(conn, &stored[i]); err != nil {
				return err
			}
			lastSeq = stored[i].Seq
		}
	}

	for evt := range evts {
		if backfill && evt.Seq <= lastSeq {
			continue
		}
		if err := writeEvent(conn, evt); err != nil {
			return err
		}
	}

	return nil
}

func writeEvent(conn *websocket.Conn, evt *models.Event) error {
	return conn.WriteJSON(eventView{
		Seq:       evt.Seq,
		Kind:      evt.Kind,
		Payload:   json.RawMessage(evt.Payload),
		CreatedAt: evt.CreatedAt.Unix(),
	})
}
