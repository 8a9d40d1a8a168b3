package server

import (
	"github.com/labstack/echo/v4"

	"github.com/signet-id/signet/internal/helpers"
)

type StatusResponse struct {
	Version          string `json:"version"`
	Did              string `json:"did"`
	Paused           bool   `json:"paused"`
	TotalDids        int64  `json:"totalDids"`
	TotalCredentials int64  `json:"totalCredentials"`
}

func (s *Server) handleStatus(e echo.Context) error {
	dids, err := s.identities.Count(e.Request().Context())
	if err != nil {
		s.logger.Error("error counting documents", "error", err)
		return helpers.ServerError(e, nil)
	}

	creds, err := s.credentials.Count(e.Request().Context())
	if err != nil {
		s.logger.Error("error counting credentials", "error", err)
		return helpers.ServerError(e, nil)
	}

	return e.JSON(200, StatusResponse{
		Version:          s.config.Version,
		Did:              s.config.Did,
		Paused:           s.guard.Paused(),
		TotalDids:        dids,
		TotalCredentials: creds,
	})
}
