package server

import "github.com/labstack/echo/v4"

func (s *Server) handleRoot(e echo.Context) error {
	return e.String(200, "         o\n        /|\\\n       / | \\\n      signet\n\nThis is a DID and verifiable credential registry.\nMost of what lives here is reachable under /v1.\n")
}
