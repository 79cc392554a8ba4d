package http

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s Server) GetOpsAnomalies(c echo.Context) error {
	anomalies, err := s.anomaliesRepo.FindAll(c.Request().Context())
	if err != nil {
		return fmt.Errorf("failed to list anomalies: %w", err)
	}

	return c.JSON(http.StatusOK, anomalies)
}
