package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/fingenie/internal/domain"
)

func errorStatus(err error) int {
	if errors.Is(err, domain.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// GetRun returns a run and its status.
func (s *Server) GetRun(c echo.Context) error {
	run, err := s.runs.GetRun(c.Request().Context(), c.Param("run_id"))
	if err != nil {
		return c.JSON(errorStatus(err), map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, run)
}

// GetRunEvents returns the events of a run, oldest first.
func (s *Server) GetRunEvents(c echo.Context) error {
	runID := c.Param("run_id")
	limit := 100
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}
	afterTs := int64(0)
	if t := c.QueryParam("after_ts"); t != "" {
		if val, err := strconv.ParseInt(t, 10, 64); err == nil {
			afterTs = val
		}
	}
	var types []string
	if t := c.QueryParam("types"); t != "" {
		types = strings.Split(t, ",")
	}

	events, err := s.runs.GetRunEvents(c.Request().Context(), runID, afterTs, types, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if events == nil {
		events = []domain.Event{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"events": events,
	})
}

// GetRunMessages returns the stored transcript, optionally for one step.
func (s *Server) GetRunMessages(c echo.Context) error {
	msgs, err := s.runs.GetRunMessages(c.Request().Context(), c.Param("run_id"), c.QueryParam("step"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if msgs == nil {
		msgs = []domain.StoredMessage{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"messages": msgs,
	})
}

// GetApproval returns one approval record.
func (s *Server) GetApproval(c echo.Context) error {
	approval, err := s.runs.GetApproval(c.Request().Context(), c.Param("approval_id"))
	if err != nil {
		return c.JSON(errorStatus(err), map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, approval)
}
