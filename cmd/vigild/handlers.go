package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/labstack/echo/v4"

	"github.com/haven-community/vigil/alertstore"
	"github.com/haven-community/vigil/countstore"
	"github.com/haven-community/vigil/engine"
	"github.com/haven-community/vigil/profile"
)

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": versioninfo.Short(),
	})
}

// handleAnalyze runs the full pipeline synchronously and returns the
// assessment, updated profile, and alert decision. Intended for moderator
// tooling and testing; the stream consumer is the primary ingest path.
func (s *Server) handleAnalyze(c echo.Context) error {
	var evt engine.MessageEvent
	if err := c.Bind(&evt); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if evt.AuthorID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "authorId is required")
	}

	ctx, span := tracer.Start(c.Request().Context(), "handleAnalyze")
	defer span.End()

	res, err := s.engine.ProcessMessage(ctx, evt)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleGetProfile(c echo.Context) error {
	authorID := c.Param("authorID")
	p, err := s.engine.Profiles.GetProfile(c.Request().Context(), authorID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if p == nil {
		return echo.NewHTTPError(http.StatusNotFound, "profile not found")
	}
	return c.JSON(http.StatusOK, p)
}

// handleGetHistory returns the author's recent per-message assessment
// records, newest first.
func (s *Server) handleGetHistory(c echo.Context) error {
	authorID := c.Param("authorID")
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}

	recs, err := s.engine.History.ListByAuthor(c.Request().Context(), authorID, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{
		"authorId":    authorID,
		"assessments": recs,
	})
}

func (s *Server) handleListAlerts(c echo.Context) error {
	q := alertstore.ListQuery{
		AuthorID: c.QueryParam("author"),
		Status:   c.QueryParam("status"),
		Severity: profile.Severity(c.QueryParam("severity")),
	}
	if v := c.QueryParam("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid offset")
		}
		q.Offset = n
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		q.Limit = n
	}

	alerts, err := s.engine.Alerts.List(c.Request().Context(), q)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{
		"alerts": alerts,
	})
}

type alertStatusBody struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func (s *Server) handleUpdateAlertStatus(c echo.Context) error {
	id := c.Param("id")
	var body alertStatusBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	switch body.Status {
	case alertstore.StatusOpen, alertstore.StatusAcknowledged, alertstore.StatusResolved:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	err := s.engine.Alerts.UpdateStatus(c.Request().Context(), id, body.Status, body.Notes, time.Now().UTC())
	if errors.Is(err, alertstore.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "alert not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	alert, err := s.engine.Alerts.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, alert)
}

func (s *Server) handleStats(c echo.Context) error {
	ctx := c.Request().Context()

	messagesTotal, err := s.engine.Counters.GetCount(ctx, countstore.NameMessage, "all", countstore.PeriodTotal)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	authorsTotal, err := s.engine.Counters.GetCountDistinct(ctx, countstore.NameAuthors, "all", countstore.PeriodTotal)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	alertsBySeverity := make(map[string]int)
	for _, sev := range []profile.Severity{profile.SeverityLow, profile.SeverityMedium, profile.SeverityHigh, profile.SeverityCritical} {
		n, err := s.engine.Counters.GetCount(ctx, countstore.NameAlert, string(sev), countstore.PeriodTotal)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		alertsBySeverity[string(sev)] = n
	}

	alertsByStatus := make(map[string]int)
	for _, status := range []string{alertstore.StatusOpen, alertstore.StatusAcknowledged, alertstore.StatusResolved} {
		n, err := s.engine.Alerts.CountByStatus(ctx, status)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		alertsByStatus[status] = n
	}

	return c.JSON(http.StatusOK, map[string]any{
		"messagesAnalyzed": messagesTotal,
		"distinctAuthors":  authorsTotal,
		"alertsBySeverity": alertsBySeverity,
		"alertsByStatus":   alertsByStatus,
	})
}
