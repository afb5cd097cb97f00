package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/digineo/go-pinger/monitor"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, newStatusView(s.coord.Status(), s.coord.Batch(), s.coord.Config().Paused))
}

func (s *Server) listTargets(c *gin.Context) {
	history := s.coord.History()
	targets := s.coord.Registry().Targets()

	out := make([]targetView, 0, len(targets))
	for _, t := range targets {
		v := targetView{Target: t}
		if latest, found := history.Latest(t.ID); found {
			r := newResultView(latest)
			v.Latest = &r
		}
		out = append(out, v)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createTarget(c *gin.Context) {
	var req targetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	req.Host = strings.TrimSpace(req.Host)
	if req.Host == "" {
		respondError(c, http.StatusBadRequest, "host is required")
		return
	}

	t := monitor.NewTarget(req.Host, strings.TrimSpace(req.Name))
	if req.Enabled != nil {
		t.Enabled = *req.Enabled
	}
	t = s.coord.Registry().Add(t)
	c.JSON(http.StatusCreated, t)
}

func (s *Server) updateTarget(c *gin.Context) {
	t, ok := s.lookupTarget(c)
	if !ok {
		return
	}

	var req targetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if host := strings.TrimSpace(req.Host); host != "" {
		t.Host = host
	}
	t.Name = strings.TrimSpace(req.Name)
	if req.Enabled != nil {
		t.Enabled = *req.Enabled
	}

	if !s.coord.Registry().Update(t) {
		respondError(c, http.StatusNotFound, "target not found")
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) deleteTarget(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if !s.coord.Registry().Remove(id) {
		respondError(c, http.StatusNotFound, "target not found")
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) toggleTarget(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	registry := s.coord.Registry()
	if !registry.Toggle(id) {
		respondError(c, http.StatusNotFound, "target not found")
		return
	}
	t, _ := registry.Get(id)
	c.JSON(http.StatusOK, t)
}

func (s *Server) getHistory(c *gin.Context) {
	t, ok := s.lookupTarget(c)
	if !ok {
		return
	}

	history := s.coord.History()
	v := historyView{
		TargetID: t.ID,
		Results:  newResultViews(history.History(t.ID)),
		Metrics:  history.Metrics(t.ID),
	}
	if avg, found := history.AverageLatency(t.ID); found {
		ms := durationMs(avg)
		v.AverageLatencyMs = &ms
	}
	if rate, found := history.SuccessRate(t.ID); found {
		v.SuccessRate = &rate
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) getSettings(c *gin.Context) {
	c.JSON(http.StatusOK, newSettingsView(s.coord.Config()))
}

func (s *Server) putSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if req.PingInterval != nil {
		d := time.Duration(*req.PingInterval * float64(time.Second))
		if err := s.coord.SetInterval(d); err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.BadPingThreshold != nil {
		if err := s.coord.SetThreshold(*req.BadPingThreshold); err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.IsPaused != nil {
		s.coord.SetPaused(*req.IsPaused)
	}
	c.JSON(http.StatusOK, newSettingsView(s.coord.Config()))
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid target id")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) lookupTarget(c *gin.Context) (monitor.Target, bool) {
	id, ok := parseID(c)
	if !ok {
		return monitor.Target{}, false
	}
	t, found := s.coord.Registry().Get(id)
	if !found {
		respondError(c, http.StatusNotFound, "target not found")
		return monitor.Target{}, false
	}
	return t, true
}
