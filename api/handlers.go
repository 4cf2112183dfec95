package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"uptime-inspector/model"
)

const defaultActor = "api"

type inspectRequest struct {
	InspectionType model.InspectionType    `json:"inspectionType"`
	Actor          string                  `json:"actor"`
	ManualResults  []model.MenuProbeResult `json:"manualResults"`
}

type sweepRequest struct {
	Actor string `json:"actor"`
}

type notifyRequest struct {
	Recipients []string `json:"recipients" binding:"required"`
}

type probeRequest struct {
	URL string `json:"url" binding:"required"`
}

// ===== Inspections =====

func (s *server) inspect(c *gin.Context) {
	var req inspectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	rec, err := s.Inspector.Inspect(c.Request.Context(), c.Param("systemId"), req.InspectionType, actorOr(req.Actor), req.ManualResults)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (s *server) runSweep(c *gin.Context) {
	var req sweepRequest
	// the body is optional
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	sw, err := s.Inspector.RunSweep(c.Request.Context(), actorOr(req.Actor))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sw)
}

func (s *server) history(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	recs, err := s.History.HistoryBySystem(c.Request.Context(), c.Param("systemId"), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if recs == nil {
		recs = []model.InspectionRecord{}
	}
	c.JSON(http.StatusOK, recs)
}

// ===== Statistics =====

func (s *server) dashboard(c *gin.Context) {
	d, err := s.Stats.Dashboard(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *server) systemStatistics(c *gin.Context) {
	st, err := s.Stats.SystemStatistics(c.Request.Context(), c.Param("systemId"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *server) summary(c *gin.Context) {
	sum, err := s.Stats.Summary(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// ===== Probe / notify / scheduler =====

// probe is the ad-hoc header check: a single GET with the short timeout.
func (s *server) probe(c *gin.Context) {
	var req probeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		badRequest(c, "url must be an absolute http(s) URL")
		return
	}
	res := s.Prober.Probe(c.Request.Context(), req.URL, s.HeaderCheckTimeout)
	res.Path = u.Path
	c.JSON(http.StatusOK, res)
}

func (s *server) notify(c *gin.Context) {
	var req notifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	n, err := s.Notifier.Notify(c.Request.Context(), req.Recipients)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notified": n})
}

func (s *server) schedulerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.Scheduler.Status())
}

func (s *server) schedulerRun(c *gin.Context) {
	sw, err := s.Scheduler.RunNow(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sweep": sw, "status": s.Scheduler.Status()})
}

// ===== Systems =====

func (s *server) listSystems(c *gin.Context) {
	list, err := s.Systems.ListSystems(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *server) getSystem(c *gin.Context) {
	sys, err := s.Systems.GetSystem(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sys)
}

func (s *server) createSystem(c *gin.Context) {
	var body model.System
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}
	sys, err := s.Systems.CreateSystem(c.Request.Context(), body, actorOr(c.GetHeader("X-Actor")))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sys)
}

func (s *server) updateSystem(c *gin.Context) {
	var body model.System
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}
	sys, err := s.Systems.UpdateSystem(c.Request.Context(), c.Param("id"), body, actorOr(c.GetHeader("X-Actor")))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sys)
}

func (s *server) deleteSystem(c *gin.Context) {
	if err := s.Systems.DeleteSystem(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func actorOr(actor string) string {
	if actor == "" {
		return defaultActor
	}
	return actor
}
