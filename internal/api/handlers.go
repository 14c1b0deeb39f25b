package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/therapy-abstraction-server/internal/cache"
	"github.com/therapy-abstraction-server/internal/domain"
	"github.com/therapy-abstraction-server/internal/engine"
	"github.com/therapy-abstraction-server/internal/review"
)

// respondError writes the standard error envelope.
func respondError(c *gin.Context, status int, code, message, details string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": domain.NewEngineError(code, message, details, c.GetString("correlation_id")),
	})
}

// handleAbstract runs the abstraction pipeline over a submitted patient
// timeline. Identical inputs are served from cache when one is configured.
func (s *Server) handleAbstract(c *gin.Context) {
	var input domain.PatientTimeline
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "invalid request body", err.Error())
		return
	}
	if input.PatientID == "" {
		respondError(c, http.StatusBadRequest, domain.ErrMissingInput, "patient_id is required", "")
		return
	}
	if err := input.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "invalid timeline", err.Error())
		return
	}

	ctx := c.Request.Context()
	log := s.log.WithFields(logrus.Fields{
		"correlation_id": c.GetString("correlation_id"),
		"patient_id":     input.PatientID,
		"event_count":    len(input.Events),
	})

	var cacheKey string
	if s.deps.Cache != nil {
		key, err := cache.Key(&input, engine.Version, s.deps.Knowledge.Version())
		if err != nil {
			log.WithError(err).Warn("Failed to compute cache key")
		} else {
			cacheKey = key
			if cached, ok, err := s.deps.Cache.Get(ctx, cacheKey); err == nil && ok {
				log.Debug("Abstraction served from cache")
				c.Header("X-Cache", "HIT")
				c.JSON(http.StatusOK, cached)
				return
			}
		}
	}

	result, err := s.deps.Engine.Abstract(ctx, &input, time.Now().UTC())
	if err != nil {
		respondError(c, http.StatusUnprocessableEntity, domain.ErrInvalidInput, "abstraction rejected", err.Error())
		return
	}

	log.WithFields(logrus.Fields{
		"line_count":    len(result.LinesOfTherapy),
		"warning_count": len(result.Warnings),
	}).Info("Abstraction completed")

	if s.deps.Runs != nil {
		if _, err := s.deps.Runs.Create(ctx, result); err != nil {
			// Persistence is best-effort; the caller still gets the result.
			log.WithError(err).Error("Failed to persist abstraction run")
		}
	}

	if s.deps.Cache != nil && cacheKey != "" {
		if err := s.deps.Cache.Set(ctx, cacheKey, result, 0); err != nil {
			log.WithError(err).Warn("Failed to cache abstraction")
		}
		c.Header("X-Cache", "MISS")
	}

	c.JSON(http.StatusOK, result)
}

// handleGetLatestAbstraction returns the most recent persisted run for a
// patient.
func (s *Server) handleGetLatestAbstraction(c *gin.Context) {
	patientID := c.Param("patient_id")

	run, err := s.deps.Runs.GetLatestByPatient(c.Request.Context(), patientID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondError(c, http.StatusNotFound, domain.ErrInvalidInput, "no abstraction runs for patient", patientID)
			return
		}
		respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "failed to load abstraction run", "")
		return
	}

	c.JSON(http.StatusOK, run)
}

// handleListAbstractionRuns lists persisted runs for a patient, newest first.
func (s *Server) handleListAbstractionRuns(c *gin.Context) {
	patientID := c.Param("patient_id")
	limit := queryInt(c, "limit", 50)

	runs, err := s.deps.Runs.ListByPatient(c.Request.Context(), patientID, limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "failed to list abstraction runs", "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"patient_id": patientID,
		"count":      len(runs),
		"runs":       runs,
	})
}

// handleListProtocols exposes the knowledge base contents so reviewers can
// see what the matcher scores against.
func (s *Server) handleListProtocols(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"knowledge_base_version": s.deps.Knowledge.Version(),
		"engine_version":         engine.Version,
		"systemic_protocols":     s.deps.Knowledge.AllProtocols(),
		"radiation_protocols":    s.deps.Knowledge.AllRadiationProtocols(),
	})
}

// handleSaveReview records a reviewer decision for one abstracted line.
func (s *Server) handleSaveReview(c *gin.Context) {
	var rv review.Review
	if err := c.ShouldBindJSON(&rv); err != nil {
		respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "invalid request body", err.Error())
		return
	}
	if rv.PatientID == "" {
		respondError(c, http.StatusBadRequest, domain.ErrMissingInput, "patient_id is required", "")
		return
	}
	if rv.LineNumber < 1 {
		respondError(c, http.StatusBadRequest, domain.ErrValidation, "line_number must be 1 or greater", "")
		return
	}
	if !rv.SuggestedConfidence.IsValid() {
		respondError(c, http.StatusBadRequest, domain.ErrValidation, "unknown suggested_confidence", string(rv.SuggestedConfidence))
		return
	}

	if err := s.deps.Reviews.Save(c.Request.Context(), &rv); err != nil {
		s.log.WithError(err).Error("Failed to save review")
		respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "failed to save review", "")
		return
	}

	c.JSON(http.StatusOK, rv)
}

// handleGetReview returns the review for one abstracted line, if any.
func (s *Server) handleGetReview(c *gin.Context) {
	patientID := c.Param("patient_id")
	lineNumber, err := strconv.Atoi(c.Param("line_number"))
	if err != nil || lineNumber < 1 {
		respondError(c, http.StatusBadRequest, domain.ErrValidation, "line_number must be a positive integer", c.Param("line_number"))
		return
	}

	rv, err := s.deps.Reviews.Get(c.Request.Context(), patientID, lineNumber)
	if err != nil {
		respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "failed to load review", "")
		return
	}
	if rv == nil {
		respondError(c, http.StatusNotFound, domain.ErrInvalidInput, "review not found", "")
		return
	}

	c.JSON(http.StatusOK, rv)
}

// handleListReviews lists reviews with pagination.
func (s *Server) handleListReviews(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	reviews, err := s.deps.Reviews.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "failed to list reviews", "")
		return
	}

	total, err := s.deps.Reviews.Count(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "failed to count reviews", "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":   total,
		"count":   len(reviews),
		"reviews": reviews,
	})
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
