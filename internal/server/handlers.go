package server

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mbd888/vitalflow/internal/logging"
	"github.com/mbd888/vitalflow/internal/pipeline"
	"github.com/mbd888/vitalflow/internal/traces"
	"github.com/mbd888/vitalflow/internal/validation"
	"github.com/mbd888/vitalflow/internal/vitals"
)

// sampleDTO is the wire form of one reading. Vitals are pointers
// because JSON has no NaN: an absent field is a sensor dropout.
type sampleDTO struct {
	Timestamp  float64  `json:"timestamp"`
	HeartRate  *float64 `json:"heart_rate"`
	SpO2       *float64 `json:"spo2"`
	BPSystolic *float64 `json:"bp_systolic"`
	Motion     float64  `json:"motion"`
}

func (d sampleDTO) toSample() vitals.Sample {
	return vitals.Sample{
		Timestamp:  d.Timestamp,
		HeartRate:  deref(d.HeartRate),
		SpO2:       deref(d.SpO2),
		BPSystolic: deref(d.BPSystolic),
		Motion:     d.Motion,
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func toSamples(dtos []sampleDTO) []vitals.Sample {
	out := make([]vitals.Sample, len(dtos))
	for i, d := range dtos {
		out[i] = d.toSample()
	}
	return out
}

// samplesRequest is the body for /v1/predict and /v1/streams/:id/samples
type samplesRequest struct {
	Samples []sampleDTO `json:"samples" binding:"required"`
}

// predictHandler scores a self-contained batch of samples through an
// ephemeral pipeline session. It never reports a numeric score for a
// batch too short to fill a window; that case is an explicit error.
func (s *Server) predictHandler(c *gin.Context) {
	var req samplesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}
	if len(req.Samples) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "samples must be a non-empty array",
		})
		return
	}
	if len(req.Samples) > validation.MaxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "batch_too_large",
			"message": fmt.Sprintf("at most %d samples per request", validation.MaxBatchSize),
		})
		return
	}

	ctx, span := traces.StartSpan(c.Request.Context(), "predict",
		traces.SampleCount(len(req.Samples)),
	)
	defer span.End()

	cfg := s.cfg.Pipeline()
	p := pipeline.New("predict", cfg, pipeline.WithLogger(s.logger))
	res := p.Ingest(ctx, toSamples(req.Samples))
	p.Flush()

	assessment, ok := p.Current()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":       "insufficient_data",
			"message":     fmt.Sprintf("need at least %d samples to fill a window, accepted %d", cfg.WindowSize, res.Accepted),
			"window_size": cfg.WindowSize,
			"accepted":    res.Accepted,
			"rejections":  res.Rejections,
		})
		return
	}
	span.SetAttributes(traces.WindowEnd(assessment.WindowEnd))

	c.JSON(http.StatusOK, gin.H{
		"assessment": assessment,
		"accepted":   res.Accepted,
		"rejections": res.Rejections,
	})
}

// ingestHandler appends samples to a named stream session, creating the
// session on first use. Malformed samples are rejected individually and
// reported back; accepted samples advance the pipeline.
func (s *Server) ingestHandler(c *gin.Context) {
	streamID := c.Param("id")

	var req samplesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}
	if len(req.Samples) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "samples must be a non-empty array",
		})
		return
	}
	if len(req.Samples) > validation.MaxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "batch_too_large",
			"message": fmt.Sprintf("at most %d samples per request", validation.MaxBatchSize),
		})
		return
	}

	ctx, span := traces.StartSpan(c.Request.Context(), "ingest",
		traces.StreamID(streamID),
		traces.SampleCount(len(req.Samples)),
	)
	defer span.End()

	p := s.manager.GetOrCreate(streamID)
	res := p.Ingest(ctx, toSamples(req.Samples))

	if len(res.Rejections) > 0 {
		logging.ForStream(ctx, streamID).Warn("samples rejected at ingestion",
			"rejected", len(res.Rejections),
			"accepted", res.Accepted,
		)
	}

	c.JSON(http.StatusAccepted, gin.H{
		"stream_id":   streamID,
		"accepted":    res.Accepted,
		"rejected":    len(res.Rejections),
		"rejections":  res.Rejections,
		"assessments": res.Assessments,
	})
}

// assessmentHandler returns the stream's latest assessment. A stream
// whose window has never filled is reported as pending, with no numeric
// fields a caller could mistake for a low risk score.
func (s *Server) assessmentHandler(c *gin.Context) {
	streamID := c.Param("id")

	p, ok := s.manager.Get(streamID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "stream_not_found",
			"message": "no active session for stream " + streamID,
		})
		return
	}

	assessment, ok := p.Current()
	if !ok {
		c.JSON(http.StatusOK, gin.H{
			"stream_id": streamID,
			"state":     "pending",
		})
		return
	}

	c.JSON(http.StatusOK, assessment)
}

// assessmentHistoryHandler serves the audit trail for a stream, most
// recent first. History survives session deletion when Postgres backs
// the store.
func (s *Server) assessmentHistoryHandler(c *gin.Context) {
	streamID := c.Param("id")

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_limit",
				"message": "limit must be a positive integer",
			})
			return
		}
		if n > 500 {
			n = 500
		}
		limit = n
	}

	assessments, err := s.store.ListByStream(c.Request.Context(), streamID, limit)
	if err != nil {
		logging.L(c.Request.Context()).Error("failed to list assessments",
			"stream_id", streamID,
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "storage_error",
			"message": "failed to load assessment history",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stream_id":   streamID,
		"count":       len(assessments),
		"assessments": assessments,
	})
}

// deleteStreamHandler ends a session, dropping its cleaner and window state.
func (s *Server) deleteStreamHandler(c *gin.Context) {
	streamID := c.Param("id")

	if !s.manager.Delete(streamID) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "stream_not_found",
			"message": "no active session for stream " + streamID,
		})
		return
	}

	c.Status(http.StatusNoContent)
}
