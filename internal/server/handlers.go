package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ludo-technologies/solscan/internal/constants"
	"github.com/ludo-technologies/solscan/internal/version"
)

// Client facing messages
const (
	msgNoJSON           = "No JSON data provided"
	msgCodeRequired     = "Contract code is required"
	msgExpectedObject   = "Expected object with contract names as keys"
	msgBodyTooLarge     = "Request body too large"
	msgHistoryDisabled  = "history storage is not configured"
	msgInvalidLimit     = "limit must be a positive integer"
	msgAnalysisFailed   = "Analysis failed: "
	msgBatchFailed      = "Batch analysis failed: "
	msgInvalidArguments = "Invalid request: "
)

// analysisFailure mirrors the shape of a failed analysis response
func analysisFailure(message string, elapsed time.Duration) gin.H {
	return gin.H{
		"success":          false,
		"message":          message,
		"vulnerabilities":  []any{},
		"metrics":          gin.H{},
		"processingTimeMs": elapsed.Milliseconds(),
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   constants.ServiceName,
		"version":   version.Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// readBody reads the request body, reporting oversized bodies separately
func readBody(c *gin.Context) ([]byte, bool, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		return nil, errors.As(err, &maxErr), err
	}
	return body, false, nil
}

func (s *Server) analyze(c *gin.Context) {
	start := time.Now()

	body, tooLarge, err := readBody(c)
	if tooLarge {
		c.JSON(http.StatusRequestEntityTooLarge, analysisFailure(msgBodyTooLarge, 0))
		return
	}
	if err != nil || !isNonEmptyObject(body) {
		c.JSON(http.StatusBadRequest, analysisFailure(msgNoJSON, 0))
		return
	}

	var req analyzeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, analysisFailure(msgInvalidArguments+err.Error(), 0))
		return
	}
	if req.ContractCode == "" {
		c.JSON(http.StatusBadRequest, analysisFailure(msgCodeRequired, 0))
		return
	}
	if err := validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, analysisFailure(msgInvalidArguments+err.Error(), 0))
		return
	}

	name := sanitizeContractName(req.ContractName)
	s.logger.Info("analyzing contract", zap.String("contract", name), zap.String("solc_version", req.SolcVersion))

	result, err := s.service.Analyze(c.Request.Context(), req.ContractCode, name)
	if err != nil {
		s.logger.Error("analysis failed", zap.String("contract", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, analysisFailure(msgAnalysisFailed+err.Error(), time.Since(start)))
		return
	}

	s.logger.Info("analysis completed",
		zap.String("contract", name),
		zap.Int("findings", len(result.Vulnerabilities)),
		zap.Float64("risk_score", result.Metrics.OverallRiskScore),
	)
	c.JSON(http.StatusOK, result)
}

func (s *Server) batch(c *gin.Context) {
	start := time.Now()

	body, tooLarge, err := readBody(c)
	if tooLarge {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "message": msgBodyTooLarge})
		return
	}

	var raw map[string]json.RawMessage
	if err != nil || !isNonEmptyObject(body) || json.Unmarshal(body, &raw) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": msgExpectedObject})
		return
	}

	// entries that are not objects with a string contractCode count as empty
	contracts := make(map[string]string, len(raw))
	for name, value := range raw {
		var entry batchEntry
		if err := json.Unmarshal(value, &entry); err != nil {
			entry.ContractCode = ""
		}
		contracts[name] = entry.ContractCode
	}

	results, err := s.service.AnalyzeBatch(c.Request.Context(), contracts)
	if err != nil {
		s.logger.Error("batch analysis failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": msgBatchFailed + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"results":          results,
		"processingTimeMs": time.Since(start).Milliseconds(),
	})
}

func (s *Server) patterns(c *gin.Context) {
	infos := s.service.ListRules()
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"totalPatterns": len(infos),
		"patterns":      infos,
	})
}

func (s *Server) history(c *gin.Context) {
	if !s.service.HistoryEnabled() {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": msgHistoryDisabled})
		return
	}

	limit := s.historyLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": msgInvalidLimit})
			return
		}
		limit = n
	}

	records, err := s.service.History(c.Request.Context(), c.Query("contract"), limit)
	if err != nil {
		s.logger.Error("history query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"total":   len(records),
		"records": records,
	})
}

// isNonEmptyObject reports whether body holds a JSON object with at least one key
func isNonEmptyObject(body []byte) bool {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return false
	}
	obj, ok := decoded.(map[string]any)
	return ok && len(obj) > 0
}
