package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bookstore-service/services"
)

var statusByCode = map[services.ErrorCode]int{
	services.CodeInvalidOrderShape:    http.StatusBadRequest,
	services.CodeInvalidBookReference: http.StatusBadRequest,
	services.CodeInvalidQuantity:      http.StatusBadRequest,
	services.CodeBookNotFound:         http.StatusBadRequest,
	services.CodeInsufficientStock:    http.StatusBadRequest,
	services.CodeEmptyOrder:           http.StatusBadRequest,
	services.CodeMissingShippingInfo:  http.StatusBadRequest,
	services.CodeInvalidStatus:        http.StatusBadRequest,
	services.CodeUnauthenticated:      http.StatusUnauthorized,
	services.CodeOrderNotFound:        http.StatusNotFound,
	services.CodeAlreadyPaid:          http.StatusConflict,
	services.CodeInvalidTransition:    http.StatusConflict,
}

// respondError writes a pipeline error with its mapped status. Unexpected
// failures are logged and answered with fallback so internals never leak.
func respondError(c *gin.Context, logger *zap.Logger, err error, fallback string) {
	if code, ok := services.ErrorCodeOf(err); ok {
		status, known := statusByCode[code]
		if !known {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"message": err.Error()})
		return
	}

	_ = c.Error(err)
	logger.Error(fallback, zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"message": fallback})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func succeeded(c *gin.Context) bool {
	status := c.Writer.Status()
	return status >= 200 && status < 300
}
