package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"hena/stays/internal/cache"
	"hena/stays/internal/ingest"
	"hena/stays/internal/xmlfeed"
)

// respondError maps pipeline errors to HTTP responses. Anything unrecognised
// is logged and reported as a 500 without details.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.Is(err, ingest.ErrUnsupportedPlatform):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, ingest.ErrRejectionReasonRequired):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, ingest.ErrURLAlreadyRegistered):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, ingest.ErrInvalidTransition):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, cache.ErrLocked):
		status, message = http.StatusConflict, "Another request for this feed is in progress"
	case errors.Is(err, ingest.ErrForbidden):
		status, message = http.StatusForbidden, err.Error()
	case errors.Is(err, mongo.ErrNoDocuments):
		status, message = http.StatusNotFound, "Feed not found"
	case errors.Is(err, xmlfeed.ErrNetwork):
		status, message = http.StatusBadGateway, err.Error()
	case errors.Is(err, xmlfeed.ErrParse):
		status, message = http.StatusUnprocessableEntity, err.Error()
	}

	if status == http.StatusInternalServerError {
		log.Printf("Error handling %s %s: %v", c.Request.Method, c.FullPath(), err)
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": message})
}
