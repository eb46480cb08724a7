package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nugget-pipeline/internal/apperrors"
	"github.com/nugget-pipeline/internal/models"
	"github.com/rs/zerolog"
)

// statusFor maps an error to its HTTP status code
func statusFor(err error) int {
	var ve *apperrors.ValidationError
	switch {
	case apperrors.As(err, &ve):
		return http.StatusBadRequest
	case apperrors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized
	case apperrors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case apperrors.Is(err, apperrors.ErrDuplicateTerminalIdea),
		apperrors.Is(err, apperrors.ErrStatusConflict),
		apperrors.Is(err, apperrors.ErrInvalidTransition):
		return http.StatusConflict
	case apperrors.Is(err, apperrors.ErrRateLimited):
		return http.StatusTooManyRequests
	case apperrors.IsUpstream(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as an APIResponse. Internal errors are logged and
// replaced by a generic message.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	status := statusFor(err)

	var ve *apperrors.ValidationError
	if apperrors.As(err, &ve) {
		c.JSON(status, models.APIResponse{
			Success: false,
			Message: "Validation failed",
			Data:    ve,
			Error:   ve.Message,
		})
		return
	}

	if apperrors.IsUserFacing(err) {
		c.JSON(status, models.APIResponse{Success: false, Error: err.Error()})
		return
	}

	log.Error().Err(err).Str("request_id", c.GetString(requestIDKey)).Msg("Request failed")
	message := "Internal server error"
	if status == http.StatusBadGateway {
		message = "Upstream service error"
	}
	c.JSON(status, models.APIResponse{Success: false, Error: message})
}
