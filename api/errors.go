package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ParkPal-co/parking-app-sub000/internal/domain"
	"github.com/ParkPal-co/parking-app-sub000/internal/lib/logger/sl"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeError(c *gin.Context, log *slog.Logger, err error) {
	var perr *domain.PaymentError
	switch {
	case errors.As(err, &perr):
		c.JSON(http.StatusPaymentRequired, errorResponse{Error: perr.Message, Code: perr.Code})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse{Error: "spot is no longer available", Code: "reservation_conflict"})
	case errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error(), Code: "invalid_transition"})
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, errorResponse{Error: "forbidden"})
	case errors.Is(err, domain.ErrInconsistency):
		log.Error("inconsistent reservation state needs manual reconciliation",
			slog.String("path", c.FullPath()), sl.Err(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	default:
		log.Error("request failed", slog.String("path", c.FullPath()), sl.Err(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
