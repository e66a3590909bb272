package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ParkPal-co/parking-app-sub000/internal/domain"
	"github.com/ParkPal-co/parking-app-sub000/internal/payment"
	"github.com/ParkPal-co/parking-app-sub000/internal/service/booking"
	"github.com/ParkPal-co/parking-app-sub000/internal/service/checkout"
	"github.com/ParkPal-co/parking-app-sub000/internal/service/conversation"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	checkout      checkout.CheckoutUseCase
	bookings      booking.BookingUseCase
	conversations conversation.ConversationUseCase
	log           *slog.Logger
}

type createBookingRequest struct {
	SpotID      string             `json:"spot_id" binding:"required"`
	HostID      string             `json:"host_id"`
	Price       float64            `json:"price"`
	Currency    string             `json:"currency"`
	StartTime   time.Time          `json:"start_time" binding:"required"`
	EndTime     time.Time          `json:"end_time" binding:"required"`
	VehicleInfo domain.VehicleInfo `json:"vehicle_info"`
	CardToken   string             `json:"card_token" binding:"required"`
}

func NewBookingHandler(
	checkout checkout.CheckoutUseCase,
	bookings booking.BookingUseCase,
	conversations conversation.ConversationUseCase,
	log *slog.Logger,
) *BookingHandler {
	return &BookingHandler{checkout: checkout, bookings: bookings, conversations: conversations, log: log}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("", h.list)
	router.GET("/:id", h.get)
	router.DELETE("/:id", h.cancel)
	router.POST("/:id/conversation", h.startConversation)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	result, err := h.checkout.ReserveAndBook(c.Request.Context(), checkout.ReserveInput{
		SpotID:      req.SpotID,
		RenterID:    currentUser(c),
		HostID:      req.HostID,
		Price:       req.Price,
		Currency:    req.Currency,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		VehicleInfo: req.VehicleInfo,
		Payment:     payment.Details{CardToken: req.CardToken},
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *BookingHandler) list(c *gin.Context) {
	var (
		bookings []domain.Booking
		err      error
	)
	switch c.DefaultQuery("role", "renter") {
	case "renter":
		bookings, err = h.bookings.ListByRenter(c.Request.Context(), currentUser(c))
	case "host":
		bookings, err = h.bookings.ListByHost(c.Request.Context(), currentUser(c))
	default:
		c.JSON(http.StatusBadRequest, errorResponse{Error: "role must be renter or host"})
		return
	}
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

func (h *BookingHandler) get(c *gin.Context) {
	b, ok := h.loadOwn(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	if _, ok := h.loadOwn(c); !ok {
		return
	}

	b, err := h.bookings.CancelBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) startConversation(c *gin.Context) {
	conv, err := h.conversations.StartConversation(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// loadOwn fetches the booking in the path and writes the error response
// when it is missing or the caller is not one of its participants.
func (h *BookingHandler) loadOwn(c *gin.Context) (*domain.Booking, bool) {
	b, err := h.bookings.GetBookingByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return nil, false
	}
	if !b.HasParticipant(currentUser(c)) {
		writeError(c, h.log, domain.ErrForbidden)
		return nil, false
	}
	return b, true
}
