package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ParkPal-co/parking-app-sub000/internal/domain"
	"github.com/ParkPal-co/parking-app-sub000/internal/lib/logger/handlers/slogdiscard"
	"github.com/ParkPal-co/parking-app-sub000/internal/payment"
	"github.com/ParkPal-co/parking-app-sub000/internal/service/checkout"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type bookingMocks struct {
	checkout      *MockCheckoutUseCase
	bookings      *MockBookingUseCase
	conversations *MockConversationUseCase
}

func newBookingHandler() (*BookingHandler, bookingMocks) {
	m := bookingMocks{
		checkout:      &MockCheckoutUseCase{},
		bookings:      &MockBookingUseCase{},
		conversations: &MockConversationUseCase{},
	}
	return NewBookingHandler(m.checkout, m.bookings, m.conversations, slogdiscard.NewDiscardLogger()), m
}

func newTestContext(method, target string, body any, userID string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(userIDKey, userID)
	return c, w
}

func sampleBooking() *domain.Booking {
	return &domain.Booking{
		ID:            "b-1",
		ParkingSpotID: "spot-1",
		RenterID:      "renter-1",
		HostID:        "host-1",
		StartTime:     time.Date(2026, 11, 1, 10, 0, 0, 0, time.UTC),
		EndTime:       time.Date(2026, 11, 1, 14, 0, 0, 0, time.UTC),
		TotalPrice:    40,
		Status:        domain.BookingStatusConfirmed,
	}
}

func createBody() gin.H {
	return gin.H{
		"spot_id":      "spot-1",
		"start_time":   "2026-11-01T10:00:00Z",
		"end_time":     "2026-11-01T14:00:00Z",
		"vehicle_info": gin.H{"license_plate": "ABC-123"},
		"card_token":   "tok_visa",
	}
}

func TestBookingHandler_create(t *testing.T) {
	handler, m := newBookingHandler()
	c, w := newTestContext(http.MethodPost, "/bookings", createBody(), "renter-1")

	result := &checkout.Result{
		Booking:      sampleBooking(),
		Conversation: &domain.Conversation{ID: "conv-1", Participants: []string{"renter-1", "host-1"}, BookingID: "b-1"},
		Receipt:      &payment.Receipt{Reference: "chrg_1", AmountCents: 4000, Currency: "usd"},
	}
	m.checkout.On("ReserveAndBook", mock.Anything, mock.MatchedBy(func(in checkout.ReserveInput) bool {
		return in.SpotID == "spot-1" &&
			in.RenterID == "renter-1" &&
			in.Payment.CardToken == "tok_visa" &&
			in.VehicleInfo.LicensePlate == "ABC-123" &&
			in.EndTime.Sub(in.StartTime) == 4*time.Hour
	})).Return(result, nil).Once()

	handler.create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var response checkout.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "b-1", response.Booking.ID)
	assert.Equal(t, domain.BookingStatusConfirmed, response.Booking.Status)
	assert.Equal(t, "conv-1", response.Conversation.ID)

	m.checkout.AssertExpectations(t)
}

func TestBookingHandler_create_Errors(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "spot taken", err: fmt.Errorf("reserve: %w", domain.ErrConflict), wantStatus: http.StatusConflict, wantCode: "reservation_conflict"},
		{name: "declined", err: &domain.PaymentError{Code: "card_declined", Message: "declined"}, wantStatus: http.StatusPaymentRequired, wantCode: "card_declined"},
		{name: "unknown spot", err: domain.ErrNotFound, wantStatus: http.StatusNotFound},
		{name: "bad input", err: fmt.Errorf("%w: price mismatch", domain.ErrValidation), wantStatus: http.StatusBadRequest},
		{name: "inconsistent", err: domain.ErrInconsistency, wantStatus: http.StatusInternalServerError},
		{name: "store down", err: errors.New("connection refused"), wantStatus: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler, m := newBookingHandler()
			c, w := newTestContext(http.MethodPost, "/bookings", createBody(), "renter-1")
			m.checkout.On("ReserveAndBook", mock.Anything, mock.Anything).Return(nil, tc.err).Once()

			handler.create(c)

			assert.Equal(t, tc.wantStatus, w.Code)
			var response errorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tc.wantCode, response.Code)
		})
	}
}

func TestBookingHandler_create_BadBody(t *testing.T) {
	handler, m := newBookingHandler()
	c, w := newTestContext(http.MethodPost, "/bookings", gin.H{"spot_id": "spot-1"}, "renter-1")

	handler.create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	m.checkout.AssertNotCalled(t, "ReserveAndBook", mock.Anything, mock.Anything)
}

func TestBookingHandler_get(t *testing.T) {
	testCases := []struct {
		name       string
		userID     string
		wantStatus int
	}{
		{name: "renter", userID: "renter-1", wantStatus: http.StatusOK},
		{name: "host", userID: "host-1", wantStatus: http.StatusOK},
		{name: "stranger", userID: "someone", wantStatus: http.StatusForbidden},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler, m := newBookingHandler()
			c, w := newTestContext(http.MethodGet, "/bookings/b-1", nil, tc.userID)
			c.Params = gin.Params{{Key: "id", Value: "b-1"}}
			m.bookings.On("GetBookingByID", mock.Anything, "b-1").Return(sampleBooking(), nil).Once()

			handler.get(c)

			assert.Equal(t, tc.wantStatus, w.Code)
		})
	}
}

func TestBookingHandler_get_NotFound(t *testing.T) {
	handler, m := newBookingHandler()
	c, w := newTestContext(http.MethodGet, "/bookings/missing", nil, "renter-1")
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	m.bookings.On("GetBookingByID", mock.Anything, "missing").Return(nil, domain.ErrNotFound).Once()

	handler.get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBookingHandler_list(t *testing.T) {
	handler, m := newBookingHandler()
	c, w := newTestContext(http.MethodGet, "/bookings?role=host", nil, "host-1")
	m.bookings.On("ListByHost", mock.Anything, "host-1").Return([]domain.Booking{*sampleBooking()}, nil).Once()

	handler.list(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response struct {
		Bookings []domain.Booking `json:"bookings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(t, response.Bookings, 1)
	m.bookings.AssertNotCalled(t, "ListByRenter", mock.Anything, mock.Anything)
}

func TestBookingHandler_list_UnknownRole(t *testing.T) {
	handler, _ := newBookingHandler()
	c, w := newTestContext(http.MethodGet, "/bookings?role=admin", nil, "host-1")

	handler.list(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingHandler_cancel(t *testing.T) {
	handler, m := newBookingHandler()
	c, w := newTestContext(http.MethodDelete, "/bookings/b-1", nil, "renter-1")
	c.Params = gin.Params{{Key: "id", Value: "b-1"}}

	cancelled := sampleBooking()
	cancelled.Status = domain.BookingStatusCancelled
	m.bookings.On("GetBookingByID", mock.Anything, "b-1").Return(sampleBooking(), nil).Once()
	m.bookings.On("CancelBooking", mock.Anything, "b-1").Return(cancelled, nil).Once()

	handler.cancel(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response domain.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, domain.BookingStatusCancelled, response.Status)
	m.bookings.AssertExpectations(t)
}

func TestBookingHandler_cancel_Stranger(t *testing.T) {
	handler, m := newBookingHandler()
	c, w := newTestContext(http.MethodDelete, "/bookings/b-1", nil, "someone")
	c.Params = gin.Params{{Key: "id", Value: "b-1"}}
	m.bookings.On("GetBookingByID", mock.Anything, "b-1").Return(sampleBooking(), nil).Once()

	handler.cancel(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
	m.bookings.AssertNotCalled(t, "CancelBooking", mock.Anything, mock.Anything)
}

func TestBookingHandler_cancel_Completed(t *testing.T) {
	handler, m := newBookingHandler()
	c, w := newTestContext(http.MethodDelete, "/bookings/b-1", nil, "renter-1")
	c.Params = gin.Params{{Key: "id", Value: "b-1"}}
	m.bookings.On("GetBookingByID", mock.Anything, "b-1").Return(sampleBooking(), nil).Once()
	m.bookings.On("CancelBooking", mock.Anything, "b-1").Return(nil, domain.ErrInvalidTransition).Once()

	handler.cancel(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBookingHandler_startConversation(t *testing.T) {
	handler, m := newBookingHandler()
	c, w := newTestContext(http.MethodPost, "/bookings/b-1/conversation", nil, "host-1")
	c.Params = gin.Params{{Key: "id", Value: "b-1"}}

	conv := &domain.Conversation{ID: "conv-1", Participants: []string{"renter-1", "host-1"}, BookingID: "b-1", UnreadCount: 1}
	m.conversations.On("StartConversation", mock.Anything, "b-1", "host-1").Return(conv, nil).Once()

	handler.startConversation(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response domain.Conversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "conv-1", response.ID)
	m.conversations.AssertExpectations(t)
}
