package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/smmwallet/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid order request", func(t *testing.T) {
		req := models.CreateOrderRequest{Kind: models.KindProvider, ServiceRef: "ig_likes", Link: "https://instagram.com/p/x", Quantity: 100}
		assert.NoError(t, vh.ValidateStruct(&req))
	})

	t.Run("missing and invalid fields", func(t *testing.T) {
		req := models.CreateOrderRequest{Kind: "gift"}

		err := vh.ValidateStruct(&req)
		require.Error(t, err)

		var fieldErrs validator.ValidationErrors
		require.True(t, errors.As(err, &fieldErrs))
		assert.Len(t, fieldErrs, 3) // Kind, ServiceRef, Quantity
	})

	t.Run("override bounds", func(t *testing.T) {
		req := models.SetOverrideRequest{Mode: models.ModeFlat, MinQty: 10, MaxQty: 5}

		err := vh.ValidateStruct(&req)
		require.Error(t, err)

		var fieldErrs validator.ValidationErrors
		require.True(t, errors.As(err, &fieldErrs))
		require.Len(t, fieldErrs, 1)
		assert.Equal(t, "MaxQty", fieldErrs[0].Field())
		assert.Equal(t, "gtefield", fieldErrs[0].Tag())
	})

	t.Run("restock entries are checked", func(t *testing.T) {
		req := models.RestockRequest{Codes: []string{"AAAA", ""}}
		assert.Error(t, vh.ValidateStruct(&req))
	})
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("plain error", func(t *testing.T) {
		w := httptest.NewRecorder()
		SendErrorResponse(w, "out of stock", http.StatusConflict, nil)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "out of stock", response.Error)
		assert.Nil(t, response.Details)
	})

	t.Run("validation details", func(t *testing.T) {
		validationErr := NewValidationHelper().ValidateStruct(&models.RepriceOrderRequest{})
		require.Error(t, validationErr)

		w := httptest.NewRecorder()
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, validationErr)

		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Validation failed", response.Error)
		assert.Contains(t, response.Details, "Quantity")
		assert.Contains(t, response.Details, "Reason")
	})

	t.Run("non validation error carries no details", func(t *testing.T) {
		w := httptest.NewRecorder()
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, errors.New("unexpected EOF"))

		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Nil(t, response.Details)
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{ErrInsufficientFunds, http.StatusPaymentRequired, "insufficient balance"},
		{ErrOutOfStock, http.StatusConflict, "out of stock"},
		{ErrStaleOverride, http.StatusConflict, ErrStaleOverride.Error()},
		{ErrUpstreamUnavailable, http.StatusServiceUnavailable, ErrUpstreamUnavailable.Error()},
		{errors.Join(ErrOrderNotFound, errors.New("detail")), http.StatusNotFound, "order not found"},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		status, message := StatusFor(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.message, message)
	}
}
