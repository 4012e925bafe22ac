package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dineflow/internal/apperr"
	"dineflow/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomDigits(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := RandomDigits(6)
		require.NoError(t, err)
		assert.Len(t, code, 6)
		for _, c := range code {
			assert.True(t, c >= '0' && c <= '9')
		}
	}
}

func TestFormatSequence(t *testing.T) {
	day := time.Date(2025, 3, 7, 22, 0, 0, 0, time.UTC)
	assert.Equal(t, "INV-20250307-0001", FormatSequence("INV", day, 1))
	assert.Equal(t, "ORD-20250307-12345", FormatSequence("ORD", day, 12345))
}

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, 1.24, RoundMoney(1.235000001))
	assert.Equal(t, 10.0, RoundMoney(9.999))
}

func TestStartOfDay(t *testing.T) {
	loc := time.FixedZone("X", 5*3600)
	ts := time.Date(2025, 1, 1, 21, 30, 0, 0, time.UTC)
	got := StartOfDay(ts, loc)
	assert.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, loc), got)
}

func TestSendErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	SendError(rec, logger.Discard(), "CreateOrder", errors.New("pq: deadlock detected"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Internal server error", body.Error)
}

func TestSendErrorKnownKind(t *testing.T) {
	rec := httptest.NewRecorder()
	SendError(rec, logger.Discard(), "CreateWaiterCall", apperr.NewConflict("A waiter call is already pending for this table"))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"A waiter call is already pending for this table"}`, rec.Body.String())
}
