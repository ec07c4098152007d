package adaptor

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"hotel-booking/internal/usecase"
	"hotel-booking/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWriteServiceError(t *testing.T) {
	cases := []struct {
		err     error
		code    int
		message string
	}{
		{fmt.Errorf("%w: booking 42", usecase.ErrNotFound), http.StatusNotFound, "not found: booking 42"},
		{fmt.Errorf("%w: bad dates", usecase.ErrInvalidInput), http.StatusBadRequest, "invalid input: bad dates"},
		{fmt.Errorf("%w: sold out", usecase.ErrInsufficientAvailability), http.StatusBadRequest, ""},
		{fmt.Errorf("%w: already cancelled", usecase.ErrConflict), http.StatusConflict, ""},
		{fmt.Errorf("%w: retry later", usecase.ErrRequestInFlight), http.StatusConflict, ""},
		{fmt.Errorf("cancel booking: %w", errors.New("connection refused")), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, zap.NewNop(), tc.err, "test")

			assert.Equal(t, tc.code, rec.Code)

			var resp utils.Response
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.False(t, resp.Status)
			if tc.message != "" {
				assert.Equal(t, tc.message, resp.Message)
			}
		})
	}
}
