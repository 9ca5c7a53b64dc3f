package thali_test

import (
	"net/http"
	"testing"

	"github.com/xraph/thali"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not found", thali.ErrSubscriptionNotFound, http.StatusNotFound},
		{"forbidden", thali.ErrForbidden, http.StatusForbidden},
		{"business rejection", &thali.Reject{Code: thali.CodeMealSkipped}, http.StatusUnprocessableEntity},
		{"rate limit", &thali.Reject{Code: thali.CodeRateLimitExceeded}, http.StatusTooManyRequests},
		// The price warning is a soft rejection the client can confirm away.
		{"price warning", &thali.Reject{Code: thali.CodePriceDifferenceWarning, RequireConfirmation: true}, http.StatusBadRequest},
		{"bad signature", thali.ErrBadSignature, http.StatusBadRequest},
		{"store failure", thali.ErrStoreClosed, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := thali.HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
