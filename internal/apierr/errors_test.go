package apierr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode_ClassifiesEachKnownErrorKind(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not found", ErrNotFound, http.StatusNotFound},
		{"not found wrapped by another typed error", wrapAsTransient(ErrNotFound), http.StatusNotFound},
		{"bad request", &ErrBadRequest{Reason: "x"}, http.StatusBadRequest},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"transient", &ErrTransient{Cause: errors.New("db down")}, http.StatusServiceUnavailable},
		{"consumer destroyed", &ErrConsumerDestroyed{ConsumerID: "c1"}, http.StatusInternalServerError},
		{"fatal internal", &ErrFatalInternal{Reason: "invariant violated"}, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StatusCode(tc.err))
		})
	}
}

// wrapAsTransient checks that StatusCode's errors.Is(err, ErrNotFound)
// branch wins even when ErrNotFound is reached through another typed
// error's Unwrap, since that branch runs ahead of the ErrTransient check.
func wrapAsTransient(err error) error {
	return &ErrTransient{Cause: err}
}
