package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusFromErr_MapsSentinelKinds(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", NewError("bad input").Mark(ErrValidation), http.StatusBadRequest},
		{"not found", NewError("missing").Mark(ErrNotFound), http.StatusNotFound},
		{"conflict", NewError("duplicate").Mark(ErrConflict), http.StatusConflict},
		{"permission denied", NewError("forbidden").Mark(ErrPermissionDenied), http.StatusForbidden},
		{"transient", NewError("retry me").Mark(ErrTransient), http.StatusServiceUnavailable},
		{"terminal", NewError("give up").Mark(ErrTerminal), http.StatusUnprocessableEntity},
		{"unmarked", errors.New("whatever"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatusFromErr(tc.err))
		})
	}
}
