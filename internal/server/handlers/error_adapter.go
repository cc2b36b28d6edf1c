package handlers

import (
	"net/http"

	apperrors "github.com/handlescan/handlescan/internal/errors"
)

// errorResponder writes a failed request's error to the client.
type errorResponder func(http.ResponseWriter, *http.Request, error)

func defaultErrorResponder(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.RespondWithError(w, r, err)
}

var httpErrorResponder errorResponder = defaultErrorResponder

// SetHTTPErrorResponder swaps in the server's error responder so handler
// failures share its envelope pipeline. Passing nil restores the default.
func SetHTTPErrorResponder(responder func(http.ResponseWriter, *http.Request, error)) {
	if responder == nil {
		httpErrorResponder = defaultErrorResponder
		return
	}
	httpErrorResponder = responder
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	httpErrorResponder(w, r, err)
}
