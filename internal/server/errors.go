package server

import (
	"net/http"

	apperrors "github.com/handlescan/handlescan/internal/errors"
)

// HandleError writes err as a JSON error envelope. Route fallbacks call it
// directly and handlers reach it through the injected responder.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.RespondWithError(w, r, err)
}
