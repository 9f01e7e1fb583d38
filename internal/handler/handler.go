package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/leca/ourstory/internal/auth"
	"github.com/leca/ourstory/internal/config"
	"github.com/leca/ourstory/internal/timeline"
)

// maxJSONBody caps request bodies on the JSON endpoints.
const maxJSONBody = 1 << 20

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	Timeline *timeline.Service
	Auth     *auth.Service
	Limiter  *auth.Limiter
	Config   *config.Config
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return &timeline.Error{Kind: timeline.ErrPayloadTooLarge, Msg: "Request body too large", Detail: err}
		}
		return err
	}
	return nil
}
