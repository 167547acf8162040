package request

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/joyverse/joyverse-backend/internal/api/apierr"
	"github.com/joyverse/joyverse-backend/internal/validation"
)

// MaxBodyBytes caps request bodies
const MaxBodyBytes = 1 << 20

// Decode reads a JSON body into dst
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apierr.NewInvalidRequestError("request body is required")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apierr.NewInvalidRequestError("request body too large")
		}
		return apierr.NewInvalidRequestError("invalid request body")
	}
	return nil
}

// DecodeValid reads a JSON body into dst and validates it
func DecodeValid(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := Decode(w, r, dst); err != nil {
		return err
	}
	return validation.Struct(dst)
}
