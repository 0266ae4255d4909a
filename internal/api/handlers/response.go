package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Cheertaboi/storefront-checkout/internal/api/middleware"
	"github.com/Cheertaboi/storefront-checkout/internal/cart"
	"github.com/Cheertaboi/storefront-checkout/internal/client"
	"github.com/Cheertaboi/storefront-checkout/internal/models"
	"github.com/Cheertaboi/storefront-checkout/internal/session"
	"github.com/Cheertaboi/storefront-checkout/internal/shopper"
)

const maxBody = 1 << 20

var errBadBody = errors.New("invalid request body")

// sentinels whose own text is what the shopper should read
var userFacing = []error{
	session.ErrCredentialsRequired,
	session.ErrInvalidCredentials,
	session.ErrLoginFailed,
	session.ErrRegistrationRejected,
	session.ErrRegistrationFailed,
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, models.ErrorResponse{Message: msg})
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		return errBadBody
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, errBadBody
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func statusFor(err error) int {
	var e *client.Error
	if errors.As(err, &e) {
		switch e.Kind {
		case client.KindUnauthorized:
			if e.Status == http.StatusForbidden {
				return http.StatusForbidden
			}
			return http.StatusUnauthorized
		case client.KindNotFound:
			return http.StatusNotFound
		case client.KindValidation:
			if e.Status >= 400 && e.Status < 500 {
				return e.Status
			}
			return http.StatusBadRequest
		default:
			return http.StatusBadGateway
		}
	}
	switch {
	case errors.Is(err, errBadBody),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrCouponCodeRequired),
		errors.Is(err, cart.ErrEmptyCart),
		errors.Is(err, models.ErrInvalidProduct),
		errors.Is(err, models.ErrInvalidReview),
		errors.Is(err, session.ErrCredentialsRequired),
		errors.Is(err, shopper.ErrNoShopper):
		return http.StatusBadRequest
	case errors.Is(err, cart.ErrCheckoutInProgress), errors.Is(err, cart.ErrSuperseded):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func messageFor(err error, fallback string) string {
	for _, s := range userFacing {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	if client.KindOf(err) != 0 {
		return client.Message(err, fallback)
	}
	if statusFor(err) < http.StatusInternalServerError {
		return err.Error()
	}
	return fallback
}

// base carries what every handler needs to find the caller's shopper and
// report failures.
type base struct {
	reg *shopper.Registry
	log zerolog.Logger
}

func (b base) shopper(w http.ResponseWriter, r *http.Request) (*shopper.Shopper, bool) {
	s, err := b.reg.Get(r.Context(), middleware.BrowserID(r.Context()))
	if err != nil {
		b.fail(w, r, err, "could not load your session")
		return nil, false
	}
	return s, true
}

func (b base) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		b.log.Error().Err(err).
			Str("request_id", middleware.RequestID(r.Context())).
			Str("url", r.URL.Path).
			Msg("request failed")
	}
	writeMessage(w, code, messageFor(err, fallback))
}
