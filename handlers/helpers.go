package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Dosada05/league-system/resilience"
	"github.com/Dosada05/league-system/services"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case err.Error() == "http: request body too large":
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err) // Ошибка программиста: передан не указатель.
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func errorResponse(w http.ResponseWriter, status int, message interface{}) {
	env := jsonResponse{"error": message}
	if err := writeJSON(w, status, env, nil); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// scopeForSeason — ключ лимитера/брейкера в рамках одного сезона.
func scopeForSeason(seasonID int) string {
	return "season:" + strconv.Itoa(seasonID)
}

func idParam(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s parameter: %q", name, raw)
	}
	return id, nil
}

// mapServiceErrorToHTTP преобразует ошибки сервисного и защитного слоёв в
// HTTP-ответы. Таксономия типовая: ValidationError -> 400/422,
// ConflictError -> 409, Rejection -> 429/503, TimeoutError -> 504.
func mapServiceErrorToHTTP(w http.ResponseWriter, logger *slog.Logger, err error) {
	var validationErr *services.ValidationError
	var conflictErr *services.ConflictError
	var rejection *resilience.Rejection
	var timeoutErr *resilience.TimeoutError

	switch {
	case errors.Is(err, services.ErrNotFound):
		errorResponse(w, http.StatusNotFound, "the requested resource could not be found")

	case errors.As(err, &conflictErr):
		errorResponse(w, http.StatusConflict, conflictErr.Error())

	case errors.As(err, &validationErr):
		errorResponse(w, http.StatusUnprocessableEntity, jsonResponse{
			"field":   validationErr.Field,
			"message": validationErr.Msg,
		})

	case errors.As(err, &rejection):
		if rejection.RetryAfter > 0 {
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", rejection.RetryAfter.Seconds()))
		}
		status := http.StatusServiceUnavailable
		if rejection.Reason == resilience.ReasonRateLimited {
			status = http.StatusTooManyRequests
		}
		errorResponse(w, status, rejection.Error())

	case errors.As(err, &timeoutErr):
		errorResponse(w, http.StatusGatewayTimeout, timeoutErr.Error())

	default:
		logger.Error("unhandled service error", slog.Any("error", err))
		errorResponse(w, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
	}
}
