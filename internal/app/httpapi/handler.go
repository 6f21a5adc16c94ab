package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	app "github.com/R3E-Network/valuation_engine/internal/app"
	"github.com/R3E-Network/valuation_engine/internal/app/domain/valuation"
)

// callerHeader carries the verified caller identity. Authentication happens
// upstream; by the time a request reaches this handler the identity is
// trusted.
const callerHeader = "X-Caller"

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
}

// NewHandler returns a mux exposing the engine's REST API.
func NewHandler(application *app.Application) http.Handler {
	h := &handler{app: application}
	mux := http.NewServeMux()
	mux.HandleFunc("/oracles", h.oracles)
	mux.HandleFunc("/oracles/", h.oracleResources)
	mux.HandleFunc("/submissions", h.submissions)
	mux.HandleFunc("/valuations/", h.valuations)
	mux.HandleFunc("/params/consensus-threshold", h.consensusThreshold)
	return mux
}

func (h *handler) oracles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			Address string `json:"address"`
			Weight  int    `json:"weight"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		o, err := h.app.Registry.AddOracle(r.Context(), caller(r), payload.Address, payload.Weight)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, o)

	case http.MethodGet:
		list, err := h.app.Registry.ListOracles(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, list)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) oracleResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/oracles"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	address := parts[0]

	if len(parts) > 1 && parts[1] == "activity" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		act, err := h.app.Registry.ActivityOf(r.Context(), address)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, act)
		return
	}

	switch r.Method {
	case http.MethodGet:
		weight, err := h.app.Registry.WeightOf(r.Context(), address)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"address":  address,
			"approved": true,
			"weight":   weight,
		})

	case http.MethodDelete:
		if err := h.app.Registry.RemoveOracle(r.Context(), caller(r), address); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) submissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		Subject uint64 `json:"subject"`
		Oracle  string `json:"oracle"`
		Price   int64  `json:"price"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	accepted, err := h.app.Consensus.SubmitDataFeed(r.Context(), caller(r), payload.Subject, payload.Price, payload.Oracle)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"subject":        payload.Subject,
		"accepted_price": accepted,
	})
}

func (h *handler) valuations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	raw := strings.Trim(strings.TrimPrefix(r.URL.Path, "/valuations"), "/")
	subject, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || subject == 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid subject id %q", raw))
		return
	}

	v, err := h.app.Consensus.GetValuation(r.Context(), subject)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *handler) consensusThreshold(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		Threshold int `json:"threshold"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.app.Registry.SetConsensusThreshold(r.Context(), caller(r), payload.Threshold); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func caller(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(callerHeader))
}

func decodeJSON(body io.Reader, dst any) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeDomainError maps coded engine errors onto HTTP statuses while keeping
// the stable numeric code in the response body.
func writeDomainError(w http.ResponseWriter, err error) {
	var coded *valuation.Error
	if !errors.As(err, &coded) {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	status := http.StatusBadRequest
	switch {
	case errors.Is(err, valuation.ErrNotOracle), errors.Is(err, valuation.ErrNotAuthorized):
		status = http.StatusForbidden
	case errors.Is(err, valuation.ErrValuationNotFound):
		status = http.StatusNotFound
	case errors.Is(err, valuation.ErrOracleNotApproved), errors.Is(err, valuation.ErrOracleAlreadyApproved):
		status = http.StatusConflict
	case errors.Is(err, valuation.ErrMaxOraclesExceeded), errors.Is(err, valuation.ErrMaxSubmissionsExceeded):
		status = http.StatusTooManyRequests
	case errors.Is(err, valuation.ErrInsufficientOracles), errors.Is(err, valuation.ErrConsensusFailed):
		status = http.StatusUnprocessableEntity
	}

	writeJSON(w, status, map[string]any{
		"error": coded.Message,
		"code":  coded.Code,
	})
}
