package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"ledgerbi/internal/core"
)

const (
	defaultTransactionLimit = 10
	maxTransactionLimit     = 1000
	maxBodyBytes            = 4 << 10
)

// sanitizeInput trims whitespace and drops control characters.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", core.ErrInvalidInput, name)
	}
	return n, nil
}

func parseLimit(r *http.Request) (int, error) {
	limit, err := queryInt(r, "limit", defaultTransactionLimit)
	if err != nil {
		return 0, err
	}
	if limit == 0 {
		return 0, fmt.Errorf("%w: limit must be at least 1", core.ErrInvalidInput)
	}
	return min(limit, maxTransactionLimit), nil
}

// pathID returns the sanitized {id} wildcard.
func pathID(r *http.Request) (string, error) {
	id := sanitizeInput(r.PathValue("id"))
	if id == "" {
		return "", fmt.Errorf("%w: empty entity id", core.ErrInvalidInput)
	}
	return id, nil
}

type selectRequest struct {
	ID string `json:"id"`
}

func decodeSelect(w http.ResponseWriter, r *http.Request) (selectRequest, error) {
	var req selectRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("%w: malformed body: %v", core.ErrInvalidInput, err)
	}
	req.ID = sanitizeInput(req.ID)
	if req.ID == "" {
		return req, fmt.Errorf("%w: id is required", core.ErrInvalidInput)
	}
	return req, nil
}
