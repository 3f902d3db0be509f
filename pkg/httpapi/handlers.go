package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/soypete/userapi/pkg/storage"
)

// UserRequest is the body accepted by POST /api/users and PUT /api/users/:id.
// Absent or unusable fields stay nil and are stored as NULL. The raw values
// are kept so a PUT can echo exactly what the client sent.
type UserRequest struct {
	Name *string
	Age  *int64

	rawName json.RawMessage
	rawAge  json.RawMessage
}

// UpdateResponse echoes a PUT request. ID is the path segment as sent; name
// and age appear only when the request carried them, null included.
type UpdateResponse struct {
	ID   string          `json:"id"`
	Name json.RawMessage `json:"name,omitempty"`
	Age  json.RawMessage `json:"age,omitempty"`
}

// handleUsers handles /api/users (GET for list, POST for create)
func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.handleListUsers(w, r)
	case http.MethodPost:
		s.handleCreateUser(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleUsersWithID handles /api/users/:id (PUT for update, DELETE for delete)
func (s *Server) handleUsersWithID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/users/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodPut:
		s.handleUpdateUser(w, r, id)
	case http.MethodDelete:
		s.handleDeleteUser(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListAll(r.Context())
	if err != nil {
		s.respondStorageError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, users)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	req, err := decodeUserRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := s.store.Insert(r.Context(), req.Name, req.Age)
	if err != nil {
		s.respondStorageError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request, rawID string) {
	req, err := decodeUserRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// A non-numeric id cannot match a row, so there is nothing to update.
	if id, ok := parseID(rawID); ok {
		if err := s.store.Update(r.Context(), id, req.Name, req.Age); err != nil {
			s.respondStorageError(w, r, err)
			return
		}
	}

	respondJSON(w, http.StatusOK, UpdateResponse{
		ID:   rawID,
		Name: req.rawName,
		Age:  req.rawAge,
	})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request, rawID string) {
	if id, ok := parseID(rawID); ok {
		if err := s.store.Delete(r.Context(), id); err != nil {
			s.respondStorageError(w, r, err)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// decodeUserRequest reads an optional JSON body. Bodies that are empty, not
// sent as application/json, or not a JSON object yield an empty request.
// Only syntactically invalid JSON is an error.
func decodeUserRequest(r *http.Request) (*UserRequest, error) {
	req := &UserRequest{}
	if !isJSON(r.Header.Get("Content-Type")) {
		return req, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return req, nil
	}
	if !json.Valid(body) {
		return nil, errors.New("invalid request: malformed JSON body")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return req, nil
	}

	req.rawName = fields["name"]
	req.rawAge = fields["age"]
	req.Name = coerceName(req.rawName)
	req.Age = coerceAge(req.rawAge)
	return req, nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}

// coerceName converts a JSON scalar to the text stored in the name column.
// Numbers keep their literal form and booleans become "true" or "false".
func coerceName(raw json.RawMessage) *string {
	v, ok := decodeScalar(raw)
	if !ok {
		return nil
	}

	var name string
	switch v := v.(type) {
	case string:
		name = v
	case json.Number:
		name = v.String()
	case bool:
		name = strconv.FormatBool(v)
	default:
		return nil
	}
	return &name
}

// coerceAge converts a JSON scalar to an integer age. Integral numbers and
// numeric strings are accepted, booleans become 1 or 0, and anything else is
// stored as NULL.
func coerceAge(raw json.RawMessage) *int64 {
	v, ok := decodeScalar(raw)
	if !ok {
		return nil
	}

	var age int64
	switch v := v.(type) {
	case json.Number:
		if age, ok = parseInteger(v.String()); !ok {
			return nil
		}
	case string:
		if age, ok = parseInteger(strings.TrimSpace(v)); !ok {
			return nil
		}
	case bool:
		if v {
			age = 1
		}
	default:
		return nil
	}
	return &age
}

func decodeScalar(raw json.RawMessage) (interface{}, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil || v == nil {
		return nil, false
	}
	return v, true
}

// parseInteger accepts "30" as well as integral decimals such as "30.0" or "3e1".
func parseInteger(s string) (int64, bool) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// respondStorageError logs err and writes an unstructured 500.
func (s *Server) respondStorageError(w http.ResponseWriter, r *http.Request, err error) {
	var storageErr *storage.StorageError
	if errors.As(err, &storageErr) {
		log.Printf("[%s] %s %s: storage error during %s: %v", requestIDFrom(r), r.Method, r.URL.Path, storageErr.Op, storageErr.Err)
	} else {
		log.Printf("[%s] %s %s: %v", requestIDFrom(r), r.Method, r.URL.Path, err)
	}
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}
