package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrMissingBasicAuth is returned when a request carries no usable Basic credentials
var ErrMissingBasicAuth = errors.New("missing basic authorization")

// ParseJSON decodes JSON from the request body into the destination
func ParseJSON(r *http.Request, dest interface{}) error {
	if r.Body == nil {
		return errors.New("invalid JSON: empty body")
	}
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("invalid JSON: empty body")
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// ParseJSONOrError decodes JSON and writes error response on failure
func ParseJSONOrError(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := ParseJSON(r, dest); err != nil {
		WriteBadRequest(w, err.Error())
		return false
	}
	return true
}

// BasicAuth returns the Basic credentials of r. Both parts must be non-empty.
func BasicAuth(r *http.Request) (string, string, error) {
	user, pass, ok := r.BasicAuth()
	if !ok || user == "" || pass == "" {
		return "", "", ErrMissingBasicAuth
	}
	return user, pass, nil
}

// BasicAuthOrError extracts Basic credentials and writes a 401 challenge on failure
func BasicAuthOrError(w http.ResponseWriter, r *http.Request, realm string) (string, string, bool) {
	user, pass, err := BasicAuth(r)
	if err != nil {
		w.Header().Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", realm))
		WriteUnauthorized(w, err.Error())
		return "", "", false
	}
	return user, pass, true
}

// ParseFormValue extracts a required url-encoded form field
func ParseFormValue(r *http.Request, key string) (string, error) {
	if err := r.ParseForm(); err != nil {
		return "", fmt.Errorf("invalid form body: %w", err)
	}
	val := r.PostForm.Get(key)
	if val == "" {
		return "", fmt.Errorf("missing form field: %s", key)
	}
	return val, nil
}

// ParseFormValueOrError extracts a required form field and writes error on failure
func ParseFormValueOrError(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	val, err := ParseFormValue(r, key)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return "", false
	}
	return val, true
}

// RequireNonEmpty validates that a string field is not empty
func RequireNonEmpty(value, fieldName string) Validator {
	return func() (bool, string) {
		if value == "" {
			return false, fmt.Sprintf("%s is required", fieldName)
		}
		return true, ""
	}
}

// Validator is a function that validates a value and returns an error message if invalid
type Validator func() (bool, string)

// ValidateAll runs multiple validators and writes the first error
func ValidateAll(w http.ResponseWriter, validators ...Validator) bool {
	for _, validator := range validators {
		if valid, errMsg := validator(); !valid {
			WriteBadRequest(w, errMsg)
			return false
		}
	}
	return true
}
