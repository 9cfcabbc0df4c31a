// Package httpx holds request decoding helpers shared by the module handlers.
package httpx

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/marketplace-api/internal/apperr"
)

const maxBodyBytes = 1 << 20

// DecodeJSON decodes the request body into v. Malformed bodies are an
// InvalidOperation.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return apperr.Invalid("Requisição inválida.")
	}
	return nil
}

// PathInt64 parses the named chi URL parameter.
func PathInt64(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, apperr.Invalid("Parâmetro inválido: " + name + ".")
	}
	return id, nil
}

// PathInt parses the named chi URL parameter as an int.
func PathInt(r *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		return 0, apperr.Invalid("Parâmetro inválido: " + name + ".")
	}
	return n, nil
}

// StringBody accepts either a JSON object carrying field, a JSON string, or
// a raw text body, and returns the trimmed value.
func StringBody(r *http.Request, field string) (string, error) {
	v, err := stringBody(r, field)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(v), nil
}

// SecretBody reads field the same way as StringBody but returns the value
// exactly as sent. Used for passwords.
func SecretBody(r *http.Request, field string) (string, error) {
	return stringBody(r, field)
}

func stringBody(r *http.Request, field string) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return "", apperr.Invalid("Requisição inválida.")
	}
	body := strings.TrimSpace(string(raw))
	if body == "" {
		return "", apperr.Invalid("Requisição inválida.")
	}

	switch body[0] {
	case '{':
		var obj map[string]string
		if err := json.Unmarshal([]byte(body), &obj); err != nil {
			return "", apperr.Invalid("Requisição inválida.")
		}
		return obj[field], nil
	case '"':
		var s string
		if err := json.Unmarshal([]byte(body), &s); err != nil {
			return "", apperr.Invalid("Requisição inválida.")
		}
		return s, nil
	}
	return string(raw), nil
}

// Int64Slice decodes a JSON array of ids.
func Int64Slice(r *http.Request) ([]int64, error) {
	var ids []int64
	if err := DecodeJSON(r, &ids); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, apperr.Invalid("Nenhum identificador informado.")
	}
	return ids, nil
}
