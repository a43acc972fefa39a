package dto

import (
	"encoding/base64"
	"strings"
	"time"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// CursorRequest paginación keyset para listados (cursor opaco devuelto en la página anterior).
type CursorRequest struct {
	Cursor string `query:"cursor"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

// Normalize aplica valores por defecto y topes a Limit.
func (p *CursorRequest) Normalize() {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
}

// PageResponse metadatos de página en respuestas.
type PageResponse struct {
	Limit      int    `json:"limit"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// EncodeCursor empaqueta las partes del cursor keyset en un token opaco.
func EncodeCursor(parts ...string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strings.Join(parts, "\x1f")))
}

// DecodeCursor desempaqueta un cursor; devuelve nil si está vacío o es inválido.
func DecodeCursor(cursor string, n int) []string {
	if cursor == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil
	}
	parts := strings.Split(string(raw), "\x1f")
	if len(parts) != n {
		return nil
	}
	return parts
}

// ParseDate acepta YYYY-MM-DD o RFC3339. Una fecha sin hora usada como límite superior
// (endOfDay) cubre el día completo. Vacío devuelve nil.
func ParseDate(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
