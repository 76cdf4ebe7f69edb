package rest

import (
	"errors"
	"log"
	"net/http"
	"time"

	apperrors "github.com/louisbranch/pcg.arena/internal/platform/errors"
	"github.com/louisbranch/pcg.arena/internal/platform/errors/i18n"
)

// ProtocolVersion tags every arena/v0 response envelope.
const ProtocolVersion = "arena/v0"

// errorBody is the wire error inside the envelope.
type errorBody struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Retryable bool              `json:"retryable"`
	Details   map[string]string `json:"details,omitempty"`
}

// errorEnvelope is the arena/v0 error response.
type errorEnvelope struct {
	ProtocolVersion string    `json:"protocol_version"`
	Error           errorBody `json:"error"`
}

// WriteError renders err through the arena error envelope. The user
// message comes from the locale catalog; internal messages never leak.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.CodeOf(err)
	if code == apperrors.CodeUnknown {
		code = apperrors.CodeInternal
	}
	// NOT_FOUND is a storage-level signal that should never surface raw.
	if code == apperrors.CodeNotFound {
		code = apperrors.CodeInternal
	}

	var details map[string]string
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) {
		details = domainErr.Metadata
	}

	if code == apperrors.CodeInternal {
		log.Printf("internal error method=%s path=%s err=%v", r.Method, r.URL.Path, err)
		// Internal metadata stays internal.
		details = nil
	}

	catalog := i18n.GetCatalog(r.Header.Get("Accept-Language"))
	envelope := errorEnvelope{
		ProtocolVersion: ProtocolVersion,
		Error: errorBody{
			Code:      string(code),
			Message:   catalog.Format(string(code), details),
			Retryable: code.Retryable(),
			Details:   details,
		},
	}
	if writeErr := WriteJSON(w, code.HTTPStatus(), envelope); writeErr != nil {
		log.Printf("write error envelope: %v", writeErr)
	}
}

// writeInternalEnvelope is the last-resort writer used by the panic
// recovery middleware, where no request-scoped catalog is available.
func writeInternalEnvelope(w http.ResponseWriter) {
	envelope := errorEnvelope{
		ProtocolVersion: ProtocolVersion,
		Error: errorBody{
			Code:      string(apperrors.CodeInternal),
			Message:   "internal error",
			Retryable: true,
		},
	}
	_ = WriteJSON(w, http.StatusInternalServerError, envelope)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}
