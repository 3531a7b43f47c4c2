package webhook

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/copp1723/final-offerlogix-sub004/core"
)

const maxInboundBodyBytes = 4 << 20 // 4 MiB

// HTTPHandler mounts the processor as the provider-facing webhook endpoint.
// The provider posts form-encoded fields; JSON bodies are accepted for
// providers that deliver that shape instead.
type HTTPHandler struct {
	Processor *Processor
	Observer  core.Observer
}

func NewHTTPHandler(processor *Processor) *HTTPHandler {
	return &HTTPHandler{Processor: processor}
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Processor == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "webhook handler is not configured"})
		return
	}
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}

	fields, err := decodeRequestFields(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "malformed webhook payload"})
		return
	}

	result, err := h.Processor.Process(r.Context(), fields)
	if err != nil {
		status := result.StatusCode
		if status == 0 {
			status = core.HTTPStatus(err)
		}
		h.Observer.LogError(r.Context(), "webhook request failed", map[string]any{
			"status": status,
			"error":  err.Error(),
		})
		writeJSON(w, status, map[string]any{"error": core.PipelineErrorMapper(err).TextCode})
		return
	}

	writeJSON(w, result.StatusCode, map[string]any{"status": result.Status})
}

func decodeRequestFields(r *http.Request) (map[string]string, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxInboundBodyBytes)

	contentType := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Type")))
	if strings.HasPrefix(contentType, "application/json") {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			return nil, err
		}
		fields := make(map[string]string, len(payload))
		for key, value := range payload {
			switch typed := value.(type) {
			case string:
				fields[key] = typed
			case json.Number:
				fields[key] = typed.String()
			case float64:
				fields[key] = trimFloat(typed)
			case bool:
				if typed {
					fields[key] = "true"
				} else {
					fields[key] = "false"
				}
			case nil:
				// skip
			default:
				encoded, err := json.Marshal(typed)
				if err == nil {
					fields[key] = string(encoded)
				}
			}
		}
		return fields, nil
	}

	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxInboundBodyBytes); err != nil {
			return nil, err
		}
	} else if err := r.ParseForm(); err != nil {
		return nil, err
	}

	fields := make(map[string]string, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}
	return fields, nil
}

func trimFloat(value float64) string {
	encoded, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	return string(encoded)
}

func writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	if status <= 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
