package runtime

import (
	"net/http"

	"github.com/drblury/csvflow/internal/runtime/jsoncodec"
)

// registerIntrospection serves the derived schema and handler stats next to
// /metrics when a metrics port is configured.
func (s *Service) registerIntrospection() {
	port := s.Conf.MetricsPort
	if port <= 0 {
		return
	}
	s.RegisterHTTPHandler(port, "/schema", http.HandlerFunc(s.handleGetSchema))
	s.RegisterHTTPHandler(port, "/handlers", http.HandlerFunc(s.handleGetHandlers))
	s.RegisterHTTPHandler(port, "/healthz", http.HandlerFunc(handleHealthz))
}

type schemaResponse struct {
	Topic   string   `json:"topic"`
	Shape   string   `json:"shape"`
	Columns []string `json:"columns"`
	Target  any      `json:"target"`
}

func (s *Service) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	derived, err := s.converter.Schema()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	target, err := s.converter.TargetSchema()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	s.writeJSON(w, schemaResponse{
		Topic:   s.converter.Topic(),
		Shape:   derived.Shape.String(),
		Columns: derived.Headers(),
		Target:  target.Document(),
	})
}

func (s *Service) handleGetHandlers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.Handlers())
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", ContentTypeJSON)
	if err := jsoncodec.Encode(w, v); err != nil {
		s.Logger.Error("Failed to encode response", err, nil)
	}
}
