package http

import (
	_ "embed"
	"net/http"
)

//go:embed ui/index.html
var indexHTML []byte

// AddDashboardRoute serves the embedded single-page dashboard. The
// page is static; everything live arrives through the JSON API.
func (s *Server) AddDashboardRoute() {
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(indexHTML)
	})
}
