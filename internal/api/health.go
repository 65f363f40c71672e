package api

import (
	"fmt"
	"net/http"
	"os"
	"runtime"

	"github.com/adrianncovaci/uni-chain/internal/types"
)

// @Title: Get Health
// @Route: GET /api/health
// @Description: Returns server health status
// @Response: {"status": "ok"}
func (s *Service) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// @Title: Get Version
// @Route: GET /api/version
// @Description: Returns dashboard version and the viewer's account address
// @Response: {"version": "...", "status": "ok", "account": "..."}
func (s *Service) HandleVersion(w http.ResponseWriter, r *http.Request) {
	hostname, _ := os.Hostname()

	s.writeJSON(w, http.StatusOK, map[string]string{
		"version":  types.Version,
		"status":   "ok",
		"hostname": hostname,
		"account":  s.account,
		"courses":  fmt.Sprintf("%d", s.store.Count()),
		"go_ver":   runtime.Version(),
		"os_arch":  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	})
}
