package api

import (
	"net/http"
)

// @Title: Get All Courses
// @Route: GET /api/courses
// @Description: Get the current course snapshot as synced from the ledger
// @Response: Array of CourseRecord objects
func (s *Service) HandleCourses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.store.GetAll())
}

// @Title: Get Course
// @Route: GET /api/courses/get?dna=<hex>
// @Description: Get a single course by its dna identifier
// @Response: CourseRecord object, or 404
func (s *Service) HandleCourse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	dna := r.URL.Query().Get("dna")
	if dna == "" {
		s.writeError(w, http.StatusBadRequest, "dna is required")
		return
	}

	rec, err := s.store.Get(dna)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "Course not found")
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

// @Title: Get Transaction Status
// @Route: GET /api/status
// @Description: Get the status line of the most recently submitted transaction
// @Response: {"status": "..."}
func (s *Service) HandleStatus(w http.ResponseWriter, r *http.Request) {
	text := ""
	if s.status != nil {
		text = s.status()
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": text})
}
