package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/adrianncovaci/uni-chain/internal/courses"
	"github.com/adrianncovaci/uni-chain/internal/logger"
	"github.com/adrianncovaci/uni-chain/internal/types"
)

const testAccount = "aabbccdd"

func setupTest(t *testing.T, records []types.CourseRecord, status StatusSource) *Service {
	t.Helper()

	store, err := courses.NewStore(filepath.Join(t.TempDir(), "courses.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.ReplaceAll(records); err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}

	return NewService(store, testAccount, status, logger.New(10))
}

func sampleRecords() []types.CourseRecord {
	return []types.CourseRecord{
		{Dna: "0a0b", Owner: testAccount, Price: 0, Year: types.YearFirst, Credits: 5},
		{Dna: "1c1d", Owner: "eeff0011", Price: 2500, Year: types.YearThird, Credits: 8},
	}
}

func TestHandleCourses(t *testing.T) {
	svc := setupTest(t, sampleRecords(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/courses", nil)
	w := httptest.NewRecorder()
	svc.HandleCourses(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got []types.CourseRecord
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 courses, got %d", len(got))
	}
	if got[0].Dna != "0a0b" || got[1].Dna != "1c1d" {
		t.Errorf("unexpected ordering: %s, %s", got[0].Dna, got[1].Dna)
	}
}

func TestHandleCoursesMethodNotAllowed(t *testing.T) {
	svc := setupTest(t, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/courses", nil)
	w := httptest.NewRecorder()
	svc.HandleCourses(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

func TestHandleCourse(t *testing.T) {
	svc := setupTest(t, sampleRecords(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/courses/get?dna=1c1d", nil)
	w := httptest.NewRecorder()
	svc.HandleCourse(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got types.CourseRecord
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Owner != "eeff0011" || got.Price != 2500 {
		t.Errorf("unexpected record: %+v", got)
	}
}

func TestHandleCourseNotFound(t *testing.T) {
	svc := setupTest(t, sampleRecords(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/courses/get?dna=ffff", nil)
	w := httptest.NewRecorder()
	svc.HandleCourse(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestHandleCourseMissingDna(t *testing.T) {
	svc := setupTest(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/courses/get", nil)
	w := httptest.NewRecorder()
	svc.HandleCourse(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	svc := setupTest(t, nil, func() string { return "Finalized. Block hash: 0xab" })

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	svc.HandleStatus(w, req)

	var got map[string]string
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got["status"] != "Finalized. Block hash: 0xab" {
		t.Errorf("unexpected status %q", got["status"])
	}
}

func TestHandleStatusNoSource(t *testing.T) {
	svc := setupTest(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	svc.HandleStatus(w, req)

	var got map[string]string
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got["status"] != "" {
		t.Errorf("expected empty status, got %q", got["status"])
	}
}

func TestHandleVersion(t *testing.T) {
	svc := setupTest(t, sampleRecords(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	w := httptest.NewRecorder()
	svc.HandleVersion(w, req)

	var got map[string]string
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got["version"] != types.Version {
		t.Errorf("expected version %s, got %s", types.Version, got["version"])
	}
	if got["account"] != testAccount {
		t.Errorf("expected account %s, got %s", testAccount, got["account"])
	}
	if got["courses"] != "2" {
		t.Errorf("expected 2 courses, got %s", got["courses"])
	}
}

func TestHandleHealth(t *testing.T) {
	svc := setupTest(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	svc.HandleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got map[string]string
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got["status"] != "ok" {
		t.Errorf("expected ok, got %q", got["status"])
	}
}
