// Package web implements the HTTP server and datastar-backed dashboard for
// uni-chain. It renders the course grid from the local snapshot store,
// streams refreshes over SSE, and exposes the course action endpoints.
package web

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adrianncovaci/uni-chain/internal/api"
	"github.com/adrianncovaci/uni-chain/internal/courses"
	"github.com/adrianncovaci/uni-chain/internal/docs"
	"github.com/adrianncovaci/uni-chain/internal/logger"
	"github.com/adrianncovaci/uni-chain/internal/types"
)

// TemplateData holds the data to be passed to the HTML template.
type TemplateData struct {
	Rows           []courseRow
	Account        string
	Status         string
	CurrentVersion string
	BuildTime      string
	DocList        []string
	DocContent     template.HTML
	CurrentDoc     string
}

// sseBroker manages SSE connections for broadcasting snapshot updates
type sseBroker struct {
	mu      sync.RWMutex
	clients map[chan []byte]struct{}
}

func newSSEBroker() *sseBroker {
	return &sseBroker{
		clients: make(map[chan []byte]struct{}),
	}
}

func (b *sseBroker) register(client chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[client] = struct{}{}
}

func (b *sseBroker) unregister(client chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.clients, client)
	close(client)
}

func (b *sseBroker) broadcast(data []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for client := range b.clients {
		select {
		case client <- data:
		default:
			// Client is slow/blocked, skip
		}
	}
}

// Server is the web server for the dashboard and API.
type Server struct {
	store      *courses.Store
	submitter  Submitter
	account    string
	port       int
	templates  *template.Template
	logger     *logger.Logger
	sseBroker  *sseBroker
	statusMu   sync.RWMutex
	statusText string
	apiService *api.Service
	docService *docs.Service
}

// NewServer creates a new web server. account is the viewer's ledger address;
// submitter signs and submits call descriptors to the node.
func NewServer(store *courses.Store, submitter Submitter, account string, port int, docsDir string) (*Server, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	logger := logger.New(200) // Keep last 200 messages

	s := &Server{
		store:      store,
		submitter:  submitter,
		account:    account,
		port:       port,
		templates:  templates,
		logger:     logger,
		sseBroker:  newSSEBroker(),
		docService: docs.NewService(docsDir),
	}
	s.apiService = api.NewService(store, account, s.Status, logger)

	s.logger.Info("uni-chain dashboard initialized")

	// Listen for snapshot updates and broadcast them via SSE
	go s.watchCourseUpdates()

	return s, nil
}

// Logger returns the server's logger instance
func (s *Server) Logger() *logger.Logger {
	return s.logger
}

// Status returns the current transaction status line.
func (s *Server) Status() string {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.statusText
}

// PushStatus lets other components (the sync layer, the disconnect handler)
// surface text on the dashboard status line.
func (s *Server) PushStatus(text string) {
	s.setStatus(text)
}

// setStatus overwrites the single status line and pushes it to all connected
// dashboards. Later submissions simply replace earlier text.
func (s *Server) setStatus(text string) {
	s.statusMu.Lock()
	s.statusText = text
	s.statusMu.Unlock()

	s.logger.Info(text)
	msg := fmt.Sprintf("event: tx-status\ndata: %s\n\n", strings.ReplaceAll(text, "\n", " "))
	s.sseBroker.broadcast([]byte(msg))
}

// Start initializes and runs the web server.
func (s *Server) Start() <-chan error {
	log.Printf("Web UI: Starting dashboard and API server on http://localhost:%d", s.port)

	mux := http.NewServeMux()

	// Page routes
	mux.HandleFunc("/", s.handlePageLoad)
	mux.HandleFunc("/views/courses", s.handleCoursesView)
	mux.HandleFunc("/views/docs", s.handleDocsView)

	// API routes (delegated to apiService)
	mux.HandleFunc("/api/health", s.apiService.HandleHealth)
	mux.HandleFunc("/api/version", s.apiService.HandleVersion)
	mux.HandleFunc("/api/courses", s.apiService.HandleCourses)
	mux.HandleFunc("/api/courses/get", s.apiService.HandleCourse)
	mux.HandleFunc("/api/status", s.apiService.HandleStatus)

	// Course actions (kept local for submitter and status line)
	mux.HandleFunc("/api/courses/create", s.handleCreateCourse)
	mux.HandleFunc("/api/courses/set-price", s.handleSetPrice)
	mux.HandleFunc("/api/courses/transfer", s.handleTransfer)
	mux.HandleFunc("/api/courses/buy", s.handleBuyCourse)
	mux.HandleFunc("/api/courses/breed", s.handleBreedCourse)
	mux.HandleFunc("/api/courses/stream", s.handleCoursesStream)

	// WebSocket routes
	mux.HandleFunc("/ws/status", s.handleStatusWS)

	addr := fmt.Sprintf(":%d", s.port)
	errCh := make(chan error, 1)

	go func() {
		err := http.ListenAndServe(addr, mux)
		errCh <- err
		close(errCh)
	}()

	return errCh
}

func (s *Server) handlePageLoad(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	s.setCacheHeaders(w)
	err := s.templates.ExecuteTemplate(w, "layout.html", TemplateData{
		Account:        s.account,
		CurrentVersion: types.Version,
		BuildTime:      types.BuildTime,
	})
	if err != nil {
		log.Printf("Error executing layout template: %s", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

func (s *Server) handleCoursesView(w http.ResponseWriter, r *http.Request) {
	data := TemplateData{
		Rows:           buildRows(s.store.GetAll(), s.account),
		Account:        s.account,
		Status:         s.Status(),
		CurrentVersion: types.Version,
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "courses-view.html", data); err != nil {
		log.Printf("Error executing courses-view template: %s", err)
		http.Error(w, "Failed to render view", http.StatusInternalServerError)
		return
	}

	s.writeViewFragment(w, buf.String())
}

func (s *Server) handleDocsView(w http.ResponseWriter, r *http.Request) {
	docName := r.URL.Query().Get("doc")
	docList, _ := s.docService.ListDocs()

	var docContent string
	if docName != "" {
		content, err := s.docService.GetDoc(r.Context(), docName)
		if err == nil {
			docContent = content
		} else {
			s.logger.Error(fmt.Sprintf("Failed to load doc %s: %v", docName, err))
		}
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "docs-view.html", TemplateData{
		CurrentVersion: types.Version,
		BuildTime:      types.BuildTime,
		DocList:        docList,
		DocContent:     template.HTML(docContent),
		CurrentDoc:     docName,
	}); err != nil {
		log.Printf("Error executing docs-view template: %s", err)
		http.Error(w, "Failed to render view", http.StatusInternalServerError)
		return
	}

	s.writeViewFragment(w, buf.String())
}

// writeViewFragment streams a rendered view into the content area as a
// datastar merge-fragments event.
func (s *Server) writeViewFragment(w http.ResponseWriter, content string) {
	s.setCacheHeaders(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: datastar-merge-fragments\n")
	fmt.Fprintf(w, "data: fragments <div id=\"content-area\">\n")

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fmt.Fprintf(w, "data: fragments %s\n", line)
	}
	fmt.Fprintf(w, "data: fragments </div>\n\n")
}

// watchCourseUpdates listens for snapshot changes and broadcasts the fresh
// course grid to all SSE clients
func (s *Server) watchCourseUpdates() {
	updates := s.store.Updates()
	for range updates {
		data := s.renderCourseListFragment()
		if data != nil {
			s.sseBroker.broadcast(data)
		}
	}
}

// formatSSEEvent formats an HTML element as a datastar SSE event
// using the datastar-merge-fragments format the client expects
func formatSSEEvent(htmlContent string) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "event: datastar-merge-fragments\n")

	lines := strings.Split(htmlContent, "\n")
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fmt.Fprintf(&buf, "data: fragments %s\n", line)
	}
	fmt.Fprintf(&buf, "\n")

	return buf.Bytes()
}

// renderCourseListFragment creates the SSE-formatted fragment for course grid updates
func (s *Server) renderCourseListFragment() []byte {
	data := TemplateData{
		Rows:           buildRows(s.store.GetAll(), s.account),
		Account:        s.account,
		CurrentVersion: types.Version,
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "course-rows-content", data); err != nil {
		log.Printf("Error rendering course-rows-content template: %v", err)
		return nil
	}

	// Wrap content in tbody with matching ID for datastar to target
	content := "<tbody id=\"course_table_body\" class=\"divide-y divide-slate-700\">" + buf.String() + "</tbody>"

	return formatSSEEvent(content)
}

// handleCoursesStream establishes an SSE connection and streams course grid
// updates plus transaction status lines
func (s *Server) handleCoursesStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable proxy buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	clientChan := make(chan []byte, 10)
	s.sseBroker.register(clientChan)
	defer s.sseBroker.unregister(clientChan)

	sessionID := uuid.NewString()
	s.logger.Info(fmt.Sprintf("SSE client %s connected for course updates", sessionID))
	defer s.logger.Info(fmt.Sprintf("SSE client %s disconnected", sessionID))

	// Send initial state immediately
	initialData := s.renderCourseListFragment()
	if initialData != nil {
		w.Write(initialData)
		flusher.Flush()
	}

	keepAlive := time.NewTicker(30 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case data := <-clientChan:
			w.Write(data)
			flusher.Flush()
		case <-keepAlive.C:
			// Send keep-alive comment to prevent timeout
			fmt.Fprintf(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}

// handleStatusWS handles WebSocket connections for status bar messages and console logs
func (s *Server) handleStatusWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Send initial history, oldest first. GetRecent returns newest first.
	initialLogs := s.logger.GetRecent(50)
	for i := len(initialLogs) - 1; i >= 0; i-- {
		if err := conn.WriteJSON(initialLogs[i]); err != nil {
			return
		}
	}

	watch, stop := s.logger.Watch()
	defer stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-watch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}

// setCacheHeaders sets cache-busting headers to prevent browser caching.
func (s *Server) setCacheHeaders(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
}
