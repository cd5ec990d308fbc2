package apitest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pdfchat/internal/api"
	"pdfchat/internal/model"
)

const (
	AccessToken  = "test-access-token"
	RefreshToken = "test-refresh-token"
)

// FailSpec scripts an error response for one endpoint.
type FailSpec struct {
	Status      int
	Body        []byte
	ContentType string
}

// Backend is an in-process stand-in for the document-QA server,
// implementing every endpoint the client calls. Tests seed documents,
// script status sequences, and inspect call counts.
type Backend struct {
	server *httptest.Server

	mu           sync.Mutex
	users        map[string]string
	docs         []model.Document
	chunks       map[int64][]model.Chunk
	files        map[int64][]byte
	statusScript map[int64][]model.ProcessingStatus
	viewFail     map[int64]FailSpec
	askFail      *FailSpec
	listFail     *FailSpec
	reprocFail   *FailSpec
	answer       func(documentID int64, question string) string
	nextID       int64
	revoked      bool

	listCalls int32
	askCalls  int32
	viewCalls map[int64]int32
}

func New(t *testing.T) *Backend {
	t.Helper()
	gin.SetMode(gin.TestMode)

	b := &Backend{
		users:        map[string]string{"alice": "wonderland"},
		chunks:       make(map[int64][]model.Chunk),
		files:        make(map[int64][]byte),
		statusScript: make(map[int64][]model.ProcessingStatus),
		viewFail:     make(map[int64]FailSpec),
		viewCalls:    make(map[int64]int32),
		answer: func(_ int64, question string) string {
			return "Answer to: " + question
		},
	}

	router := gin.New()
	router.GET("/api/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "API working!"})
	})
	router.POST("/api/login/", b.handleLogin)
	router.POST("/api/register/", b.handleRegister)

	authed := router.Group("/", b.requireBearer)
	authed.GET("/api/my_pdfs/", b.handleList)
	authed.POST("/api/upload_pdf/", b.handleUpload)
	authed.GET("/api/pdf/:id/view/", b.handleView)
	authed.POST("/api/pdf/:id/process/", b.handleReprocess)
	authed.GET("/api/pdf_chunks/:id/", b.handleChunks)
	authed.POST("/api/ask_pdf/:id/", b.handleAsk)

	b.server = httptest.NewServer(router)
	t.Cleanup(b.server.Close)
	return b
}

func (b *Backend) URL() string {
	return b.server.URL
}

// --- seeding and inspection ---

func (b *Backend) AddDocument(title string, status model.ProcessingStatus) model.Document {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	doc := model.Document{
		ID:               b.nextID,
		Title:            title,
		FileURL:          fmt.Sprintf("/api/pdf/%d/view/", b.nextID),
		ProcessingStatus: status,
	}
	b.docs = append(b.docs, doc)
	return doc
}

func (b *Backend) SetProcessingError(id int64, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.docs {
		if b.docs[i].ID == id {
			b.docs[i].ProcessingError = message
		}
	}
}

// ScriptStatuses queues status values applied one per list call, which
// lets a test drive a document through pending/processing/done at the
// pace of the client's own polling.
func (b *Backend) ScriptStatuses(id int64, statuses ...model.ProcessingStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statusScript[id] = append(b.statusScript[id], statuses...)
}

func (b *Backend) SetChunks(id int64, texts ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	chunks := make([]model.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = model.Chunk{ID: int64(i + 1), Text: text, Order: i}
	}
	b.chunks[id] = chunks
}

func (b *Backend) SetFile(id int64, content []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files[id] = content
}

func (b *Backend) FailView(id int64, spec FailSpec) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.viewFail[id] = spec
}

func (b *Backend) FailAsk(spec FailSpec) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.askFail = &spec
}

func (b *Backend) FailList(spec FailSpec) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listFail = &spec
}

func (b *Backend) FailReprocess(spec FailSpec) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reprocFail = &spec
}

// SetAnswer replaces the ask handler's answer function.
func (b *Backend) SetAnswer(fn func(documentID int64, question string) string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.answer = fn
}

// Revoke makes every authenticated endpoint answer 401, as if the
// token expired server-side.
func (b *Backend) Revoke() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked = true
}

func (b *Backend) ListCalls() int {
	return int(atomic.LoadInt32(&b.listCalls))
}

func (b *Backend) AskCalls() int {
	return int(atomic.LoadInt32(&b.askCalls))
}

func (b *Backend) ViewCalls(id int64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int(b.viewCalls[id])
}

// --- wiring helpers ---

// TokenSource is a static api.TokenSource for tests, tracking how many
// times the 401 hook fired.
type TokenSource struct {
	mu                sync.Mutex
	token             string
	unauthorizedCalls int
}

func NewTokenSource(token string) *TokenSource {
	return &TokenSource{token: token}
}

func (s *TokenSource) Attach(req *http.Request) {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (s *TokenSource) HandleUnauthorized() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unauthorizedCalls++
	s.token = ""
}

func (s *TokenSource) UnauthorizedCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unauthorizedCalls
}

// Client builds an api.Client pointed at the backend with a valid
// static token.
func (b *Backend) Client(t *testing.T) (*api.Client, *TokenSource) {
	t.Helper()
	tokens := NewTokenSource(AccessToken)
	return api.NewClient(b.URL(), 0, tokens, zap.NewNop()), tokens
}

// --- handlers ---

func (b *Backend) requireBearer(c *gin.Context) {
	header := c.GetHeader("Authorization")
	b.mu.Lock()
	revoked := b.revoked
	b.mu.Unlock()

	if revoked || !strings.HasPrefix(header, "Bearer ") || strings.TrimPrefix(header, "Bearer ") != AccessToken {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Given token not valid for any token type"})
		return
	}
	c.Next()
}

func (b *Backend) handleLogin(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	b.mu.Lock()
	password, ok := b.users[req.Username]
	b.mu.Unlock()
	if !ok || password != req.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "No active account found with the given credentials"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": AccessToken, "refresh": RefreshToken})
}

func (b *Backend) handleRegister(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	b.mu.Lock()
	b.users[req.Username] = req.Password
	b.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"message": "User Registered"})
}

func (b *Backend) handleList(c *gin.Context) {
	atomic.AddInt32(&b.listCalls, 1)

	b.mu.Lock()
	if b.listFail != nil {
		spec := *b.listFail
		b.mu.Unlock()
		c.Data(spec.Status, contentTypeOr(spec, "application/json"), spec.Body)
		return
	}
	// Advance any scripted status sequences before answering.
	for i := range b.docs {
		script := b.statusScript[b.docs[i].ID]
		if len(script) > 0 {
			b.docs[i].ProcessingStatus = script[0]
			b.statusScript[b.docs[i].ID] = script[1:]
		}
	}
	snapshot := make([]model.Document, len(b.docs))
	copy(snapshot, b.docs)
	b.mu.Unlock()

	c.JSON(http.StatusOK, snapshot)
}

func (b *Backend) handleUpload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	if !strings.HasSuffix(strings.ToLower(file.Filename), ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF files allowed"})
		return
	}

	doc := b.AddDocument(file.Filename, model.StatusPending)
	c.JSON(http.StatusOK, gin.H{
		"message":    "PDF uploaded. Processing started",
		"pdf_id":     doc.ID,
		"file_url":   doc.FileURL,
		"chunks_url": fmt.Sprintf("/api/pdf_chunks/%d/", doc.ID),
		"ask_url":    fmt.Sprintf("/api/ask_pdf/%d/", doc.ID),
	})
}

func (b *Backend) handleView(c *gin.Context) {
	id := paramID(c)

	b.mu.Lock()
	b.viewCalls[id]++
	spec, failed := b.viewFail[id]
	content, ok := b.files[id]
	b.mu.Unlock()

	if failed {
		c.Data(spec.Status, contentTypeOr(spec, "application/octet-stream"), spec.Body)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "PDF not found"})
		return
	}
	c.Data(http.StatusOK, "application/pdf", content)
}

func (b *Backend) handleReprocess(c *gin.Context) {
	id := paramID(c)

	b.mu.Lock()
	if b.reprocFail != nil {
		spec := *b.reprocFail
		b.mu.Unlock()
		c.Data(spec.Status, contentTypeOr(spec, "application/json"), spec.Body)
		return
	}
	for i := range b.docs {
		if b.docs[i].ID == id {
			b.docs[i].ProcessingStatus = model.StatusProcessing
			b.docs[i].ProcessingError = ""
		}
	}
	b.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"message": "PDF processed successfully"})
}

func (b *Backend) handleChunks(c *gin.Context) {
	id := paramID(c)

	b.mu.Lock()
	chunks := append([]model.Chunk(nil), b.chunks[id]...)
	b.mu.Unlock()

	c.JSON(http.StatusOK, chunks)
}

func (b *Backend) handleAsk(c *gin.Context) {
	atomic.AddInt32(&b.askCalls, 1)
	id := paramID(c)

	var req struct {
		Question string `json:"question"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	b.mu.Lock()
	spec := b.askFail
	answer := b.answer
	b.mu.Unlock()

	if spec != nil {
		c.Data(spec.Status, contentTypeOr(*spec, "application/json"), spec.Body)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer(id, req.Question)})
}

func paramID(c *gin.Context) int64 {
	id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
	return id
}

func contentTypeOr(spec FailSpec, fallback string) string {
	if spec.ContentType != "" {
		return spec.ContentType
	}
	return fallback
}
