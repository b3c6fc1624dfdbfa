// Package fakeremote is an in-memory stand-in for the remote media library.
// It speaks the same three calls the client uses: login on /status, and the
// md5 listing and multipart upload that share the sync root.
package fakeremote

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"slices"
	"strconv"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	slogGin "github.com/samber/slog-gin"
)

const (
	StatusPath = "/status"
	SyncPath   = "/"
)

var DefaultExtensions = []string{".mp3", ".flac", ".m4a", ".ogg", ".wav"}

// Upload is what the fake recorded for one accepted or rejected file
type Upload struct {
	UserID      string
	FilePath    string
	Method      string
	Fingerprint string
	Size        int64
	Accepted    bool
}

type account struct {
	id       string
	email    string
	password string
	token    string
	known    mapset.Set[string]
}

// Server is safe for concurrent use
type Server struct {
	mu         sync.Mutex
	accounts   map[string]*account // by email
	extensions []string
	rejectFn   func(filePath string) bool
	uploads    []Upload
	nextID     int
	logger     *slog.Logger
}

type Option func(*Server)

// WithExtensions replaces the advertised extension list
func WithExtensions(exts ...string) Option {
	return func(s *Server) {
		s.extensions = exts
	}
}

// WithLogger logs every request through slog-gin
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func New(opts ...Option) *Server {
	s := &Server{
		accounts:   make(map[string]*account),
		extensions: DefaultExtensions,
		nextID:     1000,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddUser registers credentials and returns the identity the server will hand out.
func (s *Server) AddUser(email, password string) (userID, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	acct := &account{
		id:       strconv.Itoa(s.nextID),
		email:    email,
		password: password,
		token:    uuid.NewString(),
		known:    mapset.NewSet[string](),
	}
	s.accounts[email] = acct
	return acct.id, acct.token
}

// SeedKnown marks hashes as already present for the user
func (s *Server) SeedKnown(email string, hashes ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if acct, ok := s.accounts[email]; ok {
		acct.known.Append(hashes...)
	}
}

// Known returns the sorted hashes held for the user
func (s *Server) Known(email string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[email]
	if !ok {
		return nil
	}
	known := acct.known.ToSlice()
	slices.Sort(known)
	return known
}

// RejectWhen makes uploads answer result:false when fn returns true
func (s *Server) RejectWhen(fn func(filePath string) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectFn = fn
}

// Uploads returns every upload attempt in arrival order
func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.uploads)
}

// Handler returns the gin engine serving the remote contract
func (s *Server) Handler() http.Handler {
	r := gin.New()
	if s.logger != nil {
		r.Use(slogGin.NewWithConfig(s.logger.WithGroup("http"), slogGin.Config{
			DefaultLevel:     slog.LevelInfo,
			ClientErrorLevel: slog.LevelWarn,
			ServerErrorLevel: slog.LevelError,
			WithRequestID:    true,
		}))
	}
	r.Use(gin.Recovery())

	r.POST(StatusPath, s.handleStatus)
	r.POST(SyncPath, s.handleSync)
	return r
}

type statusBody struct {
	Mode           string `json:"mode"`
	EmailAddress   string `json:"email_address"`
	Password       string `json:"password"`
	Version        string `json:"version"`
	Client         string `json:"client"`
	SupportedTypes int    `json:"supported_types"`
}

func (s *Server) handleStatus(c *gin.Context) {
	var body statusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"result": false, "message": err.Error()})
		return
	}
	if body.Mode != "status" {
		c.JSON(http.StatusBadRequest, gin.H{"result": false, "message": "unknown mode"})
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[body.EmailAddress]
	s.mu.Unlock()

	if !ok || acct.password != body.Password {
		c.JSON(http.StatusOK, gin.H{"result": false, "message": "invalid login"})
		return
	}

	supported := make([]gin.H, 0, len(s.extensions))
	if body.SupportedTypes == 1 {
		for _, ext := range s.extensions {
			supported = append(supported, gin.H{"extension": ext})
		}
	}

	// the real service sends the id as a number
	id, _ := strconv.Atoi(acct.id)
	c.JSON(http.StatusOK, gin.H{
		"result":    true,
		"user":      gin.H{"id": id, "token": acct.token},
		"supported": supported,
	})
}

func (s *Server) handleSync(c *gin.Context) {
	acct, ok := s.lookup(c.PostForm("user_id"), c.PostForm("token"))
	if !ok {
		c.JSON(http.StatusOK, gin.H{"result": false, "message": "invalid token"})
		return
	}

	if c.ContentType() == "multipart/form-data" {
		s.handleUpload(c, acct)
		return
	}

	s.mu.Lock()
	known := acct.known.ToSlice()
	s.mu.Unlock()
	slices.Sort(known)

	c.JSON(http.StatusOK, gin.H{"result": true, "md5": known})
}

func (s *Server) handleUpload(c *gin.Context, acct *account) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"result": false, "message": "missing file part"})
		return
	}

	fingerprint, size, err := hashPart(header)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"result": false, "message": err.Error()})
		return
	}

	upload := Upload{
		UserID:      acct.id,
		FilePath:    c.PostForm("file_path"),
		Method:      c.PostForm("method"),
		Fingerprint: fingerprint,
		Size:        size,
	}

	s.mu.Lock()
	upload.Accepted = s.rejectFn == nil || !s.rejectFn(upload.FilePath)
	if upload.Accepted {
		acct.known.Add(fingerprint)
	}
	s.uploads = append(s.uploads, upload)
	s.mu.Unlock()

	if !upload.Accepted {
		c.JSON(http.StatusOK, gin.H{"result": false, "message": "upload failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": true, "message": "file uploaded"})
}

func (s *Server) lookup(userID, token string) (*account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, acct := range s.accounts {
		if acct.id == userID && acct.token == token {
			return acct, true
		}
	}
	return nil, false
}

func hashPart(header *multipart.FileHeader) (string, int64, error) {
	part, err := header.Open()
	if err != nil {
		return "", 0, fmt.Errorf("open part: %w", err)
	}
	defer part.Close()

	h := md5.New()
	n, err := io.Copy(h, part)
	if err != nil {
		return "", 0, fmt.Errorf("read part: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
