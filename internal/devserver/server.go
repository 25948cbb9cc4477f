// Package devserver is an in-memory backend speaking the same REST contract
// as the production API. It backs "stockdesk dev-server" and the end-to-end
// tests of the client and the commands.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/stockdesk/stockdesk/internal/api"
	"github.com/stockdesk/stockdesk/internal/entity"
	"github.com/stockdesk/stockdesk/internal/listing"
)

// Defaults.
const (
	BasePath        = "/api"
	DefaultVersion  = "1.4.0"
	DefaultUser     = "admin"
	DefaultPassword = "admin"
	DefaultTokenTTL = 8 * time.Hour
	maxUploadBytes  = 10 << 20
	shutdownTimeout = 5 * time.Second
	readTimeout     = 30 * time.Second
)

// Server serves a Store over HTTP.
type Server struct {
	store    *Store
	uploads  *uploads
	secret   []byte
	users    map[string]string
	version  string
	auth     bool
	tokenTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithSecret sets the HS256 signing key.
func WithSecret(secret []byte) Option {
	return func(s *Server) { s.secret = secret }
}

// WithUser adds an account that can log in.
func WithUser(username, password string) Option {
	return func(s *Server) { s.users[username] = password }
}

// WithVersion sets the reported server version.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithAuth makes every entity route require a valid bearer token.
func WithAuth(required bool) Option {
	return func(s *Server) { s.auth = required }
}

// WithTokenTTL sets the lifetime of issued tokens.
func WithTokenTTL(d time.Duration) Option {
	return func(s *Server) { s.tokenTTL = d }
}

// WithLogger sets the request logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l.With().Str("component", "devserver").Logger() }
}

// New returns a server over store. Without WithUser, admin/admin can log in.
func New(store *Store, opts ...Option) *Server {
	s := &Server{
		store:    store,
		uploads:  newUploads(),
		secret:   []byte("stockdesk-dev-secret"),
		users:    map[string]string{},
		version:  DefaultVersion,
		tokenTTL: DefaultTokenTTL,
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.users) == 0 {
		s.users[DefaultUser] = DefaultPassword
	}
	return s
}

// Handler returns the router. Every route lives under BasePath.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Resource not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})

	r.Route(BasePath, func(r chi.Router) {
		r.Get("/version", s.handleVersion)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			if s.auth {
				r.Use(s.requireToken)
			}
			r.Route("/{entity}", func(r chi.Router) {
				r.Use(s.knownEntity)
				r.Post("/", s.handleCreate)
				r.Post("/search", s.handleSearch)
				r.Post("/upload", s.handleUpload)
				r.Post("/process", s.handleProcess)
				r.Get("/{id}", s.handleGet)
				r.Put("/{id}", s.handleUpdate)
				r.Delete("/{id}", s.handleDelete)
			})
		})
	})
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("dev server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		s.logger.Info().Msg("dev server stopped")
		return nil
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		event := s.logger.Debug()
		switch {
		case ww.Status() >= http.StatusInternalServerError:
			event = s.logger.Error()
		case ww.Status() >= http.StatusBadRequest:
			event = s.logger.Warn()
		}
		event.
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) knownEntity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "entity")
		if !s.store.Has(name) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown entity %q", name), nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, api.ServerInfo{Version: s.version, Name: "stockdesk-devserver"})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed JSON request", nil)
		return
	}
	if pw, ok := s.users[req.Username]; !ok || pw != req.Password {
		writeError(w, http.StatusUnauthorized, "Invalid username or password", nil)
		return
	}

	token, err := s.issueToken(req.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not issue token", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) issueToken(username string) (string, error) {
	now := s.now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": username,
		"iat": now.Unix(),
		"exp": now.Add(s.tokenTTL).Unix(),
	})
	return token.SignedString(s.secret)
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "Authentication required", nil)
			return
		}
		_, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Session expired or invalid. Log in again.", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type searchBody struct {
	Where         map[string]string `json:"where"`
	GeneralSearch *struct {
		Value  string   `json:"value"`
		Fields []string `json:"fields"`
	} `json:"generalSearch"`
}

type pageResponse struct {
	Content          []Record `json:"content"`
	TotalPages       int      `json:"totalPages"`
	TotalElements    int      `json:"totalElements"`
	Size             int      `json:"size"`
	Number           int      `json:"number"`
	NumberOfElements int      `json:"numberOfElements"`
	First            bool     `json:"first"`
	Last             bool     `json:"last"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "entity")
	q, subErrors := parsePageQuery(r)
	if len(subErrors) > 0 {
		writeError(w, http.StatusBadRequest, "Invalid pagination parameters", subErrors)
		return
	}

	var body searchBody
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "Malformed JSON request", nil)
			return
		}
	}
	q.Where = body.Where
	if body.GeneralSearch != nil {
		q.Search = body.GeneralSearch.Value
		q.SearchFields = body.GeneralSearch.Fields
	}

	page := s.store.Search(name, q)
	writeJSON(w, http.StatusOK, pageResponse{
		Content:          page.Content,
		TotalPages:       page.TotalPages,
		TotalElements:    page.TotalElements,
		Size:             page.Size,
		Number:           page.Number,
		NumberOfElements: len(page.Content),
		First:            page.Number == 0,
		Last:             page.Number >= page.TotalPages-1,
	})
}

func parsePageQuery(r *http.Request) (SearchQuery, []api.SubError) {
	var (
		q    = SearchQuery{Page: 0, Size: listing.DefaultPageSize, Descending: true}
		errs []api.SubError
	)
	values := r.URL.Query()
	if v := values.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs = append(errs, api.SubError{Field: "page", RejectedValue: v, Message: "must be a non-negative integer"})
		}
		q.Page = n
	}
	if v := values.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < listing.MinPageSize || n > listing.MaxPageSize {
			errs = append(errs, api.SubError{
				Field: "size", RejectedValue: v,
				Message: fmt.Sprintf("must be between %d and %d", listing.MinPageSize, listing.MaxPageSize),
			})
		}
		q.Size = n
	}
	switch strings.ToUpper(values.Get("sort")) {
	case "", string(listing.SortDesc):
	case string(listing.SortAsc):
		q.Descending = false
	default:
		errs = append(errs, api.SubError{Field: "sort", RejectedValue: values.Get("sort"), Message: "must be ASC or DESC"})
	}
	q.SortField = values.Get("sortField")
	return q, errs
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(chi.URLParam(r, "entity"), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "entity")
	var rec Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed JSON request", nil)
		return
	}
	if missing := missingRequired(name, rec); len(missing) > 0 {
		writeError(w, http.StatusBadRequest, "Validation failed", missing)
		return
	}

	created, err := s.store.Create(name, rec)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var rec Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed JSON request", nil)
		return
	}
	updated, err := s.store.Update(chi.URLParam(r, "entity"), chi.URLParam(r, "id"), rec)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(chi.URLParam(r, "entity"), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type uploadResponse struct {
	FileID  string   `json:"fileId"`
	Headers []string `json:"headers"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile(api.UploadField)
	if err != nil {
		writeError(w, http.StatusBadRequest, "A file is required in the \"file\" field", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Could not read the uploaded file", nil)
		return
	}
	sh, err := parseSheet(header.Filename, data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Could not read the uploaded file: "+err.Error(), nil)
		return
	}
	sh.entity = chi.URLParam(r, "entity")

	id := s.uploads.put(sh)
	s.logger.Info().Str("file_id", id).Str("filename", header.Filename).
		Int("rows", len(sh.rows)).Msg("upload parsed")
	writeJSON(w, http.StatusOK, uploadResponse{FileID: id, Headers: sh.headers})
}

// ProcessResult is the body of a process response.
type ProcessResult struct {
	Imported int      `json:"imported"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "entity")
	var req api.ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed JSON request", nil)
		return
	}

	meta, err := entity.Lookup(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error(), nil)
		return
	}
	var missing []api.SubError
	for _, f := range meta.Import.Required() {
		if req.Mapping[f] == "" {
			missing = append(missing, api.SubError{Field: f, Message: "must be mapped"})
		}
	}
	if len(missing) > 0 {
		writeError(w, http.StatusBadRequest, "Required fields are not mapped", missing)
		return
	}

	sh, err := s.uploads.take(name, req.FileID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Uploaded file not found. Upload it again.", nil)
		return
	}
	rows, err := sh.values(req.Mapping)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Mapping does not match the file: "+err.Error(), nil)
		return
	}

	var res ProcessResult
	for i, values := range rows {
		line := i + 2 //nolint:mnd // one-based, after the header row
		payload, perr := entity.BuildPayload(meta.Form, values, true)
		if perr == nil {
			for _, f := range meta.Import.Required() {
				if values[f] == "" {
					perr = fmt.Errorf("%s is empty", f)
					break
				}
			}
		}
		if perr == nil {
			_, perr = s.store.Create(name, payload)
		}
		if perr != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: %s", line, strings.ReplaceAll(perr.Error(), "\n", "; ")))
			continue
		}
		res.Imported++
	}

	s.logger.Info().Str("entity", name).Int("imported", res.Imported).Int("failed", res.Failed).Msg("import processed")
	writeJSON(w, http.StatusOK, res)
}

func missingRequired(name string, rec Record) []api.SubError {
	meta, err := entity.Lookup(name)
	if err != nil {
		return nil
	}
	var out []api.SubError
	for _, f := range meta.Form {
		if !f.Required {
			continue
		}
		if v, ok := rec[f.Name]; !ok || strings.TrimSpace(fmt.Sprint(v)) == "" {
			out = append(out, api.SubError{Object: name, Field: f.Name, Message: "must not be blank"})
		}
	}
	return out
}

// errorEnvelope is the error body every failing route returns.
type errorEnvelope struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Message   string         `json:"message"`
	SubErrors []api.SubError `json:"subErrors,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message string, subErrors []api.SubError) {
	writeJSON(w, status, errorEnvelope{
		Status:    strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_")),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Message:   message,
		SubErrors: subErrors,
	})
}

func writeStoreError(w http.ResponseWriter, err error) {
	var conflict *FieldConflict
	switch {
	case errors.As(err, &conflict):
		writeError(w, http.StatusConflict, conflict.Error(), []api.SubError{{
			Field: conflict.Field, RejectedValue: conflict.Value, Message: "already exists",
		}})
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "Record not found", nil)
	default:
		writeError(w, http.StatusInternalServerError, "Unexpected error", nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
