// Package router wires the HTTP API: JSON endpoints for registration, login and
// health, an internal stats endpoint, and the static client files.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/patric-chuzhbe/userauth/internal/credentials"
	"github.com/patric-chuzhbe/userauth/internal/gzippedhttp"
	"github.com/patric-chuzhbe/userauth/internal/ipchecker"
	"github.com/patric-chuzhbe/userauth/internal/logger"
	"github.com/patric-chuzhbe/userauth/internal/models"
	"github.com/patric-chuzhbe/userauth/internal/service"
	"github.com/patric-chuzhbe/userauth/internal/user"
)

const (
	messageInvalidBody   = "invalid request body"
	messageInternalError = "internal server error"
)

type authService interface {
	Register(ctx context.Context, req *models.RegisterRequest) error
	Login(ctx context.Context, req *models.LoginRequest) (*user.View, error)
	Health(ctx context.Context) error
	GetInternalStats(ctx context.Context) (models.StatsResponse, error)
}

type Router struct {
	service authService
}

// Options configures the parts of the router that do not depend on the service.
type Options struct {
	// StaticDir is served for every GET that no API route matches.
	StaticDir string

	// HiddenPaths are URL path prefixes inside StaticDir that are never served,
	// e.g. the data directory when it lives under StaticDir.
	HiddenPaths []string

	AllowedOrigins []string

	// IPChecker guards the internal endpoints. Nil denies them to everybody.
	IPChecker *ipchecker.IPChecker
}

func writeJSON(response http.ResponseWriter, status int, v interface{}) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)
	if err := json.NewEncoder(response).Encode(v); err != nil {
		logger.Log.Debugw("error while writing the response", "error", err)
	}
}

func writeFailure(response http.ResponseWriter, status int, message string) {
	writeJSON(response, status, models.Response{OK: false, Message: message})
}

// decodeBody decodes a JSON body into v. An empty body leaves v zeroed,
// so a request without a body fails field validation instead of parsing.
func decodeBody(request *http.Request, v interface{}) error {
	err := json.NewDecoder(request.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// writeServiceError maps service errors to status codes. Unknown errors are
// storage failures: they are logged and answered with a generic 500.
func writeServiceError(response http.ResponseWriter, request *http.Request, err error) {
	if validationErr, ok := credentials.IsValidationError(err); ok {
		writeFailure(response, http.StatusBadRequest, validationErr.Error())
		return
	}

	switch {
	case errors.Is(err, service.ErrDuplicateUsername):
		writeFailure(response, http.StatusConflict, service.ErrDuplicateUsername.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeFailure(response, http.StatusUnauthorized, service.ErrInvalidCredentials.Error())
	default:
		logger.Log.Errorw("request failed",
			"uri", request.RequestURI,
			"request_id", response.Header().Get(logger.RequestIDHeader),
			"error", err,
		)
		writeFailure(response, http.StatusInternalServerError, messageInternalError)
	}
}

// PostApiregister handles POST /api/register.
func (router *Router) PostApiregister(response http.ResponseWriter, request *http.Request) {
	var req models.RegisterRequest
	if err := decodeBody(request, &req); err != nil {
		writeFailure(response, http.StatusBadRequest, messageInvalidBody)
		return
	}

	if err := router.service.Register(request.Context(), &req); err != nil {
		writeServiceError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, models.Response{OK: true, Message: models.RegisteredMessage})
}

// PostApilogin handles POST /api/login.
func (router *Router) PostApilogin(response http.ResponseWriter, request *http.Request) {
	var req models.LoginRequest
	if err := decodeBody(request, &req); err != nil {
		writeFailure(response, http.StatusBadRequest, messageInvalidBody)
		return
	}

	view, err := router.service.Login(request.Context(), &req)
	if err != nil {
		writeServiceError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, models.Response{OK: true, User: view})
}

// GetApihealth handles GET /api/health.
func (router *Router) GetApihealth(response http.ResponseWriter, request *http.Request) {
	if err := router.service.Health(request.Context()); err != nil {
		writeServiceError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, models.Response{OK: true, Message: models.HealthMessage})
}

// GetApiinternalstats handles GET /api/internal/stats.
func (router *Router) GetApiinternalstats(response http.ResponseWriter, request *http.Request) {
	stats, err := router.service.GetInternalStats(request.Context())
	if err != nil {
		writeServiceError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, stats)
}

func isHidden(urlPath string, hiddenPaths []string) bool {
	cleaned := path.Clean("/" + urlPath)
	for _, segment := range strings.Split(cleaned, "/") {
		if strings.HasPrefix(segment, ".") && segment != "." && segment != ".." {
			return true
		}
	}
	for _, hidden := range hiddenPaths {
		hidden = path.Clean("/" + hidden)
		if cleaned == hidden || strings.HasPrefix(cleaned, hidden+"/") {
			return true
		}
	}
	return false
}

// noListingFS opens a directory only when it holds an index.html, so the
// file server answers 404 instead of listing its contents.
type noListingFS struct {
	root http.FileSystem
}

func (nfs noListingFS) Open(name string) (http.File, error) {
	file, err := nfs.root.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if !info.IsDir() {
		return file, nil
	}

	index, err := nfs.root.Open(path.Join(name, "index.html"))
	if err != nil {
		file.Close()
		return nil, fs.ErrNotExist
	}
	index.Close()

	return file, nil
}

func staticHandler(staticDir string, hiddenPaths []string) http.Handler {
	fileServer := http.FileServer(noListingFS{root: http.Dir(staticDir)})

	return http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		if isHidden(request.URL.Path, hiddenPaths) {
			http.NotFound(response, request)
			return
		}
		fileServer.ServeHTTP(response, request)
	})
}

func New(authService authService, options Options) *chi.Mux {
	theRouter := &Router{
		service: authService,
	}

	checker := options.IPChecker
	if checker == nil {
		checker, _ = ipchecker.New("")
	}

	router := chi.NewRouter()
	router.Use(
		middleware.Recoverer,
		logger.WithLoggingHTTPMiddleware,
		cors.Handler(cors.Options{
			AllowedOrigins: options.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Content-Encoding", "Accept-Encoding"},
			ExposedHeaders: []string{logger.RequestIDHeader},
			MaxAge:         300,
		}),
		gzippedhttp.UngzipRequest,
		gzippedhttp.GzipResponse,
	)

	router.Route("/api", func(r chi.Router) {
		r.Post(`/register`, theRouter.PostApiregister)
		r.Post(`/login`, theRouter.PostApilogin)
		r.Get(`/health`, theRouter.GetApihealth)
		r.With(checker.TrustedSubnetOnly).Get(`/internal/stats`, theRouter.GetApiinternalstats)
	})

	if options.StaticDir != "" {
		router.Get(`/*`, staticHandler(options.StaticDir, options.HiddenPaths).ServeHTTP)
	}

	return router
}
