// Package frameserver serves decoded frames, probe results and cache
// statistics over HTTP.
package frameserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/user/moviereader/pkg/adapters/logger"
	"github.com/user/moviereader/pkg/pipeline"
	"github.com/user/moviereader/pkg/ports"
	"github.com/user/moviereader/pkg/reader"
)

// Frames is the reading API the server exposes. *moviereader.Client
// satisfies it.
type Frames interface {
	Probe(ctx context.Context, path string, refresh int) (*pipeline.MediaResource, error)
	EncodeFrame(ctx context.Context, req pipeline.ReadRequest, format ports.ImageFormat) ([]byte, *pipeline.Image, error)
	Invalidate(path string) int
	Stats() reader.Stats
}

// Options configures a Server.
type Options struct {
	Addr           string
	AllowedOrigins []string
	ShutdownGrace  time.Duration
}

// Server is the HTTP frame server.
type Server struct {
	frames  Frames
	opts    Options
	logger  ports.Logger
	handler http.Handler
}

// New creates a Server.
func New(frames Frames, opts Options, log ports.Logger) *Server {
	if log == nil {
		log = logger.NewNoop()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.ShutdownGrace <= 0 {
		opts.ShutdownGrace = 5 * time.Second
	}
	s := &Server{
		frames: frames,
		opts:   opts,
		logger: log.WithComponent("server"),
	}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	h := &handler{frames: s.frames, logger: s.logger}

	r := mux.NewRouter().SkipClean(true)
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/stats", h.Stats).Methods(http.MethodGet)
	r.HandleFunc("/probe/{path:.*}", h.Probe).Methods(http.MethodGet)
	r.HandleFunc("/frames/{frame:-?[0-9]+}/{path:.*}", h.Frame).Methods(http.MethodGet)
	r.HandleFunc("/invalidate/{path:.*}", h.Invalidate).Methods(http.MethodPost)
	r.Use(requestID, s.logRequests, s.recoverPanics)

	c := cors.New(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		ExposedHeaders: []string{headerRequestID, headerFrame, headerColorSpace},
	})
	return c.Handler(r)
}

// Handler returns the root handler with routing, CORS and middleware.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening on %s", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownGrace)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.logger.Info("Server stopped")
	return err
}
