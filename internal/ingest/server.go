package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/turbolytics/locator/internal"
	"github.com/turbolytics/locator/internal/dsr"
)

// maxBodyBytes bounds the size of a decode request.
const maxBodyBytes = 32 << 20

// Server exposes the decoder over HTTP.
type Server struct {
	decoder *dsr.Decoder
	logger  *zap.Logger
}

type DecodeResponse struct {
	Count   int                `json:"count"`
	Records []*internal.Record `json:"records"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewServer(decoder *dsr.Decoder, logger *zap.Logger) *Server {
	return &Server{
		decoder: decoder,
		logger:  logger,
	}
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("request",
				zap.String("from", r.RemoteAddr),
				zap.String("protocol", r.Proto),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logMiddleware)

	r.Get("/health", s.health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/decode", s.decode)
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// decode accepts a DM0 row array, or a full query response when
// format=querydata (row data taken from result index "result").
func (s *Server) decode(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var rows []any
	switch format := r.URL.Query().Get("format"); format {
	case "", "rows":
		if err := dec.Decode(&rows); err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("decoding rows: %w", err))
			return
		}
	case "querydata":
		index := dsr.DefaultResultIndex
		if v := r.URL.Query().Get("result"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid result index %q", v))
				return
			}
			index = n
		}

		var response map[string]any
		if err := dec.Decode(&response); err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("decoding response: %w", err))
			return
		}

		var err error
		rows, err = dsr.ExtractRows(response, index)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
	default:
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("unsupported format %q", format))
		return
	}

	records, err := s.decoder.Decode(rows)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(DecodeResponse{
		Count:   len(records),
		Records: records,
	})
	if err != nil {
		s.logger.Error("writing decode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(errorResponse{Error: err.Error()}); encErr != nil {
		s.logger.Error("writing error response",
			zap.NamedError("cause", err),
			zap.Error(encErr),
		)
	}
}

func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Routes(),
	}

	s.logger.Info("starting decode server", zap.String("addr", addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("shutting down decode server")
		if err := srv.Shutdown(context.Background()); err != nil {
			s.logger.Error("shutting down decode server", zap.Error(err))
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
