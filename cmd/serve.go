package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadsplit/internal/model"
	"github.com/sells-group/leadsplit/internal/pipeline"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the upload server for morning and afternoon runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		env, err := initFlow(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           newRouter(env),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// server handles workbook uploads for one flow environment.
type server struct {
	env       *flowEnv
	limiter   *rate.Limiter
	maxUpload int64
}

// newRouter builds the HTTP routes for env.
func newRouter(env *flowEnv) http.Handler {
	sc := env.cfg.Server
	limit := rate.Inf
	if sc.RateLimitRPS > 0 {
		limit = rate.Limit(sc.RateLimitRPS)
	}
	s := &server{
		env:       env,
		limiter:   rate.NewLimiter(limit, max(sc.RateBurst, 1)),
		maxUpload: int64(max(sc.MaxUploadMB, 1)) << 20,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: sc.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition", "X-Run-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1/runs", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Post("/morning", s.handleMorning)
		r.Post("/afternoon", s.handleAfternoon)
	})
	return r
}

// requestLogger logs one line per request through the global zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many runs, retry shortly")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) handleMorning(w http.ResponseWriter, r *http.Request) {
	in, source, ok := s.parseUpload(w, r, false)
	if !ok {
		return
	}
	s.execute(w, r, model.FlowMorning, in, source)
}

func (s *server) handleAfternoon(w http.ResponseWriter, r *http.Request) {
	in, source, ok := s.parseUpload(w, r, true)
	if !ok {
		return
	}
	s.execute(w, r, model.FlowAfternoon, in, source)
}

// parseUpload reads the multipart workbook (and call log when withLog) into
// pipeline input. It writes the error response itself and reports false on
// failure.
func (s *server) parseUpload(w http.ResponseWriter, r *http.Request, withLog bool) (pipeline.Input, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE",
				fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return pipeline.Input{}, "", false
		}
		writeError(w, http.StatusBadRequest, "BAD_UPLOAD", "expected a multipart/form-data body")
		return pipeline.Input{}, "", false
	}

	name, data, err := formFile(r, "workbook")
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_UPLOAD", err.Error())
		return pipeline.Input{}, "", false
	}
	in, err := s.env.readWorkbook(name, data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_WORKBOOK", err.Error())
		return pipeline.Input{}, "", false
	}

	if withLog {
		logName, logData, err := formFile(r, "log")
		if err != nil {
			writeError(w, http.StatusBadRequest, "BAD_UPLOAD", err.Error())
			return pipeline.Input{}, "", false
		}
		if err := s.env.readCallLog(&in, logName, logData); err != nil {
			writeFlowError(w, err)
			return pipeline.Input{}, "", false
		}
	}
	return in, name, true
}

func (s *server) execute(w http.ResponseWriter, r *http.Request, flow model.Flow, in pipeline.Input, source string) {
	res, b, err := s.env.run(r.Context(), flow, in, source)
	if err != nil {
		writeFlowError(w, err)
		return
	}
	archive, err := b.Zip()
	if err != nil {
		zap.L().Error("zip bundle", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL", "could not package output")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="leadsplit_%s_%s.zip"`, flow, time.Now().Format("20060102_150405")))
	if res.RunID != "" {
		w.Header().Set("X-Run-ID", res.RunID)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

// formFile reads the named multipart file fully.
func formFile(r *http.Request, field string) (string, []byte, error) {
	f, hdr, err := r.FormFile(field)
	if err != nil {
		return "", nil, eris.Errorf("missing %q file field", field)
	}
	defer f.Close() //nolint:errcheck
	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, eris.Wrapf(err, "read %q", field)
	}
	return hdr.Filename, data, nil
}

// writeFlowError maps conditions to 422 and anything else to 500.
func writeFlowError(w http.ResponseWriter, err error) {
	if ce, ok := model.AsCondition(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, ce)
		return
	}
	zap.L().Error("run failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "INTERNAL", "run failed")
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"code": code, "message": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
