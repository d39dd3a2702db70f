package main

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/miradorstack/realitycheck/internal/extractors"
	"github.com/miradorstack/realitycheck/internal/models"
)

// mock-extractor serves the HTTPExtractor protocol with the deterministic
// labeled parser so the server can run against a remote extractor locally.
func main() {
	addr := os.Getenv("MOCK_EXTRACTOR_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	logger := log.New(log.Writer(), "extractor-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:              addr,
		Handler:           logRequests(logger, newMux(extractors.NewLabeledExtractor())),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Printf("listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

func newMux(parser *extractors.LabeledExtractor) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/v1/extract", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		var req extractors.ExtractRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		fields, err := parser.Extract(r.Context(), req.InputText)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, models.ErrExtraction) {
				status = http.StatusUnprocessableEntity
			}
			http.Error(w, err.Error(), status)
			return
		}
		writeJSON(w, extractors.FromPartial(fields))
	})
	return mux
}

func enforcePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
