package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lead-builder/internal/extract"
	"github.com/sells-group/lead-builder/internal/model"
	"github.com/sells-group/lead-builder/internal/persist"
	"github.com/sells-group/lead-builder/internal/sink"
)

const (
	maxRequestBody  = 4 << 20
	defaultLeadList = 50
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the lead capture and pagespeed webhook HTTP server",
	Long:  "Serves POST /leads for browser extension captures, GET /leads for cached leads, and POST /webhook/pagespeed so the tool can act as the endpoint its own webhook sink posts to.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		port := cfg.Server.Port
		if servePort > 0 {
			port = servePort
		}
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(env, cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("serve: listening", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return eris.Wrap(err, "serve: listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			zap.L().Info("serve: shutting down")
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default from server.port)")
	rootCmd.AddCommand(serveCmd)
}

// buildRouter mounts the HTTP API on a chi router.
func buildRouter(env *appEnv, origins []string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", sink.SignatureHeader},
		MaxAge:         300,
	}))

	h := &handlers{env: env}
	r.Get("/health", h.health)
	r.Get("/leads", h.listLeads)
	r.Post("/leads", h.captureLead)
	r.Post("/webhook/pagespeed", h.pagespeedWebhook)
	return r
}

type handlers struct {
	env *appEnv
}

type captureRequest struct {
	URL  string `json:"url"`
	HTML string `json:"html,omitempty"`
}

type captureResponse struct {
	persist.Outcome
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type pagespeedRequest struct {
	URL        string `json:"url"`
	WebsiteURL string `json:"websiteUrl"`
	Timestamp  string `json:"timestamp"`
}

type pagespeedResponse struct {
	Success       bool           `json:"success"`
	URL           string         `json:"url,omitempty"`
	PageSpeedData *model.Metrics `json:"pageSpeedData,omitempty"`
	Error         string         `json:"error,omitempty"`
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// captureLead handles a capture trigger from a browser extension shell. A
// restricted page or a request without html yields a basic lead.
func (h *handlers) captureLead(w http.ResponseWriter, r *http.Request) {
	var req captureRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url is required"})
		return
	}

	var doc extract.Document
	if req.HTML != "" && extract.CanInspect(req.URL) {
		parsed, err := extract.ParseHTML(req.HTML)
		if err != nil {
			zap.L().Warn("serve: parse html failed", zap.String("url", req.URL), zap.Error(err))
		} else {
			doc = parsed
		}
	}

	out := h.env.Coordinator.Persist(r.Context(), h.env.Extractor.Capture(req.URL, doc))
	resp := captureResponse{Outcome: out, Message: out.Message()}
	if out.Err != nil {
		resp.Error = out.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) listLeads(w http.ResponseWriter, r *http.Request) {
	limit := defaultLeadList
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	leads, err := h.env.Leads.List(r.Context(), limit)
	if err != nil {
		zap.L().Error("serve: list leads failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list leads failed"})
		return
	}
	if leads == nil {
		leads = []model.CachedLead{}
	}
	writeJSON(w, http.StatusOK, leads)
}

// pagespeedWebhook measures the posted URL and appends a full-URL row. It
// answers with the reply shape the webhook sink expects.
func (h *handlers) pagespeedWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, pagespeedResponse{Error: "read body failed"})
		return
	}

	if secret := h.env.WebhookSecret; secret != "" {
		if !sink.VerifySignature(secret, body, r.Header.Get(sink.SignatureHeader)) {
			writeJSON(w, http.StatusUnauthorized, pagespeedResponse{Error: "invalid signature"})
			return
		}
	}

	if h.env.Metrics == nil || h.env.Rows == nil {
		writeJSON(w, http.StatusServiceUnavailable, pagespeedResponse{Error: "pagespeed receiver is not configured"})
		return
	}

	var req pagespeedRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, pagespeedResponse{Error: "invalid JSON body"})
		return
	}
	target := strings.TrimSpace(req.URL)
	if target == "" {
		target = strings.TrimSpace(req.WebsiteURL)
	}
	if target == "" {
		writeJSON(w, http.StatusBadRequest, pagespeedResponse{Error: "url is required"})
		return
	}

	ts := time.Now().UTC()
	if req.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, req.Timestamp); err == nil {
			ts = parsed
		}
	}

	log := zap.L().With(zap.String("url", target))
	metrics, err := h.env.Metrics.Measure(r.Context(), target)
	if err != nil {
		log.Warn("serve: measure failed", zap.Error(err))
		metrics = model.ErrorMetrics(err.Error())
	}

	if err := h.env.Rows.AppendRow(r.Context(), model.NewSheetRow(ts, target, metrics)); err != nil {
		log.Error("serve: append row failed", zap.Error(err))
		writeJSON(w, http.StatusOK, pagespeedResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, pagespeedResponse{Success: true, URL: target, PageSpeedData: &metrics})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("serve: write response failed", zap.Error(err))
	}
}
