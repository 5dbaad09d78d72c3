// Package server exposes single scenario runs and their metrics over HTTP.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/iwvelando/fairmarket/internal/config"
	"github.com/iwvelando/fairmarket/internal/market"
	"github.com/iwvelando/fairmarket/internal/metrics"
	"github.com/iwvelando/fairmarket/internal/policy"
	"github.com/iwvelando/fairmarket/pkg/constants"
	"github.com/iwvelando/fairmarket/pkg/output"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Options configures the handler.
type Options struct {
	MaxUploadSize int64
	MaxSteps      int
	Version       string
	// Recorder receives every run; a private one is created when nil.
	Recorder *metrics.Recorder
}

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	maxSteps      int
	version       string
	recorder      *metrics.Recorder
}

// NewHandler constructs the HTTP handler that serves the run API and metrics.
func NewHandler(logger *zap.Logger, opts Options) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = constants.DefaultMaxUploadSizeBytes
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = constants.MaxServerSteps
	}
	version := strings.TrimSpace(opts.Version)
	if version == "" {
		version = "dev"
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NewRecorder()
	}

	h := &handler{
		logger:        logger,
		maxUploadSize: opts.MaxUploadSize,
		maxSteps:      opts.MaxSteps,
		version:       version,
		recorder:      opts.Recorder,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/run", h.handleRun)
		r.Post("/config/export", h.handleConfigExport)
		r.Get("/scenarios", h.handleScenarios)
		r.Get("/scenarios/{id}", h.handleScenario)
		r.Get("/version", h.handleVersion)
	})
	r.Method(http.MethodGet, "/metrics", h.recorder.Handler())

	return r
}

type runResponse struct {
	RunID      string            `json:"runId"`
	Summary    market.Summary    `json:"summary"`
	Snapshots  []market.Snapshot `json:"snapshots,omitempty"`
	CSV        string            `json:"csv,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`
	Duration   string            `json:"duration"`
	ConfigYAML string            `json:"configYaml,omitempty"`
}

type scenarioResponse struct {
	ID          policy.ScenarioID `json:"id"`
	Description string            `json:"description"`
	Policy      policy.Policy     `json:"policy"`
}

// handleRun accepts a YAML configuration either as a multipart "file" upload
// or as the raw request body. Query parameters scenario, steps and seed
// override the configuration; snapshots=false and csv=true shape the reply.
func (h *handler) handleRun(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleRun"
	start := time.Now()

	configBytes, status, err := h.readConfig(w, r)
	if err != nil {
		h.respondError(w, status, err.Error(), op)
		return
	}

	cfg, err := config.LoadConfigurationFromReader(bytes.NewReader(configBytes))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	if err := applyQueryOverrides(cfg, r); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	setup, err := cfg.ToSetup()
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	if setup.Steps > h.maxSteps {
		h.respondError(w, http.StatusBadRequest,
			fmt.Sprintf("steps %d exceeds the limit of %d", setup.Steps, h.maxSteps), op)
		return
	}

	result, err := market.Execute(h.logger, setup, h.recorder)
	if err != nil {
		if errors.Is(err, market.ErrInvalidSetup) {
			h.respondError(w, http.StatusBadRequest, err.Error(), op)
			return
		}
		h.respondError(w, http.StatusInternalServerError, fmt.Sprintf("simulation failed: %v", err), op)
		return
	}

	elapsed := time.Since(start)
	response := runResponse{
		RunID:      result.Summary.RunID,
		Summary:    result.Summary,
		Warnings:   cfg.ValidateConfiguration(),
		Duration:   elapsed.String(),
		ConfigYAML: string(configBytes),
	}
	if queryBool(r, "snapshots", true) {
		response.Snapshots = result.Snapshots
	}
	if queryBool(r, "csv", false) {
		response.CSV = output.CsvString(result)
	}

	h.logger.Info("run computed",
		zap.String("op", op),
		zap.String("runId", result.Summary.RunID),
		zap.String("scenario", result.Summary.Name),
		zap.Int("steps", result.Summary.Steps),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, response)
}

func (h *handler) readConfig(w http.ResponseWriter, r *http.Request) ([]byte, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	var src io.Reader = r.Body
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
			return nil, uploadStatus(err), fmt.Errorf("failed to parse upload: %w", err)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, http.StatusBadRequest, errors.New("missing configuration file")
		}
		defer func() {
			if closeErr := file.Close(); closeErr != nil {
				h.logger.Warn("failed to close uploaded file",
					zap.String("op", "server.readConfig"),
					zap.Error(closeErr),
				)
			}
		}()
		src = file
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, src); err != nil {
		return nil, uploadStatus(err), fmt.Errorf("failed to read configuration: %w", err)
	}
	return buf.Bytes(), http.StatusOK, nil
}

func uploadStatus(err error) int {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func applyQueryOverrides(cfg *config.Configuration, r *http.Request) error {
	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("scenario")); v != "" {
		cfg.Simulation.Scenario = v
	}
	if v := strings.TrimSpace(q.Get("steps")); v != "" {
		steps, err := strconv.Atoi(v)
		if err != nil || steps <= 0 {
			return fmt.Errorf("invalid steps %q", v)
		}
		cfg.Simulation.Steps = steps
	}
	if v := strings.TrimSpace(q.Get("seed")); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid seed %q", v)
		}
		cfg.Simulation.Seed = &seed
	}
	return nil
}

func queryBool(r *http.Request, key string, fallback bool) bool {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func (h *handler) handleScenarios(w http.ResponseWriter, r *http.Request) {
	ids := policy.Scenarios()
	scenarios := make([]scenarioResponse, 0, len(ids))
	for _, id := range ids {
		p, err := id.Preset()
		if err != nil {
			h.respondError(w, http.StatusInternalServerError, err.Error(), "server.handleScenarios")
			return
		}
		scenarios = append(scenarios, scenarioResponse{ID: id, Description: id.Describe(), Policy: p})
	}
	h.writeJSON(w, http.StatusOK, scenarios)
}

func (h *handler) handleScenario(w http.ResponseWriter, r *http.Request) {
	id, err := policy.ParseScenarioID(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, http.StatusNotFound, err.Error(), "server.handleScenario")
		return
	}
	p, err := id.Preset()
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error(), "server.handleScenario")
		return
	}
	h.writeJSON(w, http.StatusOK, scenarioResponse{ID: id, Description: id.Describe(), Policy: p})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleConfigExport(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleConfigExport"
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respondError(w, uploadStatus(err), fmt.Sprintf("failed to decode configuration: %v", err), op)
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}

	yamlBytes, err := marshalOrderedConfigYAML(payload)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to encode configuration: %v", err), op)
		return
	}
	if _, err := config.LoadConfigurationFromReader(bytes.NewReader(yamlBytes)); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"configYaml": string(yamlBytes),
	})
}

var configSectionOrder = []string{"logging", "output", "simulation", "environment", "suppliers", "buyers"}

func marshalOrderedConfigYAML(payload map[string]interface{}) ([]byte, error) {
	items := make([]orderedItem, 0, len(payload))
	seen := make(map[string]struct{})

	for _, key := range configSectionOrder {
		if value, ok := payload[key]; ok {
			items = append(items, orderedItem{key: key, value: value})
			seen[key] = struct{}{}
		}
	}

	remainingKeys := make([]string, 0, len(payload))
	for key := range payload {
		if _, already := seen[key]; !already {
			remainingKeys = append(remainingKeys, key)
		}
	}
	sort.Strings(remainingKeys)
	for _, key := range remainingKeys {
		items = append(items, orderedItem{key: key, value: payload[key]})
	}

	return yaml.Marshal(orderedConfig{items: items})
}

type orderedConfig struct {
	items []orderedItem
}

type orderedItem struct {
	key   string
	value interface{}
}

func (o orderedConfig) MarshalYAML() (interface{}, error) {
	mapNode := &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  "!!map",
	}

	for _, item := range o.items {
		keyNode := &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!str",
			Value: item.key,
		}
		valueNode := &yaml.Node{}
		if err := valueNode.Encode(item.value); err != nil {
			return nil, err
		}
		mapNode.Content = append(mapNode.Content, keyNode, valueNode)
	}

	return mapNode, nil
}

func (h *handler) respondError(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
