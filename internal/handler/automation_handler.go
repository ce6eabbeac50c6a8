// internal/handler/automation_handler.go
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/evoflow/backend/internal/analytics"
	appErrors "github.com/evoflow/backend/internal/errors"
	"github.com/evoflow/backend/internal/flow"
	"github.com/evoflow/backend/internal/gateway"
	"github.com/evoflow/backend/internal/model"
	"github.com/evoflow/backend/internal/repository"
	"github.com/evoflow/backend/internal/service"
	"github.com/evoflow/backend/internal/trigger"
)

// AutomationHandler exposes flows, manual flow runs, the auto-responder
// poller and one-off bulk dispatches over HTTP.
type AutomationHandler struct {
	FlowRepo  repository.FlowRepositoryInterface
	Gateway   gateway.Client
	Poller    *trigger.Poller
	Analytics *analytics.Service
	Service   *service.CampaignService

	mu   sync.Mutex
	runs map[string]*flowRun
}

type flowRun struct {
	runner  *flow.Runner
	started time.Time
	done    bool
}

func NewAutomationHandler(
	flows repository.FlowRepositoryInterface,
	gw gateway.Client,
	poller *trigger.Poller,
	an *analytics.Service,
	svc *service.CampaignService,
) *AutomationHandler {
	return &AutomationHandler{
		FlowRepo:  flows,
		Gateway:   gw,
		Poller:    poller,
		Analytics: an,
		Service:   svc,
		runs:      make(map[string]*flowRun),
	}
}

func flowStatus(err error) int {
	var notFound *appErrors.ErrFlowNotFound
	if errors.As(err, &notFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// ===================== Flows =====================

func (h *AutomationHandler) CreateFlow(w http.ResponseWriter, r *http.Request) {
	var f model.Flow
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}

	if err := h.FlowRepo.Create(&f); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(f)
}

func (h *AutomationHandler) UpdateFlow(w http.ResponseWriter, r *http.Request) {
	var f model.Flow
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	f.ID = chi.URLParam(r, "id")

	if err := h.FlowRepo.Update(&f); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(f)
}

func (h *AutomationHandler) ListFlows(w http.ResponseWriter, r *http.Request) {
	flows, err := h.FlowRepo.List()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(flows)
}

func (h *AutomationHandler) GetFlow(w http.ResponseWriter, r *http.Request) {
	f, err := h.FlowRepo.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), flowStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(f)
}

func (h *AutomationHandler) DeleteFlow(w http.ResponseWriter, r *http.Request) {
	if err := h.FlowRepo.Delete(chi.URLParam(r, "id")); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ===================== Manual runs =====================

// RunFlow starts a test run of the flow against one number and returns a
// run id to poll or stop.
func (h *AutomationHandler) RunFlow(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Number string `json:"number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	f, err := h.FlowRepo.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), flowStatus(err))
		return
	}

	runner := flow.NewRunner(f, f.Instance, h.Gateway)
	runID := uuid.NewString()

	run := &flowRun{runner: runner, started: time.Now()}
	h.mu.Lock()
	h.runs[runID] = run
	h.mu.Unlock()

	h.Analytics.TrackFlowRun()
	go func() {
		runner.Run(context.Background(), body.Number)
		h.mu.Lock()
		run.done = true
		h.mu.Unlock()
	}()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"run_id": runID})
}

func (h *AutomationHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	run, ok := h.runs[chi.URLParam(r, "id")]
	h.mu.Unlock()
	if !ok {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}

	h.mu.Lock()
	done := run.done
	h.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"started": run.started,
		"done":    done,
		"logs":    run.runner.Logs(),
	})
}

// StopRun cancels a run; stopping a finished run is a no-op.
func (h *AutomationHandler) StopRun(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	run, ok := h.runs[chi.URLParam(r, "id")]
	h.mu.Unlock()
	if !ok {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}

	run.runner.Stop()
	w.WriteHeader(http.StatusNoContent)
}

// ===================== Auto-responder =====================

func (h *AutomationHandler) StartAutomation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Instance string `json:"instance"`
		FlowID   string `json:"flow_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	f, err := h.FlowRepo.GetByID(body.FlowID)
	if err != nil {
		http.Error(w, err.Error(), flowStatus(err))
		return
	}

	instance := body.Instance
	if instance == "" {
		instance = f.Instance
	}

	if err := h.Poller.Start(instance, f); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AutomationHandler) StopAutomation(w http.ResponseWriter, r *http.Request) {
	h.Poller.Stop()
	w.WriteHeader(http.StatusNoContent)
}

func (h *AutomationHandler) AutomationStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"running": h.Poller.Running()})
}

// ===================== Dispatch & activity =====================

// BulkDispatch runs a one-off bulk send; it blocks until done and honors
// client disconnects through the request context.
func (h *AutomationHandler) BulkDispatch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Instance    string `json:"instance"`
		Numbers     string `json:"numbers"`
		Message     string `json:"message"`
		MediaURL    string `json:"media_url"`
		MediaName   string `json:"media_name"`
		MediaMime   string `json:"media_mime"`
		MinDelaySec int    `json:"min_delay_sec"`
		MaxDelaySec int    `json:"max_delay_sec"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	var att *model.Attachment
	if body.MediaURL != "" {
		att = &model.Attachment{
			Media:    body.MediaURL,
			FileName: body.MediaName,
			MimeType: body.MediaMime,
		}
	}

	result, err := h.Service.BulkSend(r.Context(), body.Instance, body.Numbers, body.Message, att, body.MinDelaySec, body.MaxDelaySec)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (h *AutomationHandler) RecentActivity(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.Analytics.Recent())
}
