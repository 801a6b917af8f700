// Package api implements a minimal HTTP debug/introspection surface
// for the execution engine: blueprint validation, one-shot execution,
// service listing, and a diagnostic WebSocket tap onto the event bus.
// It deliberately does not attempt to be the host's own
// request/command protocol or router — this is narrowly a local
// debugging aid, not a general-purpose workflow-as-a-service API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"weave/internal/engine"
	"weave/internal/lifecycle"
	"weave/internal/node"
	"weave/pkg/blueprint"
	"weave/pkg/value"
)

// Server wires the debug HTTP surface to a running executor, node
// registry, and lifecycle manager: validate, run, resume, and list
// services/node types, rather than a full blueprint/user/workspace
// CRUD surface.
type Server struct {
	executor *engine.Executor
	registry *node.Registry
	manager  *lifecycle.Manager
	points   engine.PointStore // optional; nil disables /points
	hub      *Hub
}

func NewServer(executor *engine.Executor, registry *node.Registry, manager *lifecycle.Manager) *Server {
	return &Server{executor: executor, registry: registry, manager: manager, hub: NewHub()}
}

// WithPointStore attaches the host's point store so /points/{path} can
// write a point and drive any PointChanged continuations waiting on
// it. Without it, /points/{path} reports 501.
func (s *Server) WithPointStore(ps engine.PointStore) *Server {
	s.points = ps
	return s
}

// Hub exposes the diagnostic WebSocket tap so main can wire it to the
// shared event bus (see cmd/server).
func (s *Server) Hub() *Hub { return s.hub }

// Routes builds the mux.Router the host's HTTP server listens with.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/blueprints", s.handleListBlueprints).Methods(http.MethodGet)
	r.HandleFunc("/blueprints/validate", s.handleValidate).Methods(http.MethodPost)
	r.HandleFunc("/blueprints/{id}/execute", s.handleExecute).Methods(http.MethodPost)
	r.HandleFunc("/blueprints/{id}/resume", s.handleResume).Methods(http.MethodPost)
	r.HandleFunc("/services", s.handleListServices).Methods(http.MethodGet)
	r.HandleFunc("/nodes", s.handleListNodeTypes).Methods(http.MethodGet)
	r.HandleFunc("/points/{path:.*}", s.handleWritePoint).Methods(http.MethodPut)
	r.HandleFunc("/ws", s.hub.HandleWebSocket)
	return r
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"blueprints": s.executor.BlueprintCount(),
	})
}

func (s *Server) handleListBlueprints(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"ids": s.executor.BlueprintIDs()})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var bp blueprint.Blueprint
	if err := json.NewDecoder(r.Body).Decode(&bp); err != nil {
		writeError(w, http.StatusBadRequest, "invalid blueprint JSON: "+err.Error())
		return
	}
	violations := blueprint.Validate(&bp, s.registry)
	writeJSON(w, http.StatusOK, map[string]interface{}{"violations": violations, "valid": len(violations) == 0})
}

type executeRequest struct {
	TriggerKind string `json:"triggerKind"`
	TriggerName string `json:"triggerName"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req executeRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	trigger := engine.Trigger{Kind: parseTriggerKind(req.TriggerKind), Name: req.TriggerName}
	res, err := s.executor.ExecuteBlueprint(r.Context(), id, trigger)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, renderResult(res))
}

type resumeRequest struct {
	ContinuationID string                 `json:"continuationId"`
	Inputs         map[string]value.Value `json:"inputs"`
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	var req resumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid resume request: "+err.Error())
		return
	}
	contID, err := uuid.Parse(req.ContinuationID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid continuationId: "+err.Error())
		return
	}
	res, err := s.executor.Resume(r.Context(), contID, req.Inputs)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, renderResult(res))
}

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	specs := s.manager.List()
	out := make([]map[string]interface{}, 0, len(specs))
	for _, spec := range specs {
		_, state, _ := s.manager.Get(spec.ID)
		out = append(out, map[string]interface{}{
			"id": spec.ID, "name": spec.Name, "state": state.String(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"services": out})
}

func (s *Server) handleListNodeTypes(w http.ResponseWriter, r *http.Request) {
	var out []map[string]interface{}
	for _, cat := range s.registry.Categories() {
		for _, def := range s.registry.NodesInCategory(cat) {
			out = append(out, map[string]interface{}{
				"typeId": def.TypeID, "name": def.Name, "category": def.Category, "pure": def.Pure,
			})
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"nodes": out})
}

// handleWritePoint writes a point through the host's PointStore and
// notifies the engine so any continuation parked on a PointChanged
// wake condition for this path gets a chance to resume. This is the
// one place the debug API touches the host-required point-store
// interface; the engine itself never calls Read/Write.
func (s *Server) handleWritePoint(w http.ResponseWriter, r *http.Request) {
	if s.points == nil {
		writeError(w, http.StatusNotImplemented, "no point store wired")
		return
	}
	path := mux.Vars(r)["path"]
	var body struct {
		Value value.Value `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid point value: "+err.Error())
		return
	}
	prev, _, err := s.points.Read(r.Context(), path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.points.Write(r.Context(), path, body.Value); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.executor.NotifyPointChanged(r.Context(), path, prev, body.Value)
	writeJSON(w, http.StatusOK, map[string]interface{}{"path": path, "value": body.Value})
}

func parseTriggerKind(s string) engine.TriggerKind {
	switch s {
	case "event":
		return engine.TriggerEvent
	case "schedule":
		return engine.TriggerSchedule
	case "request":
		return engine.TriggerRequest
	default:
		return engine.TriggerStart
	}
}

func renderResult(res engine.ExecutionResult) map[string]interface{} {
	out := map[string]interface{}{"status": statusName(res.Status)}
	if res.Status == engine.StatusSuspended {
		out["continuationId"] = res.ContinuationID.String()
	}
	if res.Err != nil {
		out["error"] = res.Err.Error()
	}
	if len(res.Outputs) > 0 {
		out["outputs"] = res.Outputs
	}
	return out
}

func statusName(s engine.Status) string {
	switch s {
	case engine.StatusCompleted:
		return "completed"
	case engine.StatusSuspended:
		return "suspended"
	case engine.StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}
