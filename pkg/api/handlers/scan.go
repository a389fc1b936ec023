package handlers

import (
	"encoding/json"
	"net/http"
	"sort"

	"guardline-hq/bastion/pkg/audit"
	"guardline-hq/bastion/pkg/rules"
	"guardline-hq/bastion/pkg/rules/source"
)

// AuditRecorder receives completed scan verdicts for persistence. Recording
// is asynchronous and never blocks or fails a scan.
type AuditRecorder interface {
	RecordAsync(entry *audit.Entry)
}

// scanRequest is the POST /scan payload. Rules may be supplied inline; when
// omitted or empty the configured default ruleset is used.
type scanRequest struct {
	Input string            `json:"input"`
	Rules []source.RuleSpec `json:"rules"`
}

type ruleResult struct {
	RuleType string       `json:"rule_type"`
	Status   rules.Status `json:"status"`
}

type scanResponse struct {
	Blocked     bool         `json:"blocked"`
	RuleResults []ruleResult `json:"rule_results"`
}

// ScanHandler runs an ordered ruleset against one input and reports the
// aggregate verdict with per-rule statuses.
type ScanHandler struct {
	orchestrator *rules.Orchestrator
	store        *source.Store
	defaults     source.Defaults
	audit        AuditRecorder
}

// NewScanHandler creates the /scan handler. The store supplies the default
// ruleset and may be nil when no ruleset source is configured; the recorder
// may be nil when auditing is disabled.
func NewScanHandler(orchestrator *rules.Orchestrator, store *source.Store, defaults source.Defaults, recorder AuditRecorder) *ScanHandler {
	return &ScanHandler{
		orchestrator: orchestrator,
		store:        store,
		defaults:     defaults,
		audit:        recorder,
	}
}

// ServeHTTP implements http.Handler.
func (h *ScanHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	specs, rulesetName, ok := h.resolveRules(req)
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no ruleset available")
		return
	}

	// Sort the specs the same way the orchestrator sorts the rules so that
	// verdict results line up index-for-index with the specs.
	sorted := make([]source.RuleSpec, len(specs))
	copy(sorted, specs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OrderNumber < sorted[j].OrderNumber
	})

	engineRules := make([]rules.Rule, len(sorted))
	for i, spec := range sorted {
		engineRules[i] = spec.ToRule(h.defaults)
	}

	verdict := h.orchestrator.Scan(r.Context(), req.Input, engineRules)

	if h.audit != nil {
		h.audit.RecordAsync(audit.NewEntry(verdict, req.Input, rulesetName))
	}

	results := make([]ruleResult, len(verdict.Results))
	for i, out := range verdict.Results {
		results[i] = ruleResult{
			RuleType: sorted[i].DisplayType(),
			Status:   out.Status,
		}
	}

	writeJSON(w, http.StatusOK, scanResponse{
		Blocked:     verdict.Blocked,
		RuleResults: results,
	})
}

func (h *ScanHandler) resolveRules(req scanRequest) ([]source.RuleSpec, string, bool) {
	if len(req.Rules) > 0 {
		return req.Rules, "inline", true
	}
	if h.store == nil {
		return nil, "", false
	}
	rs, ok := h.store.Current()
	if !ok {
		return nil, "", false
	}
	return rs.Specs, rs.Name, true
}
