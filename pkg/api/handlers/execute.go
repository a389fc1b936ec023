package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"guardline-hq/bastion/pkg/detector"
	"guardline-hq/bastion/pkg/rules"
	"guardline-hq/bastion/pkg/rules/source"
)

// executeRequest is the POST /rule/execute payload. The prompt carries chat
// messages in one of several shapes; the config selects and tunes a single
// detector.
type executeRequest struct {
	Prompt map[string]interface{} `json:"prompt"`
	Config map[string]interface{} `json:"config"`
}

type executeResponse struct {
	Match      bool             `json:"match"`
	Inspection *detector.Result `json:"inspection,omitempty"`
}

// ExecuteHandler evaluates one detector against the user portion of a prompt.
// Unlike /scan there is only one rule in play, so failures surface directly
// as HTTP errors instead of closing the rule as matched.
type ExecuteHandler struct {
	executor *rules.Executor
	defaults source.Defaults
}

// NewExecuteHandler creates the /rule/execute handler.
func NewExecuteHandler(executor *rules.Executor, defaults source.Defaults) *ExecuteHandler {
	return &ExecuteHandler{executor: executor, defaults: defaults}
}

// ServeHTTP implements http.Handler.
func (h *ExecuteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	text, ok := extractUserText(req.Prompt)
	if !ok {
		writeError(w, http.StatusBadRequest, "no user message found in prompt")
		return
	}

	pluginName, _ := configString(req.Config, "PluginName")
	threshold := h.defaults.Threshold
	if v, ok := configFloat(req.Config, "Threshold"); ok {
		threshold = v
	}
	relation := h.defaults.Relation
	if v, ok := configString(req.Config, "Relation"); ok && v != "" {
		relation = v
	}

	rule := rules.Rule{
		Name:      pluginName,
		PluginKey: pluginName,
		Threshold: threshold,
		Relation:  relation,
		Config:    detector.Config(req.Config),
		Enabled:   true,
		Action:    rules.Action{Type: rules.ActionBlock},
	}

	out := h.executor.Execute(r.Context(), text, rule)
	if out.Err != nil {
		var notFound *detector.NotFoundError
		if errors.As(out.Err, &notFound) {
			writeError(w, http.StatusNotFound, notFound.Error())
			return
		}

		slog.ErrorContext(r.Context(), "rule execution failed",
			"plugin", pluginName,
			"error", out.Err,
		)
		writeError(w, http.StatusInternalServerError, out.Err.Error())
		return
	}

	writeJSON(w, http.StatusOK, executeResponse{
		Match:      out.Matched,
		Inspection: out.Inspection,
	})
}

// extractUserText concatenates the user-role message contents of a prompt.
// Three shapes are accepted: {"thread":{"messages":[...]}}, {"messages":[...]},
// and a bare {"role":...,"content":...} message. The second return value is
// false when no user message is present.
func extractUserText(prompt map[string]interface{}) (string, bool) {
	messages := messageList(prompt)
	if messages == nil {
		if role, _ := prompt["role"].(string); role == "user" {
			if content, ok := prompt["content"].(string); ok {
				return content, true
			}
		}
		return "", false
	}

	var b strings.Builder
	found := false
	for _, m := range messages {
		msg, ok := m.(map[string]interface{})
		if !ok {
			continue
		}
		if role, _ := msg["role"].(string); role != "user" {
			continue
		}
		content, ok := msg["content"].(string)
		if !ok {
			continue
		}
		b.WriteString(content)
		found = true
	}
	return b.String(), found
}

func messageList(prompt map[string]interface{}) []interface{} {
	if thread, ok := prompt["thread"].(map[string]interface{}); ok {
		if msgs, ok := thread["messages"].([]interface{}); ok {
			return msgs
		}
	}
	if msgs, ok := prompt["messages"].([]interface{}); ok {
		return msgs
	}
	return nil
}

func configString(m map[string]interface{}, key string) (string, bool) {
	if m == nil {
		return "", false
	}
	s, ok := m[key].(string)
	return s, ok
}

func configFloat(m map[string]interface{}, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
