package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/teemow/calendar-mcp/internal/agent"
	"github.com/teemow/calendar-mcp/internal/logging"
)

// MCPVersion is reported in every invoke envelope.
const MCPVersion = "1.0"

// ErrNoInput is returned when an invoke request carries nothing to run.
var ErrNoInput = errors.New("No input provided in MCP request")

// inputKeys are consulted in order when "inputs" is a map.
var inputKeys = []string{"topic", "input_task", "task", "text"}

type runRequest struct {
	InputTask *string `json:"input_task"`
}

// RunResponse is the body of a successful /run.
type RunResponse struct {
	Status string `json:"status"`
	Result string `json:"result"`
}

// InvokeResponse is the /mcp/invoke envelope.
type InvokeResponse struct {
	MCPVersion string        `json:"mcp_version"`
	ID         string        `json:"id"`
	Outputs    InvokeOutputs `json:"outputs"`
}

// InvokeOutputs wraps the delegate result.
type InvokeOutputs struct {
	Type    string      `json:"type"`
	Content RunResponse `json:"content"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if req.InputTask == nil {
		writeError(w, http.StatusUnprocessableEntity, "input_task is required")
		return
	}

	result, ok := s.runDelegate(w, r, *req.InputTask)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, RunResponse{Status: "success", Result: result})
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	input, err := ExtractInput(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, ok := s.runDelegate(w, r, input)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, InvokeResponse{
		MCPVersion: MCPVersion,
		ID:         s.newID(),
		Outputs: InvokeOutputs{
			Type:    "json",
			Content: RunResponse{Status: "success", Result: result},
		},
	})
}

// runDelegate writes the error response itself and reports whether the
// caller should continue.
func (s *Server) runDelegate(w http.ResponseWriter, r *http.Request, topic string) (string, bool) {
	result, err := s.delegate.Run(r.Context(), topic)
	if err != nil {
		if errors.Is(err, agent.ErrEmptyTopic) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return "", false
		}
		s.logger.Error("agent delegate failed", logging.Err(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return "", false
	}
	return result, true
}

// ExtractInput picks the effective input of an invoke body: "input", then
// the first present key of inputKeys in "inputs", then "inputs" encoded as
// JSON. A bare JSON string is used as is.
func ExtractInput(body []byte) (string, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return "", ErrNoInput
	}

	if body[0] == '"' {
		var s string
		if err := json.Unmarshal(body, &s); err != nil {
			return "", fmt.Errorf("invalid request body: %w", err)
		}
		if s == "" {
			return "", ErrNoInput
		}
		return s, nil
	}

	var req struct {
		Input  *string        `json:"input"`
		Inputs map[string]any `json:"inputs"`
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return "", fmt.Errorf("invalid request body: %w", err)
	}

	if req.Input != nil && *req.Input != "" {
		return *req.Input, nil
	}
	if len(req.Inputs) > 0 {
		for _, key := range inputKeys {
			if v, ok := req.Inputs[key]; ok {
				return stringify(v), nil
			}
		}
		return stringify(req.Inputs), nil
	}
	return "", ErrNoInput
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return fmt.Errorf("invalid request body: %s", strings.TrimPrefix(err.Error(), "json: "))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func newInvocationID() string {
	return uuid.NewString()
}
