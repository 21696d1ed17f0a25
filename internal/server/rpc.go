package server

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/copyleftdev/icemaze/internal/errors"
)

// JSON-RPC 2.0 error codes.
const (
	rpcParseError     = -32700
	rpcInvalidRequest = -32600
	rpcMethodNotFound = -32601
	rpcInvalidParams  = -32602
	rpcServerError    = -32000
	rpcNotFound       = -32004
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type idParams struct {
	OptimizationID string `json:"optimization_id"`
}

// decodeParams accepts params either as an object or as a one-element array
// holding the object.
func decodeParams(raw json.RawMessage, v interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return err
		}
		if len(list) == 0 {
			return errors.Wrap(errInvalidInput, "missing required parameters")
		}
		raw = list[0]
	}
	if len(raw) == 0 {
		return errors.Wrap(errInvalidInput, "missing required parameters")
	}
	return json.Unmarshal(raw, v)
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, rpcParseError, "Parse error", nil)
		return
	}

	// Validate JSON-RPC 2.0 request
	if request.JSONRPC != "2.0" || request.Method == "" {
		s.respondWithError(w, rpcInvalidRequest, "Invalid Request", request.ID)
		return
	}

	var (
		result interface{}
		err    error
	)

	switch request.Method {
	case "maze.solve":
		var p SolveRequest
		if err := decodeParams(request.Params, &p); err != nil {
			s.respondWithError(w, rpcInvalidParams, "Invalid params", request.ID)
			return
		}
		result, err = s.solve(p)
	case "optimization.start":
		var p OptimizeRequest
		if err := decodeParams(request.Params, &p); err != nil {
			s.respondWithError(w, rpcInvalidParams, "Invalid params", request.ID)
			return
		}
		result, err = s.startOptimization(p)
	case "optimization.status":
		var p idParams
		if err := decodeParams(request.Params, &p); err != nil || p.OptimizationID == "" {
			s.respondWithError(w, rpcInvalidParams, "Invalid params", request.ID)
			return
		}
		result, err = s.status(p.OptimizationID)
	case "optimization.cancel":
		var p idParams
		if err := decodeParams(request.Params, &p); err != nil || p.OptimizationID == "" {
			s.respondWithError(w, rpcInvalidParams, "Invalid params", request.ID)
			return
		}
		if err = s.cancel(p.OptimizationID); err == nil {
			result = map[string]string{"status": "cancellation requested"}
		}
	default:
		s.respondWithError(w, rpcMethodNotFound, "Method not found", request.ID)
		return
	}

	if err != nil {
		switch httpStatus(err) {
		case http.StatusNotFound:
			s.respondWithError(w, rpcNotFound, err.Error(), request.ID)
		case http.StatusBadRequest:
			s.respondWithError(w, rpcInvalidParams, err.Error(), request.ID)
		default:
			s.respondWithError(w, rpcServerError, "Server error", request.ID)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	})
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Warn("RPC error", map[string]interface{}{
		"code":    code,
		"message": message,
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	})
}
