package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeError describes a frame that could not be turned into a request or
// notification. Code is ParseError for syntactically broken JSON and
// InvalidRequest for well-formed JSON that violates the envelope rules.
// ID carries the best-effort request id for correlation; nil means the
// response must use a null id per JSON-RPC 2.0.
type DecodeError struct {
	Code   ErrorCode
	ID     interface{}
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error %d: %s", e.Code, e.Reason)
}

// rawEnvelope mirrors the request envelope with the id left undecoded so
// its JSON type can be inspected before any coercion happens.
type rawEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  *string         `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// DecodeMessage classifies one complete frame as a request or a
// notification. Exactly one of the returned pointers is non-nil on
// success; on failure the error is always a *DecodeError.
func DecodeMessage(data []byte) (*Request, *Notification, error) {
	var env rawEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		// No id is recoverable from broken JSON; the caller responds
		// with id null per JSON-RPC 2.0.
		return nil, nil, &DecodeError{Code: ParseError, Reason: err.Error()}
	}

	id, idErr := decodeID(env.ID)

	if env.JSONRPC != JSONRPCVersion {
		return nil, nil, &DecodeError{Code: InvalidRequest, ID: id,
			Reason: fmt.Sprintf("unsupported jsonrpc version %q", env.JSONRPC)}
	}
	if env.Method == nil || *env.Method == "" {
		return nil, nil, &DecodeError{Code: InvalidRequest, ID: id,
			Reason: "missing method"}
	}
	if idErr != nil {
		return nil, nil, &DecodeError{Code: InvalidRequest,
			Reason: idErr.Error()}
	}

	if env.ID == nil {
		return nil, &Notification{
			JSONRPCMessage: JSONRPCMessage{JSONRPC: env.JSONRPC},
			Method:         *env.Method,
			Params:         env.Params,
		}, nil
	}

	return &Request{
		JSONRPCMessage: JSONRPCMessage{JSONRPC: env.JSONRPC},
		ID:             id,
		Method:         *env.Method,
		Params:         env.Params,
	}, nil, nil
}

// decodeID validates the id member. Only strings and integral numbers are
// accepted; anything else (booleans, objects, arrays, fractional numbers,
// explicit null) is a disallowed id type.
func decodeID(raw json.RawMessage) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty id")
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, fmt.Errorf("malformed string id: %w", err)
		}
		return s, nil
	case '{', '[', 't', 'f', 'n':
		return nil, fmt.Errorf("id must be a string or an integer, got %s", jsonTypeName(trimmed[0]))
	default:
		var num json.Number
		if err := json.Unmarshal(trimmed, &num); err != nil {
			return nil, fmt.Errorf("malformed numeric id: %w", err)
		}
		if strings.ContainsAny(num.String(), ".eE") {
			return nil, fmt.Errorf("id must be an integer, got %s", num.String())
		}
		n, err := num.Int64()
		if err != nil {
			return nil, fmt.Errorf("id out of integer range: %w", err)
		}
		return n, nil
	}
}

func jsonTypeName(lead byte) string {
	switch lead {
	case '{':
		return "object"
	case '[':
		return "array"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}
