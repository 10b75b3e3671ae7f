package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Envelope is a decoded collection response.
type Envelope struct {
	// Items holds the raw element documents in server order.
	Items []json.RawMessage

	// Total is the server-reported total count, when present.
	Total    int64
	HasTotal bool
}

// Decoder turns a response body into an Envelope.
//
// Implementations return *Error with ErrCodeDecodeFailed for bodies they
// cannot interpret.
type Decoder interface {
	Decode(body []byte) (Envelope, error)
}

// Envelope keys probed by JSONDecoder, in priority order.
var (
	itemKeys  = []string{"items", "data", "value", "results"}
	totalKeys = []string{"total", "totalCount", "count", "@odata.count"}
)

// JSONDecoder accepts either a bare JSON array or an object wrapping the
// array under one of "items", "data", "value" or "results". A total count
// is read from "total", "totalCount", "count" or "@odata.count".
type JSONDecoder struct{}

// Decode implements Decoder.
func (JSONDecoder) Decode(body []byte) (Envelope, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Envelope{}, NewDecodeError("empty response body", nil)
	}

	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return Envelope{}, NewDecodeError("malformed array body", err)
		}
		return Envelope{Items: items}, nil

	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return Envelope{}, NewDecodeError("malformed object body", err)
		}
		return decodeObject(obj)

	default:
		return Envelope{}, NewDecodeError("body is neither an array nor an object", nil)
	}
}

func decodeObject(obj map[string]json.RawMessage) (Envelope, error) {
	var env Envelope
	found := false
	for _, key := range itemKeys {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &env.Items); err != nil {
			return Envelope{}, NewDecodeError(fmt.Sprintf("envelope key %q is not an array", key), err)
		}
		found = true
		break
	}
	if !found {
		return Envelope{}, NewDecodeError("object body has no items, data, value or results array", nil)
	}

	for _, key := range totalKeys {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return Envelope{}, NewDecodeError(fmt.Sprintf("envelope key %q is not a number", key), err)
		}
		total, err := n.Int64()
		if err != nil {
			return Envelope{}, NewDecodeError(fmt.Sprintf("envelope key %q is not an integer", key), err)
		}
		env.Total = total
		env.HasTotal = true
		break
	}
	return env, nil
}
