// Package protocol provides the JsonWebDB wire protocol: typed request
// envelopes, the response document and the JSON codec used to move them.
package protocol

import (
	"bytes"
	"fmt"
	"sync"

	json "github.com/goccy/go-json"
)

const (
	// ContentType is sent with every request body
	ContentType = "application/json"

	// TimestampLayout is the canonical timestamp representation on the wire
	TimestampLayout = "2006-01-02T15:04:05.000Z"
)

// Codec handles encoding of request documents and decoding of responses
type Codec interface {
	// Encode serializes a request document
	Encode(request interface{}) ([]byte, error)

	// Decode parses a raw response body into a Response
	Decode(data []byte) (*Response, error)
}

// JSONCodec implements Codec on top of go-json
type JSONCodec struct {
	// Buffer pool for encoding operations
	bufferPool sync.Pool
}

// NewCodec creates a new JSON protocol codec
func NewCodec() Codec {
	return &JSONCodec{
		bufferPool: sync.Pool{
			New: func() interface{} {
				return new(bytes.Buffer)
			},
		},
	}
}

// Encode serializes a request document. HTML escaping is disabled so that
// comparison operators travel unchanged.
func (c *JSONCodec) Encode(request interface{}) ([]byte, error) {
	if request == nil {
		return nil, fmt.Errorf("nil request document")
	}

	buf := c.bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer c.bufferPool.Put(buf)

	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(request); err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	// Encoder appends a newline
	data := bytes.TrimRight(buf.Bytes(), "\n")

	// Return a copy since we're reusing the buffer
	result := make([]byte, len(data))
	copy(result, data)
	return result, nil
}

// Decode parses a raw response body into a Response
func (c *JSONCodec) Decode(data []byte) (*Response, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("empty response data")
	}

	var response Response
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &response, nil
}
