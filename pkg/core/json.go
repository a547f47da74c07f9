package core

import (
	"bytes"

	"github.com/bytedance/sonic"
)

// JSON is the codec shared by the transport and the parsers. Numbers decode
// as json.Number so that decimal literals keep their exact text.
var JSON = sonic.Config{
	UseNumber:   true,
	SortMapKeys: true,
}.Froze()

// Decode parses a response body into a generic JSON value. An empty body
// decodes to nil.
func Decode(data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var v any
	if err := JSON.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
