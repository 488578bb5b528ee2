package fetcher

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
)

// decodeInto decodes a JSON object from r. A nil target drains the body.
func decodeInto(r io.Reader, into any) error {
	if into == nil {
		_, _ = io.Copy(io.Discard, r)
		return nil
	}
	if err := json.NewDecoder(r).Decode(into); err != nil {
		return eris.Wrap(err, "json: decode object")
	}
	return nil
}
