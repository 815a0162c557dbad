package upclist

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Parse decodes a batch of UPC identifiers. The input artifact is
// either a bare JSON array or an object holding the array under an
// "upcs" key. Numeric entries are tolerated since spreadsheets tend to
// export barcodes as numbers.
func Parse(data []byte) ([]string, error) {
	var asList []any
	if err := json.Unmarshal(data, &asList); err == nil {
		return coerce(asList)
	}

	var asObject struct {
		Upcs []any `json:"upcs"`
	}
	if err := json.Unmarshal(data, &asObject); err != nil {
		return nil, fmt.Errorf("upc list must be a JSON array or an object with an 'upcs' key: %w", err)
	}
	if asObject.Upcs == nil {
		return nil, fmt.Errorf("upc list must be a JSON array or an object with an 'upcs' key")
	}
	return coerce(asObject.Upcs)
}

func coerce(values []any) ([]string, error) {
	out := make([]string, 0, len(values))
	for _, v := range values {
		switch x := v.(type) {
		case string:
			out = append(out, x)
		case float64:
			out = append(out, strconv.FormatFloat(x, 'f', -1, 64))
		default:
			return nil, fmt.Errorf("unsupported upc entry type %T", v)
		}
	}
	return out, nil
}
