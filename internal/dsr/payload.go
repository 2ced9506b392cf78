package dsr

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultResultIndex is the position of the row data in a query response
// issued with the default report query.
const DefaultResultIndex = 1

var ErrPayloadPath = errors.New("dsr: payload path not found")

// step is one hop into a query response: an object key, optionally
// followed by an array index.
type step struct {
	key   string
	index int
}

// ExtractRows returns the DM0 row array found at
// results[index].result.data.dsr.DS[0].PH[0].DM0 in a query response.
func ExtractRows(response map[string]any, index int) ([]any, error) {
	if index < 0 {
		return nil, fmt.Errorf("%w: negative result index %d", ErrPayloadPath, index)
	}

	path := []step{
		{key: "results", index: index},
		{key: "result", index: -1},
		{key: "data", index: -1},
		{key: "dsr", index: -1},
		{key: "DS", index: 0},
		{key: "PH", index: 0},
	}

	var walked []string
	node := response
	for _, s := range path {
		walked = append(walked, s.key)

		raw, ok := node[s.key]
		if !ok {
			return nil, pathError(walked, "missing")
		}

		if s.index >= 0 {
			arr, ok := raw.([]any)
			if !ok {
				return nil, pathError(walked, fmt.Sprintf("%T is not an array", raw))
			}
			if s.index >= len(arr) {
				return nil, pathError(walked, fmt.Sprintf("index %d out of range (len %d)", s.index, len(arr)))
			}
			walked[len(walked)-1] = fmt.Sprintf("%s[%d]", s.key, s.index)
			raw = arr[s.index]
		}

		next, ok := raw.(map[string]any)
		if !ok {
			return nil, pathError(walked, fmt.Sprintf("%T is not an object", raw))
		}
		node = next
	}

	walked = append(walked, "DM0")
	raw, ok := node["DM0"]
	if !ok {
		return nil, pathError(walked, "missing")
	}
	rows, ok := raw.([]any)
	if !ok {
		return nil, pathError(walked, fmt.Sprintf("%T is not an array", raw))
	}
	return rows, nil
}

func pathError(walked []string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrPayloadPath, strings.Join(walked, "."), reason)
}
