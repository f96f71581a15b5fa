package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseStationIDs accepts the two shapes the station-id setting may take:
// a bare identifier ("KATL") or a JSON array of identifiers (["KATL","003PG"]).
// Either shape is normalized to a non-empty ordered list right here so the
// rest of the code never branches on input shape.
func ParseStationIDs(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("station id setting is empty")
	}

	if strings.HasPrefix(raw, "[") {
		var ids []string
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			return nil, fmt.Errorf("parse station id array: %w", err)
		}
		return validateStationIDs(ids)
	}

	// JSON string form ("\"KATL\"") also appears in the wild; unwrap it.
	if strings.HasPrefix(raw, `"`) {
		var id string
		if err := json.Unmarshal([]byte(raw), &id); err != nil {
			return nil, fmt.Errorf("parse station id string: %w", err)
		}
		return validateStationIDs([]string{id})
	}

	return validateStationIDs([]string{raw})
}

func validateStationIDs(ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("station id list is empty")
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("station id list contains an empty id")
		}
		out = append(out, id)
	}
	return out, nil
}
