package alpr

import (
	"strings"

	jsoniter "github.com/json-iterator/go"
)

const UnknownPlate = "UNKNOWN"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Candidate struct {
	Text       string   `json:"plate"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Shapes of `alpr -j` output. Leaves stay raw so a wrong-typed field is treated
// as missing instead of failing the whole document.
type engineOutput struct {
	Results []jsoniter.RawMessage `json:"results"`
}

type engineResult struct {
	Plate      jsoniter.RawMessage   `json:"plate"`
	Candidates []jsoniter.RawMessage `json:"candidates"`
}

type engineCandidate struct {
	Plate      jsoniter.RawMessage `json:"plate"`
	Confidence jsoniter.RawMessage `json:"confidence"`
}

// Parse extracts the best plate from raw alpr stdout. JSON output is preferred,
// legacy text output is scanned otherwise, and UnknownPlate is returned when
// nothing matches. It never fails.
func Parse(raw string) (string, []Candidate) {
	if plate, candidates, ok := parseJSON(raw); ok {
		return plate, candidates
	}

	if plate, ok := parseText(raw); ok {
		return plate, nil
	}

	return UnknownPlate, nil
}

func parseJSON(raw string) (string, []Candidate, bool) {
	var out engineOutput
	if err := json.UnmarshalFromString(raw, &out); err != nil || len(out.Results) == 0 {
		return "", nil, false
	}

	var top engineResult
	if err := json.Unmarshal(out.Results[0], &top); err != nil {
		return "", nil, false
	}

	candidates := decodeCandidates(top.Candidates)

	if plate, ok := decodeString(top.Plate); ok && plate != "" {
		return plate, candidates, true
	}

	if len(top.Candidates) > 0 {
		var best engineCandidate
		if err := json.Unmarshal(top.Candidates[0], &best); err == nil {
			if plate, ok := decodeString(best.Plate); ok && plate != "" {
				return plate, candidates, true
			}
		}
	}

	return "", nil, false
}

func decodeCandidates(raw []jsoniter.RawMessage) []Candidate {
	candidates := make([]Candidate, 0, len(raw))
	for _, item := range raw {
		var c engineCandidate
		if err := json.Unmarshal(item, &c); err != nil {
			continue
		}
		text, ok := decodeString(c.Plate)
		if !ok || text == "" {
			continue
		}
		candidate := Candidate{Text: text}
		if conf, ok := decodeFloat(c.Confidence); ok {
			candidate.Confidence = &conf
		}
		candidates = append(candidates, candidate)
	}
	return candidates
}

func decodeString(raw jsoniter.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func decodeFloat(raw jsoniter.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	return f, true
}

func parseText(raw string) (string, bool) {
	lines := strings.FieldsFunc(raw, func(r rune) bool { return r == '\n' || r == '\r' })
	for _, line := range lines {
		if !strings.HasPrefix(strings.ToLower(line), "plate") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			return fields[1], true
		}
	}
	return "", false
}
