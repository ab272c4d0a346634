package service

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang-stock-tracker/internal/analyzer/dto"
	"golang-stock-tracker/internal/entity"
)

const (
	defaultConfidence  = 0.5
	defaultReasoning   = "No reasoning provided"
	fallbackReasonSize = 200
)

var (
	actionPattern      = regexp.MustCompile(`(?i)\b(BUY|SELL|HOLD)\b`)
	confidencePattern  = regexp.MustCompile(`(?i)confidence[:\s]+([0-9]*\.?[0-9]+)\s*(%)?`)
	riskPattern        = regexp.MustCompile(`(?i)risk(?:[\s_-]*level)?[:\s]*(LOW|MEDIUM|HIGH)\b`)
	horizonPattern     = regexp.MustCompile(`(?i)\b(SHORT|MEDIUM|LONG)[_ -]?TERM\b`)
	priceTargetPattern = regexp.MustCompile(`(?i)(?:price[\s_-]*target|target[\s_-]*price)(?:\s*(?:of|at|is))?[:\s]*\$?([0-9]+(?:\.[0-9]+)?)`)
)

// flexFloat accepts a JSON number or a numeric string.
type flexFloat struct {
	value float64
	set   bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	percent := strings.HasSuffix(s, "%")
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return nil
	}
	if percent {
		v /= 100
	}
	f.value, f.set = v, true
	return nil
}

type rawAnalysis struct {
	Action           *string   `json:"action"`
	Confidence       flexFloat `json:"confidence"`
	PriceTarget      flexFloat `json:"priceTarget"`
	PriceTargetSnake flexFloat `json:"price_target"`
	Reasoning        *string   `json:"reasoning"`
	RiskLevel        *string   `json:"riskLevel"`
	RiskLevelSnake   *string   `json:"risk_level"`
	TimeHorizon      *string   `json:"timeHorizon"`
	TimeHorizonSnake *string   `json:"time_horizon"`
}

// ParseAnalysisResponse turns a provider reply into a result. The first top-level JSON
// object in raw wins; when there is none, keywords are pulled from the free text.
// The returned action, risk level and time horizon are always valid and the
// confidence is within [0,1].
func ParseAnalysisResponse(raw string) dto.AnalysisResult {
	if block, ok := extractJSONObject(raw); ok {
		var parsed rawAnalysis
		if err := json.Unmarshal([]byte(block), &parsed); err == nil {
			return fromJSON(parsed)
		}
	}
	return fromText(raw)
}

func fromJSON(p rawAnalysis) dto.AnalysisResult {
	result := dto.AnalysisResult{
		Action:      normalizeAction(deref(p.Action)),
		Confidence:  defaultConfidence,
		Reasoning:   strings.TrimSpace(deref(p.Reasoning)),
		RiskLevel:   normalizeRisk(firstNonEmpty(deref(p.RiskLevel), deref(p.RiskLevelSnake))),
		TimeHorizon: normalizeHorizon(firstNonEmpty(deref(p.TimeHorizon), deref(p.TimeHorizonSnake))),
	}
	if p.Confidence.set {
		result.Confidence = clamp(p.Confidence.value)
	}
	if result.Reasoning == "" {
		result.Reasoning = defaultReasoning
	}

	target := p.PriceTarget
	if !target.set {
		target = p.PriceTargetSnake
	}
	if target.set && target.value > 0 {
		v := target.value
		result.PriceTarget = &v
	}
	return result
}

func fromText(raw string) dto.AnalysisResult {
	result := dto.AnalysisResult{
		Action:      entity.ActionHold,
		Confidence:  defaultConfidence,
		RiskLevel:   entity.RiskMedium,
		TimeHorizon: entity.HorizonMediumTerm,
	}

	if m := actionPattern.FindStringSubmatch(raw); m != nil {
		result.Action = entity.Action(strings.ToUpper(m[1]))
	}
	if m := confidencePattern.FindStringSubmatch(raw); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			if m[2] == "%" {
				v /= 100
			}
			result.Confidence = clamp(v)
		}
	}
	if m := riskPattern.FindStringSubmatch(raw); m != nil {
		result.RiskLevel = entity.RiskLevel(strings.ToUpper(m[1]))
	}
	if m := horizonPattern.FindStringSubmatch(raw); m != nil {
		result.TimeHorizon = entity.TimeHorizon(strings.ToUpper(m[1]) + "_TERM")
	}
	if m := priceTargetPattern.FindStringSubmatch(raw); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 0 {
			result.PriceTarget = &v
		}
	}

	result.Reasoning = truncate(strings.TrimSpace(raw), fallbackReasonSize)
	if result.Reasoning == "" {
		result.Reasoning = defaultReasoning
	}
	return result
}

// extractJSONObject returns the first balanced top-level {...} block that is valid JSON.
// Braces inside string literals are ignored.
func extractJSONObject(raw string) (string, bool) {
	for start := strings.IndexByte(raw, '{'); start >= 0; {
		end := matchBrace(raw, start)
		if end < 0 {
			return "", false
		}
		block := raw[start : end+1]
		if json.Valid([]byte(block)) {
			return block, true
		}

		next := strings.IndexByte(raw[end+1:], '{')
		if next < 0 {
			return "", false
		}
		start = end + 1 + next
	}
	return "", false
}

func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func normalizeAction(s string) entity.Action {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch {
	case s == string(entity.ActionBuy), s == string(entity.ActionSell), s == string(entity.ActionHold):
		return entity.Action(s)
	case strings.Contains(s, "BUY"):
		return entity.ActionBuy
	case strings.Contains(s, "SELL"):
		return entity.ActionSell
	default:
		return entity.ActionHold
	}
}

func normalizeRisk(s string) entity.RiskLevel {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch {
	case strings.Contains(s, "LOW"):
		return entity.RiskLow
	case strings.Contains(s, "HIGH"):
		return entity.RiskHigh
	default:
		return entity.RiskMedium
	}
}

func normalizeHorizon(s string) entity.TimeHorizon {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(s, "SHORT"):
		return entity.HorizonShortTerm
	case strings.HasPrefix(s, "LONG"):
		return entity.HorizonLongTerm
	default:
		return entity.HorizonMediumTerm
	}
}

func clamp(v float64) float64 {
	switch {
	case v != v:
		return defaultConfidence
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
