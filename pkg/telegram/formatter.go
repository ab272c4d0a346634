package telegram

import (
	"fmt"
	"strings"
	"time"
)

const maxMessageLen = 4090

// RunSummary is what a finished analysis run reports to the chat.
type RunSummary struct {
	RunID       string
	Type        string
	Status      string
	StartedAt   time.Time
	Duration    time.Duration
	Skipped     []string
	Verdicts    []Verdict
	ErrorDetail string
}

// Verdict is one symbol's recommendation line.
type Verdict struct {
	Symbol      string
	Action      string
	Confidence  float64
	PriceTarget *float64
	RiskLevel   string
	Provider    string
}

// FormatRunSummary renders a run as one or more Markdown messages, each at most
// maxMessageLen bytes.
func FormatRunSummary(s RunSummary) []string {
	var messages []string
	var current strings.Builder
	part := 1

	startNewPart := func() {
		current.Reset()
		if part == 1 {
			current.WriteString(fmt.Sprintf("📊 *Stock Analysis Run* (%s)\n", s.Type))
			current.WriteString(fmt.Sprintf("🗓 %s | ⏱ %s | %s\n\n", s.StartedAt.Format("2006-01-02 15:04"), s.Duration.Round(time.Second), s.Status))
			return
		}
		current.WriteString(fmt.Sprintf("---*Stock Analysis Run Part %d*---\n\n", part))
	}
	startNewPart()

	if s.ErrorDetail != "" {
		current.WriteString(fmt.Sprintf("📛 *Error:* %s\n\n", s.ErrorDetail))
	}
	if len(s.Verdicts) == 0 {
		current.WriteString("_No symbols were analyzed._\n")
	}

	for _, v := range s.Verdicts {
		entry := formatVerdict(v)
		if current.Len()+len(entry) > maxMessageLen {
			messages = append(messages, current.String())
			part++
			startNewPart()
		}
		current.WriteString(entry)
	}

	if len(s.Skipped) > 0 {
		footer := fmt.Sprintf("\n⚠️ *Skipped:* %s\n", strings.Join(s.Skipped, ", "))
		if current.Len()+len(footer) > maxMessageLen {
			messages = append(messages, current.String())
			part++
			startNewPart()
		}
		current.WriteString(footer)
	}

	messages = append(messages, current.String())
	return messages
}

func formatVerdict(v Verdict) string {
	var icon string
	switch strings.ToUpper(v.Action) {
	case "BUY":
		icon = "🟢"
	case "SELL":
		icon = "🔴"
	default:
		icon = "🟡"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s *%s* %s | 🎯 %.0f%%", icon, v.Symbol, v.Action, v.Confidence*100))
	if v.PriceTarget != nil {
		b.WriteString(fmt.Sprintf(" | target $%.2f", *v.PriceTarget))
	}
	if v.RiskLevel != "" {
		b.WriteString(fmt.Sprintf(" | risk %s", v.RiskLevel))
	}
	if v.Provider != "" {
		b.WriteString(fmt.Sprintf(" | _%s_", v.Provider))
	}
	b.WriteString("\n")
	return b.String()
}
