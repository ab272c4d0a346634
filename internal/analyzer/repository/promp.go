package repository

import (
	"fmt"
	"strings"

	"golang-stock-tracker/internal/analyzer/dto"
	"golang-stock-tracker/internal/entity"
)

const systemPrompt = "You are a seasoned equity analyst. You answer with a single JSON object and nothing else."

const (
	promptHistoryRows   = 5
	averageVolumeWindow = 20
)

// BuildStockAnalysisPrompt renders the analysis prompt for one symbol. The output
// only depends on req.
func BuildStockAnalysisPrompt(req *dto.AnalysisRequest) string {
	var b strings.Builder

	latest := req.LatestPrice
	b.WriteString("Analyze the following stock and provide a trading recommendation.\n\n")
	b.WriteString(fmt.Sprintf("Stock: %s (%s)\n", req.Stock.Symbol, orNA(req.Stock.Name)))
	b.WriteString(fmt.Sprintf("Exchange: %s\n", orNA(req.Stock.Exchange)))
	b.WriteString(fmt.Sprintf("Sector: %s\n", orNA(req.Stock.Sector)))
	b.WriteString(fmt.Sprintf("Current Price: %.2f\n", latest.Close))
	b.WriteString(fmt.Sprintf("Price Change: %+.2f%%\n", DayOverDayChange(req.History)))
	b.WriteString(fmt.Sprintf("Volume: %d (%d-day average: %.0f)\n", latest.Volume, averageVolumeWindow, AverageVolume(req.History, averageVolumeWindow)))

	b.WriteString("\nTechnical Indicators:\n")
	b.WriteString(fmt.Sprintf("- RSI (14): %s\n", formatIndicator(req.Indicators.RSI, 2)))
	b.WriteString(fmt.Sprintf("- MACD: %s\n", formatIndicator(req.Indicators.MACD, 4)))
	b.WriteString(fmt.Sprintf("- MA20: %s\n", formatIndicator(req.Indicators.MA20, 2)))
	b.WriteString(fmt.Sprintf("- MA50: %s\n", formatIndicator(req.Indicators.MA50, 2)))

	b.WriteString("\nRecent Price History (most recent first):\n")
	for i, p := range req.History {
		if i >= promptHistoryRows {
			break
		}
		b.WriteString(fmt.Sprintf("- %s: O=%.2f H=%.2f L=%.2f C=%.2f\n", p.Date.Format("2006-01-02"), p.Open, p.High, p.Low, p.Close))
	}

	if len(req.News) > 0 {
		b.WriteString("\nRecent News Headlines:\n")
		for _, n := range req.News {
			line := fmt.Sprintf("- %s", n.Title)
			if n.Source != "" {
				line += fmt.Sprintf(" (%s)", n.Source)
			}
			if !n.PublishedAt.IsZero() {
				line += fmt.Sprintf(" [%s]", n.PublishedAt.Format("2006-01-02"))
			}
			b.WriteString(line + "\n")
		}
	}

	b.WriteString(`
Respond ONLY with a JSON object in exactly this shape:
{
  "action": "BUY" | "SELL" | "HOLD",
  "confidence": <number between 0 and 1>,
  "priceTarget": <number, optional>,
  "reasoning": "<concise explanation>",
  "riskLevel": "LOW" | "MEDIUM" | "HIGH",
  "timeHorizon": "SHORT_TERM" | "MEDIUM_TERM" | "LONG_TERM"
}`)

	return b.String()
}

// DayOverDayChange is the percent change between the two most recent closes.
// It is 0 when there is no previous close or the previous close is not positive.
func DayOverDayChange(history []entity.StockPrice) float64 {
	if len(history) < 2 || history[1].Close <= 0 {
		return 0
	}
	return (history[0].Close - history[1].Close) / history[1].Close * 100
}

// AverageVolume is the mean volume over the most recent window bars.
func AverageVolume(history []entity.StockPrice, window int) float64 {
	n := len(history)
	if n > window {
		n = window
	}
	if n == 0 {
		return 0
	}
	var sum int64
	for _, p := range history[:n] {
		sum += p.Volume
	}
	return float64(sum) / float64(n)
}

func formatIndicator(v *float64, decimals int) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.*f", decimals, *v)
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
