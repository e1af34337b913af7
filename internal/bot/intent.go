package bot

import (
	"fmt"
	"time"
)

// Intent is a resolved user intention. Free-text understanding happens
// upstream (the NLP agent); the core only ever sees one of these tags and
// dispatches it through a fixed table — handlers are never resolved from
// strings.
type Intent int

const (
	IntentUnknown Intent = iota
	IntentHelp
	IntentPrice
	IntentCash
	IntentPortfolio
	IntentBuy
	IntentSell
	IntentPortfolioPlot
	IntentPlotTicker
	IntentInsights
	IntentCompare
	IntentRanking
)

var intentNames = map[string]Intent{
	"help":           IntentHelp,
	"price":          IntentPrice,
	"cash":           IntentCash,
	"portfolio":      IntentPortfolio,
	"buy":            IntentBuy,
	"sell":           IntentSell,
	"portfolio_plot": IntentPortfolioPlot,
	"plot_ticker":    IntentPlotTicker,
	"insights":       IntentInsights,
	"compare":        IntentCompare,
	"ranking":        IntentRanking,
}

// ParseIntent maps a wire-level intent tag to an Intent
func ParseIntent(name string) (Intent, error) {
	intent, ok := intentNames[name]
	if !ok {
		return IntentUnknown, fmt.Errorf("unknown intent: %q", name)
	}
	return intent, nil
}

// Request is one resolved user request. Fields beyond Intent and UserID
// are intent-specific and zero when absent.
type Request struct {
	Intent      Intent
	UserID      int
	Ticker      string
	OtherTicker string
	Quantity    int64
	On          *time.Time
	Days        int
}

// Reply is a platform-neutral response: plain text, an optional rendered
// image and optional suggested quick replies. Chat adapters translate it
// into their own payloads.
type Reply struct {
	Text         string   `json:"text"`
	Image        []byte   `json:"image,omitempty"`
	QuickReplies []string `json:"quick_replies,omitempty"`
}
