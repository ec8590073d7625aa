package chat

import (
	"math"
	"strings"

	"github.com/WriterGao/CoreMind/models"
)

// RouteType classifies which capability should serve a query
type RouteType string

const (
	RouteKnowledge RouteType = "knowledge_base"
	RouteData      RouteType = "datasource"
	RouteTool      RouteType = "interface"
	RouteMixed     RouteType = "mixed"
)

// routeThreshold is the minimum score before a single capability is preferred
// over consulting everything available
const routeThreshold = 0.3

var (
	knowledgeKeywords = []string{
		"what is", "explain", "describe", "definition", "concept",
		"overview", "introduce", "how does", "why", "background",
		"principle", "document", "reference", "guide", "meaning",
	}
	dataKeywords = []string{
		"query", "count", "how many", "statistics", "records",
		"latest", "recent", "history", "total", "number of",
		"list of", "report", "entries", "rows", "metrics",
	}
	toolKeywords = []string{
		"call", "execute", "run", "trigger", "invoke",
		"create", "add", "insert", "update", "modify",
		"delete", "remove", "send", "submit", "upload",
	}
)

// RouteDecision is the outcome of routing one query
type RouteDecision struct {
	Type       RouteType
	Confidence float64
}

// AllowsKnowledge reports whether knowledge retrieval should run for this route
func (d RouteDecision) AllowsKnowledge() bool {
	return d.Type == RouteKnowledge || d.Type == RouteMixed
}

// RouteQuery scores the query against each capability's keyword set and picks
// the one that should serve it. Without an assistant, or with auto-routing
// switched off, every capability stays in play.
func RouteQuery(query string, assistant *models.Assistant) RouteDecision {
	if assistant == nil || !assistant.AutoRoute {
		return RouteDecision{Type: RouteMixed, Confidence: 1}
	}

	q := strings.ToLower(query)
	knowledge := keywordScore(q, knowledgeKeywords)
	data := keywordScore(q, dataKeywords)
	tool := keywordScore(q, toolKeywords)

	best := math.Max(knowledge, math.Max(data, tool))
	if best < routeThreshold {
		// Intent unclear: consult everything
		return RouteDecision{Type: RouteMixed, Confidence: 0.5}
	}

	switch {
	case knowledge == best && assistant.EnableKnowledge:
		return RouteDecision{Type: RouteKnowledge, Confidence: knowledge}
	case data == best && assistant.EnableData:
		return RouteDecision{Type: RouteData, Confidence: data}
	case tool == best && assistant.EnableTools:
		return RouteDecision{Type: RouteTool, Confidence: tool}
	}

	// Preferred capability is switched off on this assistant
	return RouteDecision{Type: RouteMixed, Confidence: best * 0.7}
}

func keywordScore(query string, keywords []string) float64 {
	matches := 0
	for _, kw := range keywords {
		if strings.Contains(query, kw) {
			matches++
		}
	}
	score := float64(matches) / float64(len(keywords))
	if matches >= 2 {
		score = math.Min(score*1.5, 1)
	}
	return score
}
