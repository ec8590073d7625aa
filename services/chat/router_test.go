package chat

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/WriterGao/CoreMind/models"
)

func TestRouteQuery(t *testing.T) {
	userID := uuid.New()

	newAssistant := func() *models.Assistant {
		return models.NewAssistant(userID, "router test")
	}

	t.Run("no assistant consults everything", func(t *testing.T) {
		decision := RouteQuery("explain the refund concept", nil)
		assert.Equal(t, RouteMixed, decision.Type)
		assert.True(t, decision.AllowsKnowledge())
	})

	t.Run("auto route off consults everything", func(t *testing.T) {
		a := newAssistant()
		a.AutoRoute = false
		decision := RouteQuery("execute the run call and submit", a)
		assert.Equal(t, RouteMixed, decision.Type)
	})

	t.Run("knowledge intent routes to knowledge", func(t *testing.T) {
		decision := RouteQuery("explain the concept and background, what is the definition?", newAssistant())
		assert.Equal(t, RouteKnowledge, decision.Type)
		assert.True(t, decision.AllowsKnowledge())
		assert.GreaterOrEqual(t, decision.Confidence, routeThreshold)
	})

	t.Run("data intent routes to datasource", func(t *testing.T) {
		decision := RouteQuery("query the latest records: how many entries in total?", newAssistant())
		assert.Equal(t, RouteData, decision.Type)
		assert.False(t, decision.AllowsKnowledge())
	})

	t.Run("tool intent routes to interface", func(t *testing.T) {
		decision := RouteQuery("execute the cleanup: run the job, delete stale rows and send the report", newAssistant())
		assert.Equal(t, RouteTool, decision.Type)
		assert.False(t, decision.AllowsKnowledge())
	})

	t.Run("weak signal falls back to mixed", func(t *testing.T) {
		decision := RouteQuery("hello there", newAssistant())
		assert.Equal(t, RouteMixed, decision.Type)
		assert.True(t, decision.AllowsKnowledge())
	})

	t.Run("preferred capability disabled falls back to mixed", func(t *testing.T) {
		a := newAssistant()
		a.EnableKnowledge = false
		decision := RouteQuery("explain the concept and background, what is the definition?", a)
		assert.Equal(t, RouteMixed, decision.Type)
		assert.Less(t, decision.Confidence, 1.0)
	})
}

func TestKeywordScore(t *testing.T) {
	assert.Zero(t, keywordScore("nothing relevant here", knowledgeKeywords))

	// Multiple matches get boosted but stay capped at 1
	one := keywordScore("explain this", knowledgeKeywords)
	many := keywordScore("explain the concept, describe the background and meaning", knowledgeKeywords)
	assert.Greater(t, many, one)
	assert.LessOrEqual(t, many, 1.0)
}
