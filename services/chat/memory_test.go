package chat

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/WriterGao/CoreMind/services/llm"
)

func userMessages(n int) []llm.Message {
	msgs := make([]llm.Message, 0, n)
	for i := 0; i < n; i++ {
		msgs = append(msgs, llm.Message{Role: "user", Content: fmt.Sprintf("msg-%d", i)})
	}
	return msgs
}

func TestWindow(t *testing.T) {
	t.Run("short history passes through", func(t *testing.T) {
		msgs := userMessages(3)
		assert.Equal(t, msgs, Window(msgs, 10))
	})

	t.Run("long history keeps last N", func(t *testing.T) {
		msgs := userMessages(20)
		got := Window(msgs, 5)
		assert.Len(t, got, 5)
		assert.Equal(t, "msg-15", got[0].Content)
		assert.Equal(t, "msg-19", got[4].Content)
	})

	t.Run("system message survives trimming", func(t *testing.T) {
		msgs := append([]llm.Message{{Role: "system", Content: "be helpful"}}, userMessages(20)...)
		got := Window(msgs, 5)
		assert.Len(t, got, 6)
		assert.Equal(t, "system", got[0].Role)
		assert.Equal(t, "be helpful", got[0].Content)
		assert.Equal(t, "msg-15", got[1].Content)
	})

	t.Run("non-positive limit uses default", func(t *testing.T) {
		msgs := userMessages(30)
		got := Window(msgs, 0)
		assert.Len(t, got, DefaultMaxHistory)
	})

	t.Run("empty history", func(t *testing.T) {
		assert.Empty(t, Window(nil, 5))
	})
}
