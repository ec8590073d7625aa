package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation represents a chat session bound to an assistant profile
type Conversation struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	UserID          uuid.UUID  `json:"user_id" db:"user_id"`
	AssistantID     *uuid.UUID `json:"assistant_id,omitempty" db:"assistant_id"`
	KnowledgeBaseID *uuid.UUID `json:"knowledge_base_id,omitempty" db:"knowledge_base_id"`
	Title           string     `json:"title" db:"title"`
	SystemPrompt    string     `json:"system_prompt,omitempty" db:"system_prompt"`
	Model           string     `json:"model" db:"model"`
	Temperature     float64    `json:"temperature" db:"temperature"`
	MaxTokens       int        `json:"max_tokens" db:"max_tokens"`
	MessageCount    int        `json:"message_count" db:"message_count"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Conversation model
func (Conversation) TableName() string {
	return "conversations"
}

// NewConversation creates a new Conversation for a user
func NewConversation(userID uuid.UUID, title string) *Conversation {
	now := time.Now()
	return &Conversation{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       title,
		Model:       "gpt-4",
		Temperature: 0.7,
		MaxTokens:   2000,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ChatMessage represents a single persisted message in a conversation
type ChatMessage struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	ConversationID uuid.UUID       `json:"conversation_id" db:"conversation_id"`
	Role           string          `json:"role" db:"role"`
	Content        string          `json:"content" db:"content"`
	Metadata       json.RawMessage `json:"metadata,omitempty" db:"msg_metadata"`
	Tokens         int             `json:"tokens" db:"tokens"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the ChatMessage model
func (ChatMessage) TableName() string {
	return "messages"
}

// NewChatMessage creates a new ChatMessage
func NewChatMessage(conversationID uuid.UUID, role, content string) *ChatMessage {
	return &ChatMessage{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now(),
	}
}
