package models

import "time"

type PasswordOverride struct {
	Username     string
	PasswordHash string
	UpdatedAt    time.Time
}

// ConversationTurn is one user message and the reply the selector chose.
type ConversationTurn struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	SessionID       string    `json:"sessionId"`
	Persona         string    `json:"persona"`
	Dictamen        string    `json:"dictamen"`
	GestionType     string    `json:"gestionType"`
	MoraBucket      string    `json:"moraBucket"`
	Input           string    `json:"input"`
	MatchedQuestion string    `json:"matchedQuestion,omitempty"`
	Outcome         string    `json:"outcome"`
	Score           float64   `json:"score"`
	Response        string    `json:"response"`
	LatencyMS       int       `json:"latencyMs"`
	CreatedAt       time.Time `json:"createdAt"`
}
