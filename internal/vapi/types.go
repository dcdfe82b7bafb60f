package vapi

import (
	"encoding/json"
	"time"
)

type Customer struct {
	Number string `json:"number"`
	Name   string `json:"name,omitempty"`
}

type CreateCallRequest struct {
	AssistantID   string         `json:"assistantId"`
	PhoneNumberID string         `json:"phoneNumberId,omitempty"`
	Customer      Customer       `json:"customer"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Call is the provider call resource as returned by the REST API and inside webhook events.
type Call struct {
	ID            string         `json:"id"`
	Type          string         `json:"type,omitempty"`
	Status        string         `json:"status,omitempty"`
	AssistantID   string         `json:"assistantId,omitempty"`
	PhoneNumberID string         `json:"phoneNumberId,omitempty"`
	Customer      *Customer      `json:"customer,omitempty"`
	Cost          float64        `json:"cost,omitempty"`
	EndedReason   string         `json:"endedReason,omitempty"`
	Transcript    string         `json:"transcript,omitempty"`
	RecordingURL  string         `json:"recordingUrl,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     *time.Time     `json:"createdAt,omitempty"`
	StartedAt     *time.Time     `json:"startedAt,omitempty"`
	EndedAt       *time.Time     `json:"endedAt,omitempty"`
}

// Assistant keeps provider-specific model and voice settings as raw JSON.
type Assistant struct {
	ID           string          `json:"id,omitempty"`
	Name         string          `json:"name,omitempty"`
	Model        json.RawMessage `json:"model,omitempty"`
	Voice        json.RawMessage `json:"voice,omitempty"`
	FirstMessage string          `json:"firstMessage,omitempty"`
	ServerURL    string          `json:"serverUrl,omitempty"`
	Metadata     map[string]any  `json:"metadata,omitempty"`
	CreatedAt    *time.Time      `json:"createdAt,omitempty"`
	UpdatedAt    *time.Time      `json:"updatedAt,omitempty"`
}
