package models

import "encoding/json"

// EventStatus is the state of one ingestion step.
type EventStatus string

const (
	StatusPending EventStatus = "pending"
	StatusLoading EventStatus = "loading"
	StatusDone    EventStatus = "done"
	StatusFailed  EventStatus = "failed"
)

// Ingestion step names, in the order they are first reported.
const (
	StepFetchDetails    = "Fetching book details"
	StepGoodreads       = "Reading Goodreads reviews"
	StepReddit          = "Scanning Reddit discussions"
	StepCriticReviews   = "Loading critical reviews"
	StepBuildKnowledge  = "Building knowledge base"
	StepReady           = "Ready"
	StepMetadataMissing = "Error: metadata missing"
	StepFailed          = "Ingestion failed"
)

// IngestionEvent is a progress signal emitted during one ingestion run.
type IngestionEvent struct {
	Step      string                 `json:"step"`
	Status    EventStatus            `json:"status"`
	Quote     string                 `json:"quote,omitempty"`
	Landscape *InterpretiveLandscape `json:"landscape,omitempty"`
	Sources   []string               `json:"sources,omitempty"`
}

// MarshalJSON always writes sources on the final Ready event, as [] when no
// source contributed; other events omit an empty list.
func (e IngestionEvent) MarshalJSON() ([]byte, error) {
	type wire IngestionEvent
	if e.Step != StepReady || e.Status != StatusDone {
		return json.Marshal(wire(e))
	}
	sources := e.Sources
	if sources == nil {
		sources = []string{}
	}
	return json.Marshal(struct {
		wire
		Sources []string `json:"sources"`
	}{wire(e), sources})
}

// Terminal reports whether no further events follow e.
func (e IngestionEvent) Terminal() bool {
	return (e.Step == StepReady && e.Status == StatusDone) ||
		e.Step == StepMetadataMissing || e.Step == StepFailed
}

// ReadyEvent builds the final event for a stored pack.
func ReadyEvent(k *BookKnowledge, quote string) IngestionEvent {
	landscape := k.InterpretiveLandscape
	sources := k.Sources
	if sources == nil {
		sources = []string{}
	}
	return IngestionEvent{
		Step:      StepReady,
		Status:    StatusDone,
		Quote:     quote,
		Landscape: &landscape,
		Sources:   sources,
	}
}
