package amqp

import (
	"encoding/json"
	"time"
)

// PipelineRunMessage asks a worker to execute a pipeline pass for one
// source system.
type PipelineRunMessage struct {
	SourceSystem string    `json:"source_system"`
	RequestedAt  time.Time `json:"requested_at"`
}

func NewPipelineRunMessage(sourceSystem string) *PipelineRunMessage {
	return &PipelineRunMessage{
		SourceSystem: sourceSystem,
		RequestedAt:  time.Now(),
	}
}

func (m *PipelineRunMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func PipelineRunMessageFromJSON(data []byte) (*PipelineRunMessage, error) {
	var msg PipelineRunMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
