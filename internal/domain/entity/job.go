package entity

import (
	"encoding/json"
	"fmt"
)

type Status string

const (
	StatusProcessing Status = "PROCESSING"
	StatusSuccess    Status = "SUCCESS"
	StatusError      Status = "ERROR"
)

// JobDescriptor is the inbound message from the processing queue. It is
// immutable once parsed; one descriptor corresponds to one pipeline run.
type JobDescriptor struct {
	SourceKey   string `json:"s3Key"`
	VideoID     string `json:"videoId"`
	ClientID    string `json:"clientId"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Timestamp   int64  `json:"timestamp"`
}

// ParseJobDescriptor decodes a queue message body. A body that does not decode
// or is missing a required field is a parse error, not a pipeline error.
func ParseJobDescriptor(body []byte) (JobDescriptor, error) {
	var job JobDescriptor
	if err := json.Unmarshal(body, &job); err != nil {
		return JobDescriptor{}, fmt.Errorf("unmarshal job message: %w", err)
	}
	if err := job.validate(); err != nil {
		return JobDescriptor{}, err
	}
	return job, nil
}

func (j JobDescriptor) validate() error {
	for _, f := range []struct {
		name, value string
	}{
		{"s3Key", j.SourceKey},
		{"videoId", j.VideoID},
		{"clientId", j.ClientID},
		{"filename", j.Filename},
	} {
		if f.value == "" {
			return fmt.Errorf("job message missing required field %q", f.name)
		}
	}
	return nil
}

// JobOutcome is the terminal result of one pipeline run. Exactly one of the
// success fields or ErrorMessage is populated.
type JobOutcome struct {
	Success      bool
	ArchiveKey   string
	ArchiveSize  string
	ErrorMessage string
}
