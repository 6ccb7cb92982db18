package resumes

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// KeyPrefix namespaces resume records in the KV store.
const KeyPrefix = "resume:"

// Record is the persisted analysis of one uploaded resume. Feedback is the
// model's JSON reply, kept verbatim.
type Record struct {
	ID             string          `json:"id"`
	CompanyName    string          `json:"companyName"`
	JobTitle       string          `json:"jobTitle"`
	JobDescription string          `json:"jobDescription,omitempty"`
	ResumePath     string          `json:"resumePath"`
	ImagePath      string          `json:"imagePath"`
	Feedback       json.RawMessage `json:"feedback"`
}

// Key returns the KV key of the record with id.
func Key(id string) string { return KeyPrefix + id }

var errInvalidFeedback = errors.New("feedback is not valid JSON")

// ParseFeedback extracts the JSON payload from a model reply. A reply
// wrapped in a markdown code fence is unwrapped first.
func ParseFeedback(content string) (json.RawMessage, error) {
	text := strings.TrimSpace(content)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[nl+1:]
		}
		text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "```"))
	}
	if text == "" || !json.Valid([]byte(text)) {
		return nil, errInvalidFeedback
	}
	return json.RawMessage(text), nil
}

func decodeRecord(raw string) (Record, error) {
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Record{}, fmt.Errorf("decode resume record: %w", err)
	}
	return rec, nil
}
