package trino

import (
	"bytes"
	"encoding/json"
)

// Warning represents a warning generated during query execution.
// Older servers send warnings as bare strings; those decode into Message.
type Warning struct {
	WarningCode WarningCode `json:"warningCode"`
	Message     string      `json:"message"`
}

// WarningCode represents the code and name of a warning.
type WarningCode struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

func (w Warning) String() string {
	if w.WarningCode.Name == "" {
		return w.Message
	}
	return w.WarningCode.Name + ": " + w.Message
}

// UnmarshalJSON accepts either a string or a warning object.
func (w *Warning) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		*w = Warning{}
		return json.Unmarshal(data, &w.Message)
	}
	type plain Warning
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*w = Warning(p)
	return nil
}
