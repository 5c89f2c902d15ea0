package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexID is an identifier the API sends either as a JSON number (users,
// appointments) or as a string (UUID doctor profiles, departments).
type FlexID string

func (id *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or a number: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*id = FlexID(strconv.FormatInt(i, 10))
		return nil
	}
	*id = FlexID(n.String())
	return nil
}

func (id FlexID) String() string {
	return string(id)
}
