package proto

import (
	"encoding/json"
	"fmt"
)

// ID is a user identifier. Peers send it either as a JSON number or a string.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("%w: id %s", ErrBadPayload, b)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }
