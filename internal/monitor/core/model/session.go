package model

import "encoding/json"

// Credentials are the tokens issued by the backend login.
type Credentials struct {
	Access  string          `json:"access_token"`
	Refresh string          `json:"refresh_token"`
	User    json.RawMessage `json:"user_info,omitempty"`
}

// Empty reports whether no access credential is held.
func (c Credentials) Empty() bool {
	return c.Access == ""
}
