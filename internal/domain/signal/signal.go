// Package signal holds the value objects exchanged with the recommendation
// signal service: tags, profiles, locations, geo payloads, and responses.
package signal

import "github.com/goccy/go-json"

// Well-known interaction labels.
const (
	LabelBuy     = "buy"
	LabelLike    = "like"
	LabelSell    = "sell"
	LabelView    = "view"
	LabelClick   = "click"
	LabelUpload  = "upload"
	LabelComment = "comment"
	LabelMessage = "message"

	LabelSearchClick      = "search-click"
	LabelSearchConversion = "search-conversion"
)

// Tag is an outbound signal derived from one resolved attribute value.
// Duplicates are permitted and meaningful: repeated evidence.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Desc string `json:"desc"`
}

// JSON returns the tag's canonical JSON form, used for profile identities.
func (t Tag) JSON() string {
	b, _ := json.Marshal(t)
	return string(b)
}

// Profile is an opaque identity token for the acting subject. Secure
// profiles have their ID digested by the client before transmission.
type Profile struct {
	Name   string `json:"name"`
	ID     string `json:"id"`
	Secure bool   `json:"secure,omitempty"`
}

// NewProfile creates a plain profile.
func NewProfile(name, id string) Profile {
	return Profile{Name: name, ID: id}
}

// NewSecureProfile creates a profile whose ID is digested on transmission.
func NewSecureProfile(name, id string) Profile {
	return Profile{Name: name, ID: id, Secure: true}
}

// Location describes where an interaction happened.
type Location struct {
	URL       string `json:"url"`
	IP        string `json:"ip,omitempty"`
	OS        string `json:"os,omitempty"`
	Referer   string `json:"referer,omitempty"`
	Useragent string `json:"useragent,omitempty"`
}

// Geo is an opaque geographical payload passed through unchanged.
type Geo string

// Response is the signal service reply. Body maps a namespaced label to
// "<field>:<value>" composite keys with probabilities. Read-only.
type Response struct {
	Success bool                          `json:"success"`
	Status  int                           `json:"status"`
	Message string                        `json:"message,omitempty"`
	Body    map[string]map[string]float64 `json:"body,omitempty"`
}
