// Package lead defines the lead record shared by every extraction path
// and the completeness score attached to it.
package lead

import "encoding/json"

// Lead is one prospective contact recovered from a document.
// Empty strings mean the field was not found.
type Lead struct {
	Name           string            `json:"name"`
	Company        string            `json:"company"`
	Title          string            `json:"title"`
	Email          string            `json:"email"`
	Phone          string            `json:"phone"`
	Address        string            `json:"address"`
	Industry       string            `json:"industry"`
	Website        string            `json:"website"`
	SocialMedia    map[string]string `json:"social_media"`
	AdditionalInfo string            `json:"additional_info"`
}

// HasContact reports whether the lead carries a name, email or phone.
func (l Lead) HasContact() bool {
	return l.Name != "" || l.Email != "" || l.Phone != ""
}

// IsEmpty reports whether no field is populated.
func (l Lead) IsEmpty() bool {
	return !l.HasContact() &&
		l.Company == "" && l.Title == "" && l.Address == "" &&
		l.Industry == "" && l.Website == "" && len(l.SocialMedia) == 0 &&
		l.AdditionalInfo == ""
}

// Page is one rasterized page image on disk. Index is the 0-based
// position in the source document.
type Page struct {
	Index int
	Path  string
}

// ScoredLead is a Lead with its confidence in [0,1].
type ScoredLead struct {
	Lead
	Confidence float64 `json:"confidence"`
}

// wireLead is the JSON shape: absent fields encode as null.
type wireLead struct {
	Name           *string           `json:"name"`
	Company        *string           `json:"company"`
	Title          *string           `json:"title"`
	Email          *string           `json:"email"`
	Phone          *string           `json:"phone"`
	Address        *string           `json:"address"`
	Industry       *string           `json:"industry"`
	Website        *string           `json:"website"`
	SocialMedia    map[string]string `json:"social_media"`
	AdditionalInfo *string           `json:"additional_info"`
	Confidence     *float64          `json:"confidence,omitempty"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (l Lead) wire() wireLead {
	w := wireLead{
		Name:           optional(l.Name),
		Company:        optional(l.Company),
		Title:          optional(l.Title),
		Email:          optional(l.Email),
		Phone:          optional(l.Phone),
		Address:        optional(l.Address),
		Industry:       optional(l.Industry),
		Website:        optional(l.Website),
		AdditionalInfo: optional(l.AdditionalInfo),
	}
	if len(l.SocialMedia) > 0 {
		w.SocialMedia = l.SocialMedia
	}
	return w
}

// MarshalJSON encodes absent fields as null.
func (l Lead) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.wire())
}

// MarshalJSON encodes the lead fields flat alongside confidence.
func (s ScoredLead) MarshalJSON() ([]byte, error) {
	w := s.Lead.wire()
	c := s.Confidence
	w.Confidence = &c
	return json.Marshal(w)
}
