package theme

import (
	"bytes"
	"encoding/json"
)

// Declarations holds the CSS-like properties one style option may set. Values
// are kept as decoded from JSON (usually strings, sometimes numbers) and are
// only turned into text when the stylesheet is written.
type Declarations struct {
	FontSize        any `json:"fontSize,omitempty"`
	Color           any `json:"color,omitempty"`
	FontFamily      any `json:"fontFamily,omitempty"`
	BackgroundColor any `json:"backgroundColor,omitempty"`
	BorderColor     any `json:"borderColor,omitempty"`
	BorderWidth     any `json:"borderWidth,omitempty"`
	BorderRadius    any `json:"borderRadius,omitempty"`
	BoxShadow       any `json:"boxShadow,omitempty"`
}

// StyleOptions is the meta.styles object of a content document. Each key
// targets one fixed selector.
type StyleOptions struct {
	PageTitle     *Declarations `json:"pageTitle,omitempty"`
	PageSubtitle  *Declarations `json:"pageSubtitle,omitempty"`
	CardSection   *Declarations `json:"cardSection,omitempty"`
	CardTitle     *Declarations `json:"cardTitle,omitempty"`
	CardTagline   *Declarations `json:"cardTagline,omitempty"`
	CardPoint     *Declarations `json:"cardPoint,omitempty"`
	CardContainer *Declarations `json:"cardContainer,omitempty"`
}

// UnmarshalJSON decodes the known keys and ignores entries that are not
// objects, so a malformed style never rejects the whole document.
func (s *StyleOptions) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// Not an object: no styles.
		*s = StyleOptions{}
		return nil
	}

	fields := map[string]**Declarations{
		"pageTitle":     &s.PageTitle,
		"pageSubtitle":  &s.PageSubtitle,
		"cardSection":   &s.CardSection,
		"cardTitle":     &s.CardTitle,
		"cardTagline":   &s.CardTagline,
		"cardPoint":     &s.CardPoint,
		"cardContainer": &s.CardContainer,
	}
	for key, dst := range fields {
		*dst = decodeDeclarations(raw[key])
	}
	return nil
}

func decodeDeclarations(raw json.RawMessage) *Declarations {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	var d Declarations
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil
	}
	return &d
}

// Empty reports whether no style key is set.
func (s *StyleOptions) Empty() bool {
	return s == nil || (s.PageTitle == nil && s.PageSubtitle == nil &&
		s.CardSection == nil && s.CardTitle == nil && s.CardTagline == nil &&
		s.CardPoint == nil && s.CardContainer == nil)
}
