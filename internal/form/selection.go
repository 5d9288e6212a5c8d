package form

import (
	"encoding/json"

	"medcert-apply/internal/catalog"
)

// Selection is either a listed option (Known) or the "Other" option with the
// user's free text. The zero value means nothing is selected.
type Selection struct {
	value string
	other bool
}

func Known(value string) Selection {
	if value == catalog.OtherOption {
		return Other("")
	}
	return Selection{value: value}
}

func Other(text string) Selection {
	return Selection{value: text, other: true}
}

func (s Selection) IsOther() bool { return s.other }

// Choice is the option the user picked: the listed value or "Other".
func (s Selection) Choice() string {
	if s.other {
		return catalog.OtherOption
	}
	return s.value
}

// Override is the free text for an "Other" selection.
func (s Selection) Override() string {
	if !s.other {
		return ""
	}
	return s.value
}

// Value is the effective answer: the listed value or the free text.
func (s Selection) Value() string { return s.value }

type selectionJSON struct {
	Value string `json:"value"`
	Other bool   `json:"other"`
}

func (s Selection) MarshalJSON() ([]byte, error) {
	return json.Marshal(selectionJSON{Value: s.value, Other: s.other})
}

func (s *Selection) UnmarshalJSON(data []byte) error {
	var raw selectionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Other {
		*s = Other(raw.Value)
	} else {
		*s = Known(raw.Value)
	}
	return nil
}
