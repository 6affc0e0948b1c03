package domain

import (
	"encoding/json"
	"slices"
	"strings"
)

// GameConfig is the configuration snapshot captured when a game is created.
// The zero value is Unrestricted.
type GameConfig struct {
	restricted   bool
	allowedSets  []string
	includeNoSet bool
}

// Unrestricted is the legacy configuration: every character is eligible.
func Unrestricted() GameConfig {
	return GameConfig{}
}

// RestrictedTo limits candidates to members of setIDs, plus characters with
// no set at all when includeNoSet is true.
func RestrictedTo(setIDs []string, includeNoSet bool) GameConfig {
	ids := make([]string, 0, len(setIDs))
	for _, id := range setIDs {
		id = strings.TrimSpace(id)
		if id == "" || slices.Contains(ids, id) {
			continue
		}
		ids = append(ids, id)
	}
	return GameConfig{
		restricted:   true,
		allowedSets:  ids,
		includeNoSet: includeNoSet,
	}
}

func (c GameConfig) IsUnrestricted() bool {
	return !c.restricted
}

func (c GameConfig) AllowedSets() []string {
	return slices.Clone(c.allowedSets)
}

func (c GameConfig) IncludeNoSet() bool {
	return c.includeNoSet
}

// ExcludesEverything is true when no character can ever qualify: a
// restriction to zero sets that also leaves out set-less characters.
func (c GameConfig) ExcludesEverything() bool {
	return c.restricted && len(c.allowedSets) == 0 && !c.includeNoSet
}

type gameConfigJSON struct {
	AllowedSets  []string `json:"allowedSets"`
	IncludeNoSet FlexBool `json:"includeNoSet"`
}

// MarshalJSON writes allowedSets as null for Unrestricted configs.
func (c GameConfig) MarshalJSON() ([]byte, error) {
	out := gameConfigJSON{IncludeNoSet: FlexBool(c.includeNoSet)}
	if c.restricted {
		out.AllowedSets = c.AllowedSets()
	}
	return json.Marshal(out)
}

// UnmarshalJSON treats a missing or null allowedSets as Unrestricted and an
// explicit list, even an empty one, as a restriction.
func (c *GameConfig) UnmarshalJSON(data []byte) error {
	var raw struct {
		AllowedSets  *[]string `json:"allowedSets"`
		IncludeNoSet *FlexBool `json:"includeNoSet"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	includeNoSet := true
	if raw.IncludeNoSet != nil {
		includeNoSet = bool(*raw.IncludeNoSet)
	}
	if raw.AllowedSets == nil {
		*c = GameConfig{includeNoSet: includeNoSet}
		return nil
	}
	*c = RestrictedTo(*raw.AllowedSets, includeNoSet)
	return nil
}

// FlexBool accepts both JSON booleans and the legacy "true"/"false" strings.
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = FlexBool(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*b = FlexBool(ParseLegacyBool(s, false))
	return nil
}

// ParseLegacyBool reads the text booleans older rows were stored with.
func ParseLegacyBool(raw string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "t", "1", "yes", "on":
		return true
	case "false", "f", "0", "no", "off":
		return false
	default:
		return fallback
	}
}
