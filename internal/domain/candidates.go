package domain

// PlayedSet holds the character IDs already drawn in a game.
type PlayedSet map[string]struct{}

func (p PlayedSet) Has(id string) bool {
	_, ok := p[id]
	return ok
}

// SelectCandidates returns the characters still eligible in a game, in input
// order. Inputs are not modified.
func SelectCandidates(characters []Character, cfg GameConfig, played PlayedSet) []Character {
	out := make([]Character, 0, len(characters))
	if cfg.ExcludesEverything() {
		return out
	}

	allowed := make(map[string]struct{}, len(cfg.allowedSets))
	for _, id := range cfg.allowedSets {
		allowed[id] = struct{}{}
	}

	for _, character := range characters {
		if played.Has(character.ID) {
			continue
		}
		if cfg.restricted && !eligible(character, allowed, cfg.includeNoSet) {
			continue
		}
		out = append(out, character.Clone())
	}
	return out
}

func eligible(character Character, allowed map[string]struct{}, includeNoSet bool) bool {
	if len(allowed) > 0 && character.InAnySet(allowed) {
		return true
	}
	return includeNoSet && character.HasNoSet()
}
