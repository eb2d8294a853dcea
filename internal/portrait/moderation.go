package portrait

import (
	"strings"

	"server/internal/domain"
)

// Moderator is an optional policy hook run during request validation. A nil
// moderator disables content screening entirely.
type Moderator interface {
	Review(opts GenerationOptions) error
}

// KeywordModerator rejects requests whose free-text fields contain any term
// from a static blocklist.
type KeywordModerator struct {
	blocklist []string
}

var defaultBlockedTerms = []string{
	"nude", "naked", "nsfw", "explicit", "gore", "child", "minor", "underage",
}

// NewKeywordModerator builds a moderator over the given terms, falling back
// to the default blocklist when none are provided.
func NewKeywordModerator(terms ...string) *KeywordModerator {
	if len(terms) == 0 {
		terms = defaultBlockedTerms
	}
	lowered := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			lowered = append(lowered, t)
		}
	}
	return &KeywordModerator{blocklist: lowered}
}

// Review fulfils the Moderator interface.
func (m *KeywordModerator) Review(opts GenerationOptions) error {
	for _, field := range opts.FreeTextFields() {
		lowered := strings.ToLower(field)
		for _, term := range m.blocklist {
			if strings.Contains(lowered, term) {
				return domain.NewError(domain.ErrClassContentPolicy,
					"request contains disallowed content; please edit your description")
			}
		}
	}
	return nil
}

var _ Moderator = (*KeywordModerator)(nil)
