package screening

import (
	"strings"
	"unicode"

	"github.com/spigell/ai-interviewer/internal/session"
)

type nonBlankFilter struct{}

// NewNonBlank creates a filter that removes questions with empty text. Models
// occasionally emit placeholder entries when asked for a fixed batch size.
func NewNonBlank() Filter {
	return &nonBlankFilter{}
}

func (f *nonBlankFilter) Name() string { return "non_blank" }

func (f *nonBlankFilter) Apply(questions []session.Question) ([]session.Question, Step, error) {
	initial := len(questions)
	kept := questions[:0]
	for _, q := range questions {
		if strings.TrimSpace(q.Text) == "" {
			continue
		}
		kept = append(kept, q)
	}

	return kept, Step{Initial: initial, Dropped: initial - len(kept), Left: len(kept)}, nil
}

type dedupeFilter struct {
	seen map[string]struct{}
}

// NewDedupe creates a filter that removes questions repeating earlier ones.
// The asked list seeds the comparison set; duplicates within the batch itself
// are dropped as well. Comparison ignores case, punctuation and spacing.
func NewDedupe(asked []string) Filter {
	seen := make(map[string]struct{}, len(asked))
	for _, text := range asked {
		if key := normalize(text); key != "" {
			seen[key] = struct{}{}
		}
	}
	return &dedupeFilter{seen: seen}
}

func (f *dedupeFilter) Name() string { return "dedupe" }

func (f *dedupeFilter) Apply(questions []session.Question) ([]session.Question, Step, error) {
	initial := len(questions)
	kept := questions[:0]
	for _, q := range questions {
		key := normalize(q.Text)
		if _, ok := f.seen[key]; ok {
			continue
		}
		f.seen[key] = struct{}{}
		kept = append(kept, q)
	}

	return kept, Step{Initial: initial, Dropped: initial - len(kept), Left: len(kept)}, nil
}

func normalize(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if unicode.IsSpace(r) {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
