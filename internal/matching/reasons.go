package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"gorm.io/gorm"

	"github.com/grovehq/grove/internal/repository"
)

// FallbackReason is used when no concrete overlap between two profiles can
// be named.
const FallbackReason = "You share similar interests and values"

const maxReasons = 3

// minKeywordLen filters out short filler tokens; only words longer than four
// characters count as meaningful.
const minKeywordLen = 5

// stopwords that survive the length filter but explain nothing.
var stopwords = map[string]struct{}{
	"about": {}, "after": {}, "again": {}, "always": {}, "anything": {},
	"around": {}, "because": {}, "before": {}, "being": {}, "between": {},
	"could": {}, "currently": {}, "doing": {}, "every": {}, "everything": {},
	"interested": {}, "interests": {}, "learning": {}, "looking": {},
	"mostly": {}, "other": {}, "others": {}, "people": {}, "pretty": {},
	"really": {}, "recently": {}, "should": {}, "something": {}, "their": {},
	"there": {}, "these": {}, "things": {}, "those": {}, "through": {},
	"trying": {}, "usually": {}, "where": {}, "which": {}, "while": {},
	"working": {}, "would": {},
}

// ProfileReasonGenerator derives human-readable match explanations from the
// two users' profiles: a shared connection-type preference, a shared
// meaningful keyword across interests and current project, and a shared
// rabbit-hole keyword.
type ProfileReasonGenerator struct {
	users *repository.UserRepository
}

func NewProfileReasonGenerator(users *repository.UserRepository) *ProfileReasonGenerator {
	return &ProfileReasonGenerator{users: users}
}

// GenerateReasons emits up to three reasons, most specific first, falling
// back to a generic reason when no overlap can be named. A candidate without
// a profile gets the fallback; a missing source profile is an error.
func (g *ProfileReasonGenerator) GenerateReasons(ctx context.Context, sourceUserID, candidateID uint64) ([]string, error) {
	source, err := g.users.GetProfile(ctx, sourceUserID)
	if err != nil {
		return nil, fmt.Errorf("source profile for user %d: %w", sourceUserID, err)
	}

	candidate, err := g.users.GetProfile(ctx, candidateID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []string{FallbackReason}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("candidate profile for user %d: %w", candidateID, err)
	}

	var reasons []string

	if ct := strings.TrimSpace(source.ConnectionType); ct != "" &&
		strings.EqualFold(ct, strings.TrimSpace(candidate.ConnectionType)) {
		reasons = append(reasons, fmt.Sprintf("You're both seeking %s", strings.ToLower(ct)))
	}

	srcTokens := keywords(source.Interests + " " + source.CurrentProject)
	candSet := keywordSet(candidate.Interests + " " + candidate.CurrentProject)
	if kw := firstShared(srcTokens, candSet); kw != "" {
		reasons = append(reasons, fmt.Sprintf("You both mentioned %s", kw))
	}

	if source.RabbitHole != "" && candidate.RabbitHole != "" {
		if kw := firstShared(keywords(source.RabbitHole), keywordSet(candidate.RabbitHole)); kw != "" {
			reasons = append(reasons, fmt.Sprintf("You're both exploring %s", kw))
		}
	}

	if len(reasons) == 0 {
		reasons = append(reasons, FallbackReason)
	}
	if len(reasons) > maxReasons {
		reasons = reasons[:maxReasons]
	}
	return reasons, nil
}

// keywords tokenizes text into lowercase meaningful words, preserving first
// occurrence order.
func keywords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(fields))
	var out []string
	for _, w := range fields {
		if len(w) < minKeywordLen {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

func keywordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range keywords(text) {
		set[w] = struct{}{}
	}
	return set
}

// firstShared returns the first token of ordered that is present in set.
func firstShared(ordered []string, set map[string]struct{}) string {
	for _, w := range ordered {
		if _, ok := set[w]; ok {
			return w
		}
	}
	return ""
}
