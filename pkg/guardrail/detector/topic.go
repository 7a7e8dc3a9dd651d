package detector

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/PromptSentinel/SentinelGate/pkg/domain/guardrail"
)

// Topic blocks case-insensitive whole-word matches against a configured
// phrase block list. The text is never altered.
type Topic struct {
	pattern   *regexp.Regexp
	maxPhrase int
}

func NewTopic(settings guardrail.TopicsSettings) *Topic {
	d := &Topic{}
	if len(settings.BlockList) == 0 {
		return d
	}
	escaped := make([]string, len(settings.BlockList))
	for i, phrase := range settings.BlockList {
		escaped[i] = regexp.QuoteMeta(phrase)
		if len(phrase) > d.maxPhrase {
			d.maxPhrase = len(phrase)
		}
	}
	d.pattern = regexp.MustCompile(`(?i)\b(` + strings.Join(escaped, "|") + `)\b`)
	return d
}

func (d *Topic) Kind() guardrail.Kind { return guardrail.KindTopics }
func (d *Topic) Mode() guardrail.Mode { return guardrail.ModeBlock }

// MaxPhraseLength is the longest configured phrase, used by the streaming
// sanitizer to size its release watermark.
func (d *Topic) MaxPhraseLength() int { return d.maxPhrase }

func (d *Topic) Inspect(_ context.Context, text string) (string, []guardrail.Finding, error) {
	if d.pattern == nil {
		return text, nil, nil
	}
	matches := d.pattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return text, nil, nil
	}

	seen := make(map[string]struct{}, len(matches))
	unique := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		unique = append(unique, m)
	}
	sort.Strings(unique)

	finding := guardrail.Finding{
		Detector: guardrail.KindTopics,
		Rule:     "Topic:" + strings.Join(unique, ","),
		Mode:     guardrail.ModeBlock,
	}
	return text, []guardrail.Finding{finding}, nil
}
