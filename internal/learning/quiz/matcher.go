package quiz

import (
	"strings"
	"unicode"
)

// Matcher picks the fallback topic for a transcript.
type Matcher struct {
	def    Topic
	topics []compiledTopic
}

type compiledTopic struct {
	topic    Topic
	keywords []string
}

func NewMatcher(b *Bank) *Matcher {
	m := &Matcher{def: b.Default, topics: make([]compiledTopic, 0, len(b.Topics))}
	for _, t := range b.Topics {
		ct := compiledTopic{topic: t}
		for _, kw := range t.Keywords {
			ct.keywords = append(ct.keywords, " "+normalize(kw))
		}
		m.topics = append(m.topics, ct)
	}
	return m
}

// Match returns the first topic, in bank order, with a keyword that starts a
// word of the transcript. Case is ignored. No match yields the default topic.
func (m *Matcher) Match(transcript string) Topic {
	text := " " + normalize(transcript)
	if strings.TrimSpace(text) == "" {
		return m.def
	}
	for _, ct := range m.topics {
		for _, kw := range ct.keywords {
			if strings.Contains(text, kw) {
				return ct.topic
			}
		}
	}
	return m.def
}

// normalize lowercases s and collapses every run of non-alphanumerics into
// one space, so "Node.js" and "node js" compare equal.
func normalize(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ")
}
