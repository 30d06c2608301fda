package matsubo

import (
	"slices"
	"strings"
)

// Topic is a label from the fixed vocabulary destinations subscribe to.
type Topic string

const (
	TopicChubu    Topic = "Chubu"
	TopicChugoku  Topic = "Chugoku"
	TopicHokkaido Topic = "Hokkaido"
	TopicKansai   Topic = "Kansai"
	TopicKanto    Topic = "Kanto"
	TopicKyushu   Topic = "Kyushu"
	TopicOkinawa  Topic = "Okinawa"
	TopicShikoku  Topic = "Shikoku"
	TopicTohoku   Topic = "Tohoku"
)

// Topics is the whole vocabulary in display order.
var Topics = []Topic{
	TopicChubu,
	TopicChugoku,
	TopicHokkaido,
	TopicKansai,
	TopicKanto,
	TopicKyushu,
	TopicOkinawa,
	TopicShikoku,
	TopicTohoku,
}

// topicAll expands to every topic when parsing user input.
const topicAll = "all"

// LookupTopic matches s case-insensitively against the vocabulary.
func LookupTopic(s string) (Topic, bool) {
	s = strings.TrimSpace(s)
	for _, t := range Topics {
		if strings.EqualFold(string(t), s) {
			return t, true
		}
	}
	return "", false
}

// ParseTopics splits user tokens into recognized topics and the rejected
// tokens. The recognized set is deduplicated and sorted.
func ParseTopics(tokens []string) (topics []Topic, invalid []string) {
	for _, tok := range tokens {
		if strings.EqualFold(strings.TrimSpace(tok), topicAll) {
			topics = append(topics, Topics...)
			continue
		}
		t, ok := LookupTopic(tok)
		if !ok {
			invalid = append(invalid, tok)
			continue
		}
		topics = append(topics, t)
	}
	return NormalizeTopics(topics), invalid
}

// NormalizeTopics returns a sorted copy without duplicates.
func NormalizeTopics(topics []Topic) []Topic {
	out := slices.Clone(topics)
	slices.Sort(out)
	return slices.Compact(out)
}

// JoinTopics renders topics as a comma-separated list.
func JoinTopics(topics []Topic) string {
	strs := make([]string, 0, len(topics))
	for _, t := range topics {
		strs = append(strs, string(t))
	}
	return strings.Join(strs, ", ")
}
