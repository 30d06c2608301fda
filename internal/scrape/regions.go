package scrape

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/jdholdren/matsubo/internal/matsubo"
)

// Regions maps a topic to the prefectures whose listing pages feed it.
type Regions map[matsubo.Topic][]string

// DefaultRegions leaves most of Kanto out since Tokyo Cheapo covers it.
var DefaultRegions = Regions{
	matsubo.TopicChubu:    {"Niigata", "Ishikawa", "Fukui", "Yamanashi", "Nagano", "Gifu", "Shizuoka", "Aichi"},
	matsubo.TopicChugoku:  {"Shimane", "Okayama", "Hiroshima", "Yamaguchi"},
	matsubo.TopicHokkaido: {"Hokkaido"},
	// Himeji and Kobe have pages too but are covered by Hyogo.
	matsubo.TopicKansai:  {"Mie", "Shiga", "Kyoto", "Osaka", "Hyogo", "Nara", "Wakayama"},
	matsubo.TopicKanto:   {"Tochigi"},
	matsubo.TopicKyushu:  {"Fukuoka", "Saga", "Nagasaki", "Kumamoto", "Oita", "Miyazaki"},
	matsubo.TopicOkinawa: {"Okinawa"},
	matsubo.TopicShikoku: {"Tokushima", "Kagawa"},
	matsubo.TopicTohoku:  {"Aomori", "Iwate", "Miyagi", "Akita", "Yamagata", "Fukushima"},
}

// Topics returns the topics present, in vocabulary order.
func (r Regions) Topics() []matsubo.Topic {
	var topics []matsubo.Topic
	for _, t := range matsubo.Topics {
		if _, ok := r[t]; ok {
			topics = append(topics, t)
		}
	}
	return topics
}

// LoadRegions reads a YAML file of topic to prefecture lists, e.g.
//
//	Kansai: [Osaka, Kyoto]
//	Okinawa: [Okinawa]
func LoadRegions(path string) (Regions, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading regions file: %w", err)
	}

	return ParseRegions(b)
}

// ParseRegions decodes the YAML form of Regions. Topic names are matched
// case-insensitively and must come from the vocabulary.
func ParseRegions(b []byte) (Regions, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("error decoding regions: %w", err)
	}

	regions := Regions{}
	for name, prefectures := range raw {
		topic, ok := matsubo.LookupTopic(name)
		if !ok {
			return nil, fmt.Errorf("unknown topic %q in regions", name)
		}
		regions[topic] = append(regions[topic], prefectures...)
		slices.Sort(regions[topic])
		regions[topic] = slices.Compact(regions[topic])
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("no regions defined")
	}

	return regions, nil
}
