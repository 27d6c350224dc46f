package automod

import (
	"embed"
	"log"
	"regexp"
	"strings"
	"sync"

	"github.com/goccy/go-json"
)

var (
	// Global instance for reuse (thread-safe)
	defaultFilter *Filter
	once          sync.Once

	separators = regexp.MustCompile(`[\s_.\-*/\\]+`)
)

//go:embed rules.json
var rulesData embed.FS

type Rule struct {
	Reason string   `json:"reason"`
	Terms  []string `json:"terms"`
}

func LoadRules() []Rule {
	data, err := rulesData.ReadFile("rules.json")
	if err != nil {
		log.Fatalf("Failed to read embedded file: %s", err)
	}

	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		log.Fatalf("Failed to unmarshal JSON: %s", err)
	}
	return rules
}

type compiledRule struct {
	reason string
	regex  *regexp.Regexp
}

// Filter flags hateful or abusive chat text. It never blocks a message, it
// only says why the message should be reviewed.
type Filter struct {
	rules []compiledRule
}

func Default() *Filter {
	once.Do(func() {
		defaultFilter = NewFilter(LoadRules())
	})

	return defaultFilter
}

func NewFilter(rules []Rule) *Filter {
	f := &Filter{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		if re := buildRuleRegex(r.Terms); re != nil {
			f.rules = append(f.rules, compiledRule{reason: r.Reason, regex: re})
		}
	}
	return f
}

// Reason returns why text is flagged, or "" when it is clean.
func (f *Filter) Reason(text string) string {
	if text == "" {
		return ""
	}

	normalized := normalizeText(text)
	for _, r := range f.rules {
		if r.regex.MatchString(normalized) {
			return r.reason
		}
	}
	return ""
}

func ContainsHateSpeech(text string) bool {
	return Default().Reason(text) != ""
}

// GetReason returns the automod reason for text, or "" when clean.
func GetReason(text string) string {
	return Default().Reason(text)
}

func normalizeText(text string) string {
	s := strings.ToLower(text)
	s = strings.Map(func(r rune) rune {
		switch r {
		case 'á', 'à', 'â', 'ä', 'ã', 'å':
			return 'a'
		case 'é', 'è', 'ê', 'ë':
			return 'e'
		case 'í', 'ì', 'î', 'ï':
			return 'i'
		case 'ó', 'ò', 'ô', 'ö', 'õ':
			return 'o'
		case 'ú', 'ù', 'û', 'ü':
			return 'u'
		case 'ñ':
			return 'n'
		case 'ç':
			return 'c'
		default:
			return r
		}
	}, s)

	// Replace common leetspeak in one pass
	s = strings.NewReplacer(
		"@", "a", "4", "a",
		"3", "e", "€", "e",
		"1", "i", "¡", "i",
		"0", "o", "()", "o", "[]", "o",
		"$", "s", "5", "s", "z", "s",
		"7", "t", "+", "t",
		"ph", "f",
		"ck", "k", "kk", "k",
	).Replace(s)

	return separators.ReplaceAllString(s, " ")
}

// buildRuleRegex matches any term with repeated letters and separators
// inside words: "k.y.s", "kyyys", "k y s".
func buildRuleRegex(terms []string) *regexp.Regexp {
	patterns := make([]string, 0, len(terms))

	for _, term := range terms {
		words := strings.Fields(normalizeText(term))
		if len(words) == 0 {
			continue
		}

		wordPatterns := make([]string, 0, len(words))
		for _, w := range words {
			letters := make([]string, 0, len(w))
			for _, r := range w {
				letters = append(letters, regexp.QuoteMeta(string(r))+"+")
			}
			wordPatterns = append(wordPatterns, strings.Join(letters, `[^\p{L}]*`))
		}
		patterns = append(patterns, strings.Join(wordPatterns, `[^\p{L}]+`))
	}

	if len(patterns) == 0 {
		return nil
	}

	return regexp.MustCompile(`(?:^|[^\p{L}])(?:` + strings.Join(patterns, "|") + `)(?:$|[^\p{L}])`)
}
