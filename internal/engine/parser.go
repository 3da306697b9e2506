package engine

import (
	"fmt"
	"regexp"
	"strings"
)

// ActionParser extracts an action label from free-form agent output.
type ActionParser interface {
	Parse(text string) (string, bool)
}

// XMLParser accepts exactly one <tag>...</tag> pair. Replies with several
// tags are rejected as hallucinated multi-action output.
type XMLParser struct {
	Tag     string
	pattern *regexp.Regexp
}

func NewXMLParser(tag string) *XMLParser {
	if tag == "" {
		tag = "action"
	}
	quoted := regexp.QuoteMeta(tag)
	return &XMLParser{
		Tag:     tag,
		pattern: regexp.MustCompile(fmt.Sprintf(`(?is)<%s>(.*?)</%s>`, quoted, quoted)),
	}
}

func (p *XMLParser) Parse(text string) (string, bool) {
	matches := p.pattern.FindAllStringSubmatch(text, -1)
	if len(matches) != 1 {
		return "", false
	}
	value := strings.TrimSpace(matches[0][1])
	if value == "" {
		return "", false
	}
	return value, true
}

// KeywordParser takes the first standalone direction word in the text.
type KeywordParser struct{}

var directionWord = regexp.MustCompile(`(?i)\b(LEFT|RIGHT|UP|DOWN)\b`)

func (KeywordParser) Parse(text string) (string, bool) {
	m := directionWord.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.ToUpper(m[1]), true
}

// FormatReward is 1 when the parser finds an action in text, else 0.
func FormatReward(p ActionParser, text string) float64 {
	if _, ok := p.Parse(text); ok {
		return 1
	}
	return 0
}
