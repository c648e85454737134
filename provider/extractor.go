package provider

import (
	"regexp"
	"sort"

	"github.com/hxlong2024/LinkChanger/internal"
	"github.com/hxlong2024/LinkChanger/utils"
)

var (
	quarkLinkPattern = regexp.MustCompile(`https://pan\.quark\.cn/s/[a-zA-Z0-9]+(?:\?pwd=[a-zA-Z0-9]+)?`)
	baiduLinkPattern = regexp.MustCompile(`https?://pan\.baidu\.com/s/[a-zA-Z0-9_\-]+(?:\?pwd=[a-zA-Z0-9]+)?`)

	// Baidu shares often carry the passcode as loose text after the
	// link instead of a pwd query parameter.
	trailingPasscodePattern = regexp.MustCompile(`^(?:\s*(?:提取码|密码|访问码)[:：]?\s*|\s+)([a-zA-Z0-9]{4})\b`)
)

// RegexExtractor finds supported share links in free-form text and
// records their byte spans so replacements can be stitched back in
// without touching the surrounding prose.
type RegexExtractor struct{}

// NewExtractor returns the default link extractor.
func NewExtractor() *RegexExtractor {
	return &RegexExtractor{}
}

// Extract returns every share link found in text, ordered by position.
// Overlapping matches never occur because the two patterns target
// disjoint hosts.
func (e *RegexExtractor) Extract(text string) []internal.Match {
	var matches []internal.Match

	for _, span := range quarkLinkPattern.FindAllStringIndex(text, -1) {
		matched := text[span[0]:span[1]]
		matches = append(matches, internal.Match{
			Provider:    internal.ProviderQuark,
			MatchedText: matched,
			URL:         matched,
			Password:    utils.QueryPassword(matched),
			Start:       span[0],
			End:         span[1],
		})
	}

	for _, span := range baiduLinkPattern.FindAllStringIndex(text, -1) {
		matched := text[span[0]:span[1]]
		password := utils.QueryPassword(matched)
		if password == "" {
			if m := trailingPasscodePattern.FindStringSubmatch(text[span[1]:]); m != nil {
				password = m[1]
			}
		}
		matches = append(matches, internal.Match{
			Provider:    internal.ProviderBaidu,
			MatchedText: matched,
			URL:         matched,
			Password:    password,
			Start:       span[0],
			End:         span[1],
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Start < matches[j].Start
	})

	return matches
}
