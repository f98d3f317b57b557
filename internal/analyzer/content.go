package analyzer

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const (
	// MaxKeywords is the number of top keywords reported.
	MaxKeywords = 20

	// MaxExternalLinks caps the external link list.
	MaxExternalLinks = 30

	// maxTitleLength is the SEO threshold for title length.
	maxTitleLength = 60
)

// wordPattern tokenizes the visible text into alphabetic words of at
// least four characters. Shorter words carry too little signal.
var wordPattern = regexp.MustCompile(`\b[a-z]{4,}\b`)

// contentAnalysis is the outcome of parsing the fetched HTML.
type contentAnalysis struct {
	keywords      []KeywordCount
	meta          MetaInfo
	seoScore      int
	externalLinks []string
}

// analyzeContent extracts keyword frequencies, meta tags, the heuristic
// SEO score and the external link list from the page HTML. Malformed or
// missing structure degrades to empty values, never to an error.
func analyzeContent(doc *goquery.Document, host string) contentAnalysis {
	meta := extractMeta(doc)

	return contentAnalysis{
		keywords:      extractKeywords(doc),
		meta:          meta,
		seoScore:      scoreSEO(doc, meta),
		externalLinks: extractExternalLinks(doc, host),
	}
}

// extractKeywords counts words of length >= 4 in the lower-cased page
// text and returns the top MaxKeywords by frequency. Ties keep
// first-occurrence order.
func extractKeywords(doc *goquery.Document) []KeywordCount {
	text := strings.ToLower(doc.Text())

	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	for i, word := range wordPattern.FindAllString(text, -1) {
		if _, seen := counts[word]; !seen {
			firstSeen[word] = i
		}
		counts[word]++
	}

	keywords := make([]KeywordCount, 0, len(counts))
	for word, count := range counts {
		keywords = append(keywords, KeywordCount{Word: word, Count: count})
	}

	sort.SliceStable(keywords, func(i, j int) bool {
		if keywords[i].Count != keywords[j].Count {
			return keywords[i].Count > keywords[j].Count
		}
		return firstSeen[keywords[i].Word] < firstSeen[keywords[j].Word]
	})

	if len(keywords) > MaxKeywords {
		keywords = keywords[:MaxKeywords]
	}
	return keywords
}

// extractMeta pulls the page title and the keywords/description meta
// tags. Absent tags yield empty strings.
func extractMeta(doc *goquery.Document) MetaInfo {
	meta := MetaInfo{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}

	if content, exists := doc.Find(`meta[name="keywords"]`).First().Attr("content"); exists {
		meta.Keywords = content
	}
	if content, exists := doc.Find(`meta[name="description"]`).First().Attr("content"); exists {
		meta.Description = content
	}
	return meta
}

// scoreSEO computes the heuristic on-page score: start at 100, deduct
// 10 for an over-long title, 10 for a missing description and 10 for a
// missing h1. The score is deliberately not clamped.
func scoreSEO(doc *goquery.Document, meta MetaInfo) int {
	score := 100
	// Title length is measured in characters, not bytes; multibyte
	// titles must not be penalised early.
	if utf8.RuneCountInString(meta.Title) > maxTitleLength {
		score -= 10
	}
	if meta.Description == "" {
		score -= 10
	}
	if doc.Find("h1").Length() == 0 {
		score -= 10
	}
	return score
}

// extractExternalLinks collects anchor hrefs that point off-site: any
// absolute http(s) URL not containing the current host. Document order
// is preserved and the list is capped at MaxExternalLinks.
func extractExternalLinks(doc *goquery.Document, host string) []string {
	links := make([]string, 0)

	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if !strings.HasPrefix(href, "http") {
			return true
		}
		if host != "" && strings.Contains(href, host) {
			return true
		}
		links = append(links, href)
		return len(links) < MaxExternalLinks
	})

	return links
}
