package analyzer

import (
	"encoding/json"
	"fmt"
)

// KeywordCount is one (word, frequency) pair. It marshals as a two
// element array, `["word", count]`, which is the wire shape consumers
// of the report expect.
type KeywordCount struct {
	Word  string
	Count int
}

// MarshalJSON renders the pair as ["word", count].
func (k KeywordCount) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{k.Word, k.Count})
}

// UnmarshalJSON parses the ["word", count] pair form.
func (k *KeywordCount) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if err := json.Unmarshal(pair[0], &k.Word); err != nil {
		return fmt.Errorf("keyword word: %w", err)
	}
	if err := json.Unmarshal(pair[1], &k.Count); err != nil {
		return fmt.Errorf("keyword count: %w", err)
	}
	return nil
}

// MetaInfo holds the basic meta tags of the page. Missing tags are
// empty strings, never an error.
type MetaInfo struct {
	Title       string `json:"title"`
	Keywords    string `json:"keywords"`
	Description string `json:"description"`
}

// ServerInfo describes the transport and server-side facts of the fetch.
type ServerInfo struct {
	Protocol         string `json:"protocol"`
	PageType         string `json:"page_type"`
	Server           string `json:"server"`
	Compressed       string `json:"compressed"`
	OriginalSize     string `json:"original_size"`
	CompressedSize   string `json:"compressed_size"`
	CompressionRatio string `json:"compression_ratio"`
}

// DomainInfo holds the DNS, WHOIS and ranking facts for the domain.
// Unavailable lookups are represented by documented placeholders.
type DomainInfo struct {
	IP          string `json:"ip"`
	DomainAge   string `json:"domain_age"`
	Expire      string `json:"expire"`
	TrafficRank string `json:"traffic_rank"`
	HTTPS       bool   `json:"https"`
	Redirected  bool   `json:"redirected"`
}

// Report is the full analysis result for one URL. On an unrecoverable
// failure Error is set and every other field is present but zeroed, so
// the output shape stays stable for consumers.
type Report struct {
	Error         string              `json:"error,omitempty"`
	Keywords      []KeywordCount      `json:"keywords"`
	Meta          MetaInfo            `json:"meta"`
	SEOScore      int                 `json:"seo_score"`
	Server        ServerInfo          `json:"server"`
	Info          DomainInfo          `json:"info"`
	Summary       string              `json:"summary"`
	ExternalLinks []string            `json:"external_links"`
	Subdomains    []string            `json:"subdomains"`
	Technologies  map[string][]string `json:"technologies,omitempty"`
}

// errorReport builds the error-shaped report returned when the pipeline
// cannot produce an analysis.
func errorReport(message string) *Report {
	return &Report{
		Error:         message,
		Keywords:      []KeywordCount{},
		ExternalLinks: []string{},
		Subdomains:    []string{},
	}
}
