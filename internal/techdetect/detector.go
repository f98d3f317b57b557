// Package techdetect fingerprints the technologies behind a fetched page
// (CMS, CDN, frameworks, server software) from its response headers and
// body using wappalyzergo.
package techdetect

import (
	"net/http"
	"sync"

	wappalyzer "github.com/projectdiscovery/wappalyzergo"
	"github.com/rs/zerolog/log"
)

// Detector identifies technologies used by an analysed page.
type Detector struct {
	client *wappalyzer.Wappalyze
}

// categoryNames maps wappalyzer category IDs to human-readable names.
var categoryNames map[int]string
var categoryNamesOnce sync.Once

// New creates a technology detector. The fingerprint database is
// embedded in wappalyzergo, so this needs no network access.
func New() (*Detector, error) {
	client, err := wappalyzer.New()
	if err != nil {
		return nil, err
	}

	categoryNamesOnce.Do(func() {
		categoryNames = make(map[int]string)
		for id, cat := range wappalyzer.GetCategoriesMapping() {
			categoryNames[id] = cat.Name
		}
	})

	return &Detector{client: client}, nil
}

// Detect returns technology name to category names (e.g. {"WordPress":
// ["CMS"]}) for the given response headers and body.
func (d *Detector) Detect(headers http.Header, body []byte) map[string][]string {
	technologies := make(map[string][]string)

	for tech, catInfo := range d.client.FingerprintWithCats(headers, body) {
		categories := make([]string, 0, len(catInfo.Cats))
		for _, catID := range catInfo.Cats {
			if name, ok := categoryNames[catID]; ok {
				categories = append(categories, name)
			}
		}
		technologies[tech] = categories
	}

	log.Debug().
		Int("tech_count", len(technologies)).
		Msg("Technology detection completed")

	return technologies
}
