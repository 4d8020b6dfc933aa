package scrape

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Marker pairs a cheap substring test with the pattern that captures a key
// from the matching text.
type Marker struct {
	Name     string
	Contains string
	Pattern  *regexp.Regexp
}

var (
	APIKeyMarker = Marker{
		Name:     "api_key",
		Contains: "apiKey",
		Pattern:  regexp.MustCompile(`"apiKey":"([^"]+)"`),
	}
	ClientAPIKeyMarker = Marker{
		Name:     "client_api_key",
		Contains: "clientApiKey",
		Pattern:  regexp.MustCompile(`"clientApiKey":"([^"]+)"`),
	}
	OktaClientIDMarker = Marker{
		Name:     "okta_client_id",
		Contains: "clientId",
		Pattern:  regexp.MustCompile(`production:{clientId:"([^"]+)",`),
	}
)

// Find returns the first capture of m in text.
func (m Marker) Find(text string) (string, bool) {
	if !strings.Contains(text, m.Contains) {
		return "", false
	}
	match := m.Pattern.FindStringSubmatch(text)
	if len(match) < 2 || match[1] == "" {
		return "", false
	}
	return match[1], true
}

// ScriptKeys scans the text of every <script> element of an HTML page for
// the given markers. The returned map holds the keys that were found, by
// marker name; later scripts override earlier ones.
func ScriptKeys(html string, markers ...Marker) (map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	found := make(map[string]string, len(markers))
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		if text == "" {
			return
		}
		for _, m := range markers {
			if key, ok := m.Find(text); ok {
				found[m.Name] = key
			}
		}
	})
	return found, nil
}

// Missing lists the marker names absent from found.
func Missing(found map[string]string, markers ...Marker) []string {
	var missing []string
	for _, m := range markers {
		if found[m.Name] == "" {
			missing = append(missing, m.Name)
		}
	}
	return missing
}
