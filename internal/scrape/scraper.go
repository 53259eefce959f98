// Package scrape fetches a provider's practice website and pulls out the
// contact details published there: practice name, phone, and address line.
// Self-reported data, so it is the weakest corroboration source.
package scrape

import (
	"context"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/caretide/provdir/internal/resilience"
)

// Contact holds what the scraper found on a practice site. Empty fields
// mean the page did not publish that detail.
type Contact struct {
	PracticeName string
	Phone        string
	AddressLine  string
}

// Scraper fetches practice websites via net/http.
type Scraper struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
}

// NewScraper creates a Scraper with sensible defaults.
func NewScraper(userAgent string, maxBodyBytes int64) *Scraper {
	if userAgent == "" {
		userAgent = "Mozilla/5.0 (compatible; ProvdirBot/1.0)"
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = 512 * 1024
	}
	return &Scraper{
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		userAgent:    userAgent,
		maxBodyBytes: maxBodyBytes,
	}
}

// Fetch retrieves a practice site and extracts contact details.
func (s *Scraper) Fetch(ctx context.Context, targetURL string) (*Contact, error) {
	if !strings.HasPrefix(targetURL, "http://") && !strings.HasPrefix(targetURL, "https://") {
		targetURL = "https://" + targetURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "scrape: create request")
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "scrape: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "scrape: read body")
	}

	if blocked, blockType := detectBlock(resp, body); blocked {
		return nil, eris.Errorf("scrape: blocked (%s)", blockType)
	}
	if resp.StatusCode >= 500 {
		return nil, resilience.NewTransientError(
			eris.Errorf("scrape: status %d", resp.StatusCode), resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("scrape: status %d", resp.StatusCode)
	}
	if len(body) < 100 {
		return nil, eris.New("scrape: empty page")
	}

	text := stripHTML(string(body))

	return &Contact{
		PracticeName: extractTitle(body),
		Phone:        extractPhone(text),
		AddressLine:  extractAddress(text),
	}, nil
}

var titleRe = regexp.MustCompile(`(?i)<title[^>]*>(.*?)</title>`)

// extractTitle pulls the <title>, dropping a trailing " | ..." or " - ..."
// site suffix.
func extractTitle(body []byte) string {
	m := titleRe.FindSubmatch(body)
	if len(m) < 2 {
		return ""
	}
	title := strings.TrimSpace(string(m[1]))
	for _, sep := range []string{" | ", " - ", " – "} {
		if i := strings.Index(title, sep); i > 0 {
			title = title[:i]
		}
	}
	return strings.TrimSpace(title)
}

var phoneRe = regexp.MustCompile(`(?:\+?1[\s.-]?)?\(?\d{3}\)?[\s.-]\d{3}[\s.-]\d{4}`)

// extractPhone finds the first US phone number in the page text.
func extractPhone(text string) string {
	return strings.TrimSpace(phoneRe.FindString(text))
}

var addressRe = regexp.MustCompile(`(?i)\d{1,5}\s+[\w.\- ]+?\s(?:street|st|avenue|ave|boulevard|blvd|drive|dr|road|rd|lane|ln|court|ct|place|pl|parkway|pkwy|way)\b\.?(?:\s*,?\s*(?:ste|suite|unit|fl|floor|apt)\.?\s*\w+)?(?:\s*,\s*[A-Za-z .]+,\s*[A-Z]{2}\s*\d{5}(?:-\d{4})?)?`)

// extractAddress finds the first street-address-shaped run in the page text.
func extractAddress(text string) string {
	return strings.TrimSpace(addressRe.FindString(text))
}

// detectBlock checks a response for anti-bot protection markers.
func detectBlock(resp *http.Response, body []byte) (bool, string) {
	if resp.StatusCode == 403 || resp.StatusCode == 503 {
		if resp.Header.Get("cf-ray") != "" || resp.Header.Get("server") == "cloudflare" {
			return true, "cloudflare"
		}
	}

	lower := strings.ToLower(string(body))
	if strings.Contains(lower, "captcha") || strings.Contains(lower, "checking your browser") {
		return true, "captcha"
	}
	return false, ""
}

// stripHTML removes scripts/styles/nav/footer, strips tags, decodes common
// entities, and collapses whitespace.
func stripHTML(html string) string {
	for _, tag := range []string{"script", "style", "nav", "footer"} {
		re := regexp.MustCompile(`(?is)<` + tag + `[^>]*>.*?</` + tag + `>`)
		html = re.ReplaceAllString(html, "")
	}

	html = regexp.MustCompile(`<[^>]+>`).ReplaceAllString(html, " ")

	html = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	).Replace(html)

	html = regexp.MustCompile(`[ \t]+`).ReplaceAllString(html, " ")
	html = regexp.MustCompile(`\n{3,}`).ReplaceAllString(html, "\n\n")

	return strings.TrimSpace(html)
}
