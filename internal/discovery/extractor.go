// Package discovery finds same-domain links and HTML forms on fetched pages and
// keeps track of which URLs a crawl has already visited.
package discovery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"formprobe/internal/models"
	"formprobe/internal/requester"
	"formprobe/internal/util"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

// Fetcher is the HTTP capability the extractor needs.
type Fetcher interface {
	Get(ctx context.Context, urlStr string, headers http.Header) (requester.Response, error)
}

// Page is the result of fetching and parsing one URL. When Err is set, Links and
// Forms are empty and Status is zero; callers treat that as "no data".
type Page struct {
	URL    string
	Status int
	Links  []string
	Forms  []models.Endpoint
	Err    error
}

// Extractor fetches pages and pulls out same-domain links and forms.
type Extractor struct {
	client  Fetcher
	domain  string
	headers http.Header
}

// NewExtractor creates an Extractor that keeps only links whose host equals domain.
func NewExtractor(client Fetcher, domain string) *Extractor {
	return &Extractor{
		client:  client,
		domain:  domain,
		headers: http.Header{"Accept": {"text/html,application/xhtml+xml;q=0.9,*/*;q=0.8"}},
	}
}

// Fetch retrieves pageURL and extracts its links and forms. Transport and parse
// failures are reported in Page.Err and never returned as partial data.
func (e *Extractor) Fetch(ctx context.Context, pageURL string) Page {
	page := Page{URL: pageURL}

	base, err := url.Parse(pageURL)
	if err != nil {
		page.Err = fmt.Errorf("invalid page URL: %w", err)
		return page
	}

	resp, err := e.client.Get(ctx, pageURL, e.headers.Clone())
	if err != nil {
		page.Err = fmt.Errorf("failed to get URL: %w", err)
		return page
	}

	links, forms, err := ParsePage(base, e.domain, strings.NewReader(resp.Body))
	if err != nil {
		page.Err = fmt.Errorf("failed to parse page: %w", err)
		return page
	}

	page.Status = resp.Status
	page.Links = links
	page.Forms = forms
	log.Debug().Str("url", pageURL).Int("status", resp.Status).Int("links", len(links)).Int("forms", len(forms)).Msg("Extracted page")
	return page
}

// ParsePage extracts same-domain anchor targets and every form from body. Links are
// absolute, fragment-free and in document order without repeats; forms are in
// document order.
func ParsePage(pageURL *url.URL, domain string, body io.Reader) ([]string, []models.Endpoint, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, nil, err
	}
	return extractLinks(doc, pageURL, domain), extractForms(doc, pageURL), nil
}

func extractLinks(doc *goquery.Document, pageURL *url.URL, domain string) []string {
	links := []string{}
	seen := make(map[string]struct{})

	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		resolved := util.ResolveURL(pageURL, href)
		if resolved == nil || !util.SameHost(domain, resolved) {
			return
		}
		link := util.SanitizeURL(resolved).String()
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	})
	return links
}

func extractForms(doc *goquery.Document, pageURL *url.URL) []models.Endpoint {
	forms := []models.Endpoint{}

	doc.Find("form").Each(func(i int, form *goquery.Selection) {
		action := pageURL
		if raw, ok := form.Attr("action"); ok && strings.TrimSpace(raw) != "" {
			rel, err := url.Parse(strings.TrimSpace(raw))
			if err != nil {
				log.Debug().Str("action", raw).Err(err).Msg("Skipping form with unparsable action")
				return
			}
			action = pageURL.ResolveReference(rel)
		}

		method, _ := form.Attr("method")
		method = strings.ToUpper(strings.TrimSpace(method))
		if method != http.MethodPost {
			method = http.MethodGet
		}

		inputs := []models.Input{}
		form.Find("input, textarea, select").Each(func(j int, control *goquery.Selection) {
			name, _ := control.Attr("name")
			if name == "" {
				return
			}
			inputs = append(inputs, controlInput(control, name))
		})

		forms = append(forms, models.Endpoint{
			Action: action.String(),
			Method: method,
			Inputs: inputs,
		})
	})
	return forms
}

func controlInput(control *goquery.Selection, name string) models.Input {
	tag := goquery.NodeName(control)
	in := models.Input{Name: name}

	switch tag {
	case "textarea":
		in.Type = "textarea"
		in.Value = control.Text()
	case "select":
		in.Type = "select"
		option := control.Find("option[selected]").First()
		if option.Length() == 0 {
			option = control.Find("option").First()
		}
		if v, ok := option.Attr("value"); ok {
			in.Value = v
		} else {
			in.Value = strings.TrimSpace(option.Text())
		}
	default:
		in.Type = strings.ToLower(control.AttrOr("type", "text"))
		if in.Type == "" {
			in.Type = "text"
		}
		in.Value = control.AttrOr("value", "")
	}
	return in
}
