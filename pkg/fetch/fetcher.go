package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"site-analyzer/pkg/utils"
)

// Link is one hyperlink discovered on a page, resolved to an absolute URL.
type Link struct {
	URL      string `json:"url"`
	Text     string `json:"text,omitempty"`
	Internal bool   `json:"internal"` // Same host as the page it was found on
}

// PageData is the successful outcome of fetching a single page.
type PageData struct {
	URL      string            // Final URL after redirects
	HTML     string            // Raw markup
	Content  string            // Body converted to markdown
	Title    string
	Metadata map[string]string // title, description, keywords, og:*
	Links    []Link
}

// PageFetcher is the contract the orchestrator consumes. Implementations
// must apply the supplied user agent and must not retry or rate-limit;
// those are the orchestrator's responsibilities.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL, userAgent string) (*PageData, error)
}

// HTTPFetcher fetches pages over plain HTTP and extracts structured content.
type HTTPFetcher struct {
	client      *http.Client
	timeout     time.Duration
	maxPageSize int64
	log         *logrus.Entry
}

// NewHTTPFetcher creates an HTTPFetcher. timeout bounds a single fetch
// (including body read); maxPageSize caps the bytes read from a response.
func NewHTTPFetcher(client *http.Client, timeout time.Duration, maxPageSize int64, log *logrus.Entry) *HTTPFetcher {
	return &HTTPFetcher{
		client:      client,
		timeout:     timeout,
		maxPageSize: maxPageSize,
		log:         log,
	}
}

// mdHeadingRe finds markdown headings for title extraction.
var (
	mdH1Re      = regexp.MustCompile(`(?m)^# (.+)$`)
	mdHeadingRe = regexp.MustCompile(`(?m)^#+\s+(.+)$`)
)

// Fetch performs a single GET (no retries), parses the response, converts
// the body to markdown, and extracts title, metadata, and links.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL, userAgent string) (*PageData, error) {
	fetchLog := f.log.WithField("url", pageURL)

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if reqErr != nil {
		return nil, fmt.Errorf("%w: creating request for '%s': %w", utils.ErrRequestCreation, pageURL, reqErr)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, doErr := f.client.Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	statusCode := resp.StatusCode
	switch {
	case statusCode >= 200 && statusCode < 300:
		// Proceed
	case statusCode >= 500:
		return nil, fmt.Errorf("%w: status %d %s", utils.ErrServerHTTPError, statusCode, resp.Status)
	case statusCode >= 400:
		return nil, fmt.Errorf("%w: status %d %s", utils.ErrClientHTTPError, statusCode, resp.Status)
	default:
		return nil, fmt.Errorf("%w: status %d %s", utils.ErrOtherHTTPError, statusCode, resp.Status)
	}

	finalURL := resp.Request.URL
	if finalURL.String() != pageURL {
		fetchLog = fetchLog.WithField("final_url", finalURL.String())
		fetchLog.Debug("URL redirected")
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if contentType != "" && !strings.HasPrefix(contentType, "text/html") && !strings.HasPrefix(contentType, "application/xhtml+xml") {
		fetchLog.Warnf("Unexpected Content-Type '%s'. Proceeding with parsing attempt.", contentType)
	}

	// Read response body with size limit to prevent OOM on oversized pages
	limitedReader := io.LimitReader(resp.Body, f.maxPageSize+1)
	bodyBytes, readErr := io.ReadAll(limitedReader)
	if readErr != nil {
		return nil, fmt.Errorf("%w: reading body from '%s': %w", utils.ErrResponseBodyRead, finalURL.String(), readErr)
	}
	if int64(len(bodyBytes)) > f.maxPageSize {
		return nil, fmt.Errorf("%w: page '%s' exceeds max size (%d bytes)", utils.ErrResponseBodyRead, finalURL.String(), f.maxPageSize)
	}

	doc, parseErr := goquery.NewDocumentFromReader(bytes.NewReader(bodyBytes))
	if parseErr != nil {
		return nil, fmt.Errorf("%w: parsing HTML from '%s': %w", utils.ErrParsing, finalURL.String(), parseErr)
	}

	html := string(bodyBytes)

	converter := md.NewConverter("", true, nil)
	markdown, convertErr := converter.ConvertString(html)
	if convertErr != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrConversion, convertErr)
	}

	page := &PageData{
		URL:      finalURL.String(),
		HTML:     html,
		Content:  markdown,
		Title:    extractTitle(markdown, doc),
		Metadata: extractMetadata(doc),
		Links:    extractLinks(doc, finalURL),
	}

	fetchLog.WithFields(logrus.Fields{
		"content_length": len(page.Content),
		"links":          len(page.Links),
	}).Debug("Page fetched and extracted")

	return page, nil
}

// extractTitle prefers the first H1 of the converted markdown, then any
// markdown heading, then the <title> tag.
func extractTitle(markdown string, doc *goquery.Document) string {
	if m := mdH1Re.FindStringSubmatch(markdown); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := mdHeadingRe.FindStringSubmatch(markdown); m != nil {
		return strings.TrimSpace(m[1])
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return "Website Content"
}

// extractMetadata collects the document title, description, keywords, and
// OpenGraph properties.
func extractMetadata(doc *goquery.Document) map[string]string {
	metadata := make(map[string]string)

	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		metadata["title"] = t
	}

	doc.Find("meta").Each(func(_ int, sel *goquery.Selection) {
		content, hasContent := sel.Attr("content")
		if !hasContent || strings.TrimSpace(content) == "" {
			return
		}
		content = strings.TrimSpace(content)

		if name, ok := sel.Attr("name"); ok {
			switch strings.ToLower(name) {
			case "description":
				metadata["description"] = content
			case "keywords":
				metadata["keywords"] = content
			}
			return
		}
		if prop, ok := sel.Attr("property"); ok {
			prop = strings.ToLower(strings.TrimSpace(prop))
			if strings.HasPrefix(prop, "og:") {
				metadata[prop] = content
			}
		}
	})

	return metadata
}

// extractLinks resolves every anchor against the page's final URL, skipping
// fragments, javascript:, mailto: and other non-http(s) schemes. Duplicate
// targets are dropped, first occurrence wins.
func extractLinks(doc *goquery.Document, base *url.URL) []Link {
	var links []Link
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}

		linkURL, parseErr := base.Parse(href)
		if parseErr != nil {
			return
		}
		if linkURL.Scheme != "http" && linkURL.Scheme != "https" {
			return // mailto:, javascript:, tel:, etc.
		}

		absolute := linkURL.String()
		if seen[absolute] {
			return
		}
		seen[absolute] = true

		links = append(links, Link{
			URL:      absolute,
			Text:     strings.TrimSpace(sel.Text()),
			Internal: strings.EqualFold(linkURL.Hostname(), base.Hostname()),
		})
	})

	return links
}
