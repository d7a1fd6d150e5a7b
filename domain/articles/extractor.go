package articles

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// errPermanent marks failures that retrying cannot fix.
type errPermanent struct{ msg string }

func (e errPermanent) Error() string { return e.msg }

// IsPermanent reports whether err is a non-retryable fetch/extract
// failure.
func IsPermanent(err error) bool {
	var p errPermanent
	return errors.As(err, &p)
}

// Fetcher downloads article bodies with a redirect cap, a hard size
// limit and a content-type filter.
type Fetcher struct {
	http         *http.Client
	maxBodyBytes int64
}

// NewFetcher creates a Fetcher.
func NewFetcher(timeout time.Duration, maxBodyBytes int64) *Fetcher {
	return &Fetcher{
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return errPermanent{msg: "too many redirects"}
				}
				return nil
			},
		},
		maxBodyBytes: maxBodyBytes,
	}
}

// Fetch downloads the page at rawURL. 4xx responses and oversized or
// non-HTML bodies are permanent failures; network errors and 5xx are
// transient.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errPermanent{msg: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("User-Agent", "newsloom/1.0 (+https://github.com/newsloom/newsloom)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("fetch: status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, errPermanent{msg: fmt.Sprintf("fetch: status %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return nil, errPermanent{msg: fmt.Sprintf("fetch: unexpected status %d", resp.StatusCode)}
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err == nil && !isTextual(mediaType) {
			return nil, errPermanent{msg: fmt.Sprintf("fetch: unsupported content type %s", mediaType)}
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, errPermanent{msg: fmt.Sprintf("fetch: body exceeds %d bytes", f.maxBodyBytes)}
	}
	return body, nil
}

func isTextual(mediaType string) bool {
	switch mediaType {
	case "text/html", "application/xhtml+xml", "text/plain":
		return true
	}
	return false
}

// Extract pulls the readable title and body text out of an HTML page.
// readability does the heavy lifting; when it yields nothing usable
// the goquery fallback takes paragraph text directly.
func Extract(html []byte, pageURL string) (title, text string, err error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", "", errPermanent{msg: fmt.Sprintf("parse page url: %v", err)}
	}

	article, err := readability.FromReader(bytes.NewReader(html), u)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return article.Title, article.TextContent, nil
	}

	title, text, fbErr := extractFallback(html)
	if fbErr != nil {
		return "", "", errPermanent{msg: fmt.Sprintf("extract: %v", fbErr)}
	}
	return title, text, nil
}

func extractFallback(html []byte) (title, text string, err error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", "", err
	}

	doc.Find("script, style, nav, header, footer, aside").Remove()

	title = strings.TrimSpace(doc.Find("title").First().Text())
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && og != "" {
		title = og
	}

	var parts []string
	doc.Find("article p, main p, p").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		return title, strings.TrimSpace(doc.Find("body").Text()), nil
	}
	return title, strings.Join(parts, "\n\n"), nil
}
