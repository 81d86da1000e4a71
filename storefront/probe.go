// Package storefront checks how a store page actually renders: whether the
// theme emits the configured meta tags, a viewport, and a sane heading
// structure. The report is informational for the dashboard and never feeds
// the audit scores.
package storefront

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Report describes the rendered SEO surface of one live page.
type Report struct {
	URL                   string   `json:"url"`
	Title                 string   `json:"title"`
	TitleLength           int      `json:"titleLength"`
	HasTitle              bool     `json:"hasTitle"`
	MetaDescription       string   `json:"metaDescription"`
	MetaDescriptionLength int      `json:"metaDescriptionLength"`
	HasMetaDescription    bool     `json:"hasMetaDescription"`
	Robots                string   `json:"robots"`
	Canonical             string   `json:"canonical"`
	MobileOptimized       bool     `json:"mobileOptimized"`
	H1Count               int      `json:"h1Count"`
	H2Count               int      `json:"h2Count"`
	H3Count               int      `json:"h3Count"`
	H1Text                []string `json:"h1Text"`
}

// Probe fetches and inspects live storefront pages.
type Probe struct {
	client *http.Client
}

// New creates a Probe with a pooled HTTP client.
func New() *Probe {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &Probe{
		client: &http.Client{
			Timeout:   15 * time.Second,
			Transport: transport,
		},
	}
}

// Check fetches url and reports its rendered SEO surface.
func (p *Probe) Check(ctx context.Context, url string) (*Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "ShopAudit/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetch page: %s returned %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	return inspect(url, doc), nil
}

func inspect(url string, doc *goquery.Document) *Report {
	report := &Report{URL: url}

	report.Title = doc.Find("title").First().Text()
	report.TitleLength = len(report.Title)
	report.HasTitle = report.TitleLength > 0

	report.MetaDescription, _ = doc.Find("meta[name='description']").Attr("content")
	report.MetaDescriptionLength = len(report.MetaDescription)
	report.HasMetaDescription = report.MetaDescriptionLength > 0

	report.Robots, _ = doc.Find("meta[name='robots']").Attr("content")
	report.Canonical, _ = doc.Find("link[rel='canonical']").Attr("href")

	doc.Find("meta[name='viewport']").Each(func(_ int, s *goquery.Selection) {
		content, exists := s.Attr("content")
		if exists && strings.Contains(strings.ToLower(content), "width=device-width") {
			report.MobileOptimized = true
		}
	})

	report.H1Count = doc.Find("h1").Length()
	report.H2Count = doc.Find("h2").Length()
	report.H3Count = doc.Find("h3").Length()
	doc.Find("h1").Each(func(_ int, s *goquery.Selection) {
		report.H1Text = append(report.H1Text, strings.TrimSpace(s.Text()))
	})

	return report
}
