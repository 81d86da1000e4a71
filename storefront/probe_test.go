package storefront

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
	<title>Stoneware Mug | Potter's Shop</title>
	<meta name="description" content="Hand thrown stoneware mugs, glazed in small batches.">
	<meta name="robots" content="index,follow">
	<meta name="viewport" content="width=device-width, initial-scale=1">
	<link rel="canonical" href="https://pots.example/products/stoneware-mug">
</head>
<body>
	<h1> Stoneware Mug </h1>
	<h2>Details</h2>
	<h2>Care</h2>
	<h3>Dishwasher</h3>
</body>
</html>`

func TestCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, samplePage)
	}))
	defer srv.Close()

	report, err := New().Check(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("check: %v", err)
	}

	if report.Title != "Stoneware Mug | Potter's Shop" || !report.HasTitle {
		t.Errorf("unexpected title: %q", report.Title)
	}
	if !report.HasMetaDescription || report.MetaDescriptionLength == 0 {
		t.Errorf("expected meta description, got %+v", report)
	}
	if report.Robots != "index,follow" {
		t.Errorf("unexpected robots: %q", report.Robots)
	}
	if report.Canonical != "https://pots.example/products/stoneware-mug" {
		t.Errorf("unexpected canonical: %q", report.Canonical)
	}
	if !report.MobileOptimized {
		t.Error("expected viewport to mark the page mobile optimized")
	}
	if report.H1Count != 1 || report.H2Count != 2 || report.H3Count != 1 {
		t.Errorf("unexpected heading counts: %d/%d/%d", report.H1Count, report.H2Count, report.H3Count)
	}
	if len(report.H1Text) != 1 || report.H1Text[0] != "Stoneware Mug" {
		t.Errorf("unexpected h1 text: %v", report.H1Text)
	}
}

func TestCheckBarePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head></head><body><p>hello</p></body></html>`)
	}))
	defer srv.Close()

	report, err := New().Check(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("check: %v", err)
	}

	if report.HasTitle || report.HasMetaDescription || report.MobileOptimized {
		t.Errorf("expected everything missing on a bare page, got %+v", report)
	}
	if report.H1Count != 0 {
		t.Errorf("expected no headings, got %d", report.H1Count)
	}
}

func TestCheckErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := New().Check(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for 503 page")
	}
}
