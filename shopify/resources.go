package shopify

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopaudit/backend/audit"
)

const productsQuery = `
query auditProducts($first: Int!, $cursor: String) {
  products(first: $first, after: $cursor) {
    pageInfo { hasNextPage endCursor }
    nodes {
      id
      handle
      title
      descriptionHtml
      seo { title description }
      featuredImage { url altText }
      images(first: 50) { nodes { url altText } }
    }
  }
}`

const collectionsQuery = `
query auditCollections($first: Int!, $cursor: String) {
  collections(first: $first, after: $cursor) {
    pageInfo { hasNextPage endCursor }
    nodes {
      id
      handle
      title
      descriptionHtml
      seo { title description }
    }
  }
}`

const pagesQuery = `
query auditPages($first: Int!, $cursor: String) {
  pages(first: $first, after: $cursor) {
    pageInfo { hasNextPage endCursor }
    nodes {
      id
      handle
      title
      body
    }
  }
}`

const articlesQuery = `
query auditArticles($first: Int!, $cursor: String) {
  articles(first: $first, after: $cursor) {
    pageInfo { hasNextPage endCursor }
    nodes {
      id
      handle
      title
      body
      seo { title description }
    }
  }
}`

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

type seoNode struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type imageNode struct {
	URL     string `json:"url"`
	AltText string `json:"altText"`
}

type productNode struct {
	ID              string     `json:"id"`
	Handle          string     `json:"handle"`
	Title           string     `json:"title"`
	DescriptionHTML string     `json:"descriptionHtml"`
	SEO             seoNode    `json:"seo"`
	FeaturedImage   *imageNode `json:"featuredImage"`
	Images          struct {
		Nodes []imageNode `json:"nodes"`
	} `json:"images"`
}

type collectionNode struct {
	ID              string  `json:"id"`
	Handle          string  `json:"handle"`
	Title           string  `json:"title"`
	DescriptionHTML string  `json:"descriptionHtml"`
	SEO             seoNode `json:"seo"`
}

type pageNode struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

type articleNode struct {
	ID     string  `json:"id"`
	Handle string  `json:"handle"`
	Title  string  `json:"title"`
	Body   string  `json:"body"`
	SEO    seoNode `json:"seo"`
}

type connection[T any] struct {
	PageInfo pageInfo `json:"pageInfo"`
	Nodes    []T      `json:"nodes"`
}

// FetchAll materializes the four resource lists concurrently. If any fetch
// fails, the whole run fails and no partial set is returned; the audit must
// never score incomplete data.
func (c *Client) FetchAll(ctx context.Context, creds Credentials) (audit.ResourceSet, error) {
	var (
		rs       audit.ResourceSet
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	wg.Add(4)
	go func() {
		defer wg.Done()
		products, err := c.fetchProducts(ctx, creds)
		if err != nil {
			fail(fmt.Errorf("fetch products: %w", err))
			return
		}
		rs.Products = products
	}()
	go func() {
		defer wg.Done()
		collections, err := c.fetchCollections(ctx, creds)
		if err != nil {
			fail(fmt.Errorf("fetch collections: %w", err))
			return
		}
		rs.Collections = collections
	}()
	go func() {
		defer wg.Done()
		pages, err := c.fetchPages(ctx, creds)
		if err != nil {
			fail(fmt.Errorf("fetch pages: %w", err))
			return
		}
		rs.Pages = pages
	}()
	go func() {
		defer wg.Done()
		articles, err := c.fetchArticles(ctx, creds)
		if err != nil {
			fail(fmt.Errorf("fetch articles: %w", err))
			return
		}
		rs.Articles = articles
	}()
	wg.Wait()

	if firstErr != nil {
		return audit.ResourceSet{}, firstErr
	}
	return rs, nil
}

// paginate walks a cursor-paginated connection until exhausted. fetch runs
// one query page and returns the decoded connection.
func paginate[T any](ctx context.Context, pageSize int, fetch func(ctx context.Context, variables map[string]any) (connection[T], error)) ([]T, error) {
	var (
		out    []T
		cursor string
	)
	for {
		variables := map[string]any{"first": pageSize}
		if cursor != "" {
			variables["cursor"] = cursor
		}
		conn, err := fetch(ctx, variables)
		if err != nil {
			return nil, err
		}
		out = append(out, conn.Nodes...)
		if !conn.PageInfo.HasNextPage {
			return out, nil
		}
		cursor = conn.PageInfo.EndCursor
	}
}

func (c *Client) fetchProducts(ctx context.Context, creds Credentials) ([]audit.Product, error) {
	nodes, err := paginate(ctx, c.pageSize,
		func(ctx context.Context, variables map[string]any) (connection[productNode], error) {
			var data struct {
				Products connection[productNode] `json:"products"`
			}
			err := c.query(ctx, creds, productsQuery, variables, &data)
			return data.Products, err
		})
	if err != nil {
		return nil, err
	}

	products := make([]audit.Product, 0, len(nodes))
	for _, n := range nodes {
		products = append(products, mapProduct(n))
	}
	return products, nil
}

func mapProduct(n productNode) audit.Product {
	p := audit.Product{
		ID:              n.ID,
		Handle:          n.Handle,
		Title:           n.Title,
		Description:     n.DescriptionHTML,
		MetaTitle:       n.SEO.Title,
		MetaDescription: n.SEO.Description,
	}
	if n.FeaturedImage != nil {
		p.FeaturedImage = &audit.Image{URL: n.FeaturedImage.URL, AltText: n.FeaturedImage.AltText}
	}
	for _, img := range n.Images.Nodes {
		// The gallery repeats the featured image; keep it in one place so
		// a missing alt text is counted once.
		if n.FeaturedImage != nil && img.URL == n.FeaturedImage.URL {
			continue
		}
		p.Images = append(p.Images, audit.Image{URL: img.URL, AltText: img.AltText})
	}
	return p
}

func (c *Client) fetchCollections(ctx context.Context, creds Credentials) ([]audit.Collection, error) {
	nodes, err := paginate(ctx, c.pageSize,
		func(ctx context.Context, variables map[string]any) (connection[collectionNode], error) {
			var data struct {
				Collections connection[collectionNode] `json:"collections"`
			}
			err := c.query(ctx, creds, collectionsQuery, variables, &data)
			return data.Collections, err
		})
	if err != nil {
		return nil, err
	}

	collections := make([]audit.Collection, 0, len(nodes))
	for _, n := range nodes {
		collections = append(collections, audit.Collection{
			ID:              n.ID,
			Handle:          n.Handle,
			Title:           n.Title,
			Description:     n.DescriptionHTML,
			MetaTitle:       n.SEO.Title,
			MetaDescription: n.SEO.Description,
		})
	}
	return collections, nil
}

func (c *Client) fetchPages(ctx context.Context, creds Credentials) ([]audit.Page, error) {
	nodes, err := paginate(ctx, c.pageSize,
		func(ctx context.Context, variables map[string]any) (connection[pageNode], error) {
			var data struct {
				Pages connection[pageNode] `json:"pages"`
			}
			err := c.query(ctx, creds, pagesQuery, variables, &data)
			return data.Pages, err
		})
	if err != nil {
		return nil, err
	}

	pages := make([]audit.Page, 0, len(nodes))
	for _, n := range nodes {
		pages = append(pages, audit.Page{
			ID:     n.ID,
			Handle: n.Handle,
			Title:  n.Title,
			Body:   n.Body,
		})
	}
	return pages, nil
}

func (c *Client) fetchArticles(ctx context.Context, creds Credentials) ([]audit.Article, error) {
	nodes, err := paginate(ctx, c.pageSize,
		func(ctx context.Context, variables map[string]any) (connection[articleNode], error) {
			var data struct {
				Articles connection[articleNode] `json:"articles"`
			}
			err := c.query(ctx, creds, articlesQuery, variables, &data)
			return data.Articles, err
		})
	if err != nil {
		return nil, err
	}

	articles := make([]audit.Article, 0, len(nodes))
	for _, n := range nodes {
		articles = append(articles, audit.Article{
			ID:              n.ID,
			Handle:          n.Handle,
			Title:           n.Title,
			Content:         n.Body,
			MetaTitle:       n.SEO.Title,
			MetaDescription: n.SEO.Description,
		})
	}
	return articles, nil
}
