package pipeline

import (
	"context"
	"strings"

	"github.com/gocolly/colly/v2"
)

// maxSyllabusChars caps how much page text feeds the extractor; syllabi past
// this point are boilerplate (footers, navigation, accreditation notices).
const maxSyllabusChars = 20000

// SyllabusFetcher pulls readable text from a program guide URL.
type SyllabusFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

type CollySyllabusFetcher struct{}

func NewCollySyllabusFetcher() *CollySyllabusFetcher {
	return &CollySyllabusFetcher{}
}

func (f *CollySyllabusFetcher) FetchText(ctx context.Context, url string) (string, error) {
	c := colly.NewCollector()

	var parts []string
	c.OnHTML("h1, h2, h3, p, li", func(e *colly.HTMLElement) {
		text := strings.TrimSpace(e.Text)
		if text != "" {
			parts = append(parts, text)
		}
	})

	var reqErr error
	c.OnError(func(_ *colly.Response, err error) {
		reqErr = err
	})

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (compatible; skillsync/1.0)")
	})

	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	if err := c.Visit(url); err != nil {
		return "", err
	}
	c.Wait()
	if reqErr != nil {
		return "", reqErr
	}

	text := strings.Join(parts, "\n")
	if len(text) > maxSyllabusChars {
		text = text[:maxSyllabusChars]
	}
	return text, nil
}
