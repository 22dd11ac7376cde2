package pdf

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// minArticleChars is the shortest readable text accepted from an HTML page.
// Anything shorter is an error page or an empty stub.
const minArticleChars = 100

// ExtractArticle returns the readable text of an HTML page.
func ExtractArticle(page []byte, pageURL string) (string, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(page), parsedURL)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) < minArticleChars {
		return "", fmt.Errorf("readability: %w", ErrNoText)
	}
	return text, nil
}
