package linkpreview

import (
	"net/url"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/net/html"
)

// PageMetadata holds the raw candidates found in a page, before normalization.
type PageMetadata struct {
	OGTitle         string
	TitleTag        string
	OGDescription   string
	MetaDescription string
	OGImage         string
	Favicon         string
	BaseHref        string
	// Dates in preference order: og published, article published, og modified, article modified.
	DateCandidates [4]string
}

// Extracted is the normalized result used to fill a draft.
type Extracted struct {
	Title       *string
	Description *string
	ImageURL    *url.URL
	Date        *time.Time
}

const (
	dateOGPublished = iota
	dateArticlePublished
	dateOGModified
	dateArticleModified
)

// ExtractMetadata parses body and resolves its candidates against pageURL, the URL that
// actually served the page.
func ExtractMetadata(body string, pageURL *url.URL) Extracted {
	meta := ParsePageMetadata(body)

	var out Extracted
	out.Title = meta.Title()
	if meta.rawDescription() != meta.rawTitle() {
		out.Description = meta.Description()
	}
	out.ImageURL = meta.ImageURL(pageURL)
	out.Date = meta.Date()
	return out
}

// ParsePageMetadata never fails: malformed markup just yields fewer candidates.
func ParsePageMetadata(body string) PageMetadata {
	var meta PageMetadata
	tokenizer := html.NewTokenizer(strings.NewReader(body))

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return meta
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			switch strings.ToLower(token.Data) {
			case "title":
				if tt == html.StartTagToken && meta.TitleTag == "" {
					if tokenizer.Next() == html.TextToken {
						meta.TitleTag = strings.TrimSpace(tokenizer.Token().Data)
					}
				}
			case "base":
				if meta.BaseHref == "" {
					meta.BaseHref = attrValue(token, "href")
				}
			case "meta":
				meta.applyMetaTag(token)
			case "link":
				rel := strings.ToLower(attrValue(token, "rel"))
				if meta.Favicon == "" && (rel == "icon" || rel == "shortcut icon" || rel == "apple-touch-icon") {
					meta.Favicon = attrValue(token, "href")
				}
			}
		}
	}
}

func (m *PageMetadata) applyMetaTag(token html.Token) {
	var name, content string
	for _, attr := range token.Attr {
		switch strings.ToLower(attr.Key) {
		case "name", "property":
			if name == "" {
				name = strings.ToLower(strings.TrimSpace(attr.Val))
			}
		case "content":
			content = strings.TrimSpace(attr.Val)
		}
	}
	if content == "" {
		return
	}

	setOnce := func(dst *string) {
		if *dst == "" {
			*dst = content
		}
	}

	switch name {
	case "og:title":
		setOnce(&m.OGTitle)
	case "og:description":
		setOnce(&m.OGDescription)
	case "description":
		setOnce(&m.MetaDescription)
	case "og:image", "og:image:url", "og:image:secure_url":
		setOnce(&m.OGImage)
	case "og:published_time":
		setOnce(&m.DateCandidates[dateOGPublished])
	case "article:published_time":
		setOnce(&m.DateCandidates[dateArticlePublished])
	case "og:modified_time":
		setOnce(&m.DateCandidates[dateOGModified])
	case "article:modified_time":
		setOnce(&m.DateCandidates[dateArticleModified])
	}
}

func (m PageMetadata) Title() *string {
	return normalizeText(m.rawTitle(), titleMaxLines)
}

func (m PageMetadata) Description() *string {
	return normalizeText(m.rawDescription(), descriptionMaxLines)
}

func (m PageMetadata) rawTitle() string {
	return firstNonEmpty(m.OGTitle, m.TitleTag)
}

func (m PageMetadata) rawDescription() string {
	return firstNonEmpty(m.OGDescription, m.MetaDescription)
}

// ImageURL prefers the Open Graph image over the favicon. Candidates that do not resolve to
// an absolute http(s) URL are treated as absent.
func (m PageMetadata) ImageURL(pageURL *url.URL) *url.URL {
	candidate := firstNonEmpty(m.OGImage, m.Favicon)
	if candidate == "" || pageURL == nil {
		return nil
	}

	base := pageURL
	if m.BaseHref != "" {
		if resolved := resolveURL(pageURL, m.BaseHref); resolved != nil {
			base = resolved
		}
	}
	return resolveURL(base, candidate)
}

// Date parses the first present candidate. An unparsable value means no date; later
// candidates are not consulted.
func (m PageMetadata) Date() *time.Time {
	raw := firstNonEmpty(m.DateCandidates[:]...)
	if raw == "" {
		return nil
	}

	t, err := dateparse.ParseStrict(raw)
	if err != nil {
		return nil
	}
	return &t
}

func resolveURL(base *url.URL, ref string) *url.URL {
	parsedRef, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return nil
	}

	resolved := base.ResolveReference(parsedRef)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return nil
	}
	if resolved.Host == "" {
		return nil
	}
	return resolved
}

func attrValue(token html.Token, key string) string {
	for _, attr := range token.Attr {
		if strings.EqualFold(attr.Key, key) {
			return strings.TrimSpace(attr.Val)
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
