package crawl

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
)

var (
	emailRe  = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	mailtoRe = regexp.MustCompile(`(?i)mailto:([^"'?\s>]+)`)

	// "name at domain dot com" and bracketed variants.
	obfuscatedRe = regexp.MustCompile(`(?i)\b([a-z0-9._%+\-]+)\s*(?:@|\(at\)|\[at\]|\{at\}|\sat\s)\s*([a-z0-9\-]+)\s*(?:\.|\(dot\)|\[dot\]|\{dot\}|\sdot\s)\s*([a-z]{2,})\b`)

	// content="...", data-email="...", data-mail="..." attribute values.
	attrRe = regexp.MustCompile(`(?i)(?:content|data-email|data-mail|data-contact)="([^"]*@[^"]*)"`)

	// Hidden form fields and form actions carrying an address.
	formRe = regexp.MustCompile(`(?i)<(?:input[^>]+value|form[^>]+action)="([^"]*@[^"]*)"`)

	// Footer and header elements, where contact lines usually live.
	footerHeaderRe = regexp.MustCompile(`(?is)<(footer|header)[^>]*>(.*?)</(?:footer|header)>`)

	jsonLDRe = regexp.MustCompile(`(?is)<script[^>]+application/ld\+json[^>]*>(.*?)</script>`)
)

// extractors run in order against page markup. Later stages in the email
// cascade rely on the union; order only affects dedup precedence.
var extractors = []ExtractorFunc{
	extractMailto,
	extractRaw,
	extractObfuscated,
	extractJSONLD,
	extractAttributes,
	extractForms,
	extractFooterHeader,
}

// ExtractEmails runs every extractor over the page, its rendered text,
// and its embedded frames, returning deduplicated lowercase addresses.
func ExtractEmails(ctx context.Context, page Page) []string {
	docs := []string{page.Content(), page.Text()}
	docs = append(docs, page.Frames(ctx)...)
	return extractFromDocs(docs)
}

// ExtractFromMarkup runs the extractor set over a raw document, for
// callers holding text that never came from a Page (search snippets,
// API payloads).
func ExtractFromMarkup(markup string) []string {
	return extractFromDocs([]string{markup})
}

func extractFromDocs(docs []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, doc := range docs {
		for _, fn := range extractors {
			for _, raw := range fn(doc) {
				email := cleanEmail(raw)
				if email == "" || seen[email] {
					continue
				}
				seen[email] = true
				out = append(out, email)
			}
		}
	}
	return out
}

func extractMailto(markup string) []string {
	var out []string
	for _, m := range mailtoRe.FindAllStringSubmatch(markup, -1) {
		out = append(out, m[1])
	}
	return out
}

func extractRaw(markup string) []string {
	return emailRe.FindAllString(markup, -1)
}

func extractObfuscated(markup string) []string {
	var out []string
	for _, m := range obfuscatedRe.FindAllStringSubmatch(markup, -1) {
		out = append(out, m[1]+"@"+m[2]+"."+m[3])
	}
	return out
}

// extractJSONLD pulls email values out of schema.org structured data.
func extractJSONLD(markup string) []string {
	var out []string
	for _, m := range jsonLDRe.FindAllStringSubmatch(markup, -1) {
		var doc any
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &doc); err != nil {
			continue
		}
		out = append(out, jsonLDEmails(doc)...)
	}
	return out
}

func jsonLDEmails(node any) []string {
	var out []string
	switch v := node.(type) {
	case map[string]any:
		for key, val := range v {
			if strings.EqualFold(key, "email") {
				if s, ok := val.(string); ok {
					out = append(out, strings.TrimPrefix(s, "mailto:"))
				}
				continue
			}
			out = append(out, jsonLDEmails(val)...)
		}
	case []any:
		for _, item := range v {
			out = append(out, jsonLDEmails(item)...)
		}
	}
	return out
}

func extractAttributes(markup string) []string {
	var out []string
	for _, m := range attrRe.FindAllStringSubmatch(markup, -1) {
		out = append(out, emailRe.FindAllString(m[1], -1)...)
	}
	return out
}

func extractForms(markup string) []string {
	var out []string
	for _, m := range formRe.FindAllStringSubmatch(markup, -1) {
		out = append(out, emailRe.FindAllString(m[1], -1)...)
	}
	return out
}

func extractFooterHeader(markup string) []string {
	var out []string
	for _, m := range footerHeaderRe.FindAllStringSubmatch(markup, -1) {
		out = append(out, emailRe.FindAllString(m[2], -1)...)
	}
	return out
}

// cleanEmail lowercases and strips URL-encoding artifacts and trailing
// punctuation picked up by the raw regex.
func cleanEmail(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "mailto:")
	if i := strings.IndexAny(s, "?&"); i >= 0 {
		s = s[:i]
	}
	s = strings.Trim(s, ".,;:()<>[]")
	if !emailRe.MatchString(s) || strings.Count(s, "@") != 1 {
		return ""
	}
	return s
}
