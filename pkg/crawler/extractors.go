package crawler

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// pageForm is a form lifted from a page, pre-resolution of its action URL.
type pageForm struct {
	Action string
	Method string
	Inputs []formInput
}

type formInput struct {
	Name string
	Type string
}

// extractPage tokenizes an HTML document and returns outbound links and
// forms. base resolves relative URLs.
func extractPage(body string, base *url.URL) (links []string, forms []pageForm) {
	seen := make(map[string]bool)
	z := html.NewTokenizer(strings.NewReader(body))

	var current *pageForm
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken &&
			tt != html.EndTagToken {
			continue
		}
		tok := z.Token()

		if tt == html.EndTagToken {
			if tok.Data == "form" && current != nil {
				forms = append(forms, *current)
				current = nil
			}
			continue
		}

		switch tok.Data {
		case "a":
			if href := attr(tok, "href"); href != "" {
				if resolved := resolveURL(href, base); resolved != "" && !seen[resolved] {
					seen[resolved] = true
					links = append(links, resolved)
				}
			}
		case "form":
			f := pageForm{
				Action: attr(tok, "action"),
				Method: strings.ToUpper(attr(tok, "method")),
			}
			if f.Method == "" {
				f.Method = "GET"
			}
			current = &f
			if tt == html.SelfClosingTagToken {
				forms = append(forms, f)
				current = nil
			}
		case "input", "textarea", "select":
			if current == nil {
				continue
			}
			name := attr(tok, "name")
			if name == "" {
				// SPA frameworks park the field name in other attributes.
				for _, alt := range []string{"formcontrolname", "aria-label", "placeholder"} {
					if name = attr(tok, alt); name != "" {
						break
					}
				}
			}
			if name == "" {
				continue
			}
			typ := attr(tok, "type")
			if typ == "" {
				typ = tok.Data
			}
			current.Inputs = append(current.Inputs, formInput{Name: name, Type: typ})
		}
	}

	// Unclosed form at EOF still counts.
	if current != nil {
		forms = append(forms, *current)
	}
	return links, forms
}

func attr(tok html.Token, name string) string {
	for _, a := range tok.Attr {
		if a.Key == name {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

// resolveURL resolves href against base, dropping fragments and
// non-navigable schemes.
func resolveURL(href string, base *url.URL) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}

	lower := strings.ToLower(href)
	for _, scheme := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, scheme) {
			return ""
		}
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(parsed)
	resolved.Fragment = ""
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	if resolved.Path == "" {
		resolved.Path = "/"
	}
	return resolved.String()
}

// sameHost reports whether u is on host, treating subdomains as foreign.
func sameHost(u *url.URL, host string) bool {
	return strings.EqualFold(u.Host, host)
}
