package markdown

import (
	"html"
	"regexp"
	"strings"

	"github.com/russross/blackfriday/v2"
)

var (
	paragraphPattern = regexp.MustCompile(`(?s)<p>(.*?)</p>`)
	codeBlockPattern = regexp.MustCompile(`(?s)<pre><code(?: class="[^"]*")?>(.*?)</code></pre>`)
	tagPattern       = regexp.MustCompile(`</?([a-zA-Z0-9]+)(?:\s[^>]*)?>`)
	linkPattern      = regexp.MustCompile(`<a href="([^"]*)"[^>]*>(.*?)</a>`)
	newlinesPattern  = regexp.MustCompile(`\n{3,}`)
)

var allowedTags = map[string]bool{
	"p": true, "br": true, "strong": true, "em": true, "del": true,
	"code": true, "pre": true, "ul": true, "ol": true, "li": true,
	"blockquote": true, "a": true,
}

// ToHTML renders a chat message as HTML. Raw HTML in the input is dropped and
// only formatting tags survive.
func ToHTML(markdown string) string {
	if strings.TrimSpace(markdown) == "" {
		return ""
	}

	renderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.SkipHTML | blackfriday.SkipImages | blackfriday.Safelink |
			blackfriday.NofollowLinks | blackfriday.NoreferrerLinks | blackfriday.HrefTargetBlank,
	})
	out := string(blackfriday.Run([]byte(markdown),
		blackfriday.WithExtensions(blackfriday.CommonExtensions),
		blackfriday.WithRenderer(renderer),
	))

	out = tagPattern.ReplaceAllStringFunc(out, func(match string) string {
		name := strings.ToLower(tagPattern.FindStringSubmatch(match)[1])
		if allowedTags[name] {
			return match
		}
		return ""
	})
	return strings.TrimSpace(out)
}

// ToTerminal renders a chat message as plain text for the terminal. Emphasis
// markers are kept, lists become bullets and links show their target.
func ToTerminal(markdown string) string {
	if markdown == "" {
		return ""
	}

	out := string(blackfriday.Run([]byte(markdown), blackfriday.WithExtensions(blackfriday.CommonExtensions)))

	out = paragraphPattern.ReplaceAllString(out, "$1\n")
	out = codeBlockPattern.ReplaceAllString(out, "$1")
	out = linkPattern.ReplaceAllString(out, "$2 ($1)")

	out = strings.ReplaceAll(out, "<strong>", "*")
	out = strings.ReplaceAll(out, "</strong>", "*")
	out = strings.ReplaceAll(out, "<em>", "_")
	out = strings.ReplaceAll(out, "</em>", "_")
	out = strings.ReplaceAll(out, "<code>", "`")
	out = strings.ReplaceAll(out, "</code>", "`")
	out = strings.ReplaceAll(out, "<li>", "• ")
	out = strings.ReplaceAll(out, "</li>", "\n")
	out = strings.ReplaceAll(out, "<br>", "\n")
	out = strings.ReplaceAll(out, "<br />", "\n")

	out = tagPattern.ReplaceAllString(out, "")
	out = html.UnescapeString(out)
	out = newlinesPattern.ReplaceAllString(out, "\n\n")

	return strings.TrimSpace(out)
}
