package pkgindex

import (
	"strings"

	"golang.org/x/net/html"
)

// scrapeReferenceIndex fetches base's pkgdown reference index page and
// scrapes its <a href="topic.html">topic</a> anchors into a topic ->
// relative href map. This is the fallback path for a package whose site was
// built without (or has since lost) a pkgdown.yml manifest.
func (r *Resolver) scrapeReferenceIndex(base string) (map[string]string, bool) {
	page := strings.TrimSuffix(base, "/") + "/reference/index.html"
	data, err := r.httpGet(page)
	if err != nil {
		return nil, false
	}
	topics := extractReferenceTopics(data)
	if len(topics) == 0 {
		return nil, false
	}
	return topics, true
}

// extractReferenceTopics walks the parsed HTML tree for anchor elements
// linking to a same-directory "<topic>.html" page.
func extractReferenceTopics(data []byte) map[string]string {
	doc, err := html.Parse(strings.NewReader(string(data)))
	if err != nil {
		return nil
	}

	topics := map[string]string{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href := htmlAttr(n, "href"); isReferencePage(href) {
				topics[strings.TrimSuffix(href, ".html")] = href
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return topics
}

func isReferencePage(href string) bool {
	if href == "" || href == "index.html" {
		return false
	}
	return strings.HasSuffix(href, ".html") && !strings.Contains(href, "://") && !strings.Contains(href, "/")
}

func htmlAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
