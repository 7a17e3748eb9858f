package pkgindex

import (
	"bufio"
	"bytes"
	"strings"
)

// description is the handful of DESCRIPTION fields the resolver needs. R's
// DESCRIPTION format is RFC822-like: "Key: value" lines, with continuation
// lines indented by at least one space/tab appended to the previous value.
type description struct {
	Package string
	Version string
	// URLs holds every comma-separated entry of the URL: field, in order.
	URLs []string
}

func parseDescription(data []byte) description {
	var d description
	var key string
	var val strings.Builder

	flush := func() {
		switch key {
		case "Package":
			d.Package = strings.TrimSpace(val.String())
		case "Version":
			d.Version = strings.TrimSpace(val.String())
		case "URL":
			d.URLs = splitDescriptionURLs(val.String())
		}
		key = ""
		val.Reset()
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			val.WriteByte(' ')
			val.WriteString(strings.TrimSpace(line))
			continue
		}
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		flush()
		key = strings.TrimSpace(line[:idx])
		val.WriteString(strings.TrimSpace(line[idx+1:]))
	}
	flush()
	return d
}

// splitDescriptionURLs splits an R URL: field, which may separate multiple
// URLs by comma, whitespace, or both.
func splitDescriptionURLs(field string) []string {
	fields := strings.FieldsFunc(field, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// firstHTTPSURL returns the first https:// URL in urls, or "" if none.
func firstHTTPSURL(urls []string) string {
	for _, u := range urls {
		if strings.HasPrefix(u, "https://") {
			return u
		}
	}
	return ""
}
