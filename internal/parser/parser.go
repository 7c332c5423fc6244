// Package parser extracts frontmatter, headings, wikilinks, tags, and
// aliases from Markdown vault documents.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/gebo/internal/models"
)

var (
	wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
	headingRe  = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*$`)
	urlRe      = regexp.MustCompile(`https?://[^\s)\]>"']+`)
	slugStrip  = regexp.MustCompile(`[^a-z0-9]+`)
)

// Document holds the output of parsing one Markdown file.
type Document struct {
	Properties []models.Property
	Body       string
	Title      string
	KindHint   string
	Headings   []models.Heading
	Links      []string
	External   []string
	Tags       []string
	Aliases    []string
	Requires   []string
	Template   string
}

// Parse extracts structure from raw Markdown bytes. Invalid or missing
// frontmatter never fails the parse; the whole content becomes body.
func Parse(data []byte) (*Document, error) {
	props, body := splitFrontmatter(data)

	doc := &Document{
		Properties: props,
		Body:       body,
		Headings:   extractHeadings(body),
		Links:      extractWikilinks(body),
		External:   extractExternal(body),
	}

	doc.Tags = extractTags(body, props)
	doc.Aliases = listProp(props, "aliases", "alias")
	doc.Requires = listProp(props, "requires")
	doc.KindHint = scalarProp(props, "type")
	doc.Template = scalarProp(props, "template")
	doc.Title = deriveTitle(props, doc.Headings)

	return doc, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body, preserving key order. If no frontmatter is found or
// the YAML is invalid, the entire content is body.
func splitFrontmatter(data []byte) ([]models.Property, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var root yaml.Node
	if err := yaml.Unmarshal(yamlBlock, &root); err != nil {
		return nil, string(data)
	}
	if len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return nil, body
	}

	mapping := root.Content[0]
	props := make([]models.Property, 0, len(mapping.Content)/2)
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		k := mapping.Content[i]
		v := mapping.Content[i+1]
		props = append(props, models.Property{Key: k.Value, Value: renderValue(v)})
	}
	return props, body
}

// renderValue flattens a YAML value node to a string. Sequences of scalars
// become a comma-separated list; anything deeper is re-marshalled.
func renderValue(n *yaml.Node) string {
	switch n.Kind {
	case yaml.ScalarNode:
		return n.Value
	case yaml.SequenceNode:
		parts := make([]string, 0, len(n.Content))
		for _, c := range n.Content {
			if c.Kind == yaml.ScalarNode {
				parts = append(parts, c.Value)
			}
		}
		if len(parts) == len(n.Content) {
			return strings.Join(parts, ", ")
		}
	}
	out, err := yaml.Marshal(n)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// extractHeadings scans the body for ATX headings, skipping fenced code blocks.
func extractHeadings(body string) []models.Heading {
	var out []models.Heading
	inFence := false
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		m := headingRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		text := m[2]
		out = append(out, models.Heading{
			Level: len(m[1]),
			Text:  text,
			Slug:  Slugify(text),
		})
	}
	return out
}

// Slugify converts heading text into a lowercase dash-separated anchor.
func Slugify(text string) string {
	s := slugStrip.ReplaceAllString(strings.ToLower(text), "-")
	return strings.Trim(s, "-")
}

// extractWikilinks returns deduplicated wikilink targets, resolving aliases.
func extractWikilinks(body string) []string {
	matches := wikilinkRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		target := m[1]
		// [[Target|Alias]] → Target.
		if i := strings.Index(target, "|"); i >= 0 {
			target = target[:i]
		}
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}

// extractExternal returns deduplicated http(s) URIs found in the body.
func extractExternal(body string) []string {
	matches := urlRe.FindAllString(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, u := range matches {
		u = strings.TrimRight(u, ".,;:")
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// extractTags collects tags from the frontmatter "tags" field (list or
// comma-separated string form) and inline #tags from the body. Values are
// trimmed but not case-folded; format checks happen at validation time.
func extractTags(body string, props []models.Property) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	for _, t := range listProp(props, "tags") {
		add(t)
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

// listProp returns the first matching property split into trimmed items.
// Both YAML list form and "a, b" string form are accepted.
func listProp(props []models.Property, keys ...string) []string {
	for _, key := range keys {
		for _, p := range props {
			if p.Key != key {
				continue
			}
			var out []string
			for _, item := range strings.Split(p.Value, ",") {
				item = strings.TrimSpace(item)
				if item != "" {
					out = append(out, item)
				}
			}
			return out
		}
	}
	return nil
}

func scalarProp(props []models.Property, key string) string {
	for _, p := range props {
		if p.Key == key {
			return strings.TrimSpace(p.Value)
		}
	}
	return ""
}

// deriveTitle returns the frontmatter "title" if present, otherwise the
// first level-1 heading, otherwise empty string.
func deriveTitle(props []models.Property, headings []models.Heading) string {
	if t := scalarProp(props, "title"); t != "" {
		return t
	}
	for _, h := range headings {
		if h.Level == 1 {
			return h.Text
		}
	}
	return ""
}
