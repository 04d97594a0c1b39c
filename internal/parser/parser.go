// Package parser reads prompt files authored as Markdown with optional YAML
// frontmatter.
package parser

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/promptbox/internal/models"
)

// Result holds the output of parsing a prompt file.
type Result struct {
	Frontmatter map[string]interface{}
	Text        string
	Tags        []string
	Folder      string
	Favorite    bool
}

// Parse splits frontmatter from the prompt text and reads the tags, folder
// and favorite keys. The text is the body with surrounding blank lines trimmed.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	return &Result{
		Frontmatter: fm,
		Text:        strings.Trim(body, "\r\n"),
		Tags:        extractTags(fm),
		Folder:      stringField(fm, "folder"),
		Favorite:    boolField(fm, "favorite"),
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter: everything is body.
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML: the whole file is the prompt.
		return nil, string(data), nil
	}

	return fm, body, nil
}

// extractTags reads the "tags" key, given either as a YAML list or as a
// comma-separated string. Order and duplicates are kept.
func extractTags(fm map[string]interface{}) []string {
	out := []string{}
	switch v := fm["tags"].(type) {
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
	case string:
		out = models.ParseTags(v)
	}
	return out
}

func stringField(fm map[string]interface{}, key string) string {
	s, _ := fm[key].(string)
	return strings.TrimSpace(s)
}

func boolField(fm map[string]interface{}, key string) bool {
	b, _ := fm[key].(bool)
	return b
}
