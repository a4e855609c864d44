package hlsproxy

import (
	"path"
	"strings"
)

// RewriteManifest makes absolute URIs that live under base relative to
// the manifest at filePath, so players keep fetching through the proxy.
// URI lines and URI="..." tag attributes are rewritten; every other byte
// is passed through.
func RewriteManifest(manifest, base, filePath string) string {
	up := strings.Repeat("../", depth(filePath))
	rewrite := func(uri string) string {
		if rest, ok := strings.CutPrefix(uri, base); ok && rest != "" {
			return up + rest
		}
		return uri
	}

	lines := strings.SplitAfter(manifest, "\n")
	for i, line := range lines {
		body := strings.TrimRight(line, "\r\n")
		eol := line[len(body):]
		trimmed := strings.TrimSpace(body)
		switch {
		case trimmed == "":
		case strings.HasPrefix(trimmed, "#"):
			lines[i] = rewriteURIAttr(body, rewrite) + eol
		default:
			lines[i] = strings.Replace(body, trimmed, rewrite(trimmed), 1) + eol
		}
	}
	return strings.Join(lines, "")
}

// rewriteURIAttr rewrites every URI="..." attribute of a tag line.
func rewriteURIAttr(line string, rewrite func(string) string) string {
	const attr = `URI="`
	var b strings.Builder
	for {
		i := strings.Index(line, attr)
		if i < 0 {
			b.WriteString(line)
			return b.String()
		}
		start := i + len(attr)
		end := strings.IndexByte(line[start:], '"')
		if end < 0 {
			b.WriteString(line)
			return b.String()
		}
		b.WriteString(line[:start])
		b.WriteString(rewrite(line[start : start+end]))
		b.WriteByte('"')
		line = line[start+end+1:]
	}
}

// depth is the number of directories in filePath.
func depth(filePath string) int {
	dir := path.Dir(filePath)
	if dir == "." {
		return 0
	}
	return strings.Count(dir, "/") + 1
}
