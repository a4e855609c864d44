package m3u

import (
	"regexp"
	"strings"
)

// RewriteRule rewrites a source URL before it is stored. Rewrite returns
// ok=false when the rule does not apply.
type RewriteRule interface {
	Name() string
	Rewrite(rawURL string) (string, bool)
}

// ApplyRewrites runs every rule in order, feeding each the previous output.
func ApplyRewrites(rules []RewriteRule, rawURL string) string {
	out := rawURL
	for _, r := range rules {
		if v, ok := r.Rewrite(out); ok {
			out = v
		}
	}
	return out
}

// DefaultRewrites is the rule list used by the M3U importer.
func DefaultRewrites() []RewriteRule {
	return []RewriteRule{A1HLSRewrite{}}
}

// A1HLSRewrite turns DASH manifests of the protected A1 CDN (paths under
// /__c/A1_* or /__c/a1_*) into their hls-ts-avc .m3u8 counterpart.
type A1HLSRewrite struct{}

var (
	reA1Path     = regexp.MustCompile(`/__c/[Aa]1_`)
	reA1DashDir  = regexp.MustCompile(`/dash(?:-default)?/`)
	reA1Manifest = regexp.MustCompile(`\.mpd(\?|$)`)
)

func (A1HLSRewrite) Name() string { return "a1-dash-to-hls-ts" }

func (A1HLSRewrite) Rewrite(rawURL string) (string, bool) {
	if !reA1Path.MatchString(rawURL) {
		return rawURL, false
	}
	out := reA1DashDir.ReplaceAllString(rawURL, "/hls-ts-avc/")
	out = reA1Manifest.ReplaceAllString(out, ".m3u8$1")
	if strings.HasSuffix(out, "/dash") {
		out = strings.TrimSuffix(out, "/dash") + "/hls-ts-avc"
	}
	return out, out != rawURL
}
