package m3u

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// WriteOptions controls playlist emission.
type WriteOptions struct {
	// Extended writes tvg-* and group-title attributes (m3u_plus).
	Extended bool
	// TVGURL is advertised as x-tvg-url in the header when set.
	TVGURL string
}

// Write emits entries as an #EXTM3U playlist. Names are written verbatim
// after the last comma of #EXTINF; M3U has no escape for a comma there,
// so readers that split on the last comma see only the tail of such a
// name. Extended output also carries the full name in tvg-name.
func Write(w io.Writer, entries []Entry, opts WriteOptions) error {
	bw := bufio.NewWriter(w)
	if opts.TVGURL != "" {
		fmt.Fprintf(bw, "#EXTM3U x-tvg-url=\"%s\"\n", attrValue(opts.TVGURL))
	} else {
		bw.WriteString("#EXTM3U\n")
	}
	for _, e := range entries {
		bw.WriteString(extinfLine(e, opts.Extended))
		bw.WriteByte('\n')
		bw.WriteString(strings.TrimSpace(e.URL))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func extinfLine(e Entry, extended bool) string {
	name := displayName(e.Name)
	if !extended {
		return "#EXTINF:-1," + name
	}
	var b strings.Builder
	b.WriteString("#EXTINF:-1")
	fmt.Fprintf(&b, ` tvg-id="%s"`, attrValue(e.TvgID))
	tvgName := e.TvgName
	if tvgName == "" {
		tvgName = e.Name
	}
	fmt.Fprintf(&b, ` tvg-name="%s"`, attrValue(tvgName))
	fmt.Fprintf(&b, ` tvg-logo="%s"`, attrValue(e.TvgLogo))
	fmt.Fprintf(&b, ` group-title="%s"`, attrValue(e.GroupTitle))
	if e.ChannelNumber != "" {
		fmt.Fprintf(&b, ` tvg-chno="%s"`, attrValue(e.ChannelNumber))
	}
	b.WriteByte(',')
	b.WriteString(name)
	return b.String()
}

var lineBreaks = strings.NewReplacer("\r", " ", "\n", " ")

func displayName(s string) string {
	return strings.TrimSpace(lineBreaks.Replace(s))
}

// attrValue keeps a value inside its double quotes.
func attrValue(s string) string {
	return strings.ReplaceAll(displayName(s), `"`, `'`)
}
