// Package m3u parses and writes #EXTM3U playlists.
package m3u

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

// Entry is one parsed playlist item. Missing attributes are empty strings.
type Entry struct {
	Name          string `json:"name"`
	URL           string `json:"url"`
	TvgID         string `json:"tvg_id,omitempty"`
	TvgName       string `json:"tvg_name,omitempty"`
	TvgLogo       string `json:"tvg_logo,omitempty"`
	GroupTitle    string `json:"group_title,omitempty"`
	ChannelNumber string `json:"channel_number,omitempty"`
}

var (
	reTvgID    = regexp.MustCompile(`(?i)tvg-id="([^"]*)"`)
	reTvgName  = regexp.MustCompile(`(?i)tvg-name="([^"]*)"`)
	reTvgLogo  = regexp.MustCompile(`(?i)tvg-logo="([^"]*)"`)
	reGroup    = regexp.MustCompile(`(?i)group-title="([^"]*)"`)
	reTvgChno  = regexp.MustCompile(`(?i)tvg-chno="([^"]*)"`)
	extinfTag  = "#EXTINF:"
	headerTag  = "#EXTM3U"
	maxLineLen = 1024 * 1024
)

// Parse parses playlist text. It never fails: lines it does not understand
// are skipped, a URL line with no pending #EXTINF is dropped, and a
// trailing #EXTINF without URL produces nothing.
func Parse(content string) []Entry {
	var p parser
	for _, line := range strings.Split(content, "\n") {
		p.line(line)
	}
	return p.entries
}

// ParseReader is Parse over a stream. Some playlists carry very long
// #EXTINF lines, so the scanner buffer is raised to 1 MiB.
func ParseReader(r io.Reader) ([]Entry, error) {
	var p parser
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLen)
	for scanner.Scan() {
		p.line(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return p.entries, nil
}

type parser struct {
	entries []Entry
	pending *Entry
}

func (p *parser) line(raw string) {
	line := strings.TrimSpace(raw)
	switch {
	case line == "":
	case strings.HasPrefix(strings.ToUpper(line), headerTag):
	case strings.HasPrefix(strings.ToUpper(line), extinfTag):
		e := parseExtinf(line)
		p.pending = &e
	case strings.HasPrefix(line, "#"):
		// #EXTVLCOPT, #EXTGRP and friends carry nothing we keep.
	default:
		if p.pending == nil {
			return
		}
		p.pending.URL = line
		p.entries = append(p.entries, *p.pending)
		p.pending = nil
	}
}

func parseExtinf(line string) Entry {
	e := Entry{
		TvgID:         attr(reTvgID, line),
		TvgName:       attr(reTvgName, line),
		TvgLogo:       attr(reTvgLogo, line),
		GroupTitle:    attr(reGroup, line),
		ChannelNumber: attr(reTvgChno, line),
	}
	// The display name follows the last comma. A comma inside the name
	// itself truncates it; attribute values with commas are fine.
	if i := strings.LastIndex(line, ","); i != -1 {
		e.Name = strings.TrimSpace(line[i+1:])
	}
	return e
}

func attr(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}
