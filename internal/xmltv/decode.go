// Package xmltv reads XMLTV guide documents.
//
// Documents are decoded as a token stream so multi-hundred-megabyte guides
// never sit in memory as a tree. Only <channel> and <programme> children of
// <tv> are kept.
package xmltv

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
)

// MaxDocumentSize caps how much of a guide is read.
const MaxDocumentSize = 50 * 1024 * 1024

// Channel is a <channel> element.
type Channel struct {
	ID   string
	Name string
	Icon string
}

// Programme is a <programme> element. Start and Stop are already resolved;
// see Decoder.Now for what happens to unreadable timestamps.
type Programme struct {
	Channel     string
	Title       string
	Description string
	Start       time.Time
	Stop        time.Time
}

// Document is a decoded guide.
type Document struct {
	Channels   []Channel
	Programmes []Programme
	// InvalidTimes counts start/stop attributes that could not be parsed
	// and were replaced with the decode time.
	InvalidTimes int
	// Truncated is set when the document ended in a syntax error after at
	// least one record was read. Records before the error are kept.
	Truncated bool
	// Skipped counts channel and programme elements that could not be
	// decoded or had no id.
	Skipped int
}

type xmlChannel struct {
	ID    string   `xml:"id,attr"`
	Names []string `xml:"display-name"`
	Icon  struct {
		Src string `xml:"src,attr"`
	} `xml:"icon"`
}

type xmlProgramme struct {
	Start   string   `xml:"start,attr"`
	Stop    string   `xml:"stop,attr"`
	Channel string   `xml:"channel,attr"`
	Titles  []string `xml:"title"`
	Descs   []string `xml:"desc"`
}

// Decode reads a full document from r. now is substituted for timestamps
// that do not parse.
func Decode(r io.Reader, now time.Time) (*Document, error) {
	dec := xml.NewDecoder(io.LimitReader(r, MaxDocumentSize))
	// Feeds routinely carry bare '&' and HTML entities in titles. DTD
	// entity declarations are never honoured, only the HTML set.
	dec.Strict = false
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = charsetReader

	doc := &Document{}
	var inTV bool
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if len(doc.Channels) > 0 || len(doc.Programmes) > 0 {
				doc.Truncated = true
				break
			}
			return nil, fmt.Errorf("xmltv: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "tv":
			inTV = true
		case "channel":
			if !inTV {
				continue
			}
			var raw xmlChannel
			if err := dec.DecodeElement(&raw, &start); err != nil || raw.ID == "" {
				doc.Skipped++
				continue
			}
			doc.Channels = append(doc.Channels, Channel{
				ID:   strings.TrimSpace(raw.ID),
				Name: first(raw.Names),
				Icon: strings.TrimSpace(raw.Icon.Src),
			})
		case "programme":
			if !inTV {
				continue
			}
			var raw xmlProgramme
			if err := dec.DecodeElement(&raw, &start); err != nil || raw.Channel == "" {
				doc.Skipped++
				continue
			}
			p := Programme{
				Channel:     strings.TrimSpace(raw.Channel),
				Title:       first(raw.Titles),
				Description: first(raw.Descs),
			}
			var ok bool
			if p.Start, ok = ParseTime(raw.Start); !ok {
				p.Start = now
				doc.InvalidTimes++
			}
			if p.Stop, ok = ParseTime(raw.Stop); !ok {
				p.Stop = now
				doc.InvalidTimes++
			}
			doc.Programmes = append(doc.Programmes, p)
		}
	}
	return doc, nil
}

func first(values []string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(label) {
	case "utf-8", "utf8", "us-ascii", "ascii":
		return input, nil
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "iso-8859-15":
		return charmap.ISO8859_15.NewDecoder().Reader(input), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	case "windows-1250", "cp1250":
		return charmap.Windows1250.NewDecoder().Reader(input), nil
	case "iso-8859-2":
		return charmap.ISO8859_2.NewDecoder().Reader(input), nil
	}
	return nil, fmt.Errorf("unsupported charset %q", label)
}
