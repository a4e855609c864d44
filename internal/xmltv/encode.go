package xmltv

import (
	"encoding/xml"
	"fmt"
	"io"
)

// GeneratorName is written as generator-info-name.
const GeneratorName = "streamone"

type outIcon struct {
	Src string `xml:"src,attr"`
}

type outChannel struct {
	ID          string   `xml:"id,attr"`
	DisplayName string   `xml:"display-name"`
	Icon        *outIcon `xml:"icon,omitempty"`
}

type outProgramme struct {
	Start   string `xml:"start,attr"`
	Stop    string `xml:"stop,attr"`
	Channel string `xml:"channel,attr"`
	Title   string `xml:"title"`
	Desc    string `xml:"desc,omitempty"`
}

type outTV struct {
	XMLName    xml.Name       `xml:"tv"`
	Generator  string         `xml:"generator-info-name,attr"`
	Channels   []outChannel   `xml:"channel"`
	Programmes []outProgramme `xml:"programme"`
}

// Encode writes doc as an XMLTV document. Times are written in UTC.
func Encode(w io.Writer, doc *Document) error {
	tv := outTV{Generator: GeneratorName}
	for _, c := range doc.Channels {
		ch := outChannel{ID: c.ID, DisplayName: c.Name}
		if c.Icon != "" {
			ch.Icon = &outIcon{Src: c.Icon}
		}
		tv.Channels = append(tv.Channels, ch)
	}
	for _, p := range doc.Programmes {
		tv.Programmes = append(tv.Programmes, outProgramme{
			Start:   FormatTime(p.Start),
			Stop:    FormatTime(p.Stop),
			Channel: p.Channel,
			Title:   p.Title,
			Desc:    p.Description,
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(tv); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return enc.Close()
}
