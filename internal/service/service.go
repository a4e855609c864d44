// Package service implements the M3U and XMLTV import use cases.
package service

import (
	"context"
	"time"

	"github.com/may5ra/server-stream-one/internal/fetcher"
	"github.com/may5ra/server-stream-one/internal/xmltv"
)

// Fetcher downloads a source document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// MaxSourceSize caps a downloaded playlist or guide.
const MaxSourceSize = xmltv.MaxDocumentSize

// NewSourceClient returns the client playlist and guide downloads use.
func NewSourceClient(userAgent string, timeout time.Duration) *fetcher.Client {
	return fetcher.New(userAgent, timeout, fetcher.WithMaxBody(MaxSourceSize))
}

// maxReportedErrors caps the error list returned to the caller. Counts
// are not capped.
const maxReportedErrors = 10

// errorList collects at most maxReportedErrors messages.
type errorList []string

func (l *errorList) add(msg string) {
	if len(*l) < maxReportedErrors {
		*l = append(*l, msg)
	}
}
