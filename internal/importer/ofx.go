package importer

import (
	"fmt"
	"io"

	"github.com/cleared-dev/ofxsync/internal/model"
	"github.com/cleared-dev/ofxsync/internal/ofx"
)

// OFXParser parses OFX and QFX statement exports.
type OFXParser struct {
	format string
}

// Format returns the parser name.
func (p *OFXParser) Format() string { return p.format }

// Parse reads a statement export and returns its transactions.
func (p *OFXParser) Parse(r io.Reader) ([]model.RawTransaction, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s file: %w", p.format, err)
	}
	return ofx.Parse(data)
}
