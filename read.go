package bibdex

import (
	"encoding/xml"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ReadXML ingests a bibliography document, feeding element events and
// absolute byte offsets to an Ingestor.
func (db *DB) ReadXML(path string) error {
	if !db.opened {
		return ErrDatabaseNotOpen
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, path)
	}
	defer f.Close()

	dec := xml.NewDecoder(f)
	// bibliography dumps carry entities the decoder has no DTD for
	dec.Strict = false
	in := NewIngestor(db)

	records := 0
	first := true
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, path)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			in.OnStartElement(t.Name.Local)
			if first {
				in.SetOrigin(dec.InputOffset())
				first = false
			}
		case xml.CharData:
			in.OnCharacters([]byte(t))
		case xml.EndElement:
			wasRecord := in.depth == 2
			if err := in.OnEndElement(t.Name.Local, dec.InputOffset()); err != nil {
				return err
			}
			if wasRecord {
				records++
			}
		}
	}
	db.opts.logger.Info("xml ingested",
		zap.String("path", path),
		zap.Int("records", records))
	return nil
}
