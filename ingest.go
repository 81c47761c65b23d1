package bibdex

import (
	"strings"

	"github.com/bibdex/bibdex/model"
)

type fieldState int

const (
	fieldOther fieldState = iota
	fieldAuthor
	fieldTitle
)

func stateFor(element string) fieldState {
	switch element {
	case "author":
		return fieldAuthor
	case "title":
		return fieldTitle
	}
	return fieldOther
}

// Ingestor turns element-level parser events into index writes. Character
// data accumulates per element; closing a depth-2 element ends one
// bibliographic record and flushes the pending keys against the byte
// extent since the previous record end.
type Ingestor struct {
	db *DB

	state   fieldState
	depth   int
	buf     []byte
	prevEnd uint32

	authors []string
	titles  []string
}

func NewIngestor(db *DB) *Ingestor {
	return &Ingestor{db: db}
}

// SetOrigin positions the first record extent just past the document
// preamble (the root element's opening tag).
func (in *Ingestor) SetOrigin(offset int64) {
	in.prevEnd = uint32(offset)
}

func (in *Ingestor) OnStartElement(name string) {
	in.buf = in.buf[:0]
	in.depth++
	in.state = stateFor(name)
}

func (in *Ingestor) OnCharacters(data []byte) {
	if in.state != fieldOther {
		in.buf = append(in.buf, data...)
	}
}

// OnEndElement closes an element at the given absolute byte offset.
func (in *Ingestor) OnEndElement(name string, offset int64) error {
	in.state = stateFor(name)
	in.depth--
	switch in.state {
	case fieldAuthor:
		in.authors = append(in.authors, splitKeys(string(in.buf))...)
	case fieldTitle:
		in.titles = append(in.titles, splitKeys(string(in.buf))...)
	}
	if in.depth != 1 {
		return nil
	}
	end := uint32(offset)
	rec := model.Record{Pos: in.prevEnd, Len: end - in.prevEnd}
	for _, a := range in.authors {
		if err := in.db.Insert(rec, a, model.FieldAuthor); err != nil {
			return err
		}
		if err := in.db.IndexTokens(strings.Fields(a), rec); err != nil {
			return err
		}
		if err := in.db.TallyAuthor(a); err != nil {
			return err
		}
	}
	for _, t := range in.titles {
		if err := in.db.Insert(rec, t, model.FieldTitle); err != nil {
			return err
		}
		if err := in.db.IndexTokens(strings.Fields(t), rec); err != nil {
			return err
		}
	}
	in.prevEnd = end
	in.authors = in.authors[:0]
	in.titles = in.titles[:0]
	return nil
}

// splitKeys breaks a field value on the " - " and "; " separators,
// leftmost first, and truncates each piece to the fixed key length.
func splitKeys(text string) []string {
	var out []string
	for {
		dash := strings.Index(text, " - ")
		semi := strings.Index(text, "; ")
		if dash < 0 && semi < 0 {
			break
		}
		at, width := semi, 2
		if dash >= 0 && (semi < 0 || dash < semi) {
			at, width = dash, 3
		}
		out = append(out, model.NormalizeKey(text[:at]))
		text = text[at+width:]
	}
	return append(out, model.NormalizeKey(text))
}
