package query

import (
	"encoding/xml"
	"io"

	"github.com/pkg/errors"
)

type xmlQuerySet struct {
	XMLName xml.Name   `xml:"queries"`
	Name    string     `xml:"workload,attr,omitempty"`
	Queries []xmlQuery `xml:"query"`
}

type xmlQuery struct {
	ID          int           `xml:"id,attr"`
	Language    string        `xml:"language,attr"`
	Shape       string        `xml:"shape,attr"`
	Selectivity string        `xml:"selectivity,attr"`
	Arity       int           `xml:"arity,attr"`
	Head        []string      `xml:"head>var"`
	Conjuncts   []xmlConjunct `xml:"body>conjunct"`
}

type xmlConjunct struct {
	Source string `xml:"src,attr"`
	Target string `xml:"trg,attr"`
	Star   bool   `xml:"star,attr,omitempty"`
	Expr   string `xml:",chardata"`
}

func toXML(q *Query) xmlQuery {
	out := xmlQuery{
		ID:          q.ID,
		Language:    q.Language.String(),
		Shape:       q.Shape.String(),
		Selectivity: q.Selectivity.String(),
		Arity:       q.Arity(),
	}
	for _, v := range q.Projected {
		out.Head = append(out.Head, v.String())
	}
	for _, c := range q.Conjuncts {
		out.Conjuncts = append(out.Conjuncts, xmlConjunct{
			Source: c.Source.String(),
			Target: c.Target.String(),
			Star:   c.Star,
			Expr:   c.Expr.String(),
		})
	}
	return out
}

// MarshalXML encodes a single query.
func (q *Query) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: "query"}
	return e.EncodeElement(toXML(q), start)
}

// WriteXML writes the set as an indented XML document.
func (s *QuerySet) WriteXML(w io.Writer) error {
	doc := xmlQuerySet{Name: s.Name}
	for _, q := range s.Queries {
		doc.Queries = append(doc.Queries, toXML(q))
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return errors.Wrap(err, "write xml header")
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "encode queries")
	}
	return errors.Wrap(enc.Flush(), "flush queries")
}
