package testmodels

import (
	"github.com/go-openapi/strfmt"

	"github.com/suparena/fieldstore/identity"
)

// Note is keyed by a strfmt.UUID and carries a timestamp.
type Note struct {
	ID        strfmt.UUID     `json:"id"`
	Title     string          `json:"title"`
	Body      string          `json:"body,omitempty"`
	Draft     bool            `json:"draft"`
	CreatedAt strfmt.DateTime `json:"createdAt"`
}

var NoteDescriptor = identity.MustNew[strfmt.UUID, Note]("id",
	func(n *Note) strfmt.UUID { return n.ID }, identity.StringKey[strfmt.UUID])
