package sync

import "time"

const (
	EventCreate = "catalog.create"
	EventUpdate = "catalog.update"
	EventDelete = "catalog.delete"
)

type CatalogEvent struct {
	Type       string    `json:"type"`
	Collection string    `json:"collection"`
	ID         string    `json:"id"`
	Title      string    `json:"title,omitempty"`
	At         time.Time `json:"at"`
}

func NewEvent(typ, collection, id, title string) CatalogEvent {
	return CatalogEvent{
		Type:       typ,
		Collection: collection,
		ID:         id,
		Title:      title,
		At:         time.Now().UTC(),
	}
}
