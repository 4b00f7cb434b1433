// Package envelope models the messages csvflow consumes: one or more named
// raw payload items plus a manifest describing where they came from.
package envelope

import (
	"errors"
	"fmt"
)

// ItemEntry is the item that carries the delimited text payload.
const ItemEntry = "entry"

var (
	ErrItemNotFound   = errors.New("envelope: item not found")
	ErrMissingID      = errors.New("envelope: id is required")
	ErrMissingItems   = errors.New("envelope: at least one item is required")
	ErrMalformedInput = errors.New("envelope: malformed payload")
)

// Item is one raw payload with the metadata the producer attached to it.
type Item struct {
	Data     []byte         `json:"data"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Envelope is one unit of input data.
type Envelope struct {
	ID       string          `json:"id"`
	Position string          `json:"position,omitempty"`
	Topic    string          `json:"topic,omitempty"`
	Items    map[string]Item `json:"items"`
	Manifest map[string]any  `json:"manifest,omitempty"`
}

// Validate checks the fields every envelope must carry.
func (e *Envelope) Validate() error {
	if e == nil {
		return ErrMalformedInput
	}
	var errs []error
	if e.ID == "" {
		errs = append(errs, ErrMissingID)
	}
	if len(e.Items) == 0 {
		errs = append(errs, ErrMissingItems)
	}
	return errors.Join(errs...)
}

// Item returns the named item or ErrItemNotFound.
func (e *Envelope) Item(name string) (Item, error) {
	item, ok := e.Items[name]
	if !ok {
		return Item{}, fmt.Errorf("%w: %q in envelope %s", ErrItemNotFound, name, e.PosAndID())
	}
	return item, nil
}

// Data returns the payload of the named item.
func (e *Envelope) Data(name string) ([]byte, error) {
	item, err := e.Item(name)
	if err != nil {
		return nil, err
	}
	return item.Data, nil
}

// ItemMetadata returns the metadata of the named item.
func (e *Envelope) ItemMetadata(name string) (map[string]any, error) {
	item, err := e.Item(name)
	if err != nil {
		return nil, err
	}
	return item.Metadata, nil
}

// PosAndID identifies the envelope in logs and errors.
func (e *Envelope) PosAndID() string {
	if e == nil {
		return "pos=?, id=?"
	}
	pos := e.Position
	if pos == "" {
		pos = "?"
	}
	return fmt.Sprintf("pos=%s, id=%s", pos, e.ID)
}
