package metadata

import "github.com/ThreeDotsLabs/watermill/message"

// FromWatermill copies Watermill message metadata.
func FromWatermill(md message.Metadata) Metadata {
	if len(md) == 0 {
		return Metadata{}
	}

	result := make(Metadata, len(md))
	for k, v := range md {
		result[k] = v
	}
	return result
}

// ToWatermill copies metadata into a Watermill map.
func ToWatermill(metadata Metadata) message.Metadata {
	if len(metadata) == 0 {
		return message.Metadata{}
	}

	wm := make(message.Metadata, len(metadata))
	for k, v := range metadata {
		wm[k] = v
	}
	return wm
}

// Apply writes entries onto msg, overwriting existing keys.
func Apply(msg *message.Message, entries Metadata) {
	if msg.Metadata == nil {
		msg.Metadata = make(message.Metadata, len(entries))
	}
	for k, v := range entries {
		msg.Metadata.Set(k, v)
	}
}
