package queue

import "errors"

var (
	ErrNotConnected = errors.New("not connected to MQTT broker")
	// ErrInvalidDiscovery marks a discovery document that can't be turned into a light config.
	ErrInvalidDiscovery = errors.New("invalid discovery document")
	// ErrUnsupportedSchema is returned for json/template schema lights.
	ErrUnsupportedSchema = errors.New("unsupported light schema")
)
