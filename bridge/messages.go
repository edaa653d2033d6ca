// Package bridge carries the JSON messages exchanged with an external map host.
//
// Every message is an object discriminated by its "type" field. Inbound
// messages decode into one of the concrete Inbound types; consumers switch
// over them exhaustively.
package bridge

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/pthm-cable/windfield/geo"
)

// MessageType is the value of a message's "type" field.
type MessageType string

// Inbound message types (map host to engine).
const (
	TypeViewportChanged     MessageType = "viewportChanged"
	TypeSetLocation         MessageType = "setLocation"
	TypeLoaded              MessageType = "loaded"
	TypeRestartAnimation    MessageType = "restartAnimation"
	TypeVisibilityChanged   MessageType = "visibilityChanged"
	TypeNativeLocation      MessageType = "nativeLocation"
	TypeNativeLocationError MessageType = "nativeLocationError"
	TypeMapError            MessageType = "mapError"
)

// Outbound message types (engine to map host).
const (
	TypeRequestLocation MessageType = "requestLocation"
	TypeFlyTo           MessageType = "flyTo"
	TypeStatus          MessageType = "status"
)

var (
	// ErrUnknownMessage is returned for a missing or unrecognised type tag.
	ErrUnknownMessage = errors.New("bridge: unknown message type")
	// ErrMalformed is returned when a message is not a valid JSON object
	// of its declared type.
	ErrMalformed = errors.New("bridge: malformed message")
)

// Inbound is a message received from the map host.
type Inbound interface {
	Type() MessageType
	inbound()
}

// Outbound is a message sent to the map host.
type Outbound interface {
	Type() MessageType
	outbound()
}

// ViewportChanged reports that the map settled on new bounds.
type ViewportChanged struct {
	Bounds geo.Bounds `json:"bounds"`
	Zoom   float64    `json:"zoom"`
}

// SetLocation sets the user location explicitly.
type SetLocation struct {
	Coordinates [2]float64 `json:"coordinates"` // [lon, lat]
}

// Point returns the coordinates as a geographic point.
func (m SetLocation) Point() geo.Point { return lonLat(m.Coordinates) }

// Loaded signals that the map host finished loading.
type Loaded struct{}

// RestartAnimation asks the engine to restart its frame loop.
type RestartAnimation struct{}

// VisibilityChanged reports that the host view was shown or hidden.
type VisibilityChanged struct {
	Visible bool `json:"visible"`
}

// NativeLocation answers a RequestLocation.
type NativeLocation struct {
	Coordinates [2]float64 `json:"coordinates"` // [lon, lat]
}

// Point returns the coordinates as a geographic point.
func (m NativeLocation) Point() geo.Point { return lonLat(m.Coordinates) }

// NativeLocationError reports that the host could not determine a location.
type NativeLocationError struct {
	Message string `json:"message"`
}

// MapError reports a map host load or render failure.
type MapError struct {
	Message string `json:"message"`
}

func (ViewportChanged) Type() MessageType     { return TypeViewportChanged }
func (SetLocation) Type() MessageType         { return TypeSetLocation }
func (Loaded) Type() MessageType              { return TypeLoaded }
func (RestartAnimation) Type() MessageType    { return TypeRestartAnimation }
func (VisibilityChanged) Type() MessageType   { return TypeVisibilityChanged }
func (NativeLocation) Type() MessageType      { return TypeNativeLocation }
func (NativeLocationError) Type() MessageType { return TypeNativeLocationError }
func (MapError) Type() MessageType            { return TypeMapError }

func (ViewportChanged) inbound()     {}
func (SetLocation) inbound()         {}
func (Loaded) inbound()              {}
func (RestartAnimation) inbound()    {}
func (VisibilityChanged) inbound()   {}
func (NativeLocation) inbound()      {}
func (NativeLocationError) inbound() {}
func (MapError) inbound()            {}

// RequestLocation asks the map host for the device location.
type RequestLocation struct{}

// FlyTo asks the map host to move its camera.
type FlyTo struct {
	Center [2]float64 `json:"center"` // [lon, lat]
	Zoom   float64    `json:"zoom"`
}

// NewFlyTo builds a FlyTo centred on p.
func NewFlyTo(p geo.Point, zoom float64) FlyTo {
	return FlyTo{Center: [2]float64{p.Lon, p.Lat}, Zoom: zoom}
}

// Status reports the engine state to the map host.
type Status struct {
	State   string `json:"state"`
	Message string `json:"message,omitempty"`
}

func (RequestLocation) Type() MessageType { return TypeRequestLocation }
func (FlyTo) Type() MessageType           { return TypeFlyTo }
func (Status) Type() MessageType          { return TypeStatus }

func (RequestLocation) outbound() {}
func (FlyTo) outbound()           {}
func (Status) outbound()          {}

func lonLat(c [2]float64) geo.Point {
	return geo.Point{Lat: c[1], Lon: c[0]}
}

// DecodeInbound decodes one inbound message.
func DecodeInbound(data []byte) (Inbound, error) {
	var env struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Type {
	case TypeViewportChanged:
		m, err := decode[ViewportChanged](data)
		if err != nil {
			return nil, err
		}
		if err := m.Bounds.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		return m, nil
	case TypeSetLocation:
		return decode[SetLocation](data)
	case TypeLoaded:
		return Loaded{}, nil
	case TypeRestartAnimation:
		return RestartAnimation{}, nil
	case TypeVisibilityChanged:
		return decode[VisibilityChanged](data)
	case TypeNativeLocation:
		return decode[NativeLocation](data)
	case TypeNativeLocationError:
		return decode[NativeLocationError](data)
	case TypeMapError:
		return decode[MapError](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, env.Type)
	}
}

func decode[T Inbound](data []byte) (T, error) {
	var m T
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("%w: %s: %v", ErrMalformed, m.Type(), err)
	}
	return m, nil
}

// EncodeOutbound encodes one outbound message with its type tag.
func EncodeOutbound(m Outbound) ([]byte, error) {
	switch v := m.(type) {
	case RequestLocation:
		return json.Marshal(struct {
			Type MessageType `json:"type"`
		}{v.Type()})
	case FlyTo:
		return json.Marshal(struct {
			Type MessageType `json:"type"`
			FlyTo
		}{v.Type(), v})
	case Status:
		return json.Marshal(struct {
			Type MessageType `json:"type"`
			Status
		}{v.Type(), v})
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownMessage, m)
	}
}
