package pose

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrMalformedPose is returned when an inbound payload is not a valid Pose.
var ErrMalformedPose = errors.New("malformed pose")

// wireMessage is the data channel payload: {yaw, pitch, roll, t}.
// Pointer fields let Decode tell a missing angle from a zero one.
type wireMessage struct {
	Yaw   *float64 `msgpack:"yaw" json:"yaw"`
	Pitch *float64 `msgpack:"pitch" json:"pitch"`
	Roll  *float64 `msgpack:"roll" json:"roll"`
	T     *float64 `msgpack:"t,omitempty" json:"t,omitempty"`
}

// Encode serialises p as a msgpack map.
func Encode(p Pose) ([]byte, error) {
	t := p.SentAt
	return msgpack.Marshal(wireMessage{
		Yaw:   &p.Yaw,
		Pitch: &p.Pitch,
		Roll:  &p.Roll,
		T:     &t,
	})
}

// Decode parses a binary msgpack payload. It fails closed: any missing or
// non-numeric angle rejects the whole message.
func Decode(data []byte) (Pose, error) {
	var msg wireMessage
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return Pose{}, fmt.Errorf("%w: %v", ErrMalformedPose, err)
	}
	return msg.pose()
}

// DecodeJSON parses a text payload, as sent by browser trackers.
func DecodeJSON(data []byte) (Pose, error) {
	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return Pose{}, fmt.Errorf("%w: %v", ErrMalformedPose, err)
	}
	return msg.pose()
}

// DecodeMessage picks the codec by data channel frame kind.
func DecodeMessage(data []byte, isString bool) (Pose, error) {
	if isString {
		return DecodeJSON(data)
	}
	return Decode(data)
}

func (m wireMessage) pose() (Pose, error) {
	fields := []struct {
		name string
		v    *float64
	}{{"yaw", m.Yaw}, {"pitch", m.Pitch}, {"roll", m.Roll}}

	for _, f := range fields {
		if f.v == nil {
			return Pose{}, fmt.Errorf("%w: missing %s", ErrMalformedPose, f.name)
		}
		if math.IsNaN(*f.v) || math.IsInf(*f.v, 0) {
			return Pose{}, fmt.Errorf("%w: %s is not finite", ErrMalformedPose, f.name)
		}
	}

	p := Pose{Yaw: *m.Yaw, Pitch: *m.Pitch, Roll: *m.Roll}
	if m.T != nil {
		p.SentAt = *m.T
	}
	return p, nil
}
