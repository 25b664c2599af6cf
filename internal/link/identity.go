package link

import "strings"

// trackerSuffix is appended to the room to form the tracker's public identity.
const trackerSuffix = "-tracker"

// NormalizeRoom trims the user-supplied room id and rejects empty ones.
func NormalizeRoom(room string) (string, error) {
	room = strings.TrimSpace(room)
	if room == "" {
		return "", ErrEmptyRoom
	}
	return room, nil
}

// TrackerIdentity is the identity a tracker publishes for room, and the one a
// viewer connects to. This string is the whole pairing protocol.
func TrackerIdentity(room string) (string, error) {
	room, err := NormalizeRoom(room)
	if err != nil {
		return "", err
	}
	return room + trackerSuffix, nil
}
