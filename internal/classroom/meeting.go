package classroom

import (
	"crypto/rand"
	"math/big"
)

const (
	meetingPrefix   = "edumeet-"
	meetingIDLength = 10
	meetingAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// GenerateMeetingID returns "edumeet-" followed by ten random lowercase alphanumerics.
func GenerateMeetingID() (string, error) {
	buf := make([]byte, meetingIDLength)
	max := big.NewInt(int64(len(meetingAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = meetingAlphabet[n.Int64()]
	}
	return meetingPrefix + string(buf), nil
}
