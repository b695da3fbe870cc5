package firestore

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// pageToken is the cursor used by the createdAt-ordered listings. The
// document ID breaks ties between equal timestamps.
type pageToken struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

func encodePageToken(token pageToken) (string, error) {
	return encodeListToken(token)
}

func decodePageToken(encoded string) (*pageToken, error) {
	var token pageToken
	if err := decodeListToken(encoded, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

func encodeListToken(token any) (string, error) {
	data, err := json.Marshal(token)
	if err != nil {
		return "", fmt.Errorf("encode page token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

func decodeListToken(encoded string, target any) error {
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("decode page token: %w", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode page token json: %w", err)
	}
	return nil
}
