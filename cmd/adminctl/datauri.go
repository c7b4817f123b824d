package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
)

// decodeDataURI returns the payload of a base64 "data:" URI.
func decodeDataURI(uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, fmt.Errorf("not a data URI")
	}
	meta, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("data URI has no payload")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return []byte(payload), nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decoding data URI: %w", err)
	}
	return data, nil
}

func writeDataURI(path, uri string) error {
	data, err := decodeDataURI(uri)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
