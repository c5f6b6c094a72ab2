package common

import "bytes"

func containsBytes(body []byte, fragment string) bool {
	return bytes.Contains(body, []byte(fragment))
}
