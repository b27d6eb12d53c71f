package pool

import (
	"fmt"
	"strconv"
	"strings"
)

const tickCommand = "TICK"

var tickCmd = EncodeCommandKey(tickCommand)

func EncodeCommandKey(cmd string) string {
	return fmt.Sprintf("cmd:%s", cmd)
}

func EncodeJobKey(id uint64) string {
	return fmt.Sprintf("job:%d", id)
}

// DecodeKey decodes a queue key into a command or job id.
func DecodeKey(key string) (string, uint64, error) {
	i := strings.Index(key, ":")
	if i < 0 {
		return "", 0, fmt.Errorf("unexpected key format: %q", key)
	}
	switch key[:i] {
	case "cmd":
		return key[i+1:], 0, nil
	case "job":
		id, err := strconv.ParseUint(key[i+1:], 10, 64)
		if err != nil {
			return "", 0, fmt.Errorf("error decoding %q: %w", key, err)
		}
		return "", id, nil
	}
	return "", 0, fmt.Errorf("unexpected key type: %q", key)
}
