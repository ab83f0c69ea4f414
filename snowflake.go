package discord

import (
	"fmt"
	"strconv"
)

// parseSnowflake validates that id is a non-negative decimal number that fits in 64 bits.
// discordgo takes ids as strings, so the canonical string form is returned.
func parseSnowflake(id string) (string, error) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidSnowflake, id)
	}

	return strconv.FormatUint(n, 10), nil
}
