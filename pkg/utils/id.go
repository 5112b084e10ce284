package utils

import (
	"fmt"

	"github.com/google/uuid"
)

// GenerateID returns a unique identifier of the form "<prefix>_<uuid>".
func GenerateID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}
