package utils

import (
	"strings"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const referenceAlphabet = "0123456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// GenerateReference returns a short human readable booking reference, e.g. "BK-7Q2M9XKD".
func GenerateReference(prefix string) string {
	id, err := gonanoid.Generate(referenceAlphabet, 8)
	if err != nil {
		return prefix + "-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	}
	return prefix + "-" + id
}

// GenerateToken returns an opaque random token, used as lock owner ids.
func GenerateToken() string {
	id, err := gonanoid.New()
	if err != nil {
		return uuid.NewString()
	}
	return id
}

func ToUUID(s string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func ParseUUID(s string) (uuid.UUID, bool) {
	id := ToUUID(s)
	return id, id != uuid.Nil
}
