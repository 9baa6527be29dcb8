package checkout

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// GenerateInvoiceNumber builds an invoice reference of the form
// INV-DDMMYY-RRRRRR where RRRRRR is a random 6 digit suffix. The suffix
// is not guaranteed unique here; callers rely on the DB unique index and
// retry on collision.
func GenerateInvoiceNumber(now time.Time) (string, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	suffix := 100000 + binary.BigEndian.Uint32(buf[:])%900000
	return fmt.Sprintf("INV-%s-%06d", now.Format("020106"), suffix), nil
}
