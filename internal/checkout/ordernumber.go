package checkout

import (
	"crypto/rand"
	"io"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	orderNumberPrefix = "ORD"
	suffixLength      = 4
	base36Alphabet    = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// NewOrderNumber builds ORD-<base36 unix millis>-<4 random base36>, upper
// case. Uniqueness is enforced by the database, not here.
func NewOrderNumber(now time.Time, random io.Reader) string {
	if random == nil {
		random = rand.Reader
	}
	stamp := strconv.FormatInt(now.UnixMilli(), 36)

	var suffix strings.Builder
	max := big.NewInt(int64(len(base36Alphabet)))
	for i := 0; i < suffixLength; i++ {
		n, err := rand.Int(random, max)
		if err != nil {
			suffix.WriteByte('0')
			continue
		}
		suffix.WriteByte(base36Alphabet[n.Int64()])
	}
	return strings.ToUpper(orderNumberPrefix + "-" + stamp + "-" + suffix.String())
}
