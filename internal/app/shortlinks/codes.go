package shortlinks

import (
	"fmt"
	"regexp"

	"github.com/sqids/sqids-go"
)

var customCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{4,32}$`)

// Codec turns row ids into short codes.
type Codec struct {
	sq *sqids.Sqids
}

func NewCodec(alphabet string) (*Codec, error) {
	opts := sqids.Options{MinLength: 3}
	if alphabet != "" {
		opts.Alphabet = alphabet
	}
	sq, err := sqids.New(opts)
	if err != nil {
		return nil, fmt.Errorf("sqids init: %w", err)
	}
	return &Codec{sq: sq}, nil
}

func (c *Codec) Encode(id int64) (string, error) {
	if id < 0 {
		return "", fmt.Errorf("negative id %d", id)
	}
	return c.sq.Encode([]uint64{uint64(id)})
}

func validCustomCode(code string) bool {
	return customCodePattern.MatchString(code)
}
