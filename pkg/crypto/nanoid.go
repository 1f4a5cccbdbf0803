package crypto

import (
	"crypto/rand"
	"errors"
	"math/bits"
	"strings"
)

const (
	// IDAlphabet is lowercase only so ids survive case-insensitive lookups
	IDAlphabet      = "0123456789abcdefghijklmnopqrstuvwxyz"
	DefaultIDLength = 20 // 20 * log2(36) ≈ 103 bits

	minAlphabetSize = 8
	maxAlphabetSize = 256
)

var (
	ErrAlphabetTooShort   = errors.New("alphabet must contain at least 8 characters")
	ErrAlphabetTooLong    = errors.New("alphabet must contain no more than 256 characters")
	ErrAlphabetNotASCII   = errors.New("alphabet must contain only ASCII characters")
	ErrAlphabetDuplicates = errors.New("alphabet must not repeat characters")
)

// IDGenerator produces prefixed random ids such as "usr_k3x9...".
// It is safe for concurrent use.
type IDGenerator struct {
	prefix   string
	alphabet string
	mask     byte
	length   int
}

// NewIDGenerator returns a generator for prefix+length characters drawn
// from alphabet. An empty alphabet selects IDAlphabet and a non-positive
// length selects DefaultIDLength.
func NewIDGenerator(prefix, alphabet string, length int) (*IDGenerator, error) {
	if alphabet == "" {
		alphabet = IDAlphabet
	}
	if length <= 0 {
		length = DefaultIDLength
	}

	if len(alphabet) < minAlphabetSize {
		return nil, ErrAlphabetTooShort
	}
	if len(alphabet) > maxAlphabetSize {
		return nil, ErrAlphabetTooLong
	}
	for i := 0; i < len(alphabet); i++ {
		if alphabet[i] > 127 {
			return nil, ErrAlphabetNotASCII
		}
		if strings.IndexByte(alphabet[i+1:], alphabet[i]) >= 0 {
			return nil, ErrAlphabetDuplicates
		}
	}

	// smallest all-ones mask covering every index
	mask := byte(1<<bits.Len(uint(len(alphabet)-1)) - 1)

	return &IDGenerator{
		prefix:   prefix,
		alphabet: alphabet,
		mask:     mask,
		length:   length,
	}, nil
}

// New returns a fresh id. Bytes that fall outside the alphabet after
// masking are discarded so every character is equally likely.
func (g *IDGenerator) New() (string, error) {
	id := make([]byte, 0, len(g.prefix)+g.length)
	id = append(id, g.prefix...)

	buffer := make([]byte, g.length*2)
	for len(id) < cap(id) {
		if _, err := rand.Read(buffer); err != nil {
			return "", err
		}
		for _, b := range buffer {
			index := int(b & g.mask)
			if index >= len(g.alphabet) {
				continue
			}
			id = append(id, g.alphabet[index])
			if len(id) == cap(id) {
				break
			}
		}
	}

	return string(id), nil
}
