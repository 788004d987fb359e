package room

import (
	"math/rand/v2"
	"strings"
	"sync"
)

const (
	CodeLength   = 6
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// CodeGenerator produces candidate room codes. Uniqueness is the caller's job.
type CodeGenerator interface {
	Generate() string
}

// RandomCodes draws codes uniformly from [A-Z0-9].
type RandomCodes struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomCodes uses src when given, otherwise the runtime's seeded generator.
func NewRandomCodes(src rand.Source) *RandomCodes {
	g := &RandomCodes{}
	if src != nil {
		g.rng = rand.New(src)
	}
	return g
}

func (g *RandomCodes) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	b := make([]byte, CodeLength)
	for i := range b {
		b[i] = codeAlphabet[g.intN(len(codeAlphabet))]
	}
	return string(b)
}

func (g *RandomCodes) intN(n int) int {
	if g.rng == nil {
		return rand.IntN(n)
	}
	return g.rng.IntN(n)
}

// NormalizeCode trims and upper-cases user input.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether code is exactly CodeLength characters of [A-Z0-9].
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(codeAlphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}
