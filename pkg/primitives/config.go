package primitives

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	mathrand "math/rand"
	"sync"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/chacha20"

	"github.com/luxfi/primitives/internal/field"
	"github.com/luxfi/primitives/internal/party"
)

// RandomAlgorithm selects the source of randomness Config.Rand() builds,
// matching spec.md §6's random_algorithm configuration knob.
type RandomAlgorithm string

const (
	// RandomCSPRNG uses crypto/rand, the only safe choice for any
	// production deployment generating real shares.
	RandomCSPRNG RandomAlgorithm = "csprng"
	// RandomDeterministic uses a seeded math/rand stream, for
	// reproducible tests and benchmarks only.
	RandomDeterministic RandomAlgorithm = "deterministic"
	// RandomChaCha20 derives a ChaCha20 keystream from DeterministicSeed,
	// for reproducible benchmarks that still want a cryptographic-quality
	// stream rather than math/rand's weaker PRNG.
	RandomChaCha20 RandomAlgorithm = "chacha20"
)

// Config holds the engine's static configuration, validated once at
// NewEngine and immutable afterward.
type Config struct {
	// PrimeFieldSize is the modulus p of the working field (prime_field_size).
	PrimeFieldSize uint64
	// PolynomialDegreeT is the Shamir sharing degree t (polynomial_degree_t).
	PolynomialDegreeT int
	// NumPrivacyPeers is the total peer count m (num_privacy_peers).
	NumPrivacyPeers int
	// MyPrivacyPeerIndex is this engine's own 1-based peer index (my_privacy_peer_index).
	MyPrivacyPeerIndex int
	// ParallelOperationsCount bounds how many top-level operations the
	// scheduler may advance concurrently before queueing the rest
	// (parallel_operations_count). 0 selects "all in parallel".
	ParallelOperationsCount int
	// SynchronizeShares enables Multiply's share-synchronisation
	// handshake (synchronize_shares).
	SynchronizeShares bool
	// RandomAlgorithm selects the randomness source (random_algorithm).
	RandomAlgorithm RandomAlgorithm
	// DeterministicSeed seeds the RandomDeterministic and RandomChaCha20
	// sources; ignored by RandomCSPRNG.
	DeterministicSeed int64
}

// Validate checks every field for internal consistency, returning a
// *ProtocolError describing the first violation found.
func (c Config) Validate() error {
	if c.PrimeFieldSize < 2 {
		return &ProtocolError{Op: "Config", Msg: "prime_field_size must be >= 2"}
	}
	if c.NumPrivacyPeers < 1 {
		return &ProtocolError{Op: "Config", Msg: "num_privacy_peers must be >= 1"}
	}
	maxDegree := (c.NumPrivacyPeers - 1) / 2
	if c.PolynomialDegreeT < 1 || c.PolynomialDegreeT > maxDegree {
		return &ProtocolError{Op: "Config", Msg: fmt.Sprintf("polynomial_degree_t must be in [1, %d] for %d peers", maxDegree, c.NumPrivacyPeers)}
	}
	if c.MyPrivacyPeerIndex < 1 || c.MyPrivacyPeerIndex > c.NumPrivacyPeers {
		return &ProtocolError{Op: "Config", Msg: "my_privacy_peer_index out of range"}
	}
	if c.ParallelOperationsCount < 0 {
		return &ProtocolError{Op: "Config", Msg: "parallel_operations_count must be >= 0 (0 selects all in parallel)"}
	}
	switch c.RandomAlgorithm {
	case RandomCSPRNG, RandomDeterministic, RandomChaCha20, "":
	default:
		return &ProtocolError{Op: "Config", Msg: fmt.Sprintf("unknown random_algorithm %q", c.RandomAlgorithm)}
	}
	return nil
}

// Self returns this engine's party.ID, derived from MyPrivacyPeerIndex.
func (c Config) Self() party.ID { return party.ID(c.MyPrivacyPeerIndex) }

// Peers returns the ordered peer set 1..NumPrivacyPeers.
func (c Config) Peers() party.IDSlice {
	ids := make([]party.ID, c.NumPrivacyPeers)
	for i := range ids {
		ids[i] = party.ID(i + 1)
	}
	return party.NewIDSlice(ids...)
}

// Rand builds the io.Reader this engine should sample randomness from,
// per RandomAlgorithm. The scheduler steps operations concurrently
// (internal/scheduler's errgroup fan-out), so every non-crypto/rand
// source is wrapped in a mutex: crypto/rand.Reader is documented safe
// for concurrent use, math/rand and chacha20's stream cipher are not.
func (c Config) Rand() io.Reader {
	switch c.RandomAlgorithm {
	case RandomDeterministic:
		return &syncReader{r: mathrand.New(mathrand.NewSource(c.DeterministicSeed))}
	case RandomChaCha20:
		return &syncReader{r: newChaCha20Reader(c.DeterministicSeed)}
	default:
		return rand.Reader
	}
}

// syncReader serialises Read calls over a source that is not itself
// safe for concurrent use.
type syncReader struct {
	mu sync.Mutex
	r  io.Reader
}

func (s *syncReader) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Read(p)
}

// chaCha20Reader exposes a chacha20.Cipher's keystream as an io.Reader,
// the same trick used to turn a stream cipher into a CSPRNG-shaped
// source: XOR the keystream over an all-zero buffer.
type chaCha20Reader struct {
	cipher *chacha20.Cipher
}

// newChaCha20Reader derives a 32-byte key from seed via blake3 (seed
// alone is rarely 32 bytes, and hashing avoids biased low-order key
// bytes) and starts a ChaCha20 stream with a fixed zero nonce -- safe
// here because each Config/seed pair is only ever used for one
// reproducible run, never key-reused across distinct messages.
func newChaCha20Reader(seed int64) *chaCha20Reader {
	var seedBytes [8]byte
	binary.LittleEndian.PutUint64(seedBytes[:], uint64(seed))
	h := blake3.New()
	h.Write(seedBytes[:])
	key := h.Sum(nil)[:chacha20.KeySize]
	nonce := make([]byte, chacha20.NonceSize)
	cipher, err := chacha20.NewUnauthenticatedCipher(key, nonce)
	if err != nil {
		panic(fmt.Sprintf("primitives: chacha20 init: %v", err))
	}
	return &chaCha20Reader{cipher: cipher}
}

func (c *chaCha20Reader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	c.cipher.XORKeyStream(p, p)
	return len(p), nil
}

// Field constructs the Field this config describes.
func (c Config) Field() (*field.Field, error) {
	return field.New(c.PrimeFieldSize)
}
