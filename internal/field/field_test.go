package field_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/primitives/internal/field"
)

func TestAddSubMulSmallPrime(t *testing.T) {
	f, err := field.New(41)
	require.NoError(t, err)

	a, b := field.Element(30), field.Element(20)
	assert.EqualValues(t, 9, f.Add(a, b)) // 50 mod 41
	assert.EqualValues(t, 10, f.Sub(a, b))
	assert.EqualValues(t, 26, f.Mul(a, b)) // 600 mod 41 = 600-14*41 = 26
}

func TestMulMatchesBruteForce(t *testing.T) {
	f, err := field.New(67)
	require.NoError(t, err)
	for a := uint64(0); a < 67; a++ {
		for b := uint64(0); b < 67; b++ {
			want := (a * b) % 67
			got := f.Mul(field.Element(a), field.Element(b))
			require.EqualValues(t, want, got)
		}
	}
}

func TestInverse(t *testing.T) {
	f, err := field.New(2147483647) // Mersenne prime 2^31-1
	require.NoError(t, err)

	a := field.Element(123456789)
	inv, err := f.Inverse(a)
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.Mul(a, inv))
}

func TestInverseZeroErrors(t *testing.T) {
	f, err := field.New(41)
	require.NoError(t, err)
	_, err = f.Inverse(0)
	assert.Error(t, err)
}

func TestLegendreAndSqrtP3Mod4(t *testing.T) {
	// 67 ≡ 3 mod 4
	f, err := field.New(67)
	require.NoError(t, err)
	square := f.Mul(5, 5)
	root, err := f.Sqrt(square)
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.Legendre(square))
	recombined := f.Mul(root, root)
	assert.EqualValues(t, uint64(square), uint64(recombined))
}

func TestLegendreAndSqrtP1Mod4(t *testing.T) {
	// 41 ≡ 1 mod 4
	f, err := field.New(41)
	require.NoError(t, err)
	square := f.Mul(7, 7)
	root, err := f.Sqrt(square)
	require.NoError(t, err)
	recombined := f.Mul(root, root)
	assert.EqualValues(t, uint64(square), uint64(recombined))
}

func TestSqrtNonResidueErrors(t *testing.T) {
	f, err := field.New(7) // 7 ≡ 3 mod 4; nonresidues exist
	require.NoError(t, err)
	// find a known non-residue by brute force
	var nonResidue field.Element = 0
	for v := uint64(1); v < 7; v++ {
		if f.Legendre(field.Element(v)) != 1 {
			nonResidue = field.Element(v)
			break
		}
	}
	require.NotZero(t, nonResidue)
	_, err = f.Sqrt(nonResidue)
	assert.Error(t, err)
}

func TestBitsRoundTrip(t *testing.T) {
	f, err := field.New(2147483647)
	require.NoError(t, err)
	assert.Equal(t, 31, f.BitLen())

	bits := f.Bits(12345)
	assert.Equal(t, uint64(12345), field.FromBits(bits))
}

func TestBigPrimeFallback(t *testing.T) {
	// A modulus above the 32-bit fast-path threshold, forcing the saferith path.
	const p = uint64(1) << 61 // not necessarily prime, but arithmetic must still be self-consistent
	f, err := field.New(p + 1) // nudge away from a power of two
	require.NoError(t, err)

	a := field.Element(p / 3)
	b := field.Element(p / 7)
	sum := f.Add(a, b)
	assert.EqualValues(t, (uint64(a)+uint64(b))%(p+1), uint64(sum))

	prod := f.Mul(a, b)
	// cross-check against big.Int-free manual reduction is impractical here;
	// instead check multiplicative identity a*1 == a.
	one := f.Elem(1)
	assert.EqualValues(t, uint64(a), uint64(f.Mul(a, one)))
	_ = prod
}
