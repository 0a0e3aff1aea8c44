package primitives_test

import (
	"context"
	"crypto/rand"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/luxfi/primitives/internal/field"
	"github.com/luxfi/primitives/internal/operation"
	"github.com/luxfi/primitives/internal/party"
	"github.com/luxfi/primitives/internal/scheduler"
	"github.com/luxfi/primitives/internal/shamir"
	"github.com/luxfi/primitives/pkg/messenger"
	"github.com/luxfi/primitives/pkg/primitives"
)

func TestPrimitives(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Primitives Engine End-to-End Suite")
}

// buildEngines constructs one Engine per peer (MyPrivacyPeerIndex 1..m)
// over a shared in-memory network, the public-API equivalent of the
// driver suite's setupParties.
func buildEngines(m, degree int, p uint64) (map[party.ID]*primitives.Engine, *messenger.Network) {
	cfg := primitives.Config{
		PrimeFieldSize:          p,
		PolynomialDegreeT:       degree,
		NumPrivacyPeers:         m,
		ParallelOperationsCount: 64,
	}
	ids := cfg.Peers()
	net := messenger.NewNetwork(ids, 64)
	engines := make(map[party.ID]*primitives.Engine, m)
	for _, id := range ids {
		peerCfg := cfg
		peerCfg.MyPrivacyPeerIndex = int(id)
		e, err := primitives.NewEngine(peerCfg, net.For(id))
		Expect(err).NotTo(HaveOccurred())
		engines[id] = e
	}
	return engines, net
}

// runAllRounds drives every engine's driver loop in lockstep, round by
// round, each round bounded by its own short deadline, until every
// engine reports no active operations or maxRounds is exhausted.
func runAllRounds(engines map[party.ID]*primitives.Engine, maxRounds int) {
	for round := 0; round < maxRounds; round++ {
		allDone := true
		errs := make(chan error, len(engines))
		inFlight := 0
		for _, e := range engines {
			if e.ActiveCount() == 0 {
				continue
			}
			allDone = false
			inFlight++
			go func(e *primitives.Engine) {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				errs <- e.RunRound(ctx)
			}(e)
		}
		for i := 0; i < inFlight; i++ {
			Expect(<-errs).NotTo(HaveOccurred())
		}
		if allDone {
			return
		}
	}
	Fail("operations did not complete within the round budget")
}

var _ = Describe("Random bit is a bit", func() {
	// Scenario 2: m=3, t=1, p=41. Schedule 100 generate_random_bit
	// operations; every non-failure reconstruction must be 0 or 1.
	It("reconstructs every non-failure draw to 0 or 1", func() {
		engines, net := buildEngines(3, 1, 41)
		defer net.Close()

		ids := party.NewIDSlice(1, 2, 3)
		opIDs := make([]scheduler.OpID, 100)
		for i := 0; i < 100; i++ {
			for _, id := range ids {
				opIDs[i] = engines[id].Submit(operation.NewGenerateRandomBit())
			}
		}

		runAllRounds(engines, 20)

		scheme := engines[ids[0]].Scheme()
		minPresent := scheme.MinSharesFor(scheme.Degree())

		failures := 0
		for _, oid := range opIDs {
			shares := make([]shamir.Share, 0, len(ids))
			failed := false
			for _, id := range ids {
				res, ok := engines[id].Result(oid)
				Expect(ok).To(BeTrue())
				if operation.IsFailure(res.Result) {
					failed = true
					break
				}
				shares = append(shares, shamir.NewShare(id, res.Result[0]))
			}
			if failed {
				failures++
				continue
			}
			v, err := scheme.Reconstruct(shares, minPresent)
			Expect(err).NotTo(HaveOccurred())
			Expect(uint64(v) == 0 || uint64(v) == 1).To(BeTrue())
		}
		// Failure frequency should stay low (the sentinel fires only when
		// the jointly-sampled square root collapses to zero, probability
		// roughly 1/p); with p=41 a handful of failures across 100 draws
		// is expected, a majority is not.
		Expect(failures).To(BeNumerically("<", 50))
	})
})

var _ = Describe("Batch random numbers meet demand", func() {
	// Scenario 3: request a batch of 8 bitwise-random numbers with p=41
	// (BitLen()=6); the batch estimates and retries its draws internally
	// and must still return exactly 8 numbers, 8*6=48 bit shares.
	It("returns exactly 48 bit shares across 8 draws", func() {
		engines, net := buildEngines(3, 1, 41)
		defer net.Close()
		ids := party.NewIDSlice(1, 2, 3)

		f, err := field.New(41)
		Expect(err).NotTo(HaveOccurred())
		n := f.BitLen()
		Expect(n).To(Equal(6))

		const want = 8
		opIDs := make(map[party.ID]scheduler.OpID, len(ids))
		for _, id := range ids {
			opIDs[id] = engines[id].Submit(operation.NewBatchGenerateBitwiseRandomNumbers(want, f))
		}

		runAllRounds(engines, 6*n+30)

		res, ok := engines[ids[0]].Result(opIDs[ids[0]])
		Expect(ok).To(BeTrue())
		Expect(res.Result).To(HaveLen(want * (n + 1)))

		totalBits := 0
		for i := 0; i < want; i++ {
			totalBits += len(res.Result[i*(n+1)+1 : (i+1)*(n+1)])
		}
		Expect(totalBits).To(Equal(want * n))
	})
})

var _ = Describe("Less-than with predicate cache", func() {
	// Scenario 4: m=3, t=1, p=67. Ten pairs less_than(share(5), share(k))
	// for k=1..10, all reusing predicateKeyA="five"; after they all
	// complete the cache must hold exactly one entry for that key and
	// every comparison must agree with the plaintext ordering.
	It("reuses one cached predicate across all ten comparisons", func() {
		engines, net := buildEngines(3, 1, 67)
		defer net.Close()
		ids := party.NewIDSlice(1, 2, 3)

		scheme := engines[ids[0]].Scheme()
		f := scheme.Field()

		fiveShares, err := scheme.Generate(f.Elem(5), rand.Reader)
		Expect(err).NotTo(HaveOccurred())

		const cacheKey = "five"
		opIDs := make([]scheduler.OpID, 10)
		for k := 1; k <= 10; k++ {
			kShares, err := scheme.Generate(f.Elem(uint64(k)), rand.Reader)
			Expect(err).NotTo(HaveOccurred())
			for _, id := range ids {
				opIDs[k-1] = engines[id].Submit(operation.NewLessThan(fiveShares[id].Value, kShares[id].Value, f, operation.HalfUnknown, operation.HalfUnknown, operation.HalfUnknown, cacheKey, "", ""))
			}
		}

		runAllRounds(engines, 600)

		minPresent := scheme.MinSharesFor(scheme.Degree())
		for k := 1; k <= 10; k++ {
			shares := make([]shamir.Share, 0, len(ids))
			for _, id := range ids {
				res, ok := engines[id].Result(opIDs[k-1])
				Expect(ok).To(BeTrue())
				shares = append(shares, shamir.NewShare(id, res.Result[0]))
			}
			v, err := scheme.Reconstruct(shares, minPresent)
			Expect(err).NotTo(HaveOccurred())
			if k > 5 {
				Expect(uint64(v)).To(Equal(uint64(1)), "5 < %d should hold", k)
			} else {
				Expect(uint64(v)).To(Equal(uint64(0)), "5 < %d should not hold", k)
			}
		}

		for _, e := range engines {
			Expect(e.PredicateCacheSize()).To(Equal(1))
		}
	})
})

var _ = Describe("Threshold Bloom filter union", func() {
	// Scenario 6: three filters of length 8, threshold T=2, must
	// reconstruct to [1,0,0,1,0,1,0,0].
	It("reveals positions whose summed counters reach the threshold", func() {
		engines, net := buildEngines(3, 1, 2147483647-4)
		defer net.Close()
		ids := party.NewIDSlice(1, 2, 3)

		scheme := engines[ids[0]].Scheme()
		f := scheme.Field()

		filterValues := [][]uint64{
			{2, 0, 0, 1, 0, 3, 0, 0},
			{0, 1, 0, 1, 0, 2, 0, 0},
			{1, 0, 0, 0, 0, 0, 1, 0},
		}
		expected := []uint64{1, 0, 0, 1, 0, 1, 0, 0}

		// Share every filter position once; each peer's local slice holds
		// its own share of the same three filters.
		perPeerFilters := make(map[party.ID][][]field.Element, len(ids))
		for _, id := range ids {
			perPeerFilters[id] = make([][]field.Element, len(filterValues))
			for fi := range filterValues {
				perPeerFilters[id][fi] = make([]field.Element, len(filterValues[fi]))
			}
		}
		for fi, filter := range filterValues {
			for bi, v := range filter {
				sh, err := scheme.Generate(f.Elem(v), rand.Reader)
				Expect(err).NotTo(HaveOccurred())
				for _, id := range ids {
					perPeerFilters[id][fi][bi] = sh[id].Value
				}
			}
		}

		opIDs := make(map[party.ID]scheduler.OpID, len(ids))
		for _, id := range ids {
			opIDs[id] = engines[id].Submit(operation.NewThresholdUnion(perPeerFilters[id], 2, f))
		}

		runAllRounds(engines, 400)

		minPresent := scheme.MinSharesFor(scheme.Degree())
		result := make([]uint64, len(expected))
		for bi := range expected {
			shares := make([]shamir.Share, 0, len(ids))
			for _, id := range ids {
				res, ok := engines[id].Result(opIDs[id])
				Expect(ok).To(BeTrue())
				shares = append(shares, shamir.NewShare(id, res.Result[bi]))
			}
			v, err := scheme.Reconstruct(shares, minPresent)
			Expect(err).NotTo(HaveOccurred())
			result[bi] = uint64(v)
		}
		Expect(result).To(Equal(expected))
	})
})
