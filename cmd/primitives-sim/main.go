package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"

	"github.com/luxfi/primitives/internal/operation"
	"github.com/luxfi/primitives/internal/party"
	"github.com/luxfi/primitives/internal/scheduler"
	"github.com/luxfi/primitives/internal/shamir"
	"github.com/luxfi/primitives/pkg/messenger"
	"github.com/luxfi/primitives/pkg/primitives"
)

var (
	numPeers  int
	degree    int
	primeSize uint64
	scenario  string

	rootCmd = &cobra.Command{
		Use:   "primitives-sim",
		Short: "Local simulation driver for the Shamir-share primitives engine",
		Long: `primitives-sim wires one Engine per simulated privacy peer over an
in-memory network and runs a chosen operation scenario to completion,
printing the reconstructed result.`,
	}

	simulateCmd = &cobra.Command{
		Use:   "simulate",
		Short: "Run a scenario across simulated privacy peers",
		RunE:  runSimulate,
	}
)

func init() {
	rootCmd.PersistentFlags().IntVarP(&numPeers, "peers", "m", 3, "number of privacy peers")
	rootCmd.PersistentFlags().IntVarP(&degree, "degree", "t", 1, "Shamir polynomial degree")
	rootCmd.PersistentFlags().Uint64VarP(&primeSize, "prime", "p", 2147483647-4, "field modulus")
	simulateCmd.Flags().StringVarP(&scenario, "scenario", "s", "equal", "scenario to run: equal, less-than, bitwise-random")
	rootCmd.AddCommand(simulateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "primitives-sim: %v\n", err)
		os.Exit(1)
	}
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg := primitives.Config{
		PrimeFieldSize:          primeSize,
		PolynomialDegreeT:       degree,
		NumPrivacyPeers:         numPeers,
		ParallelOperationsCount: 16,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ids := cfg.Peers()
	net := messenger.NewNetwork(ids, 64)
	defer net.Close()

	engines := make(map[party.ID]*primitives.Engine, numPeers)
	for _, id := range ids {
		peerCfg := cfg
		peerCfg.MyPrivacyPeerIndex = int(id)
		e, err := primitives.NewEngine(peerCfg, net.For(id))
		if err != nil {
			return fmt.Errorf("building engine for peer %s: %w", id, err)
		}
		engines[id] = e
	}

	fmt.Printf("Running scenario %q over %d peers, degree %d, field %d\n", scenario, numPeers, degree, primeSize)
	fmt.Printf("Session id: %x\n", engines[ids[0]].SSID())

	scheme := engines[ids[0]].Scheme()
	opIDs, err := scheduleScenario(scenario, scheme, engines, ids)
	if err != nil {
		return err
	}

	if err := runRounds(engines, 500); err != nil {
		return err
	}

	minPresent := scheme.MinSharesFor(scheme.Degree())
	for _, oid := range opIDs {
		shares := make([]shamir.Share, 0, len(ids))
		for _, id := range ids {
			res, ok := engines[id].Result(oid)
			if !ok {
				return fmt.Errorf("operation %d never completed for peer %s", oid, id)
			}
			if operation.IsFailure(res.Result) {
				fmt.Printf("operation %d: failure sentinel\n", oid)
				shares = nil
				break
			}
			shares = append(shares, shamir.NewShare(id, res.Result[0]))
		}
		if shares == nil {
			continue
		}
		v, err := scheme.Reconstruct(shares, minPresent)
		if err != nil {
			return fmt.Errorf("reconstructing operation %d: %w", oid, err)
		}
		fmt.Printf("operation %d: %d\n", oid, uint64(v))
	}
	return nil
}

// scheduleScenario submits a small demonstration operation set for name
// onto every engine and returns the shared operation ids (identical
// across engines, since every peer submits the same sequence).
func scheduleScenario(name string, scheme *shamir.Scheme, engines map[party.ID]*primitives.Engine, ids party.IDSlice) ([]scheduler.OpID, error) {
	f := scheme.Field()
	switch name {
	case "equal":
		a, err := scheme.Generate(f.Elem(123456), rand.Reader)
		if err != nil {
			return nil, err
		}
		b, err := scheme.Generate(f.Elem(123456), rand.Reader)
		if err != nil {
			return nil, err
		}
		var ids1 []scheduler.OpID
		for _, id := range ids {
			ids1 = append(ids1, engines[id].Submit(operation.NewEqual(a[id].Value, b[id].Value, f)))
		}
		return ids1, nil
	case "less-than":
		a, err := scheme.Generate(f.Elem(5), rand.Reader)
		if err != nil {
			return nil, err
		}
		b, err := scheme.Generate(f.Elem(9), rand.Reader)
		if err != nil {
			return nil, err
		}
		var ids1 []scheduler.OpID
		for _, id := range ids {
			ids1 = append(ids1, engines[id].Submit(operation.NewLessThan(a[id].Value, b[id].Value, f, operation.HalfUnknown, operation.HalfUnknown, operation.HalfUnknown, "demo", "", "")))
		}
		return ids1, nil
	case "bitwise-random":
		n := f.BitLen()
		var ids1 []scheduler.OpID
		for _, id := range ids {
			ids1 = append(ids1, engines[id].Submit(operation.NewGenerateBitwiseRandomNumber(n)))
		}
		return ids1, nil
	default:
		return nil, fmt.Errorf("unknown scenario %q", name)
	}
}

func runRounds(engines map[party.ID]*primitives.Engine, maxRounds int) error {
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
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				errs <- e.RunRound(ctx)
			}(e)
		}
		for i := 0; i < inFlight; i++ {
			if err := <-errs; err != nil {
				return err
			}
		}
		if allDone {
			return nil
		}
	}
	return fmt.Errorf("scenario did not complete within %d rounds", maxRounds)
}
