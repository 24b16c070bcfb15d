package starscan

import (
	"fmt"
	"testing"

	"golang.org/x/sync/errgroup"
)

func TestEngine_ConcurrentProducers(t *testing.T) {
	const systems, producers = 8, 4
	e := NewEngine()
	ref := NewEngine()

	var g errgroup.Group
	for i := 0; i < systems; i++ {
		name := fmt.Sprintf("Col 285 Sector AB-%d", i)
		addr := int64(5000 + i)
		ref.ProcessAll(systemEvents(name, addr))
		for p := 0; p < producers; p++ {
			g.Go(func() error {
				for _, ev := range systemEvents(name, addr) {
					if out, err := e.Process(ev); out == Rejected {
						return err
					}
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	e.AssignPending()

	if got := e.Registry().Len(); got != systems {
		t.Fatalf("systems = %d, want %d", got, systems)
	}
	for _, s := range e.Systems() {
		want := fingerprint(mustSystem(t, ref, s.Name()))
		if got := fingerprint(s); got != want {
			t.Errorf("%s:\n%s\nwant:\n%s", s.Name(), got, want)
		}
		assertConsistent(t, s)
	}
	if n := e.Registry().PendingTotal(); n != 0 {
		t.Errorf("pending = %d", n)
	}
}
