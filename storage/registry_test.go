package storage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jonwraymond/memocache/kvstore"
)

func TestRegistry_SameIdentitySameEngine(t *testing.T) {
	for _, kind := range Kinds {
		t.Run(string(kind), func(t *testing.T) {
			r := NewRegistry()
			a, err := r.Resolve(kind, "p")
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			b, _ := r.Resolve(kind, "p")
			if a != b {
				t.Fatal("Resolve() with equal identity returned different engines")
			}

			ctx := context.Background()
			a.Set(ctx, "k", "v")
			if !b.Has(ctx, "k") {
				t.Error("write through one reference is not visible through the other")
			}
		})
	}
}

func TestRegistry_DistinctIdentities(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	a := r.MustResolve(KindLocal, "a")
	b := r.MustResolve(KindLocal, "b")
	m := r.MustResolve(KindMemory, "a")

	if a == b || a == m {
		t.Fatal("distinct identities must yield distinct engines")
	}

	a.Set(ctx, "k", "from a")
	if b.Has(ctx, "k") {
		t.Error("prefixes must not collide in a shared store")
	}
	if m.Has(ctx, "k") {
		t.Error("memory and persistent engines must not share data")
	}
	if r.Len() != 3 {
		t.Errorf("Len() = %d, want 3", r.Len())
	}
}

func TestRegistry_DefaultKindIsMemory(t *testing.T) {
	r := NewRegistry()
	e, err := r.Resolve("", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(*MemoryEngine); !ok {
		t.Errorf("Resolve(\"\") = %T, want *MemoryEngine", e)
	}
	if e != r.MustResolve(KindMemory, "") {
		t.Error("empty kind and KindMemory must share an identity")
	}
}

func TestRegistry_UnknownBackend(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve(Kind("disk"), "")
	if !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("Resolve(disk) error = %v, want ErrUnknownBackend", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("MustResolve(disk) did not panic")
		}
	}()
	r.MustResolve(Kind("disk"), "")
}

func TestRegistry_WithStore(t *testing.T) {
	store := kvstore.NewSessionStore(0)
	r := NewRegistry(WithStore(KindLocal, store), WithSerializer(MsgpackSerializer{}))
	ctx := context.Background()

	e := r.MustResolve(KindLocal, "todos")
	e.Set(ctx, "k", "v")

	if _, ok, _ := store.GetItem(ctx, "todos:k"); !ok {
		t.Error("engine did not write to the supplied store")
	}
	pe, ok := e.(*PersistentEngine)
	if !ok {
		t.Fatalf("engine = %T, want *PersistentEngine", e)
	}
	if pe.Serializer().Name() != "msgpack" {
		t.Errorf("serializer = %s, want msgpack", pe.Serializer().Name())
	}
}

func TestRegistry_PersistentKindsShareOneDefaultStore(t *testing.T) {
	r := NewRegistry(WithSessionQuota(1 << 10))
	ctx := context.Background()

	a := r.MustResolve(KindSession, "")
	a.Set(ctx, "k", "v")

	// A fresh engine over the same kind and prefix sees data written by the
	// first, as a restarted process would.
	other := NewPersistentEngine(r.stores[KindSession])
	if !other.Has(ctx, "k") {
		t.Error("engines for one kind must share that kind's store")
	}
	if r.MustResolve(KindLocal, "").Has(ctx, "k") {
		t.Error("local and session kinds must not share a default store")
	}
}

func TestRegistry_ConcurrentResolve(t *testing.T) {
	r := NewRegistry()

	const n = 32
	engines := make([]Engine, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			engines[i] = r.MustResolve(KindSession, "shared")
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if engines[i] != engines[0] {
			t.Fatal("concurrent Resolve returned different engines")
		}
	}
}
