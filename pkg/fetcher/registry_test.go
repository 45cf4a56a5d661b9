// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package fetcher

import (
	"path/filepath"
	"testing"
)

func TestCatalog(t *testing.T) {
	catalog := Catalog()
	if len(catalog) != 2 {
		t.Fatalf("expected 2 built-in assets, got %d", len(catalog))
	}

	for _, a := range catalog {
		if a.Name == "" {
			t.Error("catalog asset missing name")
		}
		if a.URL == "" {
			t.Errorf("catalog asset %s missing URL", a.Name)
		}
		if a.Dest == "" {
			t.Errorf("catalog asset %s missing destination", a.Name)
		}
		if filepath.IsAbs(a.Dest) {
			t.Errorf("catalog asset %s should have a relative destination, got %s", a.Name, a.Dest)
		}
		if err := validate(Resolve(a, "data")); err != nil {
			t.Errorf("catalog asset %s does not validate: %v", a.Name, err)
		}
	}
}

func TestLookup(t *testing.T) {
	t.Run("known assets", func(t *testing.T) {
		for _, name := range []string{AssetC4Subset, AssetIrreducibleLosses} {
			a, ok := Lookup(name)
			if !ok {
				t.Errorf("Lookup(%q) should succeed", name)
			}
			if a.Name != name {
				t.Errorf("Lookup(%q) returned asset named %q", name, a.Name)
			}
		}
	})

	t.Run("unknown asset", func(t *testing.T) {
		if _, ok := Lookup("no-such-asset"); ok {
			t.Error("Lookup of unknown name should fail")
		}
	})
}

func TestResolve(t *testing.T) {
	a := Asset{Name: "x", URL: "https://example.test/x", Dest: filepath.Join("sub", "x.bin")}

	t.Run("rebases relative dest", func(t *testing.T) {
		got := Resolve(a, filepath.Join("out", "dir"))
		want := filepath.Join("out", "dir", "sub", "x.bin")
		if got.Dest != want {
			t.Errorf("expected %s, got %s", want, got.Dest)
		}
	})

	t.Run("empty data dir uses default", func(t *testing.T) {
		got := Resolve(a, "")
		want := filepath.Join(DefaultDataDir, "sub", "x.bin")
		if got.Dest != want {
			t.Errorf("expected %s, got %s", want, got.Dest)
		}
	})

	t.Run("absolute dest kept", func(t *testing.T) {
		abs := a
		abs.Dest = filepath.Join(string(filepath.Separator), "tmp", "x.bin")
		got := Resolve(abs, "data")
		if got.Dest != abs.Dest {
			t.Errorf("absolute dest should be unchanged, got %s", got.Dest)
		}
	})
}
