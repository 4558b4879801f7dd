package index

import (
	"testing"

	"github.com/MrSnakeDoc/portal/internal/sources/manifest"
)

func doc(entries ...string) manifest.Document {
	return manifest.Document{Entries: entries}
}

func TestBuildRoundTrip(t *testing.T) {
	docs := map[string]manifest.Document{
		"app/.portal/ports.yaml": doc("8000", "api:8080"),
		"web/.portal/ports.yaml": doc("web:5173", "3000"),
	}

	dir, dropped := Build(docs)
	if len(dropped) != 0 {
		t.Fatalf("Build() dropped %v, want none", dropped)
	}

	tests := []struct {
		token      string
		wantPort   string
		wantPublic bool
	}{
		{token: "8000", wantPort: "8000", wantPublic: true},
		{token: "3000", wantPort: "3000", wantPublic: true},
		{token: "api", wantPort: "8080"},
		{token: "web", wantPort: "5173"},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			port, ok := dir.Resolve(tt.token)
			if !ok || port != tt.wantPort {
				t.Errorf("Resolve(%q) = %q, %v, want %q, true", tt.token, port, ok, tt.wantPort)
			}
			if got := dir.IsPublic(tt.token); got != tt.wantPublic {
				t.Errorf("IsPublic(%q) = %v, want %v", tt.token, got, tt.wantPublic)
			}
		})
	}

	if dir.Len() != 4 {
		t.Errorf("Len() = %d, want 4", dir.Len())
	}
}

func TestBuildAliasTargetIsNotPublic(t *testing.T) {
	dir, _ := Build(map[string]manifest.Document{
		"a/.portal/ports.yaml": doc("api:8080"),
	})

	if dir.IsPublic("8080") {
		t.Error("IsPublic(8080) = true, an alias target must not become public")
	}
	if _, ok := dir.Resolve("8080"); ok {
		t.Error("Resolve(8080) should be NotFound when only used as an alias target")
	}
}

func TestBuildDropsInvalidTokens(t *testing.T) {
	dir, dropped := Build(map[string]manifest.Document{
		"a/.portal/ports.yaml": doc("8000", "my-server:8080", "API:9000", "abc", "ok:9090"),
	})

	if len(dropped) != 3 {
		t.Fatalf("Build() dropped %d entries, want 3: %v", len(dropped), dropped)
	}
	for _, d := range dropped {
		if d.Path != "a/.portal/ports.yaml" || d.Reason == "" {
			t.Errorf("dropped entry %+v should carry its path and a reason", d)
		}
	}

	if _, ok := dir.Resolve("8000"); !ok {
		t.Error("valid bare port should survive invalid siblings")
	}
	if port, ok := dir.Resolve("ok"); !ok || port != "9090" {
		t.Errorf("Resolve(ok) = %q, %v, want 9090, true", port, ok)
	}
}

func TestBuildDuplicateAliasSmallestPathWins(t *testing.T) {
	docs := map[string]manifest.Document{
		"b/.portal/ports.yaml": doc("api:9000"),
		"a/.portal/ports.yaml": doc("api:8080"),
		"c/.portal/ports.yaml": doc("api:8080"),
	}

	for i := 0; i < 20; i++ {
		dir, dropped := Build(docs)
		if port, _ := dir.Resolve("api"); port != "8080" {
			t.Fatalf("Resolve(api) = %q, want 8080 from the smallest path", port)
		}
		if len(dropped) != 1 || dropped[0].Path != "b/.portal/ports.yaml" {
			t.Fatalf("Build() dropped %v, want the conflicting alias from b", dropped)
		}
	}
}

func TestBuildDeduplicatesBarePorts(t *testing.T) {
	dir, dropped := Build(map[string]manifest.Document{
		"a/.portal/ports.yaml": doc("8000", "8000"),
		"b/.portal/ports.yaml": doc("8000"),
	})

	if len(dropped) != 0 {
		t.Errorf("duplicate bare ports should not be dropped, got %v", dropped)
	}
	routes := dir.Routes()
	if len(routes) != 1 {
		t.Fatalf("Routes() = %v, want a single route", routes)
	}
	if routes[0].Source != "a/.portal/ports.yaml" || !routes[0].Public {
		t.Errorf("Routes()[0] = %+v, want public route sourced from a", routes[0])
	}
}

func TestBuildBarePortOverridesNumericAlias(t *testing.T) {
	dir, _ := Build(map[string]manifest.Document{
		"a/.portal/ports.yaml": doc("9000:8080"),
		"b/.portal/ports.yaml": doc("9000"),
	})

	if port, _ := dir.Resolve("9000"); port != "9000" {
		t.Errorf("Resolve(9000) = %q, want the bare port self-mapping", port)
	}
	if !dir.IsPublic("9000") {
		t.Error("IsPublic(9000) = false, want true")
	}
}

func TestBuildEmpty(t *testing.T) {
	dir, dropped := Build(nil)
	if dir == nil {
		t.Fatal("Build(nil) returned nil directory")
	}
	if len(dropped) != 0 || dir.Len() != 0 {
		t.Errorf("Build(nil) = %d routes, %d dropped, want empty", dir.Len(), len(dropped))
	}
	if _, ok := dir.Resolve("8000"); ok {
		t.Error("empty directory should not resolve anything")
	}
}

func TestRoutesSorted(t *testing.T) {
	dir, _ := Build(map[string]manifest.Document{
		"a/.portal/ports.yaml": doc("web:5173", "8000", "api:8080"),
	})

	routes := dir.Routes()
	want := []string{"8000", "api", "web"}
	if len(routes) != len(want) {
		t.Fatalf("Routes() = %v, want tokens %v", routes, want)
	}
	for i, tok := range want {
		if routes[i].Token != tok {
			t.Errorf("Routes()[%d].Token = %q, want %q", i, routes[i].Token, tok)
		}
	}

	if pub := dir.PublicPorts(); len(pub) != 1 || pub[0] != "8000" {
		t.Errorf("PublicPorts() = %v, want [8000]", pub)
	}
}
