package redis

import (
	"testing"

	"github.com/MrSnakeDoc/portal/internal/index"
	"github.com/MrSnakeDoc/portal/internal/sources/manifest"
)

func TestKeys(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{RoutesKey("dev"), "portal:dev:routes"},
		{PublicKey("dev"), "portal:dev:public"},
		{SourcesKey("dev"), "portal:dev:sources"},
		{UpdatedAtKey(""), "portal:default:updated_at"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("key = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestNewSnapshot(t *testing.T) {
	dir, _ := index.Build(map[string]manifest.Document{
		"app/.portal/ports.yaml": {Entries: []string{"8000", "api:8080"}},
	})

	snap := NewSnapshot(dir)

	if len(snap.Routes) != 2 || snap.Routes["api"] != "8080" || snap.Routes["8000"] != "8000" {
		t.Errorf("Routes = %v, want api->8080 and 8000->8000", snap.Routes)
	}
	if snap.Sources["api"] != "app/.portal/ports.yaml" {
		t.Errorf("Sources[api] = %v, want the manifest path", snap.Sources["api"])
	}
	if len(snap.Public) != 1 || snap.Public[0] != "8000" {
		t.Errorf("Public = %v, want [8000]", snap.Public)
	}
	if !snap.UpdatedAt.Equal(dir.BuiltAt()) {
		t.Errorf("UpdatedAt = %v, want %v", snap.UpdatedAt, dir.BuiltAt())
	}
}
