package scheduler

import "testing"

func TestManifestMatcher_MatchFile(t *testing.T) {
	m, err := newManifestMatcher(DefaultManifestPattern, DefaultManifestIgnore, DefaultMaxDepth)
	if err != nil {
		t.Fatalf("newManifestMatcher() error = %v", err)
	}

	tests := []struct {
		rel  string
		want bool
	}{
		{".portal/ports.yaml", true},
		{"app/.portal/ports.yaml", true},
		{"a/b/c/.portal/ports.yaml", true},
		{"app/ports.yaml", false},
		{"app/.portal/ports.yml", false},
		{"app/.portal/other.yaml", false},
		{"node_modules/pkg/.portal/ports.yaml", false},
		{"app/.git/.portal/ports.yaml", false},
	}

	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			if got := m.matchFile(tt.rel); got != tt.want {
				t.Errorf("matchFile(%q) = %v, want %v", tt.rel, got, tt.want)
			}
		})
	}
}

func TestManifestMatcher_SkipDir(t *testing.T) {
	m, err := newManifestMatcher("", DefaultManifestIgnore, 2)
	if err != nil {
		t.Fatalf("newManifestMatcher() error = %v", err)
	}

	tests := []struct {
		rel  string
		want bool
	}{
		{".", false},
		{"app", false},
		{"app/.portal", false},
		{"a/b/c", true},
		{"node_modules", true},
		{"app/node_modules", true},
		{".git", true},
		{"gitlab", false},
	}

	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			if got := m.skipDir(tt.rel); got != tt.want {
				t.Errorf("skipDir(%q) = %v, want %v", tt.rel, got, tt.want)
			}
		})
	}
}

func TestManifestMatcher_UnlimitedDepth(t *testing.T) {
	m, err := newManifestMatcher("", "", -1)
	if err != nil {
		t.Fatalf("newManifestMatcher() error = %v", err)
	}
	if m.skipDir("a/b/c/d/e/f/g/h") {
		t.Error("negative max depth should never skip")
	}
}

func TestManifestMatcher_InvalidPattern(t *testing.T) {
	if _, err := newManifestMatcher("[", "", 1); err == nil {
		t.Error("newManifestMatcher() with invalid pattern should fail")
	}
}
