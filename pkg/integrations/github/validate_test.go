package github

import "testing"

func TestParseRepoRef(t *testing.T) {
	tests := []struct {
		ref       string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{"acme/npm-mirror", "acme", "npm-mirror", false},
		{"acme/repo.js", "acme", "repo.js", false},
		{"acme", "", "", true},
		{"-acme/repo", "", "", true},
		{"acme/..", "", "", true},
		{"acme/re po", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			owner, repo, err := ParseRepoRef(tt.ref)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if owner != tt.wantOwner || repo != tt.wantRepo {
				t.Errorf("got %s/%s", owner, repo)
			}
		})
	}
}

func TestValidateWorkflow(t *testing.T) {
	for _, ok := range []string{"cache-package.yml", "cache.yaml", "123456"} {
		if err := ValidateWorkflow(ok); err != nil {
			t.Errorf("ValidateWorkflow(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"", "cache", "../x.yml", "a/b.yml"} {
		if err := ValidateWorkflow(bad); err == nil {
			t.Errorf("ValidateWorkflow(%q) = nil, want error", bad)
		}
	}
}
