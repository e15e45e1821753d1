package ingest

import "testing"

func TestSanitizeContextID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"my-repo", "my-repo"},
		{"my_repo_2", "my_repo_2"},
		{"my repo!", "myrepo"},
		{"path/to/repo", "pathtorepo"},
		{"../../etc", "etc"},
		{"naïve", "nave"},
		{"", ""},
		{"!!!", ""},
	}

	for _, tt := range tests {
		got := SanitizeContextID(tt.in)
		if got != tt.want {
			t.Errorf("SanitizeContextID(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if again := SanitizeContextID(got); again != got {
			t.Errorf("not idempotent: %q -> %q -> %q", tt.in, got, again)
		}
	}
}
