package articulation

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFindJSONCandidates(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "prose around object",
			input: `Here you go: {"food": "more greens"} hope it helps`,
			want:  []string{`{"food": "more greens"}`},
		},
		{
			name:  "nested",
			input: "```json\n{\"verdict\": {\"important\": true}}\n```",
			want:  []string{`{"verdict": {"important": true}}`},
		},
		{
			name:  "multiple",
			input: `first {"exercise": "a"} then {"food": "b"}`,
			want:  []string{`{"exercise": "a"}`, `{"food": "b"}`},
		},
		{
			name:  "string_with_braces",
			input: `{"schedule": "block 7-8am } then rest"}`,
			want:  []string{`{"schedule": "block 7-8am } then rest"}`},
		},
		{
			name:  "escaped_quote",
			input: `{"reason": "user said \"I hate running\""}`,
			want:  []string{`{"reason": "user said \"I hate running\""}`},
		},
		{
			name:  "incomplete",
			input: `{"food": "truncated by the token lim`,
			want:  nil,
		},
		{
			name:  "malformed_braces",
			input: `} { valid } {`,
			want:  []string{`{ valid }`},
		},
		{
			name:  "quoted_prose_before_object",
			input: `the model said "ok" then {"a": 1}`,
			want:  []string{`{"a": 1}`},
		},
		{
			name:  "empty_object",
			input: `{}`,
			want:  []string{`{}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, findJSONCandidates(tt.input)); diff != "" {
				t.Errorf("findJSONCandidates(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestFindJSONArrayCandidates(t *testing.T) {
	got := findJSONArrayCandidates(`Categories: ["food", "exercise"] because [reasons]`)
	if diff := cmp.Diff([]string{`["food", "exercise"]`, `[reasons]`}, got); diff != "" {
		t.Errorf("array candidates mismatch (-want +got):\n%s", diff)
	}

	got = findJSONArrayCandidates(`[["a"], ["b", "]"]]`)
	if len(got) != 1 {
		t.Fatalf("nested array should be one candidate, got %q", got)
	}
}

// BenchmarkFindJSONCandidates benchmarks the scanner performance on a large input.
func BenchmarkFindJSONCandidates(b *testing.B) {
	var sb strings.Builder
	sb.WriteString("Pre-amble text with some random content...\n")
	sb.WriteString(`{"exercise": "`)
	for i := 0; i < 2000; i++ {
		sb.WriteString("squats and lunges, ")
	}
	sb.WriteString(`", "food": "more greens"}`)
	sb.WriteString("\nPost-amble text with more content...")
	input := sb.String()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if len(findJSONCandidates(input)) == 0 {
			b.Fatal("no candidates found")
		}
	}
}
