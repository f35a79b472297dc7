package articulation

// findJSONCandidates scans the input string for top-level JSON object candidates.
func findJSONCandidates(s string) []string {
	return findDelimited(s, '{', '}')
}

// findJSONArrayCandidates scans the input string for top-level JSON array candidates.
func findJSONArrayCandidates(s string) []string {
	return findDelimited(s, '[', ']')
}

// findDelimited returns every balanced top-level open...close span in s.
// It handles nesting and string escaping to correctly identify boundaries.
//
// This function uses a byte-level state machine to skip over strings and
// non-JSON content instead of regex-based extraction.
//
// Note: It is safe to iterate bytes for ASCII delimiters because UTF-8
// guarantees that ASCII bytes never appear inside a multi-byte sequence.
func findDelimited(s string, open, close byte) []string {
	var candidates []string
	var depth int
	var start = -1
	var inString bool
	var escape bool

	for i := 0; i < len(s); i++ {
		b := s[i]

		if escape {
			escape = false
			continue
		}

		if inString {
			if b == '\\' {
				escape = true
			} else if b == '"' {
				inString = false
			}
			continue
		}

		switch b {
		case '"':
			// Quotes only matter once we are inside a candidate.
			if depth > 0 {
				inString = true
			}
		case open:
			if depth == 0 {
				start = i
			}
			depth++
		case close:
			if depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					candidates = append(candidates, s[start:i+1])
					start = -1
				}
			}
		}
	}

	return candidates
}
