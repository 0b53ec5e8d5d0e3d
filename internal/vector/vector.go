package vector

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Dim is the embedding dimension produced by the profile embedding model.
// Parse accepts any dimension so tests can use small vectors.
const Dim = 1536

// ErrMalformed wraps vector parse failures so callers can distinguish bad
// stored data from store errors.
type ErrMalformed struct {
	Reason string
}

func (e *ErrMalformed) Error() string {
	return "malformed embedding vector: " + e.Reason
}

// Parse converts a stored embedding value into a dense vector.
//
// Two representations occur in the wild:
//   - a pre-parsed numeric array, arriving here as its JSON form ("[0.1,0.2]")
//   - a bracketed delimited string as emitted by pgvector ("[0.1, 0.2]")
//
// Both are a bracketed float list, so one tokenizer covers them. Anything
// else fails with ErrMalformed.
func Parse(raw string) (*mat.VecDense, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, &ErrMalformed{Reason: "empty value"}
	}

	// fast path: valid JSON float array
	var f64s []float64
	if err := json.Unmarshal([]byte(s), &f64s); err == nil {
		if len(f64s) == 0 {
			return nil, &ErrMalformed{Reason: "empty array"}
		}
		return mat.NewVecDense(len(f64s), f64s), nil
	}

	// fallback: bracketed delimited string, possibly with spaces
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, &ErrMalformed{Reason: "expected bracketed float list"}
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return nil, &ErrMalformed{Reason: "empty array"}
	}

	parts := strings.Split(body, ",")
	vals := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, &ErrMalformed{Reason: fmt.Sprintf("element %d is not a number", i)}
		}
		vals[i] = v
	}
	return mat.NewVecDense(len(vals), vals), nil
}

// CosineSimilarity returns the cosine similarity between two vectors,
// clamped to [0,1] for scoring (1 = identical direction). Mismatched
// dimensions or a zero vector score 0.
func CosineSimilarity(a, b *mat.VecDense) float64 {
	if a.Len() != b.Len() {
		return 0
	}

	dot := mat.Dot(a, b)
	normA := mat.Norm(a, 2)
	normB := mat.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (normA * normB)
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

// Encode serializes a float slice into the stored bracketed form.
// Used by seeding; the production pipeline writes vectors through the jobs
// subsystem in the same format.
func Encode(vals []float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
