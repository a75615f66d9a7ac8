package store

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical vectors", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "opposite vectors", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "orthogonal vectors", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "scaled vector keeps similarity", a: []float32{1, 2, 3}, b: []float32{2, 4, 6}, want: 1},
		{name: "mismatched lengths", a: []float32{1, 2}, b: []float32{1, 2, 3}, want: -1},
		{name: "empty vectors", a: []float32{}, b: []float32{}, want: -1},
		{name: "zero vector", a: []float32{0, 0, 0}, b: []float32{1, 2, 3}, want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCosineSimilaritySymmetric(t *testing.T) {
	a := []float32{0.3, -0.5, 0.8, 0.1}
	b := []float32{0.7, 0.2, -0.4, 0.9}
	if ab, ba := CosineSimilarity(a, b), CosineSimilarity(b, a); math.Abs(ab-ba) > 1e-12 {
		t.Errorf("similarity not symmetric: %v vs %v", ab, ba)
	}
}

func TestValidateEmbedding(t *testing.T) {
	valid := make([]float32, EmbeddingDim)
	valid[0] = 1

	if err := ValidateEmbedding(valid); err != nil {
		t.Errorf("valid embedding rejected: %v", err)
	}
	if err := ValidateEmbedding(make([]float32, 128)); err == nil {
		t.Error("wrong-dimension embedding accepted")
	}
	if err := ValidateEmbedding(make([]float32, EmbeddingDim)); err == nil {
		t.Error("zero-norm embedding accepted")
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Jiří", "jiri"},
		{"Trần Văn-An", "tran van an"},
		{"  Ada Lovelace ", "ada lovelace"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
