package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"litqa/internal/config"
)

func TestCodeIntentClassifier(t *testing.T) {
	c := NewCodeIntentClassifier(config.DefaultCodeKeywords)

	cases := []struct {
		question string
		want     bool
	}{
		{"please implement bubble sort", true},
		{"Write a SCRIPT to rename files", true},
		{"which algorithm is faster", true},
		{"帮我写一个快速排序", true},
		{"这个函数是什么意思", true},
		{"what is the weather", false},
		{"summarize paper1", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, c.IsCodeQuestion(tc.question), tc.question)
	}
}

func TestCodeIntentClassifierIgnoresBlankKeywords(t *testing.T) {
	c := NewCodeIntentClassifier([]string{"", "  ", " Rust "})
	assert.False(t, c.IsCodeQuestion("anything at all"))
	assert.True(t, c.IsCodeQuestion("is rust memory safe"))
}
