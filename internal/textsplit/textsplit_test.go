package textsplit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a b c", Normalize("a\nb  c "))
	assert.Equal(t, "a b c", Normalize("  a\n\n b\tc"))
	assert.Equal(t, "", Normalize("   \n\t "))
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"hello world",
		"  line one\nline two  \n",
		"много\n\nпробелов\t и строк",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once))
	}
}

func TestSplitEmpty(t *testing.T) {
	assert.Empty(t, Split("", 128, 32))
}

func TestSplitShortInput(t *testing.T) {
	text := Normalize("hello world")
	chunks := Split(text, 128, 32)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestSplitDeterministic(t *testing.T) {
	text := Normalize(strings.Repeat("alpha beta gamma delta ", 40))
	first := Split(text, 128, 32)
	second := Split(text, 128, 32)
	assert.Equal(t, first, second)
}

func TestSplitOverlapCarry(t *testing.T) {
	// "aaaa bbbb cccc" 在追加 cccc 时达到 14 字符，超出 10+3，
	// 于是在第 13 字符处切断，余下的 "c" 携带进下一块。
	chunks := Split("aaaa bbbb cccc dddd", 10, 3)
	require.Equal(t, []string{"aaaa bbbb ccc", "c dddd"}, chunks)
}

func TestSplitExactFit(t *testing.T) {
	// 候选长度落在 [chunkSize, chunkSize+overlapSize] 区间时整块输出。
	chunks := Split("aaaa bbbb cc", 10, 3)
	require.Equal(t, []string{"aaaa bbbb cc"}, chunks)
}

func TestSplitOversizedWordTail(t *testing.T) {
	// 超长单词在携带边界被切断，末尾余量允许超出上限（沿用的参考行为）。
	chunks := Split("supercalifragilistic", 10, 3)
	require.Len(t, chunks, 2)
	assert.Equal(t, " supercalifra", chunks[0])
	assert.Equal(t, "gilistic", chunks[1])
}

func TestSplitNoCharactersLost(t *testing.T) {
	texts := []string{
		Normalize(strings.Repeat("the quick brown fox jumps over the lazy dog ", 25)),
		Normalize("один два три четыре пять шесть семь восемь девять десять"),
		Normalize(strings.Repeat("word ", 500)),
	}
	strip := func(s string) string { return strings.ReplaceAll(s, " ", "") }
	for _, text := range texts {
		chunks := Split(text, 128, 32)
		assert.Equal(t, strip(text), strip(strings.Join(chunks, "")))
	}
}
