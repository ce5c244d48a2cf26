// Package textsplit 提供文本归一化与切块，是所有文本进向量路径（入库与查询）
// 共用的纯函数，保证存储向量与查询向量可比。
package textsplit

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var spaceRe = regexp.MustCompile(`\s+`)

// Normalize 把换行压成空格、连续空白压成单个空格并去掉首尾空白。
// 幂等：Normalize(Normalize(s)) == Normalize(s)。
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.TrimSpace(text)
	return spaceRe.ReplaceAllString(text, " ")
}

// Split 把归一化后的文本按词贪心累积成块。
// 当追加下一个词使缓冲达到 chunkSize 时：若长度超过 chunkSize+overlapSize，
// 在 chunkSize+overlapSize 字符处切断，余下部分携带进下一块的开头（重叠以
// 字符级携带实现，不回扫词）；否则整块直接输出。末尾非空余量作为最后一块。
// 空输入产生零个块。同样的输入与参数总是产生完全相同的块序列。
//
// 已知边界情况：远超 chunkSize 的单个长词只会在每次携带边界被切掉
// chunkSize+overlapSize 个字符，携带到末尾的余量可能超出上限，
// 即最后一块可以长于 chunkSize+overlapSize。这是沿用的参考行为，刻意不做特殊处理。
func Split(text string, chunkSize, overlapSize int) []string {
	words := strings.Fields(text)
	var chunks []string

	current := ""
	for _, word := range words {
		candidate := current + " " + word
		if utf8.RuneCountInString(candidate) >= chunkSize {
			if utf8.RuneCountInString(candidate) > chunkSize+overlapSize {
				runes := []rune(candidate)
				cut := chunkSize + overlapSize
				chunks = append(chunks, string(runes[:cut]))
				current = string(runes[cut:])
				continue
			}
			chunks = append(chunks, candidate)
			current = ""
			continue
		}
		if len(current) > 0 {
			current += " " + word
		} else {
			current = word
		}
	}

	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}
