package csv

import "strings"

// DetectDelimiter detects the CSV delimiter by scoring candidate delimiters
// over the first few lines. The winner is the delimiter with the highest
// per-line count consistency; French exports usually use the semicolon.
func DetectDelimiter(content string) Delimiter {
	lines := strings.Split(content, "\n")

	sampleLines := make([]string, 0, 5)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			sampleLines = append(sampleLines, trimmed)
			if len(sampleLines) >= 5 {
				break
			}
		}
	}
	if len(sampleLines) == 0 {
		return DelimiterComma
	}

	delimiters := []Delimiter{DelimiterComma, DelimiterSemicolon, DelimiterTab}
	bestDelimiter := DelimiterComma
	maxConsistency := 0.0

	for _, delim := range delimiters {
		counts := make([]int, 0, len(sampleLines))
		for _, line := range sampleLines {
			counts = append(counts, strings.Count(line, string(delim)))
		}

		sum := 0
		for _, c := range counts {
			sum += c
		}
		avgCount := float64(sum) / float64(len(counts))
		if avgCount == 0 {
			continue
		}

		variance := 0.0
		for _, c := range counts {
			diff := float64(c) - avgCount
			variance += diff * diff
		}
		variance /= float64(len(counts))

		consistency := avgCount / (1.0 + variance)
		if consistency > maxConsistency {
			maxConsistency = consistency
			bestDelimiter = delim
		}
	}

	return bestDelimiter
}

// DetectDelimiterFromBytes detects the delimiter from raw bytes, sampling
// at most the first 2000 bytes.
func DetectDelimiterFromBytes(data []byte) Delimiter {
	sampleSize := len(data)
	if sampleSize > 2000 {
		sampleSize = 2000
	}
	return DetectDelimiter(string(data[:sampleSize]))
}
