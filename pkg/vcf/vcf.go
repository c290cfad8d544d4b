// pkg/vcf/vcf.go
package vcf

import (
	"fmt"
	"strings"
)

// Stats summarizes a VCF document.
type Stats struct {
	TotalLines      int     `json:"totalLines"`
	HeaderLines     int     `json:"headerLines"`
	DataLines       int     `json:"dataLines"`
	HasColumnHeader bool    `json:"hasColumnHeader"`
	SizeBytes       int     `json:"sizeBytes"`
	SizeMB          float64 `json:"sizeMB"`
}

// Decode converts a stored record payload back to VCF text.
func Decode(buf []byte) (string, error) {
	if len(buf) == 0 {
		return "", fmt.Errorf("empty VCF buffer")
	}
	return string(buf), nil
}

// IsValid reports whether the content carries VCF header markers.
func IsValid(content string) bool {
	if content == "" {
		return false
	}
	hasFileFormat := strings.Contains(content, "##fileformat=VCF")
	hasHeaders := strings.Contains(content, "#CHROM") || strings.Contains(content, "##")
	return hasFileFormat || hasHeaders
}

// ComputeStats counts header and data lines of the given content.
func ComputeStats(content string) Stats {
	lines := strings.Split(content, "\n")

	stats := Stats{
		TotalLines: len(lines),
		SizeBytes:  len(content),
	}
	stats.SizeMB = float64(stats.SizeBytes) / (1024 * 1024)

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "##"):
			stats.HeaderLines++
		case strings.HasPrefix(line, "#CHROM"):
			stats.HasColumnHeader = true
		case line != "" && !strings.HasPrefix(line, "#"):
			stats.DataLines++
		}
	}
	return stats
}

// Preview returns up to n leading lines of the content.
func Preview(content string, n int) []string {
	lines := strings.Split(content, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return lines
}
