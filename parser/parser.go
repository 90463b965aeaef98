package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-scrape-certs/models"
)

// ValidateRecord ensures the extractor produced a usable record.
func ValidateRecord(r *models.ProductRecord) error {
	if r == nil {
		return fmt.Errorf("record is nil")
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("record missing product name")
	}
	if !r.Certifications.Complete() {
		return fmt.Errorf("record %s has incomplete certifications", r.Name)
	}
	return nil
}

// NormalizeWebsite trims spacing and drops placeholder links.
func NormalizeWebsite(href string) string {
	href = strings.TrimSpace(href)
	switch href {
	case "#", "javascript:void(0)", "javascript:;":
		return ""
	}
	return href
}

// ParseID pulls the digits out of a "<prefix><digits>" class token.
func ParseID(classes []string, prefix string) (int, bool) {
	for _, class := range classes {
		digits, ok := strings.CutPrefix(class, prefix)
		if !ok || !allDigits(digits) {
			continue
		}
		id, err := strconv.Atoi(digits)
		if err != nil {
			continue
		}
		return id, true
	}
	return 0, false
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
