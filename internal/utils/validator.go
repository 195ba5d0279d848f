package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	apperrors "github.com/Kosench/shortlinks/internal/errors"
)

const (
	MaxURLLength   = 2048
	MinAliasLength = 4
	MaxAliasLength = 20
)

var aliasPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return apperrors.NewValidationError("original_url", "URL cannot be empty", apperrors.ErrInvalidURL)
	}

	if len(rawURL) > MaxURLLength {
		return apperrors.NewValidationError("original_url",
			fmt.Sprintf("URL is too long (max %d characters)", MaxURLLength), apperrors.ErrInvalidURL)
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return apperrors.NewValidationError("original_url", fmt.Sprintf("invalid URL format: %v", err), apperrors.ErrInvalidURL)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return apperrors.NewValidationError("original_url", "URL must start with http:// or https://", apperrors.ErrInvalidURL)
	}

	if parsedURL.Host == "" {
		return apperrors.NewValidationError("original_url", "URL must contain a valid host", apperrors.ErrInvalidURL)
	}

	return nil
}

// ValidateAlias checks a user supplied short code: [A-Za-z0-9_-], 4 to 20 characters.
func ValidateAlias(alias string) error {
	if !aliasPattern.MatchString(alias) {
		return apperrors.NewValidationError("custom_alias",
			"only letters, digits, '_' and '-' are allowed", apperrors.ErrInvalidAlias)
	}

	if len(alias) < MinAliasLength || len(alias) > MaxAliasLength {
		return apperrors.NewValidationError("custom_alias",
			fmt.Sprintf("length must be between %d and %d characters", MinAliasLength, MaxAliasLength),
			apperrors.ErrInvalidAlias)
	}

	return nil
}

func SanitizeInput(input string) string {
	// Удаляем управляющие символы и обрезаем пробелы
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1 // удаляем символ
		}
		return r
	}, input)

	return strings.TrimSpace(result)
}

// NormalizeURL sanitises the input and undoes percent-encoding applied by
// clients that send the URL as a path or query component.
func NormalizeURL(rawURL string) string {
	clean := SanitizeInput(rawURL)
	if unescaped, err := url.PathUnescape(clean); err == nil {
		clean = unescaped
	}
	return clean
}
