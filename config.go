package main

import (
	"os"
	"strconv"
	"strings"
)

// Default configuration values
const (
	DefaultPort             = "8080"
	DefaultChromaHost       = "localhost"
	DefaultChromaPort       = 8000
	DefaultChromaCollection = "reviewguard_reviews"
	DefaultReviewDB         = "reviews.db"
	DefaultOllamaModel      = "llama3"
)

// GetEnvOrDefault returns the environment value for key, or fallback when
// unset or blank.
func GetEnvOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// GetEnvInt returns the integer environment value for key, or fallback on
// unset or unparsable values.
func GetEnvInt(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// GetEnvBool reports whether the environment value for key is "true".
func GetEnvBool(key string) bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv(key)), "true")
}
