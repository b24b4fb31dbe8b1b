package auth

import (
	"testing"
	"time"
)

func BenchmarkHashPassword(b *testing.B) {
	for b.Loop() {
		HashPassword("correct-horse-battery-staple") //nolint:errcheck // benchmark
	}
}

func BenchmarkVerifyPassword(b *testing.B) {
	hash, err := HashPassword("correct-horse-battery-staple")
	if err != nil {
		b.Fatalf("HashPassword: %v", err)
	}
	for b.Loop() {
		VerifyPassword("correct-horse-battery-staple", hash) //nolint:errcheck // benchmark
	}
}

func BenchmarkParseToken(b *testing.B) {
	token, err := GenerateAccessToken(&User{ID: "bench"}, testSecret, time.Hour)
	if err != nil {
		b.Fatalf("GenerateAccessToken: %v", err)
	}
	for b.Loop() {
		ParseToken(token, testSecret) //nolint:errcheck // benchmark
	}
}
