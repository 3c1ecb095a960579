package auth

import (
	"context"
	"testing"
	"time"
)

func TestGenerateAndValidate(t *testing.T) {
	t.Setenv("SENTRA_AUTH_SECRET", "unit-test-secret")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	token, err := GenerateToken("user-42", "Alice Admin", 30*time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if claims.Subject != "user-42" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.Name != "Alice Admin" {
		t.Fatalf("unexpected name: %s", claims.Name)
	}
	if claims.Issuer != "sentra" {
		t.Fatalf("unexpected issuer: %s", claims.Issuer)
	}
	if claims.ID == "" {
		t.Fatalf("expected a jti")
	}
}

func TestGenerateTokenValidation(t *testing.T) {
	t.Setenv("SENTRA_AUTH_SECRET", "unit-test-secret")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	if _, err := GenerateToken("", "name", time.Minute); err == nil {
		t.Fatalf("expected error for empty user id")
	}
	if _, err := GenerateToken("user-1", "name", 0); err == nil {
		t.Fatalf("expected error for non-positive ttl")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	t.Setenv("SENTRA_AUTH_SECRET", "unit-test-secret")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	token, err := GenerateToken("user-1", "", time.Millisecond)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := ParseAndValidate(token); err == nil {
		t.Fatalf("expected expired token to fail validation")
	}
}

func TestParseRejectsForeignSignature(t *testing.T) {
	t.Setenv("SENTRA_AUTH_SECRET", "secret-one")
	ResetSecretForTests()
	token, err := GenerateToken("user-1", "", time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	t.Setenv("SENTRA_AUTH_SECRET", "secret-two")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)
	if _, err := ParseAndValidate(token); err == nil {
		t.Fatalf("expected signature mismatch to fail validation")
	}
}

func TestMissingSecret(t *testing.T) {
	t.Setenv("SENTRA_AUTH_SECRET", "")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	if _, err := GenerateToken("user-1", "", time.Minute); err == nil {
		t.Fatalf("expected missing secret error")
	}
}

func TestActorContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := ActorFromContext(ctx); ok {
		t.Fatalf("expected no actor on empty context")
	}

	ctx = ContextWithActor(ctx, Actor{ID: " user-7 ", Name: " Alice "})
	actor, ok := ActorFromContext(ctx)
	if !ok {
		t.Fatalf("expected actor in context")
	}
	if actor.ID != "user-7" || actor.Name != "Alice" {
		t.Fatalf("unexpected actor: %+v", actor)
	}

	ctx = ContextWithActor(context.Background(), Actor{})
	if _, ok := ActorFromContext(ctx); ok {
		t.Fatalf("expected empty actor to be treated as absent")
	}
}
