package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/api-sage/bank-ledger/internal/domain"
	"github.com/api-sage/bank-ledger/internal/usecase/services"
)

func TestOperatorServiceCreateAndVerify(t *testing.T) {
	store := newStore()
	operators := services.NewOperatorService(memOperators{store})

	created, err := operators.CreateOperator(context.Background(), "teller1", "hunter2hunter2", "")
	if err != nil {
		t.Fatalf("create operator failed: %v", err)
	}
	if created.Role != "teller" {
		t.Fatalf("expected default role teller, got %s", created.Role)
	}
	if created.PasswordHash == "hunter2hunter2" {
		t.Fatal("password must not be stored in clear")
	}

	verified, err := operators.VerifyPassword(context.Background(), "teller1", "hunter2hunter2")
	if err != nil {
		t.Fatalf("verify password failed: %v", err)
	}
	if verified.ID != created.ID {
		t.Fatalf("expected operator %s, got %s", created.ID, verified.ID)
	}

	if _, err := operators.VerifyPassword(context.Background(), "teller1", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := operators.VerifyPassword(context.Background(), "ghost", "hunter2hunter2"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestOperatorServiceEnsureSystemOperatorIsIdempotent(t *testing.T) {
	store := newStore()
	operators := services.NewOperatorService(memOperators{store})

	first, err := operators.EnsureSystemOperator(context.Background(), "system", "bootstrap-secret")
	if err != nil {
		t.Fatalf("ensure system operator failed: %v", err)
	}
	if first.Role != "system" {
		t.Fatalf("expected system role, got %s", first.Role)
	}

	second, err := operators.EnsureSystemOperator(context.Background(), "system", "different-secret")
	if err != nil {
		t.Fatalf("repeat ensure failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatal("repeat ensure must return the existing operator")
	}
}
