package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/api-sage/bank-ledger/internal/commons"
	"github.com/api-sage/bank-ledger/internal/domain"
	"github.com/api-sage/bank-ledger/internal/logger"
	"golang.org/x/crypto/bcrypt"
)

type OperatorService struct {
	operators domain.OperatorRepository
}

func NewOperatorService(operators domain.OperatorRepository) *OperatorService {
	return &OperatorService{operators: operators}
}

func (s *OperatorService) CreateOperator(ctx context.Context, username, password, role string) (domain.Operator, error) {
	if username == "" || password == "" {
		return domain.Operator{}, fmt.Errorf("create operator: username and password are required")
	}
	if role == "" {
		role = "teller"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Operator{}, fmt.Errorf("hash operator password: %w", err)
	}

	operator, err := s.operators.Create(ctx, domain.Operator{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
	})
	if err != nil {
		return domain.Operator{}, err
	}

	logger.Info("operator created", logger.Fields{
		"operatorId": operator.ID,
		"username":   operator.Username,
		"role":       operator.Role,
	})
	return operator, nil
}

// VerifyPassword returns the operator on success. Unknown usernames
// and wrong passwords are indistinguishable to the caller.
func (s *OperatorService) VerifyPassword(ctx context.Context, username, password string) (domain.Operator, error) {
	operator, err := s.operators.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, commons.ErrRecordNotFound) {
			return domain.Operator{}, domain.ErrInvalidCredentials
		}
		return domain.Operator{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(operator.PasswordHash), []byte(password)); err != nil {
		return domain.Operator{}, domain.ErrInvalidCredentials
	}
	return operator, nil
}

// EnsureSystemOperator creates the bootstrap operator on first start.
// It is a no-op when the username already exists.
func (s *OperatorService) EnsureSystemOperator(ctx context.Context, username, password string) (domain.Operator, error) {
	operator, err := s.operators.GetByUsername(ctx, username)
	if err == nil {
		return operator, nil
	}
	if !errors.Is(err, commons.ErrRecordNotFound) {
		return domain.Operator{}, err
	}
	return s.CreateOperator(ctx, username, password, "system")
}
