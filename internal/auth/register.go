package auth

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/wishwall/wishwall-backend/internal/profiles"
	"github.com/wishwall/wishwall-backend/internal/users"
	"github.com/wishwall/wishwall-backend/pkg/db"
	"github.com/wishwall/wishwall-backend/pkg/db/models"
	"github.com/wishwall/wishwall-backend/pkg/enums"
	pkgerrors "github.com/wishwall/wishwall-backend/pkg/errors"
	"github.com/wishwall/wishwall-backend/pkg/validation"
)

const emailTakenMessage = "email already registered"

// RegisterService creates an account and signs it in.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error)
}

type signer interface {
	SignIn(ctx context.Context, req LoginRequest) (*LoginResponse, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	DB     txRunner
	Hasher passwordHasher
	Signer signer
}

type registerService struct {
	db     txRunner
	hasher passwordHasher
	signer signer
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	if params.Hasher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "password hasher required")
	}
	if params.Signer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "auth service required")
	}
	return &registerService{
		db:     params.DB,
		hasher: params.Hasher,
		signer: params.Signer,
	}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error) {
	req.Email = normalizeEmail(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)
		profileRepo := profiles.NewRepository(tx)

		taken, err := userRepo.EmailTaken(ctx, req.Email)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeConflict, emailTakenMessage)
		}

		user, err := userRepo.Create(ctx, users.NewUser{
			Email:        req.Email,
			PasswordHash: passwordHash,
			Role:         enums.RoleUser,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "users_email_key") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, emailTakenMessage)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}

		if err := profileRepo.Create(ctx, &models.Profile{
			ID:       user.ID,
			FullName: req.FullName,
			City:     validation.NullableTrim(req.City),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create profile")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.signer.SignIn(ctx, LoginRequest{Email: req.Email, Password: req.Password})
}
