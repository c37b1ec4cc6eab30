package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"TaskQuest/internal/model"
	"TaskQuest/internal/repository"
	"TaskQuest/pkg/errors"
	"TaskQuest/pkg/logger"
	"TaskQuest/pkg/validate"
)

const (
	identityUsernameMax = 20
	maxUsernameSuffix   = 1000
)

type AccountService struct {
	store      repository.Store
	nextID     func() (int64, error)
	bcryptCost int
}

// NewAccountService nextID 生成对外的 PublicID（snowflake）
func NewAccountService(store repository.Store, nextID func() (int64, error)) *AccountService {
	return &AccountService{store: store, nextID: nextID, bcryptCost: bcrypt.DefaultCost}
}

type RegisterInput struct {
	Username string `json:"username" validate:"required,notblank,min=3,max=25,excludesall= "`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Email    string `json:"email" validate:"omitempty,email,max=250"`
}

type EmailInput struct {
	Email string `json:"email" validate:"required,email,max=250"`
}

// Profile 账户概览
type Profile struct {
	Account    *model.Account          `json:"account"`
	Features   []model.Feature         `json:"features"`
	Converters []model.ConverterUnlock `json:"converters"`
}

func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*model.Account, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	if _, err := s.store.Accounts().GetByUsername(ctx, in.Username); err == nil {
		return nil, errors.UsernameTaken
	} else if !stderrors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if in.Email != "" {
		if _, err := s.store.Accounts().GetByEmail(ctx, in.Email); err == nil {
			return nil, errors.EmailTaken
		} else if !stderrors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("check email: %w", err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &model.Account{Username: in.Username, PasswordHash: string(hash)}
	if in.Email != "" {
		account.Email = &in.Email
	}
	if err := s.create(ctx, account); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return nil, errors.UsernameTaken
		}
		return nil, err
	}

	logger.Logger.Info("Account registered",
		zap.Int64("account_id", account.ID),
		zap.String("username", account.Username),
	)
	return account, nil
}

func (s *AccountService) create(ctx context.Context, account *model.Account) error {
	publicID, err := s.nextID()
	if err != nil {
		return fmt.Errorf("generate public id: %w", err)
	}
	account.PublicID = publicID

	if err := s.store.Accounts().Create(ctx, account); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return err
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// Login 用户名或密码错误统一返回 INVALID_CREDENTIALS
func (s *AccountService) Login(ctx context.Context, username, password string) (*model.Account, error) {
	account, err := s.store.Accounts().GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.InvalidCredentials
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	if !account.HasPassword() {
		return nil, errors.InvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, errors.InvalidCredentials
	}
	return account, nil
}

// LoginWithIdentity 外部登录：按邮箱查找，不存在则以邮箱前缀创建账户
func (s *AccountService) LoginWithIdentity(ctx context.Context, email string) (*model.Account, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, false, errors.IdentityFailed
	}

	account, err := s.store.Accounts().GetByEmail(ctx, email)
	if err == nil {
		return account, false, nil
	}
	if !stderrors.Is(err, repository.ErrNotFound) {
		return nil, false, fmt.Errorf("load account: %w", err)
	}

	base := usernameBase(email)
	for suffix := 0; suffix <= maxUsernameSuffix; suffix++ {
		candidate := base
		if suffix > 0 {
			candidate = base + strconv.Itoa(suffix)
		}

		if _, err := s.store.Accounts().GetByUsername(ctx, candidate); err == nil {
			continue
		} else if !stderrors.Is(err, repository.ErrNotFound) {
			return nil, false, fmt.Errorf("check username: %w", err)
		}

		account = &model.Account{Username: candidate, Email: &email}
		err := s.create(ctx, account)
		if err == nil {
			logger.Logger.Info("Account created from external identity",
				zap.Int64("account_id", account.ID),
				zap.String("username", candidate),
			)
			return account, true, nil
		}
		if !stderrors.Is(err, repository.ErrDuplicate) {
			return nil, false, err
		}
		// 并发创建：邮箱已被占用时直接返回那个账户
		if existing, err := s.store.Accounts().GetByEmail(ctx, email); err == nil {
			return existing, false, nil
		}
	}
	return nil, false, fmt.Errorf("%w: no free username for %s", errors.IdentityFailed, base)
}

// usernameBase 邮箱 @ 之前的部分，最多 20 个字符
func usernameBase(email string) string {
	local, _, _ := strings.Cut(email, "@")
	runes := []rune(local)
	if len(runes) > identityUsernameMax {
		runes = runes[:identityUsernameMax]
	}
	if len(runes) == 0 {
		return "user"
	}
	return string(runes)
}

// UpdateEmail 邮箱在账户间唯一
func (s *AccountService) UpdateEmail(ctx context.Context, accountID int64, in EmailInput) (*model.Account, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	existing, err := s.store.Accounts().GetByEmail(ctx, in.Email)
	switch {
	case err == nil && existing.ID != accountID:
		return nil, errors.EmailTaken
	case err != nil && !stderrors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("check email: %w", err)
	}

	if err := s.store.Accounts().UpdateEmail(ctx, accountID, in.Email); err != nil {
		switch {
		case stderrors.Is(err, repository.ErrDuplicate):
			return nil, errors.EmailTaken
		default:
			return nil, notFoundAs(err, errors.AccountNotFound, "update email")
		}
	}
	return s.Get(ctx, accountID)
}

func (s *AccountService) Get(ctx context.Context, accountID int64) (*model.Account, error) {
	account, err := s.store.Accounts().Get(ctx, accountID)
	if err != nil {
		return nil, notFoundAs(err, errors.AccountNotFound, "load account")
	}
	return account, nil
}

// GetByPublicID JWT 中携带的是 PublicID
func (s *AccountService) GetByPublicID(ctx context.Context, publicID int64) (*model.Account, error) {
	account, err := s.store.Accounts().GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, notFoundAs(err, errors.AccountNotFound, "load account")
	}
	return account, nil
}

func (s *AccountService) Profile(ctx context.Context, accountID int64) (*Profile, error) {
	account, err := s.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	features, err := s.store.Features().Owned(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list owned features: %w", err)
	}
	converters, err := s.store.Converters().List(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list converters: %w", err)
	}
	return &Profile{Account: account, Features: features, Converters: converters}, nil
}
