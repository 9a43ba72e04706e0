package service

import (
	"context"
	"fmt"
	"time"

	"sheetgrid-be/internal/dto"
	"sheetgrid-be/internal/entity"
	"sheetgrid-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type ICredentialService interface {
	GetKeys(ctx context.Context, userId uuid.UUID) (*dto.GetKeysResponse, error)
	UpsertKeys(ctx context.Context, request *dto.UpsertKeysRequest) (*dto.GetKeysResponse, error)
}

type credentialService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewCredentialService(uowFactory unitofwork.RepositoryFactory) ICredentialService {
	return &credentialService{
		uowFactory: uowFactory,
	}
}

// GetKeys returns the user's stored keys. Missing rows read as both
// keys absent, never as an error.
func (cs *credentialService) GetKeys(ctx context.Context, userId uuid.UUID) (*dto.GetKeysResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	credential, err := uow.ApiCredentialRepository().FindByUserId(ctx, userId)
	if err != nil {
		return nil, err
	}
	if credential == nil {
		return &dto.GetKeysResponse{}, nil
	}

	return &dto.GetKeysResponse{
		OpenRouterKey: credential.OpenRouterKey,
		UniverMcpKey:  credential.UniverMcpKey,
	}, nil
}

// UpsertKeys applies a partial update: nil fields keep their stored
// value, non-nil fields overwrite it.
func (cs *credentialService) UpsertKeys(ctx context.Context, request *dto.UpsertKeysRequest) (*dto.GetKeysResponse, error) {
	userId, err := uuid.Parse(request.UserId)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %w", err)
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	credential := entity.ApiCredential{
		Id:            uuid.New(),
		UserId:        userId,
		OpenRouterKey: request.OpenRouterKey,
		UniverMcpKey:  request.UniverMcpKey,
		CreatedAt:     time.Now(),
	}
	if err := uow.ApiCredentialRepository().Upsert(ctx, &credential); err != nil {
		return nil, err
	}

	return cs.GetKeys(ctx, userId)
}
