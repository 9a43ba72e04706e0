package unitofwork

import (
	"context"

	"sheetgrid-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ChatSessionRepository() contract.ChatSessionRepository
	ChatMessageRepository() contract.ChatMessageRepository
	ApiCredentialRepository() contract.ApiCredentialRepository
	WorkbookSnapshotRepository() contract.WorkbookSnapshotRepository
}
