package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"sheetgrid-be/internal/dto"
	"sheetgrid-be/internal/model"
	"sheetgrid-be/internal/repository/unitofwork"
	"sheetgrid-be/internal/websocket"
	"sheetgrid-be/pkg/events"
	"sheetgrid-be/pkg/nats"
	"sheetgrid-be/pkg/sheet"
	"sheetgrid-be/pkg/xlsx"

	"github.com/google/uuid"
)

type IWorkbookService interface {
	ImportXLSX(ctx context.Context, userId uuid.UUID, r io.Reader, name string) (*dto.ImportWorkbookResponse, error)
	ExportXLSX(ctx context.Context, w io.Writer) (string, error)
	SaveSnapshot(ctx context.Context, userId uuid.UUID) error
	LoadSnapshot(ctx context.Context, userId uuid.UUID) (*dto.SnapshotResponse, error)
}

type workbookService struct {
	engine           *sheet.Engine
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
	hub              *websocket.Hub
	audit            *nats.Publisher
}

func NewWorkbookService(
	engine *sheet.Engine,
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	hub *websocket.Hub,
	audit *nats.Publisher,
) IWorkbookService {
	return &workbookService{
		engine:           engine,
		uowFactory:       uowFactory,
		publisherService: publisherService,
		hub:              hub,
		audit:            audit,
	}
}

// ImportXLSX replaces the active workbook with the uploaded file and
// queues a snapshot save.
func (ws *workbookService) ImportXLSX(ctx context.Context, userId uuid.UUID, r io.Reader, name string) (*dto.ImportWorkbookResponse, error) {
	wb, err := xlsx.Import(r, name)
	if err != nil {
		return nil, fmt.Errorf("import workbook: %w", err)
	}
	ws.engine.Load(wb)

	if err := ws.queueSnapshot(ctx, userId); err != nil {
		return nil, err
	}

	if ws.audit != nil {
		_ = ws.audit.Publish(ctx, events.NewWorkbookImported(userId.String(), wb.Id, len(wb.SheetOrder)))
	}
	if ws.hub != nil {
		ws.hub.Send(userId, model.Notification{Event: "workbook.updated", Data: map[string]interface{}{
			"workbook_id": wb.Id,
		}})
	}

	sheets := make([]string, 0, len(wb.SheetOrder))
	for _, id := range wb.SheetOrder {
		if sh, ok := wb.Sheets[id]; ok {
			sheets = append(sheets, sh.Name)
		}
	}

	return &dto.ImportWorkbookResponse{
		WorkbookId: wb.Id,
		Name:       wb.Name,
		Sheets:     sheets,
	}, nil
}

// ExportXLSX writes the current workbook as an .xlsx stream and returns
// the suggested filename.
func (ws *workbookService) ExportXLSX(ctx context.Context, w io.Writer) (string, error) {
	wb := ws.engine.Snapshot()
	if wb == nil {
		return "", fmt.Errorf("no workbook loaded")
	}
	if err := xlsx.Export(wb, w); err != nil {
		return "", fmt.Errorf("export workbook: %w", err)
	}
	name := wb.Name
	if name == "" {
		name = "workbook"
	}
	return name + ".xlsx", nil
}

// SaveSnapshot queues the current workbook state for persistence.
func (ws *workbookService) SaveSnapshot(ctx context.Context, userId uuid.UUID) error {
	return ws.queueSnapshot(ctx, userId)
}

// LoadSnapshot restores the user's saved workbook into the engine.
func (ws *workbookService) LoadSnapshot(ctx context.Context, userId uuid.UUID) (*dto.SnapshotResponse, error) {
	uow := ws.uowFactory.NewUnitOfWork(ctx)

	snapshot, err := uow.WorkbookSnapshotRepository().FindByUserId(ctx, userId)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, fmt.Errorf("no snapshot saved")
	}

	var wb sheet.Workbook
	if err := json.Unmarshal(snapshot.Data, &wb); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	ws.engine.Load(&wb)

	savedAt := snapshot.UpdatedAt
	if savedAt == nil {
		savedAt = &snapshot.CreatedAt
	}
	return &dto.SnapshotResponse{
		WorkbookId: wb.Id,
		Name:       wb.Name,
		SavedAt:    savedAt,
	}, nil
}

func (ws *workbookService) queueSnapshot(ctx context.Context, userId uuid.UUID) error {
	wb := ws.engine.Snapshot()
	if wb == nil {
		return fmt.Errorf("no workbook loaded")
	}

	data, err := json.Marshal(wb)
	if err != nil {
		return fmt.Errorf("encode workbook: %w", err)
	}

	msgPayload := dto.PublishSnapshotMessage{
		UserId:   userId,
		Workbook: data,
	}
	msgJson, err := json.Marshal(msgPayload)
	if err != nil {
		return err
	}
	return ws.publisherService.Publish(ctx, msgJson)
}
