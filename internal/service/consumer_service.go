package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"sheetgrid-be/internal/dto"
	"sheetgrid-be/internal/entity"
	"sheetgrid-be/internal/repository/unitofwork"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService persists queued workbook snapshots off the request
// path, so a chat exchange never waits on the snapshot write.
type consumerService struct {
	pubSub     *gochannel.GoChannel
	topicName  string
	uowFactory unitofwork.RepositoryFactory
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
) IConsumerService {
	return &consumerService{
		pubSub:     pubSub,
		topicName:  topicName,
		uowFactory: uowFactory,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishSnapshotMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal snapshot message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	now := time.Now()
	snapshot := entity.WorkbookSnapshot{
		Id:        uuid.New(),
		UserId:    payload.UserId,
		Data:      payload.Workbook,
		CreatedAt: now,
		UpdatedAt: &now,
	}

	if err := uow.WorkbookSnapshotRepository().Save(ctx, &snapshot); err != nil {
		log.Printf("[ERROR] Failed to save snapshot for user %s: %v", payload.UserId, err)
		msg.Nack() // Nack for retriable errors
		return
	}

	msg.Ack()
}
