package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/rolacode/telehealth-platform/pkg/logging"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// messageItem is the DynamoDB shape of a Message. The partition key is the
// sorted identity pair, the sort key orders by send time with the message ID
// as tie-breaker.
type messageItem struct {
	ConversationKey string `dynamodbav:"conversationKey"`
	SortKey         string `dynamodbav:"sortKey"`
	ID              string `dynamodbav:"id"`
	Sender          string `dynamodbav:"sender"`
	Receiver        string `dynamodbav:"receiver"`
	Content         string `dynamodbav:"content"`
	AppointmentID   string `dynamodbav:"appointmentId,omitempty"`
	SentAt          string `dynamodbav:"sentAt"`
}

// DynamoStore persists chat messages to DynamoDB.
type DynamoStore struct {
	client    dynamoAPI
	tableName string
	logger    *logging.Logger
}

// NewDynamoStore builds a store backed by the provided DynamoDB client.
func NewDynamoStore(client dynamoAPI, tableName string, logger *logging.Logger) *DynamoStore {
	if client == nil {
		panic("chat: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("chat: table name cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DynamoStore{client: client, tableName: tableName, logger: logger}
}

var _ MessageStore = (*DynamoStore)(nil)

// ConversationKey builds the canonical partition key for an identity pair.
// The pair is sorted so both directions land in the same partition.
func ConversationKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "#" + b
}

// Persist writes the message item, generating its ID.
func (s *DynamoStore) Persist(ctx context.Context, msg *Message) error {
	if msg == nil {
		return errors.New("chat: message cannot be nil")
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}

	sentAt := msg.SentAt.UTC().Format(time.RFC3339Nano)
	item, err := attributevalue.MarshalMap(messageItem{
		ConversationKey: ConversationKey(msg.Sender, msg.Receiver),
		SortKey:         sentAt + "#" + msg.ID,
		ID:              msg.ID,
		Sender:          msg.Sender,
		Receiver:        msg.Receiver,
		Content:         msg.Content,
		AppointmentID:   msg.AppointmentID,
		SentAt:          sentAt,
	})
	if err != nil {
		return fmt.Errorf("chat: failed to marshal message item: %w", err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("chat: failed to persist message: %w", err)
	}
	return nil
}

// Conversation queries the pair's partition in sort-key order.
func (s *DynamoStore) Conversation(ctx context.Context, a, b string) ([]Message, error) {
	messages := make([]Message, 0)
	var startKey map[string]types.AttributeValue

	for {
		out, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.tableName),
			KeyConditionExpression: aws.String("conversationKey = :ck"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":ck": &types.AttributeValueMemberS{Value: ConversationKey(a, b)},
			},
			ScanIndexForward:  aws.Bool(true),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("chat: failed to query conversation: %w", err)
		}

		var items []messageItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, fmt.Errorf("chat: failed to decode message items: %w", err)
		}
		for _, item := range items {
			sentAt, err := time.Parse(time.RFC3339Nano, item.SentAt)
			if err != nil {
				s.logger.Warn("chat: skipping message with bad timestamp", "id", item.ID, "error", err)
				continue
			}
			messages = append(messages, Message{
				ID:            item.ID,
				Sender:        item.Sender,
				Receiver:      item.Receiver,
				Content:       item.Content,
				AppointmentID: item.AppointmentID,
				SentAt:        sentAt,
			})
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	// Sort keys are lexicographic RFC3339Nano; a stable sort keeps
	// equal-timestamp messages in write order across pages.
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].SentAt.Before(messages[j].SentAt)
	})
	return messages, nil
}
