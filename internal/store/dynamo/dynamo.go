// Package dynamo はDynamoDBをレコードストアとして使うWriter実装を提供する。
//
// 変更フィードはDynamoDB Streamsが担うため、このパッケージは書き込みのみを扱う。
package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nao1215/contact/internal/store"
	"github.com/nao1215/contact/pkg/submission"
)

// PutItemAPI はDynamoDBクライアントのうちPutItemのみを表すインターフェース。
// テストではフェイク実装に差し替える。
type PutItemAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Table はDynamoDBテーブルへの書き込みを行うWriter。
type Table struct {
	// client はプロセス全体で共有するDynamoDBクライアント。
	client PutItemAPI
	// name はテーブル名。
	name string
}

var _ store.Writer = (*Table)(nil)

// New は新しいTableを生成する。clientは起動時に1度だけ生成したものを渡す。
func New(client PutItemAPI, tableName string) *Table {
	return &Table{client: client, name: tableName}
}

// PutRecord はレコードを1件書き込む。
// submissionIdが既に存在する場合は条件付き書き込みが失敗し、store.ErrDuplicateIDを返す。
func (t *Table) PutRecord(ctx context.Context, sub *submission.Submission) error {
	item, err := attributevalue.MarshalMap(sub)
	if err != nil {
		return fmt.Errorf("レコードの属性変換に失敗: %w", err)
	}

	_, err = t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(t.name),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(submissionId)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return fmt.Errorf("%w: %s", store.ErrDuplicateID, sub.SubmissionID)
		}
		return fmt.Errorf("DynamoDBへの書き込みに失敗 (table=%s): %w", t.name, err)
	}
	return nil
}
