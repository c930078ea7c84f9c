package dynamo

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nao1215/contact/internal/store"
	"github.com/nao1215/contact/pkg/submission"
)

// fakePutItem はPutItemAPIのフェイク実装。受け取った入力を記録する。
type fakePutItem struct {
	inputs []*dynamodb.PutItemInput
	err    error
}

func (f *fakePutItem) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.PutItemOutput{}, nil
}

// TestPutRecord はPutRecordを検証する。
func TestPutRecord(t *testing.T) {
	t.Parallel()

	sub := &submission.Submission{
		SubmissionID: "abc",
		Name:         submission.String("Alice"),
		Message:      submission.String("Hi"),
		Timestamp:    "2024-01-01T00:00:00",
		Status:       submission.StatusNew,
	}

	t.Run("属性名がレコード形式と一致し条件付きで書き込まれること", func(t *testing.T) {
		t.Parallel()

		fake := &fakePutItem{}
		table := New(fake, "ContactSubmissions")

		if err := table.PutRecord(context.Background(), sub); err != nil {
			t.Fatalf("PutRecord()でエラーが発生: %v", err)
		}
		if len(fake.inputs) != 1 {
			t.Fatalf("PutItemの呼び出し回数 = %d, want 1", len(fake.inputs))
		}

		in := fake.inputs[0]
		if aws.ToString(in.TableName) != "ContactSubmissions" {
			t.Errorf("TableName = %q", aws.ToString(in.TableName))
		}
		if aws.ToString(in.ConditionExpression) != "attribute_not_exists(submissionId)" {
			t.Errorf("ConditionExpression = %q", aws.ToString(in.ConditionExpression))
		}

		id, ok := in.Item["submissionId"].(*types.AttributeValueMemberS)
		if !ok || id.Value != "abc" {
			t.Errorf("submissionId = %#v", in.Item["submissionId"])
		}
		status, ok := in.Item["status"].(*types.AttributeValueMemberS)
		if !ok || status.Value != "new" {
			t.Errorf("status = %#v", in.Item["status"])
		}
		// 未指定の任意項目はNULL属性として書き込まれること
		if _, ok := in.Item["email"].(*types.AttributeValueMemberNULL); !ok {
			t.Errorf("email = %#v, want NULL", in.Item["email"])
		}
	})

	t.Run("条件付き書き込みの失敗はErrDuplicateIDになること", func(t *testing.T) {
		t.Parallel()

		fake := &fakePutItem{err: &types.ConditionalCheckFailedException{Message: aws.String("exists")}}
		err := New(fake, "t").PutRecord(context.Background(), sub)
		if !errors.Is(err, store.ErrDuplicateID) {
			t.Errorf("err = %v, want ErrDuplicateID", err)
		}
	})

	t.Run("その他のエラーはそのまま伝播されること", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("throttled")
		fake := &fakePutItem{err: cause}
		err := New(fake, "t").PutRecord(context.Background(), sub)
		if !errors.Is(err, cause) {
			t.Errorf("err = %v, want %v", err, cause)
		}
	})
}
