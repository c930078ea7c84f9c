package change

import (
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/nao1215/contact/pkg/submission"
)

// DynamoDB Streamsのイベント名。
const (
	dynamoInsert = "INSERT"
	dynamoModify = "MODIFY"
	dynamoRemove = "REMOVE"
)

// FromDynamoDBEvent はDynamoDB StreamsのLambdaイベントを変更イベントのバッチに変換する。
// レコードの順序は保持される。NewImageの変換エラーはINSERTの場合のみエラーとし、
// MODIFYの場合はRecordをnilにする。
func FromDynamoDBEvent(e events.DynamoDBEvent) (Batch, error) {
	batch := make(Batch, 0, len(e.Records))
	for i, rec := range e.Records {
		kind, err := kindFromDynamo(rec.EventName)
		if err != nil {
			return nil, fmt.Errorf("ストリームレコード[%d]: %w", i, err)
		}

		ev := Event{
			EventID:   rec.EventID,
			Kind:      kind,
			CreatedAt: rec.Change.ApproximateCreationDateTime.UTC(),
		}
		if key, ok := rec.Change.Keys["submissionId"]; ok && key.DataType() == events.DataTypeString {
			ev.Key = key.String()
		}

		if kind != KindRemoved {
			record, err := submissionFromImage(rec.Change.NewImage)
			switch {
			case err != nil && kind == KindCreated:
				return nil, fmt.Errorf("ストリームレコード[%d] (%s): %w", i, rec.EventID, err)
			case err != nil:
				// MODIFIEDは通知対象外のため、読めないイメージはレコード無しとして扱う
				record = nil
			}
			ev.Record = record
			if ev.Key == "" && record != nil {
				ev.Key = record.SubmissionID
			}
		}
		batch = append(batch, ev)
	}
	return batch, nil
}

// kindFromDynamo はDynamoDB Streamsのイベント名をKindに変換する。
func kindFromDynamo(name string) (Kind, error) {
	switch name {
	case dynamoInsert:
		return KindCreated, nil
	case dynamoModify:
		return KindModified, nil
	case dynamoRemove:
		return KindRemoved, nil
	default:
		return "", fmt.Errorf("未知のイベント名です: %q", name)
	}
}

// submissionFromImage はストリームのNewImageをSubmissionに変換する。
// 属性が存在しない、またはNULLの場合はnil（空）として扱い、必須かどうかの判断は利用側に委ねる。
// 文字列以外の型の属性はエラーとする。
func submissionFromImage(image map[string]events.DynamoDBAttributeValue) (*submission.Submission, error) {
	if image == nil {
		return nil, nil
	}

	sub := &submission.Submission{}
	var err error
	if sub.SubmissionID, err = plainString(image, "submissionId"); err != nil {
		return nil, err
	}
	if sub.Timestamp, err = plainString(image, "timestamp"); err != nil {
		return nil, err
	}
	if sub.Status, err = plainString(image, "status"); err != nil {
		return nil, err
	}
	if sub.Name, err = optionalString(image, "name"); err != nil {
		return nil, err
	}
	if sub.Email, err = optionalString(image, "email"); err != nil {
		return nil, err
	}
	if sub.Message, err = optionalString(image, "message"); err != nil {
		return nil, err
	}
	return sub, nil
}

// plainString は文字列属性を取り出す。存在しない、またはNULLの場合は空文字列を返す。
func plainString(image map[string]events.DynamoDBAttributeValue, name string) (string, error) {
	v, err := optionalString(image, name)
	if err != nil {
		return "", err
	}
	return submission.Deref(v), nil
}

// optionalString は文字列属性をポインタとして取り出す。存在しない、またはNULLの場合はnilを返す。
func optionalString(image map[string]events.DynamoDBAttributeValue, name string) (*string, error) {
	av, ok := image[name]
	if !ok {
		return nil, nil
	}
	switch av.DataType() {
	case events.DataTypeString:
		s := av.String()
		return &s, nil
	case events.DataTypeNull:
		return nil, nil
	default:
		return nil, fmt.Errorf("属性 %q が文字列ではありません (type=%d)", name, av.DataType())
	}
}
