package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nao1215/contact/pkg/change"
	"github.com/nao1215/contact/pkg/migration"
	"github.com/nao1215/contact/pkg/submission"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	// ErrNotFound は指定されたレコードが存在しないことを表す。
	ErrNotFound = errors.New("レコードが見つかりません")
	// ErrDuplicateID は同じsubmissionIdのレコードが既に存在することを表す。
	ErrDuplicateID = errors.New("submissionIdが重複しています")
)

// Writer はレコードを1件アトミックに書き込むインターフェース。
// 通信エラーやスロットリング等、失敗時は必ずエラーを返す。
type Writer interface {
	PutRecord(ctx context.Context, sub *submission.Submission) error
}

// SQLite はSQLiteを使ったレコードストア兼変更フィード。
type SQLite struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
	// now は現在時刻を返す関数。テストで差し替える。
	now func() time.Time
}

// Open はpathのSQLiteデータベースを開き、マイグレーションを適用する。
// pathに ":memory:" を指定するとインメモリDBになる。
func Open(ctx context.Context, path string) (*SQLite, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	s, err := New(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New は接続済みのdbからストアを生成し、マイグレーションを適用する。
func New(ctx context.Context, db *sql.DB) (*SQLite, error) {
	// SQLiteは書き込みが直列化されるため、プロセス内では1接続に固定する
	db.SetMaxOpenConns(1)

	if err := migration.Run(ctx, db, migrationsFS, "migrations"); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

// Close はデータベース接続を閉じる。
func (s *SQLite) Close() error {
	return s.db.Close()
}

// PutRecord はレコードを挿入し、CREATEDイベントを変更フィードに追記する。
// 両方の書き込みは同一トランザクションで行われ、どちらかが失敗した場合は何も残らない。
func (s *SQLite) PutRecord(ctx context.Context, sub *submission.Submission) error {
	recordJSON, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("レコードのシリアライズに失敗: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO submissions (submission_id, name, email, message, timestamp, status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sub.SubmissionID, nullString(sub.Name), nullString(sub.Email), nullString(sub.Message),
		sub.Timestamp, sub.Status,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateID, sub.SubmissionID)
		}
		return fmt.Errorf("レコードの挿入に失敗: %w", err)
	}

	ev := change.Created(sub, 0)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO change_log (event_id, kind, record_key, record, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		ev.EventID, string(ev.Kind), ev.Key, string(recordJSON), s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("変更フィードへの追記に失敗: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗: %w", err)
	}
	return nil
}

// GetRecord はsubmissionIdでレコードを取得する。
func (s *SQLite) GetRecord(ctx context.Context, id string) (*submission.Submission, error) {
	var (
		sub                  submission.Submission
		name, email, message sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT submission_id, name, email, message, timestamp, status
		FROM submissions WHERE submission_id = ?`, id,
	).Scan(&sub.SubmissionID, &name, &email, &message, &sub.Timestamp, &sub.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("レコードの取得に失敗: %w", err)
	}

	sub.Name = fromNullString(name)
	sub.Email = fromNullString(email)
	sub.Message = fromNullString(message)
	return &sub, nil
}

// CountRecords は保存されているレコード数を返す。
func (s *SQLite) CountRecords(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("レコード数の取得に失敗: %w", err)
	}
	return n, nil
}

// ReadChanges はafterより後の変更イベントをSequence順に最大limit件返す。
func (s *SQLite) ReadChanges(ctx context.Context, after int64, limit int) (change.Batch, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT sequence, event_id, kind, record_key, record, created_at
		FROM change_log WHERE sequence > ? ORDER BY sequence LIMIT ?`, after, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("変更フィードの取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	batch := change.Batch{}
	for rows.Next() {
		var (
			ev        change.Event
			kind      string
			record    sql.NullString
			createdAt string
		)
		if err := rows.Scan(&ev.Sequence, &ev.EventID, &kind, &ev.Key, &record, &createdAt); err != nil {
			return nil, fmt.Errorf("変更フィードの読み取りに失敗: %w", err)
		}
		ev.Kind = change.Kind(kind)

		if record.Valid {
			var sub submission.Submission
			if err := json.Unmarshal([]byte(record.String), &sub); err != nil {
				return nil, fmt.Errorf("変更イベント %d のレコードのデシリアライズに失敗: %w", ev.Sequence, err)
			}
			ev.Record = &sub
		}

		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			ev.CreatedAt = t
		}
		batch = append(batch, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("変更フィードの読み取りに失敗: %w", err)
	}
	return batch, nil
}

// LoadCheckpoint は購読者consumerの処理済み位置を返す。未登録の場合は0を返す。
func (s *SQLite) LoadCheckpoint(ctx context.Context, consumer string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx,
		`SELECT sequence FROM feed_checkpoints WHERE consumer = ?`, consumer,
	).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("チェックポイントの取得に失敗: %w", err)
	}
	return seq, nil
}

// SaveCheckpoint は購読者consumerの処理済み位置を保存する。
func (s *SQLite) SaveCheckpoint(ctx context.Context, consumer string, seq int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feed_checkpoints (consumer, sequence, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(consumer) DO UPDATE SET sequence = excluded.sequence, updated_at = excluded.updated_at`,
		consumer, seq, s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("チェックポイントの保存に失敗: %w", err)
	}
	return nil
}

// DeadLetter は通知できずに読み飛ばした変更イベントの記録。
type DeadLetter struct {
	// Consumer は読み飛ばした購読者名。
	Consumer string
	// Sequence は読み飛ばしたイベントのSequence。
	Sequence int64
	// EventID は読み飛ばしたイベントのID。
	EventID string
	// Key は読み飛ばしたイベントのsubmissionId。
	Key string
	// Reason は読み飛ばした理由。
	Reason string
	// CreatedAt は記録日時。
	CreatedAt time.Time
}

// SaveDeadLetter は購読者consumerが処理できなかった変更イベントを記録する。
// 同じイベントを二重に記録した場合は理由を上書きする。
func (s *SQLite) SaveDeadLetter(ctx context.Context, consumer string, ev change.Event, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feed_dead_letters (consumer, sequence, event_id, record_key, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(consumer, sequence) DO UPDATE SET reason = excluded.reason, created_at = excluded.created_at`,
		consumer, ev.Sequence, ev.EventID, ev.Key, reason, s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("デッドレターの保存に失敗 (sequence=%d): %w", ev.Sequence, err)
	}
	return nil
}

// ListDeadLetters は購読者consumerのデッドレターをSequence順に返す。
func (s *SQLite) ListDeadLetters(ctx context.Context, consumer string) ([]DeadLetter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT consumer, sequence, event_id, record_key, reason, created_at
		FROM feed_dead_letters WHERE consumer = ? ORDER BY sequence`, consumer,
	)
	if err != nil {
		return nil, fmt.Errorf("デッドレターの取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	letters := []DeadLetter{}
	for rows.Next() {
		var (
			dl        DeadLetter
			createdAt string
		)
		if err := rows.Scan(&dl.Consumer, &dl.Sequence, &dl.EventID, &dl.Key, &dl.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("デッドレターの読み取りに失敗: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			dl.CreatedAt = t
		}
		letters = append(letters, dl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("デッドレターの読み取りに失敗: %w", err)
	}
	return letters, nil
}

// Ping はデータベースへの接続を確認する。
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// nullString は任意項目をSQLのNULL許容文字列に変換する。
func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

// fromNullString はSQLのNULL許容文字列を任意項目に変換する。
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

// isUniqueViolation は一意制約違反のエラーかを判定する。
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
