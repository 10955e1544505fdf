package savedsync

import (
	"errors"
	"fmt"
)

// ErrorKind は同期処理で発生したエラーの種別。
type ErrorKind string

const (
	// ErrorKindNotAuthenticated はユーザーIDが指定されていないことを示す。
	ErrorKindNotAuthenticated ErrorKind = "not_authenticated"
	// ErrorKindRemoteUnavailable は取得・作成・削除のいずれかのリモート呼び出しが失敗したことを示す。
	// ネットワーク障害、ストア側のエラー、権限エラーはすべてこの種別にまとめる。
	ErrorKindRemoteUnavailable ErrorKind = "remote_unavailable"
	// ErrorKindNotFound は手元に存在しないIDを削除しようとしたことを示す。
	// 望む状態は既に達成されているため、Removeはこれをエラーとして返さない。
	ErrorKindNotFound ErrorKind = "not_found"
)

// ユーザー向けメッセージ
const (
	MessageNotAuthenticated = "デザインを保存するにはログインが必要です。"
	MessageLoadFailed       = "保存済みデザインの読み込みに失敗しました。"
	MessageSaveFailed       = "デザインの保存に失敗しました。"
	MessageRemoveFailed     = "デザインの削除に失敗しました。"
)

// SyncError は同期処理のエラー。種別とユーザー向けメッセージ、原因エラーを持つ。
type SyncError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error はerrorインターフェースを実装する。
func (e *SyncError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap は原因エラーを返す。
func (e *SyncError) Unwrap() error {
	return e.Err
}

// KindOf はエラーチェーンからErrorKindを取り出す。SyncErrorを含まない場合は空文字を返す。
func KindOf(err error) ErrorKind {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

func errNotAuthenticated() *SyncError {
	return &SyncError{Kind: ErrorKindNotAuthenticated, Message: MessageNotAuthenticated}
}

func errRemoteUnavailable(message string, cause error) *SyncError {
	return &SyncError{Kind: ErrorKindRemoteUnavailable, Message: message, Err: cause}
}
