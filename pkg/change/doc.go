// Package change はストアの変更フィード（Change Feed）で配信されるイベントの定義を提供する。
//
// 変更イベントはストアへの書き込みがコミットされた後に配信され、
// 少なくとも1回（at-least-once）届く。同一キーについての順序は保証される。
// Notifierが意味を持って扱うのはCREATEDイベントのみである。
package change
