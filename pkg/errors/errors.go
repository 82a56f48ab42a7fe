// Package errors は gbdtcheck 全体のエラーハンドリングと警告システムを提供します。
// 一貫性チェックの失敗を握りつぶさず、呼び出し元（テストランナー）へ構造化された情報として伝播させます。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("gbdtcheck-Warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler は警告ハンドラを設定します。
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが設定されている場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}
	if warningHandler != nil {
		warningHandler(w)
	}
}

// ZerologWarnFunc は zerolog.Logger に警告を書き出す関数を返します。
// 警告が zerolog.LogObjectMarshaler を実装していれば構造化フィールドとして出力します。
func ZerologWarnFunc(logger zerolog.Logger) func(error) {
	return func(w error) {
		ev := logger.Warn()
		if m, ok := w.(zerolog.LogObjectMarshaler); ok {
			ev = ev.EmbedObject(m)
		}
		ev.Msg(w.Error())
	}
}

// ===========================================================================
//
//	警告型
//
// ===========================================================================

// DisabledOptionWarning は一貫性チェックのために設定項目が除外されたことを示す警告です。
type DisabledOptionWarning struct {
	Key    string
	Value  string
	Family string
}

func (w *DisabledOptionWarning) Error() string {
	return fmt.Sprintf("option %q (= %q) ignored: %s is disabled for consistency runs", w.Key, w.Value, w.Family)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *DisabledOptionWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("key", w.Key).
		Str("value", w.Value).
		Str("family", w.Family).
		Str("type", "DisabledOptionWarning")
}

// NewDisabledOptionWarning は新しいDisabledOptionWarningを作成します。
func NewDisabledOptionWarning(key, value, family string) *DisabledOptionWarning {
	return &DisabledOptionWarning{Key: key, Value: value, Family: family}
}

// ===========================================================================
//
//	一貫性ハーネスのエラー型
//
// ===========================================================================

// FileAccessError は入力ファイルが存在しない、または読み込めない場合のエラーです。
type FileAccessError struct {
	Op   string // "config", "dataset", "field", "reference", "model"
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gbdtcheck: %s: cannot access %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("gbdtcheck: %s: cannot access %s", e.Op, e.Path)
}

func (e *FileAccessError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *FileAccessError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("path", e.Path).
		AnErr("cause", e.Err).
		Str("type", "FileAccessError")
}

// NewFileAccessError は新しいFileAccessErrorを作成し、スタックトレースを付与します。
func NewFileAccessError(op, path string, err error) error {
	return errors.WithStack(&FileAccessError{Op: op, Path: path, Err: err})
}

// MalformedConfigError は設定ファイルの行が key = value の形式として解釈できない場合のエラーです。
type MalformedConfigError struct {
	Path   string
	Line   int // 1-origin、引数由来の場合は引数の位置
	Text   string
	Reason string
}

func (e *MalformedConfigError) Error() string {
	where := e.Path
	if where == "" {
		where = "<args>"
	}
	return fmt.Sprintf("gbdtcheck: malformed config %s:%d %q: %s", where, e.Line, e.Text, e.Reason)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *MalformedConfigError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("path", e.Path).
		Int("line", e.Line).
		Str("text", e.Text).
		Str("reason", e.Reason).
		Str("type", "MalformedConfigError")
}

// NewMalformedConfigError は新しいMalformedConfigErrorを作成し、スタックトレースを付与します。
func NewMalformedConfigError(path string, line int, text, reason string) error {
	return errors.WithStack(&MalformedConfigError{Path: path, Line: line, Text: text, Reason: reason})
}

// DatasetParseError は数値の解析失敗、または行・列の形状不一致のエラーです。
type DatasetParseError struct {
	Path   string
	Line   int // 0 は行に依存しない形状エラー
	Reason string
	Err    error
}

func (e *DatasetParseError) Error() string {
	msg := fmt.Sprintf("gbdtcheck: cannot parse %s", e.Path)
	if e.Line > 0 {
		msg += fmt.Sprintf(" line %d", e.Line)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *DatasetParseError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DatasetParseError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("path", e.Path).
		Int("line", e.Line).
		Str("reason", e.Reason).
		AnErr("cause", e.Err).
		Str("type", "DatasetParseError")
}

// NewDatasetParseError は新しいDatasetParseErrorを作成し、スタックトレースを付与します。
func NewDatasetParseError(path string, line int, reason string, err error) error {
	return errors.WithStack(&DatasetParseError{Path: path, Line: line, Reason: reason, Err: err})
}

// NewShapeMismatchError は行数の不整合を DatasetParseError として報告します。
func NewShapeMismatchError(path, what string, expected, got int) error {
	reason := fmt.Sprintf("shape mismatch: %s expected %d rows, got %d", what, expected, got)
	return errors.WithStack(&DatasetParseError{Path: path, Reason: reason})
}

// PredictionMismatchError は二つの予測ベクトルが許容誤差を超えて食い違った場合のエラーです。
// 最大偏差とその位置を報告します。
type PredictionMismatchError struct {
	Family     string // データセット系列（binary, multiclass, ...）
	Expected   string // 基準側の予測器名
	Actual     string // 比較側の予測器名
	Index      int    // 行優先で平坦化した位置
	Row        int
	Col        int
	Want       float64
	Got        float64
	MaxAbsDiff float64
	Decimal    int
	Mismatched int // 許容誤差を超えた要素数
	Total      int
}

func (e *PredictionMismatchError) Error() string {
	family := e.Family
	if family == "" {
		family = "predictions"
	}
	return fmt.Sprintf("gbdtcheck: %s: %s and %s differ at %d/%d elements (decimal=%d); max |diff| = %.3g at index %d (row %d, col %d): %.17g vs %.17g",
		family, e.Expected, e.Actual, e.Mismatched, e.Total, e.Decimal, e.MaxAbsDiff, e.Index, e.Row, e.Col, e.Want, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *PredictionMismatchError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("family", e.Family).
		Str("expected", e.Expected).
		Str("actual", e.Actual).
		Int("index", e.Index).
		Int("row", e.Row).
		Int("col", e.Col).
		Float64("want", e.Want).
		Float64("got", e.Got).
		Float64("max_abs_diff", e.MaxAbsDiff).
		Int("decimal", e.Decimal).
		Int("mismatched", e.Mismatched).
		Int("total", e.Total).
		Str("type", "PredictionMismatchError")
}

// NewPredictionMismatchError はスタックトレース付きで err を返します。
func NewPredictionMismatchError(e *PredictionMismatchError) error {
	return errors.WithStack(e)
}

// ===========================================================================
//
//	エンジン側の構造化エラー型
//
// ===========================================================================

// NotFittedError はモデルが未学習の状態で予測を呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("gbdtcheck: %s: this model is not trained yet. Call Train() before using %s()", e.ModelName, e.Method)
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("gbdtcheck: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValueError は引数や設定値が不正な場合のエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("gbdtcheck: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// NumericalInstabilityError は予測や勾配に NaN / Inf が現れた場合のエラーです。
type NumericalInstabilityError struct {
	Operation string
	Values    []float64
	Iteration int
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("gbdtcheck: numerical instability detected in %s at iteration %d. Values: [%s]",
		e.Operation, e.Iteration, valStr)
}

// NewNumericalInstabilityError は新しいNumericalInstabilityErrorを作成します。
func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	return errors.WithStack(&NumericalInstabilityError{Operation: operation, Values: values, Iteration: iteration})
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrNotImplemented は機能が未実装の場合のエラーです。
	ErrNotImplemented = New("not implemented")
)
