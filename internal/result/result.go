// Package result は成功値または型付きエラーのどちらか一方だけを保持する
// タグ付きユニオンを提供する。
// ゲートウェイの全操作の戻り値として使用され、呼び出し側はエラースロットの
// 有無で成功/失敗を判定する。例外的な制御フローは使用しない。
package result

// Result は成功値（T）またはエラー（E）のどちらか一方だけを保持する。
// 「両方が埋まる」「どちらも埋まらない」状態はコンストラクタにより排除される。
type Result[T any, E error] struct {
	value T
	err   E
	ok    bool
}

// Ok は成功のResultを生成する。
func Ok[T any, E error](value T) Result[T, E] {
	return Result[T, E]{value: value, ok: true}
}

// Err は失敗のResultを生成する。
func Err[T any, E error](err E) Result[T, E] {
	return Result[T, E]{err: err}
}

// IsOk は成功の場合にtrueを返す。
func (r Result[T, E]) IsOk() bool {
	return r.ok
}

// IsErr は失敗の場合にtrueを返す。
func (r Result[T, E]) IsErr() bool {
	return !r.ok
}

// Value は成功値を返す。失敗の場合はTのゼロ値を返す。
func (r Result[T, E]) Value() T {
	return r.value
}

// Err はエラーを返す。成功の場合はEのゼロ値（nil）を返す。
func (r Result[T, E]) Err() E {
	return r.err
}

// OrElse は成功値を返す。失敗の場合はdefaultValueを返す。
func (r Result[T, E]) OrElse(defaultValue T) T {
	if r.ok {
		return r.value
	}
	return defaultValue
}
