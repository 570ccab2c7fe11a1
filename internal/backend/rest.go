package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ErrCodeNoRows はデータAPIが「一致する行がない」ことを示すコード。
// PostgREST互換バックエンドのPGRST116に対応する。
const ErrCodeNoRows = "PGRST116"

// Query はデータAPIへの問い合わせ条件を表す。
// カラム射影、ソート、等価フィルタ、件数上限をサポートする。
type Query struct {
	Select     string            // カラム射影。"id, title, ..." のように空白を含んでもよい（送信時に除去）
	OrderBy    string            // ソート対象カラム
	Descending bool              // trueなら降順
	Eq         map[string]string // カラム = 値 の等価フィルタ
	Limit      int               // 0は無制限
}

// values はQueryをデータAPIのクエリパラメータに変換する。
func (q Query) values() url.Values {
	v := url.Values{}
	if q.Select != "" {
		v.Set("select", strings.ReplaceAll(q.Select, " ", ""))
	}
	if q.OrderBy != "" {
		direction := "asc"
		if q.Descending {
			direction = "desc"
		}
		v.Set("order", q.OrderBy+"."+direction)
	}
	for column, value := range q.Eq {
		v.Set(column, "eq."+value)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// Select は指定テーブルに問い合わせ、一致した行のJSONを返す。
// 一致する行がない場合は空スライスを返す（エラーではない）。
func (c *Client) Select(ctx context.Context, table string, q Query) ([]json.RawMessage, error) {
	raw, err := c.do(ctx, http.MethodGet, "/rest/v1/"+table, q.values(), nil, "")
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("データAPIレスポンスのパースに失敗しました: %w", err)
	}

	return rows, nil
}

// SelectSingle は単一行を取得する。
// 一致する行がない場合はコードPGRST116の*APIErrorを返す
// （PostgREST互換バックエンドの単一行取得と同じ失敗形式）。
func (c *Client) SelectSingle(ctx context.Context, table string, q Query) (json.RawMessage, error) {
	q.Limit = 1
	rows, err := c.Select(ctx, table, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &APIError{
			Message: "JSON object requested, multiple (or no) rows returned",
			Status:  http.StatusNotAcceptable,
			Code:    ErrCodeNoRows,
		}
	}
	return rows[0], nil
}
