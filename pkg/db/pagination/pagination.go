package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrInvalidPageToken = errors.New("invalid_page_token")

type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size" validate:"omitempty,gte=1,lte=250"`
}

// Cursor marks the last row of a page in (created_at desc, id desc) order.
type Cursor struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return nil, ErrInvalidPageToken
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, ErrInvalidPageToken
	}
	if cursor.ID == 0 {
		return nil, ErrInvalidPageToken
	}

	return &cursor, nil
}

// Apply restricts stmt to rows after the page token and fetches one extra row
// so the caller can tell whether another page exists.
func Apply(stmt *gorm.DB, table string, page Pagination) (*gorm.DB, error) {
	return ApplyBy(stmt, table, "created_at", page)
}

// ApplyBy is Apply over a timestamp column other than created_at. The cursor's
// CreatedAt then carries that column's value.
func ApplyBy(stmt *gorm.DB, table, column string, page Pagination) (*gorm.DB, error) {
	prefix := ""
	if table != "" {
		prefix = table + "."
	}
	if page.PageToken != "" {
		cursor, err := DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where(
			"("+prefix+column+" < ?) OR ("+prefix+column+" = ? AND "+prefix+"id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}
	stmt = stmt.Order(prefix + column + " desc").Order(prefix + "id desc")
	if page.PageSize > 0 {
		stmt = stmt.Limit(page.PageSize + 1)
	}
	return stmt, nil
}

// BuildCursorPageInfo trims data to limit and reports the token of its last row.
func BuildCursorPageInfo[T any](data []*T, limit int, extractCursor func(*T) Cursor) ([]*T, PageInfo) {
	if len(data) == 0 || limit <= 0 {
		return data, PageInfo{}
	}

	if len(data) <= limit {
		return data, PageInfo{}
	}

	data = data[:limit]
	token, err := EncodeCursor(extractCursor(data[len(data)-1]))
	if err != nil {
		return data, PageInfo{}
	}
	return data, PageInfo{HasMore: true, NextPageToken: token}
}

// Scope is Apply as a gorm scope. An invalid page token is recorded on the
// statement and returned by the finisher.
func Scope(table string, page Pagination) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		stmt, err := Apply(db, table, page)
		if err != nil {
			_ = db.AddError(err)
			return db
		}
		return stmt
	}
}
