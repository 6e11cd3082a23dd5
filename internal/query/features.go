// Package query переводит плоские параметры запроса в директивы выборки:
// фильтрацию, поиск, сортировку, проекцию полей и пагинацию.
//
// Параметры page, limit, sort, fields и keyword зарезервированы; любой
// другой ключ становится условием фильтра. Сравнения задаются скобочной
// нотацией: price[gte]=100, created_at[lt]=2026-01-01.
package query

import (
	"strconv"
	"strings"
)

// DefaultLimit размер страницы по умолчанию.
const DefaultLimit = 25

// Операторы сравнения, допустимые в скобочной нотации.
const (
	OpEq  = "="
	OpGt  = ">"
	OpGte = ">="
	OpLt  = "<"
	OpLte = "<="
)

var comparators = map[string]string{
	"gt":  OpGt,
	"gte": OpGte,
	"lt":  OpLt,
	"lte": OpLte,
}

var reserved = map[string]struct{}{
	"page":    {},
	"limit":   {},
	"sort":    {},
	"fields":  {},
	"keyword": {},
}

// Filter одно условие фильтрации.
type Filter struct {
	Field string
	Op    string
	Value string
}

// SortKey ключ сортировки; ключи применяются в порядке перечисления.
type SortKey struct {
	Field string
	Desc  bool
}

// Features директивы выборки, построенные из параметров запроса.
type Features struct {
	Filters []Filter
	Search  string
	Sort    []SortKey
	Page    int
	Limit   int
	Fields  []string
}

// Meta метаданные пагинации, вычисляются по общему числу записей.
type Meta struct {
	CurrentPage int  `json:"current_page"`
	Limit       int  `json:"limit"`
	TotalPages  int  `json:"total_pages"`
	TotalCount  int  `json:"total_count"`
	Next        *int `json:"next,omitempty"`
	Prev        *int `json:"prev,omitempty"`
}

// Parse разбирает плоскую карту параметров в Features.
// Некорректные page и limit заменяются значениями по умолчанию.
func Parse(params map[string]string) *Features {
	f := &Features{Page: 1, Limit: DefaultLimit}

	for key, value := range params {
		if _, ok := reserved[key]; ok {
			continue
		}
		field, op := splitComparator(key)
		f.Filters = append(f.Filters, Filter{Field: field, Op: op, Value: value})
	}

	f.Search = params["keyword"]

	if raw := params["sort"]; raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			key := SortKey{Field: part}
			if strings.HasPrefix(part, "-") {
				key.Field = strings.TrimPrefix(part, "-")
				key.Desc = true
			}
			f.Sort = append(f.Sort, key)
		}
	}

	if raw := params["fields"]; raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				f.Fields = append(f.Fields, part)
			}
		}
	}

	if page, err := strconv.Atoi(params["page"]); err == nil && page > 0 {
		f.Page = page
	}
	if limit, err := strconv.Atoi(params["limit"]); err == nil && limit > 0 {
		f.Limit = limit
	}

	return f
}

// splitComparator выделяет из ключа оператор скобочной нотации.
// Ключ без известного оператора означает равенство.
func splitComparator(key string) (field, op string) {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return key, OpEq
	}
	name := key[open+1 : len(key)-1]
	cmp, ok := comparators[name]
	if !ok {
		return key, OpEq
	}
	return key[:open], cmp
}

// Offset возвращает смещение выборки по текущим page и limit.
func (f *Features) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Pagination вычисляет метаданные по заранее подсчитанному общему числу записей.
// Подсчет выполняет вызывающая сторона до применения limit и offset.
func (f *Features) Pagination(total int) Meta {
	meta := Meta{
		CurrentPage: f.Page,
		Limit:       f.Limit,
		TotalCount:  total,
	}
	if f.Limit > 0 {
		meta.TotalPages = (total + f.Limit - 1) / f.Limit
	}
	if f.Offset()+f.Limit < total {
		next := f.Page + 1
		meta.Next = &next
	}
	if f.Offset() > 0 {
		prev := f.Page - 1
		meta.Prev = &prev
	}
	return meta
}
