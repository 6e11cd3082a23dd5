package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/account-service/internal/entity"
	"github.com/magabrotheeeer/account-service/internal/query"
)

// Универсальные методы работы с записями произвольной сущности.
// Все имена колонок берутся из дескриптора, значения передаются
// параметрами; ключи, не объявленные в дескрипторе, отбрасываются.

// Insert добавляет запись и возвращает её в проекции по умолчанию.
func (s *Storage) Insert(ctx context.Context, desc *entity.Descriptor, rec entity.Record) (entity.Record, error) {
	const op = "storage.Insert"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	columns := make([]string, 0, len(rec))
	for key := range rec {
		if key == desc.IDColumn || !desc.HasField(key) {
			continue
		}
		columns = append(columns, key)
	}
	sort.Strings(columns)
	if len(columns) == 0 {
		return nil, fmt.Errorf("%s: no insertable fields", op)
	}

	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = driverValue(rec[col])
	}

	projection := desc.DefaultProjection()
	q := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING %s`,
		desc.Table, strings.Join(columns, ", "),
		strings.Join(placeholders, ", "), strings.Join(projection, ", "))

	row, err := s.queryOne(ctx, q, projection, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return row, nil
}

// FindByID возвращает запись по идентификатору с учетом проекции полей
// и разворачивания объявленных связей.
func (s *Storage) FindByID(ctx context.Context, desc *entity.Descriptor, id string, f *query.Features) (entity.Record, error) {
	const op = "storage.FindByID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	projection := s.projection(desc, f)
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		strings.Join(projection, ", "), desc.Table, desc.IDColumn)

	rec, err := s.queryOne(ctx, q, projection, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.populate(ctx, desc, projection, []entity.Record{rec}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

// Find возвращает страницу записей: фильтр, поиск, сортировка,
// пагинация и проекция применяются в фиксированном порядке.
func (s *Storage) Find(ctx context.Context, desc *entity.Descriptor, f *query.Features) ([]entity.Record, error) {
	const op = "storage.Find"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	projection := s.projection(desc, f)
	where, args := buildWhere(desc, f)
	q := fmt.Sprintf(`SELECT %s FROM %s%s%s LIMIT $%d OFFSET $%d`,
		strings.Join(projection, ", "), desc.Table, where,
		buildOrder(desc, f.Sort), len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset())

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []entity.Record
	for rows.Next() {
		rec, err := scanRecord(rows, projection)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.populate(ctx, desc, projection, records); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return records, nil
}

// Count подсчитывает записи под фильтром и поиском без учета пагинации.
func (s *Storage) Count(ctx context.Context, desc *entity.Descriptor, f *query.Features) (int, error) {
	const op = "storage.Count"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	where, args := buildWhere(desc, f)
	q := fmt.Sprintf(`SELECT COUNT(*) FROM %s%s`, desc.Table, where)

	var total int
	if err := s.DB.QueryRowContext(ctx, q, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return total, nil
}

// UpdateByID применяет частичное обновление и возвращает запись после него.
func (s *Storage) UpdateByID(ctx context.Context, desc *entity.Descriptor, id string, rec entity.Record) (entity.Record, error) {
	const op = "storage.UpdateByID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	columns := make([]string, 0, len(rec))
	for key := range rec {
		if key == desc.IDColumn || !desc.HasField(key) {
			continue
		}
		columns = append(columns, key)
	}
	sort.Strings(columns)
	if len(columns) == 0 {
		return nil, fmt.Errorf("%s: no updatable fields", op)
	}

	assignments := make([]string, 0, len(columns)+1)
	args := make([]any, 0, len(columns)+1)
	for i, col := range columns {
		assignments = append(assignments, fmt.Sprintf("%s = $%d", col, i+1))
		args = append(args, driverValue(rec[col]))
	}
	assignments = append(assignments, fmt.Sprintf("updated_at = $%d", len(args)+1))
	args = append(args, time.Now().UTC())
	args = append(args, id)

	projection := desc.DefaultProjection()
	q := fmt.Sprintf(`UPDATE %s SET %s WHERE %s = $%d RETURNING %s`,
		desc.Table, strings.Join(assignments, ", "),
		desc.IDColumn, len(args), strings.Join(projection, ", "))

	row, err := s.queryOne(ctx, q, projection, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return row, nil
}

// DeleteByID удаляет запись и возвращает удаленное.
func (s *Storage) DeleteByID(ctx context.Context, desc *entity.Descriptor, id string) (entity.Record, error) {
	const op = "storage.DeleteByID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	projection := desc.DefaultProjection()
	q := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 RETURNING %s`,
		desc.Table, desc.IDColumn, strings.Join(projection, ", "))

	row, err := s.queryOne(ctx, q, projection, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return row, nil
}

// projection возвращает список выбираемых колонок: запрошенные поля,
// ограниченные объявленными, либо проекция по умолчанию. Колонка
// идентификатора присутствует всегда; скрытые поля недоступны для
// явного выбора, их читают только специализированные запросы.
func (s *Storage) projection(desc *entity.Descriptor, f *query.Features) []string {
	if f == nil || len(f.Fields) == 0 {
		return desc.DefaultProjection()
	}
	projection := []string{desc.IDColumn}
	for _, field := range f.Fields {
		if field == desc.IDColumn || !desc.HasField(field) || desc.IsSensitive(field) {
			continue
		}
		projection = append(projection, field)
	}
	return projection
}

// populate разворачивает объявленные связи, попавшие в проекцию,
// во вложенные записи целевой сущности. Значения, не являющиеся
// корректными uuid, в выборку не попадают.
func (s *Storage) populate(ctx context.Context, desc *entity.Descriptor, projection []string, records []entity.Record) error {
	for _, field := range projection {
		rel, ok := desc.RelationFor(field)
		if !ok {
			continue
		}

		ids := make(map[string]struct{})
		for _, rec := range records {
			for _, id := range refIDs(rec[rel.Field]) {
				if _, err := uuid.Parse(id); err != nil {
					continue
				}
				ids[id] = struct{}{}
			}
		}
		if len(ids) == 0 {
			continue
		}

		flat := make([]string, 0, len(ids))
		for id := range ids {
			flat = append(flat, id)
		}
		sort.Strings(flat)

		q := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ANY($1::uuid[])`,
			strings.Join(rel.Fields, ", "), rel.Table, rel.RefColumn)
		rows, err := s.DB.QueryContext(ctx, q, "{"+strings.Join(flat, ",")+"}")
		if err != nil {
			return err
		}

		byID := make(map[string]entity.Record, len(flat))
		for rows.Next() {
			rec, err := scanRecord(rows, rel.Fields)
			if err != nil {
				_ = rows.Close()
				return err
			}
			if id, ok := rec[rel.RefColumn].(string); ok {
				byID[id] = rec
			}
		}
		if err = rows.Err(); err != nil {
			_ = rows.Close()
			return err
		}
		_ = rows.Close()

		for _, rec := range records {
			expanded := make([]entity.Record, 0)
			for _, id := range refIDs(rec[rel.Field]) {
				if embedded, ok := byID[id]; ok {
					expanded = append(expanded, embedded)
				}
			}
			rec[rel.Field] = expanded
		}
	}
	return nil
}

// queryOne выполняет запрос, возвращающий одну строку проекции.
func (s *Storage) queryOne(ctx context.Context, q string, projection []string, args ...any) (entity.Record, error) {
	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return nil, err
		}
		return nil, sql.ErrNoRows
	}
	rec, err := scanRecord(rows, projection)
	if err != nil {
		return nil, err
	}
	return rec, rows.Err()
}

// scanRecord читает текущую строку курсора в запись.
// Jsonb-колонки раскрываются в значения, остальные байтовые — в строки.
func scanRecord(rows *sql.Rows, projection []string) (entity.Record, error) {
	values := make([]any, len(projection))
	dest := make([]any, len(projection))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}

	rec := make(entity.Record, len(projection))
	for i, col := range projection {
		switch v := values[i].(type) {
		case []byte:
			var decoded any
			if err := json.Unmarshal(v, &decoded); err == nil {
				rec[col] = decoded
			} else {
				rec[col] = string(v)
			}
		default:
			rec[col] = v
		}
	}
	return rec, nil
}

// buildWhere собирает условия фильтра и поиска в WHERE-клаузу.
// Поля, не объявленные в дескрипторе, и скрытые поля пропускаются:
// фильтр по скрытой колонке работал бы как оракул для подбора кодов.
func buildWhere(desc *entity.Descriptor, f *query.Features) (string, []any) {
	var conditions []string
	var args []any

	if f != nil {
		for _, filter := range f.Filters {
			if !desc.HasField(filter.Field) || desc.IsSensitive(filter.Field) {
				continue
			}
			args = append(args, filter.Value)
			conditions = append(conditions,
				fmt.Sprintf("%s %s $%d", filter.Field, filter.Op, len(args)))
		}

		if f.Search != "" && len(desc.SearchFields) > 0 {
			args = append(args, "%"+f.Search+"%")
			matches := make([]string, len(desc.SearchFields))
			for i, field := range desc.SearchFields {
				matches[i] = fmt.Sprintf("%s ILIKE $%d", field, len(args))
			}
			conditions = append(conditions, "("+strings.Join(matches, " OR ")+")")
		}
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// buildOrder собирает ORDER BY из ключей сортировки в порядке перечисления.
// Без явной сортировки записи упорядочиваются по идентификатору.
func buildOrder(desc *entity.Descriptor, keys []query.SortKey) string {
	var parts []string
	for _, key := range keys {
		if !desc.HasField(key.Field) || desc.IsSensitive(key.Field) {
			continue
		}
		direction := "ASC"
		if key.Desc {
			direction = "DESC"
		}
		parts = append(parts, key.Field+" "+direction)
	}
	if len(parts) == 0 {
		parts = append(parts, desc.IDColumn+" ASC")
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

// driverValue приводит значение записи к виду, пригодному для драйвера:
// вложенные структуры и списки сериализуются в jsonb.
func driverValue(v any) any {
	switch v.(type) {
	case nil, string, bool, int, int32, int64, float32, float64, []byte, time.Time, *time.Time:
		return v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return v
		}
		return data
	}
}

func refIDs(value any) []string {
	switch refs := value.(type) {
	case []string:
		return refs
	case []any:
		ids := make([]string, 0, len(refs))
		for _, ref := range refs {
			if id, ok := ref.(string); ok {
				ids = append(ids, id)
			}
		}
		return ids
	case []entity.Record:
		ids := make([]string, 0, len(refs))
		for _, ref := range refs {
			if id, ok := ref["id"].(string); ok {
				ids = append(ids, id)
			}
		}
		return ids
	default:
		return nil
	}
}
