// Package fieldfilter реализует удаление запрещенных ключей из записи.
package fieldfilter

import "github.com/magabrotheeeer/account-service/internal/entity"

// Filter возвращает копию record без ключей из excluded.
// Исходная запись не изменяется, неизвестные ключи в excluded игнорируются.
func Filter(record entity.Record, excluded []string) entity.Record {
	skip := make(map[string]struct{}, len(excluded))
	for _, key := range excluded {
		skip[key] = struct{}{}
	}

	filtered := make(entity.Record, len(record))
	for key, value := range record {
		if _, ok := skip[key]; ok {
			continue
		}
		filtered[key] = value
	}
	return filtered
}
