// Package entity описывает сущности хранилища через явные дескрипторы полей.
//
// Дескриптор задается один раз при настройке приложения: перечень полей,
// идентификатор, скрытые поля и связи. Универсальные CRUD-слои опираются
// только на дескриптор и не используют рефлексию по моделям.
package entity

// Record запись сущности в виде набора поле-значение.
type Record = map[string]any

// Relation описывает ссылочное поле, которое может быть развернуто
// во вложенные записи при чтении (populate).
type Relation struct {
	Field     string   // Поле-список ссылок у владельца
	Table     string   // Таблица целевой сущности
	RefColumn string   // Колонка идентификатора в целевой таблице
	Fields    []string // Поля целевой сущности, попадающие во вложенную запись
}

// Descriptor явное описание сущности для универсальных CRUD-слоев.
type Descriptor struct {
	Name         string            // Имя сущности, используется в ключах кеша и сообщениях
	Table        string            // Таблица хранилища
	IDColumn     string            // Колонка идентификатора
	Fields       []string          // Полный перечень объявленных полей
	Sensitive    []string          // Поля, исключаемые из проекции по умолчанию
	SearchFields []string          // Текстовые поля для поиска по подстроке
	Validation   map[string]string // Правила валидации по полям в нотации validator
	Relations    []Relation        // Объявленные связи для populate
}

// HasField сообщает, объявлено ли поле у сущности.
func (d *Descriptor) HasField(name string) bool {
	for _, f := range d.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// IsSensitive сообщает, скрыто ли поле из проекции по умолчанию.
func (d *Descriptor) IsSensitive(name string) bool {
	for _, f := range d.Sensitive {
		if f == name {
			return true
		}
	}
	return false
}

// DefaultProjection возвращает объявленные поля без скрытых.
func (d *Descriptor) DefaultProjection() []string {
	projection := make([]string, 0, len(d.Fields))
	for _, f := range d.Fields {
		if d.IsSensitive(f) {
			continue
		}
		projection = append(projection, f)
	}
	return projection
}

// RelationFor возвращает объявленную связь для поля, если она есть.
func (d *Descriptor) RelationFor(field string) (Relation, bool) {
	for _, rel := range d.Relations {
		if rel.Field == field {
			return rel, true
		}
	}
	return Relation{}, false
}
