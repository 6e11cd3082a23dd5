// Package crudfactory собирает пять стандартных CRUD-обработчиков поверх
// обобщенного сервиса. Новая коллекция подключается одним вызовом фабрики:
// дескриптор задает поля и правила, опции уточняют поведение.
package crudfactory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/account-service/internal/entity"
	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/http/validation"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/query"
	crudservices "github.com/magabrotheeeer/account-service/internal/services/crud"
)

// Поля, которые никогда не принимаются из тела запроса.
var alwaysExcluded = []string{"id", "slug", "created_at", "updated_at"}

// ExcludedData поля, отбрасываемые из тела запроса по операциям.
type ExcludedData struct {
	Create []string
	Update []string
}

// Options настройки фабрики для одной коллекции.
// ExcludeValidation отключает встроенные правила дескриптора для полей,
// которые проверяются кастомной цепочкой.
type Options struct {
	ExcludedData      ExcludedData
	ExcludeValidation []string
	CreateValidators  []validation.Rule
	UpdateValidators  []validation.Rule

	// TransformCreate выполняется после валидации и может изменить тело
	// перед сохранением, например захэшировать пароль.
	TransformCreate func(ctx context.Context, body entity.Record) error
}

// Factory набор CRUD-обработчиков одной коллекции.
type Factory struct {
	service *crudservices.CrudService
	log     *slog.Logger

	excludedCreate []string
	excludedUpdate []string
	updatable      []string
	createChain     *validation.Chain
	updateChain     *validation.Chain
	transformCreate func(ctx context.Context, body entity.Record) error
	validate        *validator.Validate
}

// New собирает фабрику обработчиков для коллекции сервиса.
func New(service *crudservices.CrudService, opts Options, log *slog.Logger) *Factory {
	desc := service.Descriptor()

	f := &Factory{
		service:         service,
		log:             log,
		excludedCreate:  append(append([]string{}, alwaysExcluded...), opts.ExcludedData.Create...),
		excludedUpdate:  append(append([]string{}, alwaysExcluded...), opts.ExcludedData.Update...),
		transformCreate: opts.TransformCreate,
		validate:        validator.New(),
	}

	for _, field := range desc.Fields {
		if contains(f.excludedUpdate, field) || desc.IsSensitive(field) {
			continue
		}
		f.updatable = append(f.updatable, field)
	}

	var createRules, updateRules []validation.Rule
	for _, field := range desc.Fields {
		tag, ok := desc.Validation[field]
		if !ok || contains(opts.ExcludeValidation, field) {
			continue
		}
		if !contains(f.excludedCreate, field) {
			createRules = append(createRules, validation.Rule{Field: field, Tag: tag})
		}
		if contains(f.updatable, field) {
			updateRules = append(updateRules, validation.Rule{Field: field, Tag: tag, Optional: true})
		}
	}
	createRules = append(createRules, opts.CreateValidators...)
	updateRules = append(updateRules, opts.UpdateValidators...)
	f.createChain = validation.NewChain(createRules...)
	f.updateChain = validation.NewChain(updateRules...)

	return f
}

// Create обрабатывает создание записи.
func (f *Factory) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.crudfactory.Create"

	log := f.log.With(
		slog.String("op", op),
		slog.String("entity", f.service.Descriptor().Name),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var body entity.Record
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Fail(http.StatusBadRequest, "BAD_REQUEST", "invalid request body"))
		return
	}

	if msgs := f.createChain.Validate(r.Context(), body); len(msgs) > 0 {
		log.Error("validation failed", slog.Any("violations", msgs))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationErrors(msgs))
		return
	}
	log.Info("all fields are validated")

	if f.transformCreate != nil {
		if err := f.transformCreate(r.Context(), body); err != nil {
			log.Error("failed to prepare record", sl.Err(err))
			response.Err(w, r, err)
			return
		}
	}

	created, err := f.service.Create(r.Context(), body, f.excludedCreate)
	if err != nil {
		log.Error("failed to create record", sl.Err(err))
		response.Err(w, r, err)
		return
	}

	response.Write(w, r, response.Created(
		fmt.Sprintf("%s created successfully", f.service.Descriptor().Name), created))
}

// GetAll обрабатывает постраничную выборку записей.
func (f *Factory) GetAll(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.crudfactory.GetAll"

	log := f.log.With(
		slog.String("op", op),
		slog.String("entity", f.service.Descriptor().Name),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	features := query.Parse(flatten(r.URL.Query()))

	records, meta, err := f.service.GetAll(r.Context(), features)
	if err != nil {
		log.Error("failed to list records", sl.Err(err))
		response.Err(w, r, err)
		return
	}

	response.Write(w, r, response.OK(
		fmt.Sprintf("%s list fetched successfully", f.service.Descriptor().Name),
		map[string]any{
			"items":      records,
			"pagination": meta,
		}))
}

// GetOne обрабатывает выборку одной записи по идентификатору.
func (f *Factory) GetOne(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.crudfactory.GetOne"

	log := f.log.With(
		slog.String("op", op),
		slog.String("entity", f.service.Descriptor().Name),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	if err := f.validate.Var(id, "required,uuid"); err != nil {
		log.Error("invalid id param", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Fail(http.StatusBadRequest, "BAD_REQUEST", "id must be a valid uuid"))
		return
	}

	features := query.Parse(flatten(r.URL.Query()))

	record, err := f.service.GetOne(r.Context(), id, features)
	if err != nil {
		log.Error("failed to get record", sl.Err(err))
		response.Err(w, r, err)
		return
	}

	response.Write(w, r, response.OK(
		fmt.Sprintf("%s fetched successfully", f.service.Descriptor().Name), record))
}

// Update обрабатывает частичное обновление записи. Тело запроса обязано
// содержать хотя бы одно обновляемое поле.
func (f *Factory) Update(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.crudfactory.Update"

	log := f.log.With(
		slog.String("op", op),
		slog.String("entity", f.service.Descriptor().Name),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	if err := f.validate.Var(id, "required,uuid"); err != nil {
		log.Error("invalid id param", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Fail(http.StatusBadRequest, "BAD_REQUEST", "id must be a valid uuid"))
		return
	}

	var body entity.Record
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Fail(http.StatusBadRequest, "BAD_REQUEST", "invalid request body"))
		return
	}

	if msg, ok := validation.RequireAnyOf(f.updatable)(r.Context(), body); !ok {
		log.Error("no updatable fields in request body")
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationErrors([]string{msg}))
		return
	}

	if msgs := f.updateChain.Validate(r.Context(), body); len(msgs) > 0 {
		log.Error("validation failed", slog.Any("violations", msgs))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationErrors(msgs))
		return
	}
	log.Info("all fields are validated")

	updated, err := f.service.Update(r.Context(), id, body, f.excludedUpdate)
	if err != nil {
		log.Error("failed to update record", sl.Err(err))
		response.Err(w, r, err)
		return
	}

	response.Write(w, r, response.OK(
		fmt.Sprintf("%s updated successfully", f.service.Descriptor().Name), updated))
}

// Delete обрабатывает удаление записи по идентификатору.
func (f *Factory) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.crudfactory.Delete"

	log := f.log.With(
		slog.String("op", op),
		slog.String("entity", f.service.Descriptor().Name),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	if err := f.validate.Var(id, "required,uuid"); err != nil {
		log.Error("invalid id param", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Fail(http.StatusBadRequest, "BAD_REQUEST", "id must be a valid uuid"))
		return
	}

	deleted, err := f.service.Delete(r.Context(), id)
	if err != nil {
		log.Error("failed to delete record", sl.Err(err))
		response.Err(w, r, err)
		return
	}

	response.Write(w, r, response.OK(
		fmt.Sprintf("%s deleted successfully", f.service.Descriptor().Name), deleted))
}

// Routes регистрирует все пять обработчиков по заданному префиксу.
// Обработчики добавляются в общий роутер, чтобы статические маршруты
// вида /users/me продолжали работать рядом с /users/{id}.
func (f *Factory) Routes(r chi.Router, prefix string) {
	r.Get(prefix, f.GetAll)
	r.Post(prefix, f.Create)
	r.Get(prefix+"/{id}", f.GetOne)
	r.Patch(prefix+"/{id}", f.Update)
	r.Delete(prefix+"/{id}", f.Delete)
}

// flatten приводит параметры запроса к плоской карте; повторяющиеся
// значения объединяются через запятую.
func flatten(values url.Values) map[string]string {
	params := make(map[string]string, len(values))
	for key, list := range values {
		params[key] = strings.Join(list, ",")
	}
	return params
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
